package traced

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultPseudonymPrefix is prepended to generated pseudonyms so that a
// pseudonym's originating table is recognizable in downstream datasets.
const DefaultPseudonymPrefix = "avf-facebook-uuid-"

// UUIDTable maps platform user ids to stable pseudonymous identifiers.
// Implementations are typically backed by an external mapping service;
// MemoryUUIDTable is provided for tests and offline runs.
type UUIDTable interface {
	// DataToUUIDBatch resolves every id in data to its pseudonym in one
	// round trip. The returned map contains an entry for each input id,
	// or the call fails.
	DataToUUIDBatch(ctx context.Context, data []string) (map[string]string, error)
}

// UnknownDataError is returned by lookup-only tables for an id that has no
// existing pseudonym mapping.
type UnknownDataError struct {
	Data string
}

func (e *UnknownDataError) Error() string {
	return fmt.Sprintf("no pseudonym mapping exists for %q", e.Data)
}

// MemoryUUIDTable is an in-memory UUIDTable. By default it mints a new
// pseudonym for every id it has not seen, which is the behaviour of the
// production mapping service; a strict table resolves known mappings only.
// Safe for concurrent use.
type MemoryUUIDTable struct {
	mu     sync.Mutex
	prefix string
	strict bool
	byData map[string]string
}

// NewMemoryUUIDTable creates an auto-creating in-memory table. An empty
// prefix means DefaultPseudonymPrefix.
func NewMemoryUUIDTable(prefix string) *MemoryUUIDTable {
	if prefix == "" {
		prefix = DefaultPseudonymPrefix
	}
	return &MemoryUUIDTable{
		prefix: prefix,
		byData: make(map[string]string),
	}
}

// NewStrictMemoryUUIDTable creates a lookup-only table seeded with known
// mappings. Resolving an id outside the seed returns *UnknownDataError.
func NewStrictMemoryUUIDTable(known map[string]string) *MemoryUUIDTable {
	byData := make(map[string]string, len(known))
	for k, v := range known {
		byData[k] = v
	}
	return &MemoryUUIDTable{
		prefix: DefaultPseudonymPrefix,
		strict: true,
		byData: byData,
	}
}

// DataToUUIDBatch implements UUIDTable.
func (t *MemoryUUIDTable) DataToUUIDBatch(ctx context.Context, data []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]string, len(data))
	for _, d := range data {
		mapped, ok := t.byData[d]
		if !ok {
			if t.strict {
				return nil, &UnknownDataError{Data: d}
			}
			mapped = t.prefix + uuid.NewString()
			t.byData[d] = mapped
		}
		out[d] = mapped
	}

	return out, nil
}

// Len returns the number of mappings the table holds.
func (t *MemoryUUIDTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byData)
}
