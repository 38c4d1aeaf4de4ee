package traced

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUUIDTableStableMapping(t *testing.T) {
	table := NewMemoryUUIDTable("")

	first, err := table.DataToUUIDBatch(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.NotEqual(t, first["alice"], first["bob"])

	// A second lookup for the same data returns the same pseudonyms.
	second, err := table.DataToUUIDBatch(context.Background(), []string{"bob", "alice", "carol"})
	require.NoError(t, err)
	assert.Equal(t, first["alice"], second["alice"])
	assert.Equal(t, first["bob"], second["bob"])
	assert.Equal(t, 3, table.Len())
}

func TestMemoryUUIDTableDefaultPrefix(t *testing.T) {
	table := NewMemoryUUIDTable("")

	mapping, err := table.DataToUUIDBatch(context.Background(), []string{"alice"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mapping["alice"], DefaultPseudonymPrefix),
		"pseudonym %q should carry the default prefix", mapping["alice"])
}

func TestMemoryUUIDTableCustomPrefix(t *testing.T) {
	table := NewMemoryUUIDTable("test-uuid-")

	mapping, err := table.DataToUUIDBatch(context.Background(), []string{"alice"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mapping["alice"], "test-uuid-"))
}

func TestStrictMemoryUUIDTable(t *testing.T) {
	table := NewStrictMemoryUUIDTable(map[string]string{
		"alice": "avf-facebook-uuid-a",
		"bob":   "avf-facebook-uuid-b",
	})

	mapping, err := table.DataToUUIDBatch(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, "avf-facebook-uuid-a", mapping["alice"])
	assert.Equal(t, "avf-facebook-uuid-b", mapping["bob"])

	_, err = table.DataToUUIDBatch(context.Background(), []string{"alice", "mallory"})
	var unknownErr *UnknownDataError
	require.Error(t, err)
	require.True(t, errors.As(err, &unknownErr), "expected UnknownDataError, got %T", err)
	assert.Equal(t, "mallory", unknownErr.Data)
}

func TestMemoryUUIDTableEmptyBatch(t *testing.T) {
	table := NewMemoryUUIDTable("")

	mapping, err := table.DataToUUIDBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, mapping)
	assert.Equal(t, 0, table.Len())
}
