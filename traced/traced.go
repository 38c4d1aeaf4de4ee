// Package traced converts raw Graph API records into provenance-annotated
// records for downstream analysis pipelines. Each converted record carries
// its fields namespaced under a dataset name, a pseudonymous author
// identifier resolved through an external lookup table, and metadata
// describing who produced it, where, and when.
package traced

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"time"

	gfberrors "github.com/avsocial/go-facebook-api-wrapper/pkg/errors"
	"github.com/avsocial/go-facebook-api-wrapper/pkg/types"
	"github.com/avsocial/go-facebook-api-wrapper/pkg/validation"
)

// PseudonymField is the key under which the pseudonymous author identifier
// is stored in a converted record.
const PseudonymField = "avf_facebook_id"

// Derived post types produced by CleanPostType.
const (
	PostTypePhoto = "photo"
	PostTypeVideo = "video"
)

// timeNow is swapped out in tests to make provenance timestamps
// deterministic.
var timeNow = time.Now

// Metadata records the provenance of one generation step of a traced
// record: the actor that produced it, the code location that did so, and
// when.
type Metadata struct {
	Actor     string `json:"actor"`
	CallSite  string `json:"call_site"`
	Timestamp string `json:"timestamp"`
}

// TracedRecord is a data record augmented with provenance metadata. Its
// history is append-only: every transformation that touches the record is
// expected to add a Metadata entry.
type TracedRecord struct {
	fields  map[string]json.RawMessage
	history []Metadata
}

// NewTracedRecord creates a traced record from its initial fields and the
// metadata of the step that produced them.
func NewTracedRecord(fields map[string]json.RawMessage, meta Metadata) *TracedRecord {
	copied := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &TracedRecord{
		fields:  copied,
		history: []Metadata{meta},
	}
}

// Get returns the raw value of a field.
func (r *TracedRecord) Get(key string) (json.RawMessage, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// GetString returns the named field decoded as a JSON string, or "" if it
// is absent or not a string.
func (r *TracedRecord) GetString(key string) string {
	raw, ok := r.fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Keys returns the record's field names in sorted order.
func (r *TracedRecord) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// History returns a copy of the record's provenance history, oldest first.
func (r *TracedRecord) History() []Metadata {
	out := make([]Metadata, len(r.history))
	copy(out, r.history)
	return out
}

// AppendMetadata adds new fields to the record together with the metadata
// of the step that produced them. Existing fields are overwritten by new
// values under the same key.
func (r *TracedRecord) AppendMetadata(fields map[string]json.RawMessage, meta Metadata) {
	for k, v := range fields {
		r.fields[k] = v
	}
	r.history = append(r.history, meta)
}

// MarshalJSON renders the record as {"fields": ..., "history": [...]}.
func (r *TracedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Fields  map[string]json.RawMessage `json:"fields"`
		History []Metadata                 `json:"history"`
	}{
		Fields:  r.fields,
		History: r.history,
	})
}

// CleanPostType classifies a post by its attachment list.
//
// Returns PostTypePhoto or PostTypeVideo, or "" for a post without
// attachments. An attachment of an unrecognized type, or a post mixing
// photo and video attachments, is a contract violation and returns a
// *gfberrors.AttachmentKindError.
func CleanPostType(post *types.Post) (string, error) {
	attachments, err := post.Attachments()
	if err != nil {
		return "", &gfberrors.ParseError{What: "post attachments", Err: err}
	}

	postType := ""
	for _, attachment := range attachments {
		switch attachment.Type {
		case "video_inline", "video_direct_response":
			if postType != "" && postType != PostTypeVideo {
				return "", &gfberrors.AttachmentKindError{
					PostID:   post.ID(),
					Kind:     attachment.Type,
					Conflict: postType,
				}
			}
			postType = PostTypeVideo
		case "photo":
			if postType != "" && postType != PostTypePhoto {
				return "", &gfberrors.AttachmentKindError{
					PostID:   post.ID(),
					Kind:     attachment.Type,
					Conflict: postType,
				}
			}
			postType = PostTypePhoto
		default:
			return "", &gfberrors.AttachmentKindError{
				PostID: post.ID(),
				Kind:   attachment.Type,
			}
		}
	}

	return postType, nil
}

// ConvertCommentsToTracedData converts raw comments into traced records.
//
// Every comment author's platform id is batch-resolved to a pseudonymous
// identifier through the lookup table; an id the table cannot resolve
// surfaces the table's error unchanged. Each comment's created_time is
// normalized to a validated UTC ISO 8601 string, and the comment's fields
// are stored namespaced as "<datasetName>.<field>" together with the
// pseudonym and the generation metadata.
func ConvertCommentsToTracedData(ctx context.Context, actor, datasetName string, rawComments []*types.Comment, table UUIDTable) ([]*TracedRecord, error) {
	authorIDs := make([]string, 0, len(rawComments))
	seen := make(map[string]bool, len(rawComments))
	for _, comment := range rawComments {
		authorID := comment.AuthorID()
		if authorID == "" {
			return nil, fmt.Errorf("comment %q has no author id", comment.ID())
		}
		if !seen[authorID] {
			seen[authorID] = true
			authorIDs = append(authorIDs, authorID)
		}
	}

	lut, err := table.DataToUUIDBatch(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	traced := make([]*TracedRecord, 0, len(rawComments))
	for _, comment := range rawComments {
		normalized, err := normalizeUTCTimestamp(comment.CreatedTime())
		if err != nil {
			return nil, fmt.Errorf("comment %q: %w", comment.ID(), err)
		}

		pseudonym, ok := lut[comment.AuthorID()]
		if !ok {
			return nil, fmt.Errorf("lookup table returned no mapping for author of comment %q", comment.ID())
		}

		fields := make(map[string]json.RawMessage, len(comment.Record)+1)
		fields[PseudonymField] = mustMarshalString(pseudonym)
		for k, v := range comment.Record {
			if k == "created_time" {
				v = mustMarshalString(normalized)
			}
			fields[datasetName+"."+k] = v
		}

		traced = append(traced, NewTracedRecord(fields, Metadata{
			Actor:     actor,
			CallSite:  callSite(),
			Timestamp: utcNowISOString(),
		}))
	}

	return traced, nil
}

// created_time layouts seen in Graph API payloads: RFC 3339 proper and the
// API's colon-less zone offset variant ("2020-10-01T12:00:00+0000").
var createdTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
}

// normalizeUTCTimestamp parses an ISO 8601 timestamp in any zone and
// re-renders it as a validated UTC string with a "Z" suffix.
func normalizeUTCTimestamp(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("created_time is missing")
	}

	var t time.Time
	var err error
	for _, layout := range createdTimeLayouts {
		t, err = time.Parse(layout, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("created_time %q is not a valid ISO 8601 timestamp", s)
	}

	normalized := t.UTC().Format(time.RFC3339Nano)
	if err := validation.ValidateUTCISOString(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// utcNowISOString renders the current instant as a UTC ISO 8601 string,
// the format provenance timestamps are stored in.
func utcNowISOString() string {
	return timeNow().UTC().Format(time.RFC3339Nano)
}

// callSite reports the file:line of the conversion step for provenance.
func callSite() string {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func mustMarshalString(s string) json.RawMessage {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal of a string cannot fail
		panic(err)
	}
	return b
}
