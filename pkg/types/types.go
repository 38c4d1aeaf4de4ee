package types

import (
	"encoding/json"
	"io"
	"time"
)

// Record is a raw Graph API object: the JSON object exactly as the API
// returned it, restricted to whichever fields the caller projected.
// Values are kept as raw JSON so that no field is lost or coerced before
// the record reaches a downstream consumer.
type Record map[string]json.RawMessage

// ID returns the record's "id" field, or "" if absent.
// Every record returned by the client carries an id because the client
// force-includes it in the field projection.
func (r Record) ID() string {
	return r.StringField("id")
}

// Has reports whether the record contains the given field.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// StringField decodes the named field as a JSON string.
// Returns "" if the field is absent or not a string.
func (r Record) StringField(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// DecodeField unmarshals the named field into v.
// Returns false without touching v if the field is absent.
func (r Record) DecodeField(key string, v any) (bool, error) {
	raw, ok := r[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, err
	}
	return true, nil
}

// Post is a page post in the format returned by the Graph API.
// Only the projected fields are present; "id" is always among them.
type Post struct {
	Record
}

func (p *Post) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.Record)
}

func (p Post) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Record)
}

// CreatedTime returns the post's "created_time" field, or "" if it was not
// projected.
func (p Post) CreatedTime() string {
	return p.StringField("created_time")
}

// Message returns the post's "message" field, or "" if it was not projected.
func (p Post) Message() string {
	return p.StringField("message")
}

// Attachments decodes the post's attachment list. Returns nil if the post
// has no "attachments" field (posts without media omit it entirely).
func (p Post) Attachments() ([]Attachment, error) {
	var wrapper struct {
		Data []Attachment `json:"data"`
	}
	ok, err := p.DecodeField("attachments", &wrapper)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return wrapper.Data, nil
}

// Attachment is one entry in a post's attachment list.
type Attachment struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Comment is a comment on a post in the format returned by the Graph API.
// Only the projected fields are present; "id" and "from" are always among
// them because the author id feeds pseudonymization downstream.
type Comment struct {
	Record
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.Record)
}

func (c Comment) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Record)
}

// AuthorID returns the platform user id of the comment's author
// (the "from.id" field), or "" if the API withheld it.
func (c Comment) AuthorID() string {
	var from struct {
		ID string `json:"id"`
	}
	if ok, err := c.DecodeField("from", &from); !ok || err != nil {
		return ""
	}
	return from.ID
}

// CreatedTime returns the comment's "created_time" field, or "" if it was
// not projected.
func (c Comment) CreatedTime() string {
	return c.StringField("created_time")
}

// Message returns the comment's "message" field, or "" if it was not
// projected.
func (c Comment) Message() string {
	return c.StringField("message")
}

// Insight is one metric record in the native shape returned by the
// insights edge: a named metric with a list of values, one per period
// bucket.
type Insight struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Period      string         `json:"period"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Values      []InsightValue `json:"values"`
}

// InsightValue is a single value bucket of an insight metric. Value is kept
// raw because the API returns numbers for some metrics and objects
// (breakdown maps) for others.
type InsightValue struct {
	Value   json.RawMessage `json:"value"`
	EndTime string          `json:"end_time,omitempty"`
}

// Cursors holds the opaque pagination cursors of a page of results.
type Cursors struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// Paging describes how to reach the neighbouring pages of a paged
// response. Next is a complete URL (including the access token) and is
// followed verbatim; its absence terminates the cursor chain.
type Paging struct {
	Cursors  *Cursors `json:"cursors,omitempty"`
	Next     string   `json:"next,omitempty"`
	Previous string   `json:"previous,omitempty"`
}

// PostsRequest describes a request for the posts published by a page.
type PostsRequest struct {
	// PageID identifies the page whose published posts are fetched.
	PageID string

	// Fields to project into each returned post. "id" is always included
	// even if not listed. Empty means the default projection
	// (attachments, created_time, message).
	Fields []string

	// CreatedAfter restricts the download to posts created at or after
	// this instant. The zero value means no lower bound.
	CreatedAfter time.Time

	// CreatedBefore restricts the download to posts created before this
	// instant. The zero value means no upper bound.
	CreatedBefore time.Time
}

// CommentsRequest describes a request for all comments on a post,
// including replies to other comments.
type CommentsRequest struct {
	// PostID identifies the post whose comments are fetched.
	PostID string

	// Fields to project into each returned comment. "id" and "from" are
	// always included even if not listed. Empty means the default
	// projection (parent, attachments, created_time, message).
	Fields []string

	// RawExportLog, when non-nil, receives the full raw download as a
	// single JSON line for auditing.
	RawExportLog io.Writer
}
