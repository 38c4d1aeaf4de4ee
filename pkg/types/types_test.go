package types

import (
	"encoding/json"
	"testing"
)

func TestRecord_StringField(t *testing.T) {
	record := Record{
		"id":      json.RawMessage(`"123_456"`),
		"message": json.RawMessage(`"hello"`),
		"likes":   json.RawMessage(`42`),
	}

	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "string field", key: "message", want: "hello"},
		{name: "id field", key: "id", want: "123_456"},
		{name: "absent field", key: "story", want: ""},
		{name: "non-string field", key: "likes", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := record.StringField(tt.key); got != tt.want {
				t.Errorf("StringField(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if record.ID() != "123_456" {
		t.Errorf("ID() = %q, want %q", record.ID(), "123_456")
	}
}

func TestRecord_DecodeField(t *testing.T) {
	record := Record{
		"from": json.RawMessage(`{"id": "42", "name": "A Page"}`),
	}

	var from struct {
		ID string `json:"id"`
	}
	ok, err := record.DecodeField("from", &from)
	if err != nil {
		t.Fatalf("DecodeField() error: %v", err)
	}
	if !ok {
		t.Fatal("DecodeField() reported the field absent")
	}
	if from.ID != "42" {
		t.Errorf("decoded id = %q, want %q", from.ID, "42")
	}

	ok, err = record.DecodeField("missing", &from)
	if err != nil {
		t.Fatalf("DecodeField() on absent field: %v", err)
	}
	if ok {
		t.Error("DecodeField() should report an absent field")
	}

	var wrongShape int
	ok, err = record.DecodeField("from", &wrongShape)
	if !ok {
		t.Error("DecodeField() should report a present field even on decode failure")
	}
	if err == nil {
		t.Error("DecodeField() should fail decoding an object into an int")
	}
}

func TestPost_RoundTrip(t *testing.T) {
	input := `{"id": "123_456", "message": "hi", "custom_field": {"nested": true}}`

	var post Post
	if err := json.Unmarshal([]byte(input), &post); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if post.ID() != "123_456" {
		t.Errorf("ID() = %q, want %q", post.ID(), "123_456")
	}
	if post.Message() != "hi" {
		t.Errorf("Message() = %q, want %q", post.Message(), "hi")
	}
	if !post.Has("custom_field") {
		t.Error("projected field custom_field was lost")
	}

	out, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("re-decoding marshalled post: %v", err)
	}
	if len(decoded) != 3 {
		t.Errorf("marshalled post has %d fields, want 3", len(decoded))
	}
	if string(decoded["custom_field"]) != `{"nested":true}` &&
		string(decoded["custom_field"]) != `{"nested": true}` {
		t.Errorf("custom_field = %s", decoded["custom_field"])
	}
}

func TestPost_Attachments(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTypes []string
	}{
		{
			name:  "photo attachment",
			input: `{"id": "1", "attachments": {"data": [{"type": "photo", "url": "https://example.org/p"}]}}`,
			wantTypes: []string{"photo"},
		},
		{
			name:  "multiple attachments",
			input: `{"id": "1", "attachments": {"data": [{"type": "photo"}, {"type": "photo"}]}}`,
			wantTypes: []string{"photo", "photo"},
		},
		{
			name:      "no attachments field",
			input:     `{"id": "1", "message": "text only"}`,
			wantTypes: nil,
		},
		{
			name:      "empty attachment list",
			input:     `{"id": "1", "attachments": {"data": []}}`,
			wantTypes: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var post Post
			if err := json.Unmarshal([]byte(tt.input), &post); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}

			attachments, err := post.Attachments()
			if err != nil {
				t.Fatalf("Attachments() error: %v", err)
			}
			if len(attachments) != len(tt.wantTypes) {
				t.Fatalf("got %d attachments, want %d", len(attachments), len(tt.wantTypes))
			}
			for i, want := range tt.wantTypes {
				if attachments[i].Type != want {
					t.Errorf("attachment %d type = %q, want %q", i, attachments[i].Type, want)
				}
			}
		})
	}
}

func TestComment_AuthorID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "with author", input: `{"id": "c1", "from": {"id": "42", "name": "Someone"}}`, want: "42"},
		{name: "withheld author", input: `{"id": "c1"}`, want: ""},
		{name: "empty from object", input: `{"id": "c1", "from": {}}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var comment Comment
			if err := json.Unmarshal([]byte(tt.input), &comment); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if got := comment.AuthorID(); got != tt.want {
				t.Errorf("AuthorID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInsight_RawValues(t *testing.T) {
	input := `{
		"id": "123_456/insights/post_reactions_by_type_total/lifetime",
		"name": "post_reactions_by_type_total",
		"period": "lifetime",
		"values": [{"value": {"like": 3, "love": 1}}]
	}`

	var insight Insight
	if err := json.Unmarshal([]byte(input), &insight); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if insight.Name != "post_reactions_by_type_total" {
		t.Errorf("Name = %q", insight.Name)
	}
	if len(insight.Values) != 1 {
		t.Fatalf("got %d values, want 1", len(insight.Values))
	}

	// Breakdown objects survive as raw JSON rather than being coerced.
	var breakdown map[string]int
	if err := json.Unmarshal(insight.Values[0].Value, &breakdown); err != nil {
		t.Fatalf("decoding breakdown value: %v", err)
	}
	if breakdown["like"] != 3 || breakdown["love"] != 1 {
		t.Errorf("breakdown = %v", breakdown)
	}
}
