package gfb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gfberrors "github.com/avsocial/go-facebook-api-wrapper/pkg/errors"
	"github.com/avsocial/go-facebook-api-wrapper/pkg/types"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(&Config{
		AccessToken: "test-token",
		BaseURL:     baseURL,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	_, err := NewClient(&Config{})
	if err == nil {
		t.Fatal("expected error for missing access token")
	}
	var cfgErr *gfberrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	config := &Config{AccessToken: "tok"}
	if _, err := NewClient(config); err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if config.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", config.BaseURL, DefaultBaseURL)
	}
	if config.PageLimit != MaxResultsPerPage {
		t.Errorf("PageLimit = %d, want %d", config.PageLimit, MaxResultsPerPage)
	}
	if config.HTTPClient == nil {
		t.Error("HTTPClient was not defaulted")
	}
}

func TestGetPostSendsProjectionAndToken(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(t, w, map[string]any{
			"id":           "123_456",
			"created_time": "2020-10-01T12:00:00+0000",
			"message":      "hello",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	post, err := client.GetPost(context.Background(), "123_456", nil)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if got := gotQuery["fields"]; len(got) != 1 || got[0] != "created_time,message,id" {
		t.Errorf("fields query = %v, want default projection", got)
	}
	if got := gotQuery["access_token"]; len(got) != 1 || got[0] != "test-token" {
		t.Errorf("access_token query = %v, want test-token", got)
	}

	if post.ID() != "123_456" {
		t.Errorf("post.ID() = %q, want 123_456", post.ID())
	}
	if post.Message() != "hello" {
		t.Errorf("post.Message() = %q, want hello", post.Message())
	}
}

func TestGetPostForcesIDField(t *testing.T) {
	var fields string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields = r.URL.Query().Get("fields")
		writeJSON(t, w, map[string]any{"id": "1"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.GetPost(context.Background(), "1", []string{"message"}); err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if fields != "message,id" {
		t.Errorf("fields = %q, want id appended exactly once", fields)
	}

	// Caller already listing id must not duplicate it.
	if _, err := client.GetPost(context.Background(), "1", []string{"id", "message"}); err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if fields != "id,message" {
		t.Errorf("fields = %q, want caller order preserved without duplicate id", fields)
	}
}

func TestGetPostAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Invalid OAuth access token.", "type": "OAuthException", "code": 190, "fbtrace_id": "AbCdEf"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GetPost(context.Background(), "123", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *gfberrors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != 190 || apiErr.Type != "OAuthException" {
		t.Errorf("unexpected APIError fields: %+v", apiErr)
	}
	if apiErr.TraceID != "AbCdEf" {
		t.Errorf("TraceID = %q, want AbCdEf", apiErr.TraceID)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
}

func TestGetPostRejectsInvalidID(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	if _, err := client.GetPost(context.Background(), "not a node id", nil); err == nil {
		t.Fatal("expected error for invalid node id")
	}
}

func TestGetPublishedPostsDateRangeParams(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(t, w, map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	eat := time.FixedZone("EAT", 3*3600)
	request := &types.PostsRequest{
		PageID:        "12345",
		CreatedAfter:  time.Date(2020, 1, 1, 12, 0, 0, 0, eat),
		CreatedBefore: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	posts, err := client.GetPublishedPosts(context.Background(), request)
	if err != nil {
		t.Fatalf("GetPublishedPosts failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("got %d posts, want 0", len(posts))
	}

	// Offset zones must be converted to UTC with a Z indicator.
	if got := gotQuery.Get("since"); got != "2020-01-01T09:00:00Z" {
		t.Errorf("since = %q, want 2020-01-01T09:00:00Z", got)
	}
	if got := gotQuery.Get("until"); got != "2020-02-01T00:00:00Z" {
		t.Errorf("until = %q, want 2020-02-01T00:00:00Z", got)
	}
	if got := gotQuery.Get("limit"); got != "100" {
		t.Errorf("limit = %q, want 100", got)
	}
	if got := gotQuery.Get("fields"); got != "attachments,created_time,message,id" {
		t.Errorf("fields = %q, want default page-post projection with id", got)
	}
}

func TestGetPublishedPostsOmitsUnsetBounds(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(t, w, map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.GetPublishedPosts(context.Background(), &types.PostsRequest{PageID: "12345"}); err != nil {
		t.Fatalf("GetPublishedPosts failed: %v", err)
	}

	if _, ok := gotQuery["since"]; ok {
		t.Error("since sent despite zero CreatedAfter")
	}
	if _, ok := gotQuery["until"]; ok {
		t.Error("until sent despite zero CreatedBefore")
	}
}

func TestGetAllCommentsStreamFilterAndForcedFields(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(t, w, map[string]any{
			"data": []any{
				map[string]any{
					"id":           "123_1",
					"message":      "first",
					"created_time": "2020-10-01T12:00:00+0000",
					"from":         map[string]any{"id": "42"},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	comments, err := client.GetAllComments(context.Background(), &types.CommentsRequest{PostID: "123_456"})
	if err != nil {
		t.Fatalf("GetAllComments failed: %v", err)
	}

	if got := gotQuery.Get("filter"); got != "stream" {
		t.Errorf("filter = %q, want stream", got)
	}
	if got := gotQuery.Get("fields"); got != "parent,attachments,created_time,message,id,from" {
		t.Errorf("fields = %q, want default comment projection with id and from", got)
	}

	if len(comments) != 1 {
		t.Fatalf("got %d comments, want 1", len(comments))
	}
	if comments[0].AuthorID() != "42" {
		t.Errorf("AuthorID = %q, want 42", comments[0].AuthorID())
	}
}

func TestGetAllCommentsRawExportLog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"data": []any{
				map[string]any{"id": "c1", "from": map[string]any{"id": "1"}},
				map[string]any{"id": "c2", "from": map[string]any{"id": "2"}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var sink bytes.Buffer
	comments, err := client.GetAllComments(context.Background(), &types.CommentsRequest{
		PostID:       "123",
		RawExportLog: &sink,
	})
	if err != nil {
		t.Fatalf("GetAllComments failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(comments))
	}

	logged := sink.String()
	if !strings.HasSuffix(logged, "\n") {
		t.Error("raw export entry does not end with a newline")
	}
	if got := strings.Count(logged, "\n"); got != 1 {
		t.Errorf("raw export has %d lines, want exactly 1", got)
	}

	var replayed []map[string]any
	if err := json.Unmarshal([]byte(logged), &replayed); err != nil {
		t.Fatalf("raw export line is not valid JSON: %v", err)
	}
	if len(replayed) != 2 {
		t.Errorf("raw export carries %d records, want 2", len(replayed))
	}
}

func TestGetRawPostInsightsKeepsNativeShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/insights") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("metric"); got != "post_impressions,post_engaged_users" {
			t.Errorf("metric = %q", got)
		}
		writeJSON(t, w, map[string]any{
			"data": []any{
				map[string]any{
					"name":   "post_impressions",
					"period": "lifetime",
					"values": []any{
						map[string]any{"value": 150},
						map[string]any{"value": 160},
					},
				},
				map[string]any{
					"name":   "post_engaged_users",
					"period": "lifetime",
					"values": []any{map[string]any{"value": 12}},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	insights, err := client.GetRawPostInsights(context.Background(), "123", []string{"post_impressions", "post_engaged_users"})
	if err != nil {
		t.Fatalf("GetRawPostInsights failed: %v", err)
	}

	if len(insights) != 2 {
		t.Fatalf("got %d insights, want 2", len(insights))
	}
	// The raw accessor must tolerate multi-valued metrics.
	if len(insights[0].Values) != 2 {
		t.Errorf("insight has %d values, want 2", len(insights[0].Values))
	}
}

func TestGetPostInsightsFlattensAndEnforcesShape(t *testing.T) {
	multiValued := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := []any{map[string]any{"value": 150}}
		if multiValued {
			values = append(values, map[string]any{"value": 160})
		}
		writeJSON(t, w, map[string]any{
			"data": []any{
				map[string]any{"name": "post_impressions", "period": "lifetime", "values": values},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	metrics, err := client.GetPostInsights(context.Background(), "123", []string{"post_impressions"})
	if err != nil {
		t.Fatalf("GetPostInsights failed: %v", err)
	}
	if got := string(metrics["post_impressions"]); got != "150" {
		t.Errorf("post_impressions = %s, want 150", got)
	}

	// The same payload with two values must fail loudly in the
	// simplified accessor.
	multiValued = true
	_, err = client.GetPostInsights(context.Background(), "123", []string{"post_impressions"})
	var shapeErr *gfberrors.MetricShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected MetricShapeError, got %T: %v", err, err)
	}
	if shapeErr.Metric != "post_impressions" || shapeErr.Values != 2 {
		t.Errorf("unexpected MetricShapeError fields: %+v", shapeErr)
	}

	// And still succeed in the raw accessor.
	if _, err := client.GetRawPostInsights(context.Background(), "123", []string{"post_impressions"}); err != nil {
		t.Errorf("GetRawPostInsights failed on multi-valued metric: %v", err)
	}
}

func TestFieldProjection(t *testing.T) {
	tests := []struct {
		name     string
		fields   []string
		defaults []string
		forced   []string
		want     string
	}{
		{
			name:     "empty uses defaults",
			defaults: []string{"created_time", "message", "id"},
			forced:   []string{"id"},
			want:     "created_time,message,id",
		},
		{
			name:   "forced appended",
			fields: []string{"message"},
			forced: []string{"id", "from"},
			want:   "message,id,from",
		},
		{
			name:   "duplicates removed",
			fields: []string{"id", "message", "message"},
			forced: []string{"id"},
			want:   "id,message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldProjection(tt.fields, tt.defaults, tt.forced...)
			if got != tt.want {
				t.Errorf("fieldProjection = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFacebookTime(t *testing.T) {
	eat := time.FixedZone("EAT", 3*3600)
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC), "2020-01-01T12:00:00Z"},
		{time.Date(2020, 1, 1, 12, 0, 0, 0, eat), "2020-01-01T09:00:00Z"},
		{time.Date(2020, 1, 1, 12, 0, 0, 500_000_000, time.UTC), "2020-01-01T12:00:00.5Z"},
	}

	for _, tt := range tests {
		if got := facebookTime(tt.in); got != tt.want {
			t.Errorf("facebookTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
