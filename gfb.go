package gfb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avsocial/go-facebook-api-wrapper/internal"
	gfberrors "github.com/avsocial/go-facebook-api-wrapper/pkg/errors"
	"github.com/avsocial/go-facebook-api-wrapper/pkg/types"
	"github.com/avsocial/go-facebook-api-wrapper/pkg/validation"
)

const (
	// DefaultBaseURL is the default versioned Graph API base URL
	DefaultBaseURL = "https://graph.facebook.com/v8.0/"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
	// MaxResultsPerPage is the number of records requested per page on
	// paged endpoints
	MaxResultsPerPage = 100
)

// Default field projections per record type. "id" is force-included on
// every request; "from" is force-included on comment requests because the
// author id feeds pseudonymization downstream.
var (
	DefaultPostFields     = []string{"created_time", "message", "id"}
	DefaultPagePostFields = []string{"attachments", "created_time", "message"}
	DefaultCommentFields  = []string{"parent", "attachments", "created_time", "message"}
)

// Config holds the configuration for the Facebook client.
//
// Only AccessToken is required. The token is attached to every outgoing
// request as a query parameter, which is how the Graph API authenticates.
type Config struct {
	// AccessToken is the Facebook access token used on every request.
	// Required. Token acquisition and refresh are out of scope; hand the
	// client a token that is valid for the duration of the run.
	AccessToken string

	// BaseURL for the Graph API.
	// Defaults to DefaultBaseURL if not specified. Usually only changed in tests.
	BaseURL string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics.
	// Optional. If provided, progress information is logged during API calls.
	Logger *slog.Logger

	// PageLimit overrides the per-page record count on paged endpoints.
	// Defaults to MaxResultsPerPage.
	PageLimit int

	// RequestsPerMinute caps steady-state request throughput.
	// Zero means the internal default.
	RequestsPerMinute float64

	// RateLimitBurst allows short spikes above the steady-state rate.
	// Zero means the internal default.
	RateLimitBurst int
}

// Client is the main Facebook Graph API client.
// It provides methods for fetching posts, comments, and insight metrics.
// All network calls are synchronous and blocking; paged methods exhaust
// the upstream cursor chain before returning.
type Client struct {
	client *internal.Client
	pager  *internal.Pager
	parser *internal.Parser
	config *Config
	logger *slog.Logger
}

// NewClient creates a new Facebook client with the provided configuration.
// It validates the configuration, sets defaults for optional fields, and
// returns a client ready to make API calls.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &ClientError{Err: "config cannot be nil"}
	}

	if config.AccessToken == "" {
		return nil, &gfberrors.ConfigError{Field: "AccessToken", Message: "access token is required"}
	}

	// Set defaults
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if config.PageLimit <= 0 {
		config.PageLimit = MaxResultsPerPage
	}

	httpClient, err := internal.NewClient(
		config.HTTPClient,
		config.AccessToken,
		config.BaseURL,
		&internal.RateLimitConfig{
			RequestsPerMinute: config.RequestsPerMinute,
			Burst:             config.RateLimitBurst,
		},
	)
	if err != nil {
		return nil, &ClientError{Err: "failed to create HTTP client: " + err.Error()}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	parser := internal.NewParser()
	return &Client{
		client: httpClient,
		pager:  internal.NewPager(httpClient, parser, config.Logger),
		parser: parser,
		config: config,
		logger: logger,
	}, nil
}

// GetPost fetches the post with the given id.
//
// fields selects which keys appear in the returned record; "id" is always
// included even if not listed. An empty slice means DefaultPostFields. For
// available fields see the Graph API page-post reference.
func (c *Client) GetPost(ctx context.Context, postID string, fields []string) (*types.Post, error) {
	if err := validation.ValidateNodeID(postID); err != nil {
		return nil, &ClientError{Err: err.Error()}
	}

	c.logger.Info("fetching post", "post_id", postID)

	q := url.Values{}
	q.Set("fields", fieldProjection(fields, DefaultPostFields, "id"))

	req, err := c.client.NewRequest(ctx, postID, q)
	if err != nil {
		return nil, &ClientError{Err: "failed to create request: " + err.Error()}
	}

	body, err := c.client.DoRaw(req)
	if err != nil {
		return nil, c.requestError("failed to get post", err)
	}

	record, err := c.parser.ParseRecord(body)
	if err != nil {
		return nil, err
	}

	return &types.Post{Record: record}, nil
}

// GetPublishedPosts fetches all posts published by a page, walking the
// cursor chain to exhaustion and concatenating pages in order.
//
// The optional CreatedAfter/CreatedBefore bounds are converted into the
// API's expected Zulu-time format and sent as since/until. CreatedAfter is
// inclusive and CreatedBefore exclusive, as the API defines them.
func (c *Client) GetPublishedPosts(ctx context.Context, request *types.PostsRequest) ([]*types.Post, error) {
	if request == nil {
		return nil, &ClientError{Err: "posts request cannot be nil"}
	}
	if err := validation.ValidateNodeID(request.PageID); err != nil {
		return nil, &ClientError{Err: err.Error()}
	}

	logAttrs := []any{"page_id", request.PageID}
	if !request.CreatedAfter.IsZero() {
		logAttrs = append(logAttrs, "created_after", request.CreatedAfter.Format(time.RFC3339))
	}
	if !request.CreatedBefore.IsZero() {
		logAttrs = append(logAttrs, "created_before", request.CreatedBefore.Format(time.RFC3339))
	}
	c.logger.Debug("fetching all posts published by page", logAttrs...)

	q := url.Values{}
	q.Set("fields", fieldProjection(request.Fields, DefaultPagePostFields, "id"))
	q.Set("limit", strconv.Itoa(c.config.PageLimit))
	if !request.CreatedAfter.IsZero() {
		q.Set("since", facebookTime(request.CreatedAfter))
	}
	if !request.CreatedBefore.IsZero() {
		q.Set("until", facebookTime(request.CreatedBefore))
	}

	records, err := c.pager.FetchAll(ctx, request.PageID+"/published_posts", q)
	if err != nil {
		return nil, c.requestError("failed to get published posts", err)
	}

	posts := make([]*types.Post, 0, len(records))
	for _, record := range records {
		posts = append(posts, &types.Post{Record: record})
	}

	c.logger.Info("fetched posts", "count", len(posts))
	return posts, nil
}

// GetAllComments fetches all the comments on a post that are visible to
// this token, including comments which are replies to other comments
// (the stream filter inlines nested replies into the page sequence).
//
// When request.RawExportLog is set, the full raw download is appended to
// it as a single JSON line for auditing.
func (c *Client) GetAllComments(ctx context.Context, request *types.CommentsRequest) ([]*types.Comment, error) {
	if request == nil {
		return nil, &ClientError{Err: "comments request cannot be nil"}
	}
	if err := validation.ValidateNodeID(request.PostID); err != nil {
		return nil, &ClientError{Err: err.Error()}
	}

	c.logger.Info("fetching all comments on post", "post_id", request.PostID)

	q := url.Values{}
	q.Set("fields", fieldProjection(request.Fields, DefaultCommentFields, "id", "from"))
	q.Set("limit", strconv.Itoa(c.config.PageLimit))
	q.Set("filter", "stream")

	records, err := c.pager.FetchAll(ctx, request.PostID+"/comments", q)
	if err != nil {
		return nil, c.requestError("failed to get comments", err)
	}

	comments := make([]*types.Comment, 0, len(records))
	for _, record := range records {
		comments = append(comments, &types.Comment{Record: record})
	}
	c.logger.Info("fetched comments", "count", len(comments))

	if request.RawExportLog != nil {
		c.logger.Info("logging fetched comments", "count", len(comments))
		if err := json.NewEncoder(request.RawExportLog).Encode(comments); err != nil {
			return nil, &ClientError{Err: "failed to write raw export log: " + err.Error()}
		}
		c.logger.Info("logged fetched comments")
	} else {
		c.logger.Debug("not logging the raw export (request.RawExportLog was nil)")
	}

	return comments, nil
}

// GetRawPostInsights fetches the named insight metrics on a post in the
// full format returned by the API: a list of metric objects, each with a
// list of values.
//
// For an easier-to-use metric-to-value map, see GetPostInsights.
func (c *Client) GetRawPostInsights(ctx context.Context, postID string, metrics []string) ([]types.Insight, error) {
	if err := validation.ValidateNodeID(postID); err != nil {
		return nil, &ClientError{Err: err.Error()}
	}
	if err := validation.ValidateMetricNames(metrics); err != nil {
		return nil, &ClientError{Err: err.Error()}
	}

	q := url.Values{}
	q.Set("metric", strings.Join(metrics, ","))

	req, err := c.client.NewRequest(ctx, postID+"/insights", q)
	if err != nil {
		return nil, &ClientError{Err: "failed to create request: " + err.Error()}
	}

	body, err := c.client.DoRaw(req)
	if err != nil {
		return nil, c.requestError("failed to get insights", err)
	}

	return c.parser.ParseInsights(body)
}

// GetPostInsights fetches the named insight metrics on a post as a simple
// metric-to-value map.
//
// Each requested metric must carry exactly one value; a metric with any
// other number of values returns a *gfberrors.MetricShapeError. Use
// GetRawPostInsights for multi-valued metrics.
func (c *Client) GetPostInsights(ctx context.Context, postID string, metrics []string) (map[string]json.RawMessage, error) {
	raw, err := c.GetRawPostInsights(ctx, postID, metrics)
	if err != nil {
		return nil, err
	}

	cleaned := make(map[string]json.RawMessage, len(raw))
	for _, insight := range raw {
		if len(insight.Values) != 1 {
			return nil, &gfberrors.MetricShapeError{Metric: insight.Name, Values: len(insight.Values)}
		}
		cleaned[insight.Name] = insight.Values[0].Value
	}

	return cleaned, nil
}

// requestError converts transport-level failures into the caller-facing
// error: API error envelopes become *gfberrors.APIError, everything else
// is wrapped in a ClientError with the given context.
func (c *Client) requestError(what string, err error) error {
	var statusErr *internal.APIStatusError
	if errors.As(err, &statusErr) {
		if apiErr := c.parser.ExtractAPIError(statusErr.Body, statusErr.StatusCode); apiErr != nil {
			return apiErr
		}
	}
	return &ClientError{Err: what + ": " + err.Error()}
}

// fieldProjection renders the fields query parameter. An empty field list
// falls back to defaults; forced fields are appended unless the caller
// already listed them.
func fieldProjection(fields, defaults []string, forced ...string) string {
	if len(fields) == 0 {
		fields = defaults
	}

	out := make([]string, 0, len(fields)+len(forced))
	seen := make(map[string]bool, len(fields)+len(forced))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range forced {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	return strings.Join(out, ",")
}

// facebookTime converts a time into the only timestamp format the Graph
// API accepts: ISO 8601 in Zulu time (UTC with a "Z" zone indicator).
func facebookTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ClientError represents an error from the Facebook client.
// It wraps misuse and transport errors behind a consistent interface;
// API-level failures are reported as *gfberrors.APIError instead.
type ClientError struct {
	// Err contains the detailed error message describing what went wrong
	Err string
}

// Error implements the error interface for ClientError.
func (e *ClientError) Error() string {
	return "facebook client error: " + e.Err
}
