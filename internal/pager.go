package internal

import (
	"context"
	"log/slog"
	"net/url"
	"os"

	"github.com/avsocial/go-facebook-api-wrapper/pkg/types"
)

// osExit is swapped out in tests so the fatal pagination path can be
// observed without killing the test process.
var osExit = os.Exit

// Pager walks a Graph API cursor chain to exhaustion, concatenating the
// records of every page in page order. Pagination is sequential and
// unbounded; only the upstream chain terminating ends the walk.
type Pager struct {
	client *Client
	parser *Parser
	logger *slog.Logger
}

// NewPager creates a pager over the given HTTP client.
func NewPager(client *Client, parser *Parser, logger *slog.Logger) *Pager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pager{
		client: client,
		parser: parser,
		logger: logger,
	}
}

// FetchAll performs a paged GET against path and follows the paging.next
// chain until no further page is available. The query parameters are sent
// on the first request only; follow-up pages use the opaque next URL
// verbatim, as it already encodes the cursor, limit, and access token.
//
// A page whose body lacks the "data" field is treated as an unrecoverable
// upstream error: the payload is almost always an error message, so it is
// logged and the process exits non-zero. There is no retry and no partial
// result.
func (p *Pager) FetchAll(ctx context.Context, path string, query url.Values) ([]types.Record, error) {
	req, err := p.client.NewRequest(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var result []types.Record
	for {
		body, err := p.client.DoRaw(req)
		if err != nil {
			if statusErr, ok := err.(*APIStatusError); ok {
				p.fatal(statusErr.Body)
				return nil, err
			}
			return nil, err
		}

		envelope, err := p.parser.ParseEnvelope(body)
		if err != nil {
			p.fatal(body)
			return nil, err
		}
		if !envelope.HasData() {
			p.fatal(body)
			return result, nil
		}

		records, err := p.parser.DecodeRecords(envelope.Data)
		if err != nil {
			return nil, err
		}
		result = append(result, records...)

		next := ""
		if envelope.Paging != nil {
			next = envelope.Paging.Next
		}
		if next == "" {
			return result, nil
		}

		req, err = p.client.NewPageRequest(ctx, next)
		if err != nil {
			return nil, err
		}
	}
}

// fatal applies the missing-data policy: log the payload and terminate.
func (p *Pager) fatal(body []byte) {
	p.logger.Error("response from Facebook did not contain a 'data' field; "+
		"the returned data is probably an error message",
		"response", string(body))
	osExit(1)
}
