package internal

import (
	"encoding/json"

	gfberrors "github.com/avsocial/go-facebook-api-wrapper/pkg/errors"
	"github.com/avsocial/go-facebook-api-wrapper/pkg/types"
)

// Parser handles parsing of Graph API responses.
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// Envelope is the outer shape of a paged Graph API response. Data stays
// raw so the caller can decode it into the record type it expects, and so
// a missing "data" field (upstream error payload) is distinguishable from
// an empty page.
type Envelope struct {
	Data   json.RawMessage `json:"data"`
	Paging *types.Paging   `json:"paging"`
}

// HasData reports whether the response carried a "data" field at all.
// JSON null counts as missing, matching how an error payload looks.
func (e *Envelope) HasData() bool {
	return e.Data != nil && string(e.Data) != "null"
}

// graphErrorEnvelope mirrors the API's error payload:
// {"error": {"message": ..., "type": ..., "code": ..., ...}}
type graphErrorEnvelope struct {
	Error *struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// ExtractAPIError returns the typed API error carried by body, or nil if
// body is not an error envelope. statusCode may be zero when the error
// arrived with a 200 response.
func (p *Parser) ExtractAPIError(body []byte, statusCode int) *gfberrors.APIError {
	var envelope graphErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return nil
	}

	return &gfberrors.APIError{
		StatusCode: statusCode,
		Message:    envelope.Error.Message,
		Type:       envelope.Error.Type,
		Code:       envelope.Error.Code,
		Subcode:    envelope.Error.Subcode,
		TraceID:    envelope.Error.FBTraceID,
	}
}

// ParseRecord decodes the body of a single-object GET into a raw record.
// An API error envelope is surfaced as *gfberrors.APIError.
func (p *Parser) ParseRecord(body []byte) (types.Record, error) {
	if apiErr := p.ExtractAPIError(body, 0); apiErr != nil {
		return nil, apiErr
	}

	var record types.Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, &gfberrors.ParseError{What: "record", Err: err}
	}
	return record, nil
}

// ParseEnvelope decodes the body of a paged GET. An API error envelope is
// surfaced as *gfberrors.APIError; a page without a "data" field that is
// not a recognizable error envelope is returned as-is so the pager can
// apply its missing-data policy.
func (p *Parser) ParseEnvelope(body []byte) (*Envelope, error) {
	if apiErr := p.ExtractAPIError(body, 0); apiErr != nil {
		return nil, apiErr
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &gfberrors.ParseError{What: "page envelope", Err: err}
	}
	return &envelope, nil
}

// DecodeRecords decodes an envelope's data array into raw records.
func (p *Parser) DecodeRecords(data json.RawMessage) ([]types.Record, error) {
	var records []types.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &gfberrors.ParseError{What: "record list", Err: err}
	}
	return records, nil
}

// ParseInsights decodes the body of an insights GET into the API's native
// list-of-metrics shape.
func (p *Parser) ParseInsights(body []byte) ([]types.Insight, error) {
	envelope, err := p.ParseEnvelope(body)
	if err != nil {
		return nil, err
	}
	if !envelope.HasData() {
		return nil, &gfberrors.ParseError{What: "insights response: no data field"}
	}

	var insights []types.Insight
	if err := json.Unmarshal(envelope.Data, &insights); err != nil {
		return nil, &gfberrors.ParseError{What: "insights list", Err: err}
	}
	return insights, nil
}
