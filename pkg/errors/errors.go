// Package errors defines common error types used throughout the Facebook
// API wrapper.
package errors

import (
	"fmt"
	"strings"
)

// ConfigError indicates a problem with the client configuration.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// APIError is an error envelope returned by the Graph API in place of the
// requested data. The fields mirror the API's "error" object.
type APIError struct {
	// StatusCode is the HTTP status code of the response (if available)
	StatusCode int
	// Message is the human-readable error message from the API
	Message string
	// Type is the API's error class, e.g. "OAuthException"
	Type string
	// Code is the API's numeric error code
	Code int
	// Subcode refines Code for some error classes
	Subcode int
	// TraceID is the API's request trace identifier (fbtrace_id),
	// useful when reporting problems upstream
	TraceID string
}

func (e *APIError) Error() string {
	parts := []string{"graph API error"}
	if e.Type != "" {
		parts = append(parts, e.Type)
	}
	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("code %d", e.Code))
	}
	if e.Subcode != 0 {
		parts = append(parts, fmt.Sprintf("subcode %d", e.Subcode))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.TraceID != "" {
		parts = append(parts, fmt.Sprintf("trace %s", e.TraceID))
	}
	return strings.Join(parts, ": ")
}

// ParseError indicates that a response body could not be decoded into the
// expected shape.
type ParseError struct {
	// What describes the structure that failed to decode
	What string
	// Err contains the underlying decoding error if available
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("failed to parse %s", e.What)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MetricShapeError indicates that an insight metric violated the
// one-value-per-metric contract of the simplified insights accessor.
// Callers that need multi-valued metrics should use the raw accessor.
type MetricShapeError struct {
	// Metric is the name of the offending metric
	Metric string
	// Values is the number of values the metric actually carried
	Values int
}

func (e *MetricShapeError) Error() string {
	return fmt.Sprintf("metric %q has %d values, expected exactly one; "+
		"use the raw insights accessor for multi-valued metrics", e.Metric, e.Values)
}

// AttachmentKindError indicates that a post's attachment list either
// contains a kind the classifier does not recognize or mixes photo and
// video attachments in one post, which the upstream data contract forbids.
type AttachmentKindError struct {
	// PostID is the id of the offending post (if known)
	PostID string
	// Kind is the attachment type that triggered the error
	Kind string
	// Conflict is the previously derived post type when kinds clash
	Conflict string
}

func (e *AttachmentKindError) Error() string {
	if e.Conflict != "" {
		return fmt.Sprintf("post %q mixes attachment kinds: %q conflicts with derived type %q",
			e.PostID, e.Kind, e.Conflict)
	}
	return fmt.Sprintf("post %q has unrecognized attachment type %q", e.PostID, e.Kind)
}
