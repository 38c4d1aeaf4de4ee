// Package validation provides format checks for Graph API identifiers and
// the strict UTC timestamp format required by downstream trace consumers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Regular expressions for validating Graph API data formats
var (
	// nodeIDRegex matches Graph API node ids: numeric, or compound ids
	// like "pageid_postid" and "postid_commentid"
	nodeIDRegex = regexp.MustCompile(`^[0-9]+(_[0-9]+)*$`)

	// metricNameRegex matches insight metric names, e.g.
	// "post_impressions_unique"
	metricNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

	// fieldNameRegex matches projectable field names, including dotted
	// subfield paths like "from.id"
	fieldNameRegex = regexp.MustCompile(`^[a-z_]+(\.[a-z_]+)*$`)
)

// IsValidNodeID checks if a string is a valid Graph API node id.
func IsValidNodeID(s string) bool {
	return nodeIDRegex.MatchString(s)
}

// IsValidMetricName checks if a string is a valid insight metric name.
func IsValidMetricName(s string) bool {
	return metricNameRegex.MatchString(s)
}

// IsValidFieldName checks if a string is a valid field projection entry.
func IsValidFieldName(s string) bool {
	return fieldNameRegex.MatchString(s)
}

// ValidateNodeID returns an error describing why s is not a usable node id.
func ValidateNodeID(s string) error {
	if s == "" {
		return fmt.Errorf("node id is required")
	}
	if !IsValidNodeID(s) {
		return fmt.Errorf("node id has invalid format: %s", s)
	}
	return nil
}

// ValidateMetricNames checks every entry of a metric projection.
func ValidateMetricNames(metrics []string) error {
	if len(metrics) == 0 {
		return fmt.Errorf("at least one metric is required")
	}

	var errs []error
	for _, m := range metrics {
		if !IsValidMetricName(m) {
			errs = append(errs, fmt.Errorf("metric has invalid format: %s", m))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("metric validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateFieldNames checks every entry of a field projection.
func ValidateFieldNames(fields []string) error {
	var errs []error
	for _, f := range fields {
		if !IsValidFieldName(f) {
			errs = append(errs, fmt.Errorf("field has invalid format: %s", f))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("field validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateUTCISOString checks that s is an ISO 8601 timestamp expressed in
// UTC. Both the "Z" suffix and an explicit "+00:00" offset are accepted;
// any other offset is rejected even if it denotes the same instant,
// because downstream consumers compare these strings textually.
func ValidateUTCISOString(s string) error {
	if s == "" {
		return fmt.Errorf("timestamp is required")
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp is not valid ISO 8601: %s", s)
	}

	if !strings.HasSuffix(s, "Z") && !strings.HasSuffix(s, "+00:00") {
		return fmt.Errorf("timestamp is not expressed in UTC: %s", s)
	}

	_, offset := t.Zone()
	if offset != 0 {
		return fmt.Errorf("timestamp is not expressed in UTC: %s", s)
	}

	return nil
}

// joinValidationErrors combines multiple errors into a single error message
func joinValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
