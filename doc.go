// Package gfb provides a Go wrapper for the Facebook Graph API, covering
// post, comment, and insight retrieval for analysis pipelines.
//
// # Overview
//
// This package wraps single-object and cursor-paginated GET requests
// against a fixed versioned Graph API base URL, attaching an access token,
// and exposes typed convenience methods for posts, comments, and insight
// metrics. Raw records are kept field-for-field as the API returned them;
// the companion traced package converts them into provenance-annotated
// records for downstream analysis.
//
// # Features
//
//   - Access-token request signing (token as query parameter)
//   - Field projection with forced inclusion of "id" (and "from" on comments)
//   - Exhaustive cursor pagination: paged methods return only once the
//     upstream cursor chain terminates, with pages concatenated in order
//   - Date-range filtering translated to the API's Zulu-time since/until
//   - Built-in rate limiting honouring the X-App-Usage header
//   - Structured logging support via Go's slog package
//   - Optional JSON-lines audit log of raw comment downloads
//
// # Quick Start
//
//	config := &gfb.Config{
//		AccessToken: "your-access-token",
//	}
//
//	client, err := gfb.NewClient(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	comments, err := client.GetAllComments(ctx, &types.CommentsRequest{
//		PostID: "123456789_987654321",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Error Handling
//
// Misuse and transport failures are reported as *gfb.ClientError. Error
// envelopes returned by the API surface as *errors.APIError from this
// module's pkg/errors, carrying the API's type, code, and trace id.
//
// One failure mode is deliberately unrecoverable: when a paged response
// lacks the "data" field, the payload is an upstream error message, and
// the client logs it and terminates the process with a non-zero exit
// status. There are no retries and no partial results.
package gfb
