package gfb

import (
	"io"
	"os"
)

// OpenRawExportLog opens (creating if necessary) an append-only JSON-lines
// audit file suitable for CommentsRequest.RawExportLog. Each GetAllComments
// call appends exactly one line to it: the full raw download as one JSON
// array.
//
// The caller owns the returned writer and must close it.
func OpenRawExportLog(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &ClientError{Err: "failed to open raw export log: " + err.Error()}
	}
	return f, nil
}
