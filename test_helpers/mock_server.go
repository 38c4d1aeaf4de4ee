package test_helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer provides a configurable mock Graph API server for testing
type MockServer struct {
	server     *httptest.Server
	handler    *MockHandler
	baseURL    string
	requestLog []RequestEntry
	logMutex   sync.Mutex
}

// RequestEntry logs incoming requests for debugging
type RequestEntry struct {
	Method       string
	Path         string
	Query        map[string][]string
	Timestamp    time.Time
	ResponseCode int
}

// MockHandler handles mock API responses
type MockHandler struct {
	server      *MockServer
	responses   map[string][]*MockResponse
	served      map[string]int
	defaultResp *MockResponse
	mutex       sync.Mutex
}

// MockResponse defines a mock API response
type MockResponse struct {
	Status  int
	Body    string
	Headers map[string]string
	Delay   time.Duration
}

// NewMockServer creates a new mock server instance
func NewMockServer() *MockServer {
	handler := &MockHandler{
		responses: make(map[string][]*MockResponse),
		served:    make(map[string]int),
		defaultResp: &MockResponse{
			Status: http.StatusNotFound,
			Body:   `{"error": {"message": "Unsupported get request.", "type": "GraphMethodException", "code": 100, "fbtrace_id": "mock"}}`,
		},
	}

	server := httptest.NewServer(handler)

	ms := &MockServer{
		server:  server,
		handler: handler,
		baseURL: server.URL,
	}
	handler.server = ms
	return ms
}

// URL returns the base URL of the mock server
func (ms *MockServer) URL() string {
	return ms.baseURL
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse configures a response for a specific path. Every request to
// the path receives this response.
func (ms *MockServer) SetResponse(path string, response *MockResponse) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.responses[path] = []*MockResponse{response}
}

// SetResponseSequence configures consecutive responses for a path: the
// n-th request to the path receives the n-th response, and the last
// response repeats once the sequence is exhausted.
func (ms *MockServer) SetResponseSequence(path string, responses []*MockResponse) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.responses[path] = responses
	ms.handler.served[path] = 0
}

// SetDefaultResponse configures the response for unmatched paths
func (ms *MockServer) SetDefaultResponse(response *MockResponse) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.defaultResp = response
}

// SetPagedResponse installs a chain of page fixtures under path. Each page
// body is a Graph envelope whose paging.next points back at this server,
// so a pager following the chain requests the same path repeatedly and
// receives the pages in order.
func (ms *MockServer) SetPagedResponse(path string, pages [][]map[string]any) {
	responses := make([]*MockResponse, 0, len(pages))
	for i, page := range pages {
		next := ""
		if i < len(pages)-1 {
			next = fmt.Sprintf("%s%s?__page=%d", ms.baseURL, path, i+1)
		}
		responses = append(responses, &MockResponse{
			Status: http.StatusOK,
			Body:   BuildEnvelope(page, next),
		})
	}
	ms.SetResponseSequence(path, responses)
}

// Requests returns a snapshot of the requests the server has received, in
// arrival order.
func (ms *MockServer) Requests() []RequestEntry {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()
	out := make([]RequestEntry, len(ms.requestLog))
	copy(out, ms.requestLog)
	return out
}

// RequestCount returns how many requests the server has received for path.
func (ms *MockServer) RequestCount(path string) int {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()
	count := 0
	for _, entry := range ms.requestLog {
		if entry.Path == path {
			count++
		}
	}
	return count
}

// ServeHTTP implements http.Handler for MockHandler
func (h *MockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.next(r.URL.Path)

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	h.server.logRequest(r, resp.Status)

	w.Header().Set("Content-Type", "application/json")
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	fmt.Fprint(w, resp.Body)
}

func (h *MockHandler) next(path string) *MockResponse {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	responses, ok := h.responses[path]
	if !ok || len(responses) == 0 {
		return h.defaultResp
	}

	idx := h.served[path]
	if idx >= len(responses) {
		idx = len(responses) - 1
	}
	h.served[path]++
	return responses[idx]
}

func (ms *MockServer) logRequest(r *http.Request, status int) {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()
	ms.requestLog = append(ms.requestLog, RequestEntry{
		Method:       r.Method,
		Path:         r.URL.Path,
		Query:        r.URL.Query(),
		Timestamp:    time.Now(),
		ResponseCode: status,
	})
}

// BuildEnvelope renders a Graph API page envelope with the given records
// and optional next-page URL.
func BuildEnvelope(records []map[string]any, next string) string {
	envelope := map[string]any{
		"data": records,
	}
	paging := map[string]any{
		"cursors": map[string]any{"before": "BEFORE", "after": "AFTER"},
	}
	if next != "" {
		paging["next"] = next
	}
	envelope["paging"] = paging

	body, err := json.Marshal(envelope)
	if err != nil {
		panic(err)
	}
	return string(body)
}

// BuildErrorEnvelope renders a Graph API error payload.
func BuildErrorEnvelope(message, errType string, code int, traceID string) string {
	body, err := json.Marshal(map[string]any{
		"error": map[string]any{
			"message":    message,
			"type":       errType,
			"code":       code,
			"fbtrace_id": traceID,
		},
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}
