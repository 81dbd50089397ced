package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// MockServer serves canned responses by URL path and records requests.
type MockServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]MockResponse
	requests  []MockRequest
}

// MockResponse is the canned reply for one path.
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// MockRequest records a request made to the server.
type MockRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
}

// NewMockServer starts a server that is closed when the test ends.
// Unknown paths answer 404 with a JSON message body.
func NewMockServer(t *testing.T) *MockServer {
	t.Helper()

	m := &MockServer{responses: make(map[string]MockResponse)}

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, MockRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		})
		resp, ok := m.responses[r.URL.Path]
		m.mu.Unlock()

		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
		if resp.StatusCode != 0 {
			w.WriteHeader(resp.StatusCode)
		}
		w.Write(resp.Body)
	}))

	t.Cleanup(m.Server.Close)
	return m
}

// SetFile serves body with status 200 at path.
func (m *MockServer) SetFile(path string, body []byte) {
	m.SetRaw(path, http.StatusOK, body, nil)
}

// SetJSON serves data encoded as JSON.
func (m *MockServer) SetJSON(path string, status int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.SetRaw(path, status, body, map[string]string{"Content-Type": "application/json"})
	return nil
}

// SetError serves a GitHub-style error body.
func (m *MockServer) SetError(path string, status int, message string) error {
	return m.SetJSON(path, status, map[string]string{"message": message})
}

// SetRaw serves body with the given status and headers.
func (m *MockServer) SetRaw(path string, status int, body []byte, headers map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = MockResponse{StatusCode: status, Body: body, Headers: headers}
}

// Requests returns a copy of the recorded requests.
func (m *MockServer) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockRequest(nil), m.requests...)
}

// RequestCount returns how many requests hit path.
func (m *MockServer) RequestCount(path string) int {
	n := 0
	for _, r := range m.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}
