// Package testutil builds seeded applications and JSON requests for handler
// tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"pcbaerp/internal/config"
	"pcbaerp/internal/insight"
	"pcbaerp/internal/models"
	"pcbaerp/internal/server"
)

// Operator is sent in the X-Operator header of every test request.
const Operator = "test-operator"

// Now is the fixed clock of test applications: two days after the seeded
// production run.
var Now = time.Date(2024, 3, 22, 10, 0, 0, 0, time.UTC)

// Option adjusts a test application before it is built.
type Option func(*config.Config, *server.Options, *server.OpenOptions)

// WithGenerator backs AI features with gen.
func WithGenerator(gen insight.Generator) Option {
	return func(_ *config.Config, o *server.Options, _ *server.OpenOptions) { o.Generator = gen }
}

// Empty starts without sample data.
func Empty() Option {
	return func(_ *config.Config, _ *server.Options, oo *server.OpenOptions) { oo.Seed = false }
}

// WithConfig edits the configuration.
func WithConfig(fn func(*config.Config)) Option {
	return func(c *config.Config, _ *server.Options, _ *server.OpenOptions) { fn(c) }
}

// NewApp returns an in-memory application loaded with the sample data and
// rate limiting disabled.
func NewApp(t *testing.T, opts ...Option) *server.App {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RateLimit = 0
	o := server.Options{Log: zaptest.NewLogger(t), Now: func() time.Time { return Now }}
	oo := server.OpenOptions{Seed: true}
	for _, opt := range opts {
		opt(cfg, &o, &oo)
	}
	data, err := server.OpenCollections(context.Background(), oo)
	if err != nil {
		t.Fatalf("Failed to open collections: %v", err)
	}
	return server.New(cfg, data, o)
}

// JSONRequest creates a request with body encoded as JSON. A nil body sends
// no body at all.
func JSONRequest(method, path string, body interface{}) *http.Request {
	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Operator", Operator)
	return req
}

// Do sends a JSON request through h and returns the recorded response.
func Do(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, JSONRequest(method, path, body))
	return w
}

// DecodeAPIResponse decodes an APIResponse from a ResponseRecorder.
func DecodeAPIResponse(t *testing.T, w *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var response models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode API response: %v", err)
	}
	return response
}

// AssertStatus checks that the HTTP status code matches expected.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeEnvelope decodes an API response envelope into v.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode API envelope: %v", err)
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("Failed to decode data from envelope: %v", err)
	}
}

// ErrorBody is the decoded shape of an error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Fields []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fields"`
}

// DecodeError decodes an error response.
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body
}

// HasField reports whether the error names field among its validation
// failures.
func (e ErrorBody) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
