package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/coursebot-go/internal/llm"
	"github.com/54b3r/coursebot-go/internal/rag"
	"github.com/54b3r/coursebot-go/internal/session"
	"github.com/54b3r/coursebot-go/internal/tools"
)

// ---------------------------------------------------------------------------
// Fake querier
// ---------------------------------------------------------------------------

// fakeQuerier implements the querier interface for tests.
type fakeQuerier struct {
	answer  string
	sources []tools.Source
	err     error
	// block makes Query wait for context cancellation.
	block bool

	clearErr error

	gotQuery   string
	gotSession string
}

func (f *fakeQuerier) Query(ctx context.Context, text, sessionID string) (string, []tools.Source, error) {
	f.gotQuery, f.gotSession = text, sessionID
	if f.block {
		<-ctx.Done()
		return "", nil, fmt.Errorf("rag: generate: %w", ctx.Err())
	}
	return f.answer, f.sources, f.err
}

func (f *fakeQuerier) NewSession(context.Context) (string, error) { return "session_1", nil }

func (f *fakeQuerier) ClearSession(context.Context, string) error { return f.clearErr }

func (f *fakeQuerier) Analytics(context.Context) (rag.Analytics, error) {
	return rag.Analytics{TotalCourses: 2, CourseTitles: []string{"MCP", "RAG"}}, nil
}

// newTestServer builds a *Server with a no-op querier and an isolated registry.
func newTestServer() *Server {
	return newQueryTestServer(&fakeQuerier{})
}

func newQueryTestServer(q querier) *Server {
	return &Server{
		querier: q,
		cfg:     &Config{Port: 8000, QueryTimeout: time.Minute},
		log:     slog.Default(),
		metrics: newServerMetrics(prometheus.NewRegistry()),
	}
}

func postQuery(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handleQuery(w, req)
	return w
}

// ---------------------------------------------------------------------------
// POST /api/query
// ---------------------------------------------------------------------------

func TestHandleQuery_Validation(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"invalid json":  `not-json`,
		"missing query": `{"session_id":"s"}`,
		"blank query":   `{"query":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if w := postQuery(newTestServer(), body); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestHandleQuery_NewSession(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{
		answer:  "MCP is a protocol.",
		sources: []tools.Source{{Title: "MCP - Lesson 1", Link: "https://example.com/1"}, {Title: "MCP - Lesson 2"}},
	}
	w := postQuery(newQueryTestServer(q), `{"query":"What is MCP?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if q.gotQuery != "What is MCP?" || q.gotSession != "session_1" {
		t.Errorf("querier called with %q / %q", q.gotQuery, q.gotSession)
	}

	want := `{"answer":"MCP is a protocol.","sources":[{"title":"MCP - Lesson 1","link":"https://example.com/1"},{"title":"MCP - Lesson 2","link":null}],"session_id":"session_1"}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("body:\n got %s\nwant %s", got, want)
	}
}

func TestHandleQuery_ExistingSessionNoSources(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{answer: "Hi!"}
	w := postQuery(newQueryTestServer(q), `{"query":"Hello","session_id":"abc"}`)

	if q.gotSession != "abc" {
		t.Errorf("session: got %q", q.gotSession)
	}
	body := w.Body.String()
	var resp queryResponse
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 || resp.SessionID != "abc" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !strings.Contains(body, `"sources":[]`) {
		t.Errorf("sources must encode as an empty array: %s", body)
	}
}

func TestHandleQuery_Error(t *testing.T) {
	t.Parallel()

	w := postQuery(newQueryTestServer(&fakeQuerier{err: errors.New("API error")}), `{"query":"q"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "API error") {
		t.Errorf("error message missing: %s", w.Body.String())
	}
}

func TestHandleQuery_Timeout(t *testing.T) {
	t.Parallel()

	s := newQueryTestServer(&fakeQuerier{block: true})
	s.cfg.QueryTimeout = 10 * time.Millisecond

	if w := postQuery(s, `{"query":"slow"}`); w.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /api/courses, DELETE /api/session/{id}
// ---------------------------------------------------------------------------

func TestHandleCourses(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestServer().handleCourses(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))

	if got := strings.TrimSpace(w.Body.String()); got != `{"total_courses":2,"course_titles":["MCP","RAG"]}` {
		t.Errorf("body: %s", got)
	}
}

func TestHandleClearSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"deleted", nil, http.StatusNoContent},
		{"unknown", fmt.Errorf("rag: clear session: %w", session.ErrNotFound), http.StatusNotFound},
		{"store failure", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newQueryTestServer(&fakeQuerier{clearErr: tc.err})
			mux := http.NewServeMux()
			mux.HandleFunc("DELETE /api/session/{id}", s.handleClearSession)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/session/abc", nil))
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

func TestNew_RoutesAndAuth(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s, err := New(&fakeQuerier{answer: "ok"}, &Config{
		APIKey:          "secret",
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.stopRL()
	h := s.httpServer.Handler

	do := func(method, path, body, token string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if got := do(http.MethodGet, "/api/health", "", ""); got != http.StatusOK {
		t.Errorf("health must be public, got %d", got)
	}
	if got := do(http.MethodGet, "/metrics", "", ""); got != http.StatusOK {
		t.Errorf("metrics must be public, got %d", got)
	}
	if got := do(http.MethodGet, "/api/courses", "", ""); got != http.StatusUnauthorized {
		t.Errorf("courses without token: got %d", got)
	}
	if got := do(http.MethodPost, "/api/query", `{"query":"q"}`, "secret"); got != http.StatusOK {
		t.Errorf("query with token: got %d", got)
	}
	if got := do(http.MethodGet, "/api/query", "", "secret"); got != http.StatusMethodNotAllowed {
		t.Errorf("GET on query route: got %d", got)
	}
}

func TestNew_NilQuerier(t *testing.T) {
	t.Parallel()
	if _, err := New(nil, nil); err == nil {
		t.Error("nil querier must be rejected")
	}
}

// ---------------------------------------------------------------------------
// Pingers
// ---------------------------------------------------------------------------

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }

type countingClient struct {
	calls int
	err   error
}

func (c *countingClient) CreateMessage(_ context.Context, req *llm.Request) (*llm.Response, error) {
	c.calls++
	if req.MaxTokens != 1 {
		return nil, fmt.Errorf("probe must request a single token, got %d", req.MaxTokens)
	}
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{StopReason: llm.StopMaxTokens}, nil
}

func TestLLMPinger(t *testing.T) {
	t.Parallel()

	client := &countingClient{}
	if err := NewLLMPinger(client, fakeChecker{}, "m", "anthropic").Ping(context.Background()); err != nil {
		t.Errorf("healthy checker: %v", err)
	}
	if client.calls != 0 {
		t.Error("a health checker must avoid spending tokens")
	}

	err := NewLLMPinger(client, fakeChecker{err: errors.New("401")}, "m", "anthropic").Ping(context.Background())
	if err == nil || !strings.Contains(err.Error(), "anthropic") {
		t.Errorf("want named failure, got %v", err)
	}

	if err := NewLLMPinger(client, nil, "m", "ark").Ping(context.Background()); err != nil {
		t.Errorf("fallback probe: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("fallback must call the model once, got %d", client.calls)
	}
}

func TestQdrantPinger(t *testing.T) {
	t.Parallel()

	p := NewQdrantPinger(fakeChecker{err: errors.New("connection refused")})
	if p.Name() != "qdrant" {
		t.Errorf("name: %q", p.Name())
	}
	if err := p.Ping(context.Background()); err == nil {
		t.Error("want error")
	}
}

// ---------------------------------------------------------------------------
// Request logging
// ---------------------------------------------------------------------------

func TestRequestLogger_RequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := requestLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
	generated := w.Header().Get(requestIDHeader)
	if len(generated) != 36 || seen != generated {
		t.Errorf("generated id %q, handler saw %q", generated, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	req.Header.Set(requestIDHeader, "ui-42")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "ui-42" {
		t.Errorf("caller id not reused: %q", got)
	}

	for _, bad := range []string{
		strings.Repeat("x", maxRequestIDLen+1),
		"ui 42",
		"id\nforged=1",
		"\x1b[31mred",
		"caf\u00e9",
		`"quoted"`,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
		req.Header.Set(requestIDHeader, bad)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if got := w.Header().Get(requestIDHeader); got == bad || len(got) != 36 {
			t.Errorf("id %q should be replaced, got %q", bad, got)
		}
	}
}

func TestValidRequestID(t *testing.T) {
	t.Parallel()

	for id, want := range map[string]bool{
		"":                                     false,
		"ui-42":                                true,
		"trace_01.A":                           true,
		"3f2504e0-4f89-41d3-9a0c-0305e82c3301": true,
		strings.Repeat("a", maxRequestIDLen):   true,
		strings.Repeat("a", maxRequestIDLen+1): false,
		"a/b":                                  false,
		"a b":                                  false,
		"a\r\nb":                               false,
	} {
		if got := validRequestID(id); got != want {
			t.Errorf("validRequestID(%q) = %v, want %v", id, got, want)
		}
	}
}
