package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// AcceptedResult is a finished submission printing "42\n".
const AcceptedResult = `{"status":{"id":3,"description":"Accepted"},"stdout":"42\n","stderr":null,"compile_output":null,"time":"0.01","memory":512}`

// JudgeServer is an in-process stand-in for the Judge0 submissions API.
// POST returns the token "tok-1"; each GET pops the next scripted result and
// the last one repeats.
type JudgeServer struct {
	*httptest.Server

	mu         sync.Mutex
	requests   []*http.Request
	bodies     []map[string]any
	results    []string
	statusCode int
}

// NewJudgeServer starts a server that is closed with the test.
func NewJudgeServer(t *testing.T, results ...string) *JudgeServer {
	t.Helper()
	if len(results) == 0 {
		results = []string{AcceptedResult}
	}
	js := &JudgeServer{results: results, statusCode: http.StatusOK}
	js.Server = httptest.NewServer(http.HandlerFunc(js.serve))
	t.Cleanup(js.Close)
	return js
}

func (js *JudgeServer) serve(w http.ResponseWriter, r *http.Request) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.requests = append(js.requests, r.Clone(context.Background()))
	if js.statusCode != http.StatusOK {
		w.WriteHeader(js.statusCode)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
		return
	}
	if r.Method == http.MethodPost {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		js.bodies = append(js.bodies, body)
		_, _ = w.Write([]byte(`{"token":"tok-1"}`))
		return
	}
	next := js.results[0]
	if len(js.results) > 1 {
		js.results = js.results[1:]
	}
	_, _ = w.Write([]byte(next))
}

// SetResults replaces the scripted GET responses.
func (js *JudgeServer) SetResults(results ...string) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.results = results
}

// FailWith makes every request answer with the given HTTP status.
func (js *JudgeServer) FailWith(status int) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.statusCode = status
}

// Requests returns the requests received so far.
func (js *JudgeServer) Requests() []*http.Request {
	js.mu.Lock()
	defer js.mu.Unlock()
	return append([]*http.Request(nil), js.requests...)
}

// Bodies returns the decoded submission bodies.
func (js *JudgeServer) Bodies() []map[string]any {
	js.mu.Lock()
	defer js.mu.Unlock()
	return append([]map[string]any(nil), js.bodies...)
}

// NoWait is a poll sleeper that returns immediately unless ctx is done.
func NoWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
