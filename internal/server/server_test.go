package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gide/internal/common/storage"
	"gide/internal/judge"
	"gide/internal/prefs"
	"gide/internal/server"
	"gide/internal/svc"
	"gide/internal/testutil"
	appErr "gide/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Code    appErr.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	TraceID string           `json:"trace_id"`
}

func newTestRouter(t *testing.T, results ...string) (*gin.Engine, *svc.ServiceContext) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	judgeSrv := testutil.NewJudgeServer(t, results...)
	svcCtx := testutil.NewServiceContext(t, judgeSrv.URL, nil)
	return server.NewRouter(svcCtx), svcCtx
}

func performRequest(r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	testutil.MustUnmarshalJSON(t, env.Data, out)
}

func TestLanguagesAndShortcuts(t *testing.T) {
	router, _ := newTestRouter(t)

	w, env := performRequest(router, http.MethodGet, "/api/v1/languages", nil)
	if w.Code != http.StatusOK || env.Code != appErr.Success || env.TraceID == "" {
		t.Fatalf("unexpected response: %d %+v", w.Code, env)
	}
	var langs []map[string]interface{}
	decodeData(t, env, &langs)
	if len(langs) != 3 {
		t.Fatalf("expected 3 languages, got %d", len(langs))
	}

	_, env = performRequest(router, http.MethodGet, "/api/v1/shortcuts", nil)
	var table []map[string]string
	decodeData(t, env, &table)
	if len(table) != 14 || table[0]["keys"] != "Ctrl+S" {
		t.Fatalf("unexpected shortcuts: %v", table)
	}

	if w, _ := performRequest(router, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz returned %d", w.Code)
	}
}

func TestPreferences(t *testing.T) {
	router, _ := newTestRouter(t)

	_, env := performRequest(router, http.MethodGet, "/api/v1/preferences", nil)
	var got struct {
		Preferences struct {
			Theme    string `json:"theme"`
			FontSize int    `json:"font_size"`
			Language string `json:"language"`
		} `json:"preferences"`
		Defaulted []string `json:"defaulted"`
	}
	decodeData(t, env, &got)
	if got.Preferences.Theme != "solarized_light" || got.Preferences.FontSize != 14 || got.Preferences.Language != "cpp" || len(got.Defaulted) != 4 {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	w, env := performRequest(router, http.MethodPut, "/api/v1/preferences", map[string]interface{}{"theme": "monokai", "font_size": 20})
	if w.Code != http.StatusOK {
		t.Fatalf("update failed: %d %+v", w.Code, env)
	}
	decodeData(t, env, &got)
	if got.Preferences.Theme != "monokai" || got.Preferences.FontSize != 20 || got.Preferences.Language != "cpp" {
		t.Fatalf("unexpected prefs: %+v", got)
	}

	w, env = performRequest(router, http.MethodPut, "/api/v1/preferences", map[string]interface{}{"language": " Python "})
	if w.Code != http.StatusOK {
		t.Fatalf("update language failed: %d %+v", w.Code, env)
	}
	decodeData(t, env, &got)
	if got.Preferences.Language != "python" {
		t.Fatalf("language should be stored in registry form, got %q", got.Preferences.Language)
	}

	w, env = performRequest(router, http.MethodPut, "/api/v1/preferences", map[string]interface{}{"language": "go"})
	if w.Code != http.StatusBadRequest || env.Code != appErr.LanguageNotSupported {
		t.Fatalf("expected LanguageNotSupported, got %d %+v", w.Code, env)
	}
	w, env = performRequest(router, http.MethodPut, "/api/v1/preferences", map[string]interface{}{"font_size": 0})
	if w.Code != http.StatusBadRequest || env.Code != appErr.ValidationFailed {
		t.Fatalf("expected ValidationFailed, got %d %+v", w.Code, env)
	}
}

func TestSnippets(t *testing.T) {
	router, _ := newTestRouter(t)

	w, env := performRequest(router, http.MethodPut, "/api/v1/snippets/hello", map[string]string{"code": "print(1)", "language": "python"})
	if w.Code != http.StatusOK {
		t.Fatalf("save failed: %d %+v", w.Code, env)
	}
	performRequest(router, http.MethodPut, "/api/v1/snippets/other", map[string]string{"code": "x", "language": "java"})

	_, env = performRequest(router, http.MethodGet, "/api/v1/snippets", nil)
	var list []struct {
		Name     string `json:"name"`
		Language string `json:"language"`
	}
	decodeData(t, env, &list)
	if len(list) != 2 {
		t.Fatalf("expected 2 snippets, got %+v", list)
	}

	w, env = performRequest(router, http.MethodPut, "/api/v1/snippets/bad", map[string]string{"code": "x", "language": "cobol"})
	if w.Code != http.StatusBadRequest || env.Code != appErr.LanguageNotSupported {
		t.Fatalf("expected LanguageNotSupported, got %d %+v", w.Code, env)
	}

	if w, _ := performRequest(router, http.MethodDelete, "/api/v1/snippets/hello", nil); w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", w.Code)
	}
	w, env = performRequest(router, http.MethodDelete, "/api/v1/snippets/hello", nil)
	if w.Code != http.StatusNotFound || env.Code != appErr.SnippetNotFound {
		t.Fatalf("expected SnippetNotFound, got %d %+v", w.Code, env)
	}
	if w, _ := performRequest(router, http.MethodGet, "/api/v1/snippets/hello", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// rejectWritesKV reads through to the wrapped KV and fails every write.
type rejectWritesKV struct {
	storage.KV
}

func (rejectWritesKV) Set(ctx context.Context, key, value string) error {
	return errors.New("read-only volume")
}

func TestDeleteSnippetPersistenceFailure(t *testing.T) {
	router, svcCtx := newTestRouter(t)
	kv := storage.NewMemoryKV()
	ctx := context.Background()
	if !prefs.NewStore(kv, svcCtx.Languages).SaveSnippet(ctx, "hello", prefs.Snippet{Code: "x", Language: "cpp"}) {
		t.Fatalf("seed snippet failed")
	}
	svcCtx.Prefs = prefs.NewStore(rejectWritesKV{KV: kv}, svcCtx.Languages)

	w, env := performRequest(router, http.MethodDelete, "/api/v1/snippets/hello", nil)
	if w.Code != http.StatusInternalServerError || env.Code != appErr.PersistenceFailed {
		t.Fatalf("expected PersistenceFailed, got %d %+v", w.Code, env)
	}
	if _, ok := prefs.NewStore(kv, svcCtx.Languages).GetSnippet(ctx, "hello"); !ok {
		t.Fatalf("snippet should still be stored")
	}
}

func TestFormat(t *testing.T) {
	router, _ := newTestRouter(t)
	_, env := performRequest(router, http.MethodPost, "/api/v1/format", map[string]string{"code": "if (x) {\nfoo();\n}", "language": "cpp"})
	var out struct {
		Code         string `json:"code"`
		UsedFallback bool   `json:"used_fallback"`
		Cause        string `json:"cause"`
	}
	decodeData(t, env, &out)
	if out.Code != "if (x) {\n  foo();\n}" || !out.UsedFallback || out.Cause == "" {
		t.Fatalf("unexpected format response: %+v", out)
	}
}

func TestRun(t *testing.T) {
	router, _ := newTestRouter(t, `{"status":{"id":1}}`, `{"status":{"id":3,"description":"Accepted"},"stdout":"42\n","time":"0.01","memory":512}`)

	w, env := performRequest(router, http.MethodPost, "/api/v1/run", map[string]string{"source_code": "print(42)", "language": "python"})
	if w.Code != http.StatusOK {
		t.Fatalf("run failed: %d %+v", w.Code, env)
	}
	var out struct {
		Output *string `json:"output"`
		Error  *string `json:"error"`
		Kind   string  `json:"kind"`
		Memory int     `json:"memory"`
	}
	decodeData(t, env, &out)
	if out.Output == nil || *out.Output != "42\n" || out.Error != nil || out.Kind != "success" || out.Memory != 512 {
		t.Fatalf("unexpected run response: %+v", out)
	}
	if !strings.Contains(string(env.Data), `"error":null`) {
		t.Fatalf("expected explicit null error, got %s", string(env.Data))
	}

	w, env = performRequest(router, http.MethodPost, "/api/v1/run", map[string]string{"source_code": "x", "language": "ruby"})
	if w.Code != http.StatusBadRequest || env.Code != appErr.LanguageNotSupported || env.Message != "Unsupported language: ruby" {
		t.Fatalf("expected LanguageNotSupported, got %d %+v", w.Code, env)
	}
	if w, _ := performRequest(router, http.MethodPost, "/api/v1/run", map[string]string{"source_code": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without language, got %d", w.Code)
	}
}

func TestRunStream(t *testing.T) {
	router, _ := newTestRouter(t,
		`{"status":{"id":1,"description":"In Queue"}}`,
		`{"status":{"id":2,"description":"Processing"}}`,
		`{"status":{"id":11,"description":"Runtime Error (NZEC)"},"stderr":"boom"}`,
	)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/run/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"source_code": "raise", "language": "python"}); err != nil {
		t.Fatalf("write request failed: %v", err)
	}

	var events []server.StreamEvent
	for {
		var ev server.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		events = append(events, ev)
		if ev.Type != server.EventTransition {
			break
		}
	}

	if len(events) < 3 {
		t.Fatalf("expected transitions and a result, got %+v", events)
	}
	if events[0].State != judge.StateSubmitting {
		t.Fatalf("expected submitting first, got %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Type != server.EventResult || last.Result == nil || last.Result.Kind != judge.KindRuntimeError || *last.Result.Error != "boom" {
		t.Fatalf("unexpected final event: %+v", last)
	}
}

func TestRunStreamRejectsBadRequest(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/run/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteJSON(map[string]string{"source_code": "x", "language": "ruby"})
	var ev server.StreamEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ev.Type != server.EventError || ev.Code != appErr.LanguageNotSupported {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
