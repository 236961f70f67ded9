package proxy

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/zhengjr9/foundation-bridge/internal/config"
	"github.com/zhengjr9/foundation-bridge/internal/engine/enginetest"
	"github.com/zhengjr9/foundation-bridge/internal/metrics"
	"github.com/zhengjr9/foundation-bridge/internal/session"
)

func newTestProxy(t *testing.T, eng *enginetest.Scripted) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		ListenAddr:     ":0",
		ModelID:        "foundation-model",
		RequestTimeout: 10 * time.Second,
		MetricsPath:    "/metrics",
	}
	srv := New(cfg, session.New(eng), metrics.New())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestModels(t *testing.T) {
	ts := newTestProxy(t, &enginetest.Scripted{})

	resp, err := http.Get(ts.URL + "/v1/models")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(raw)); got != `{"object":"list","data":[{"id":"foundation-model","object":"model"}]}` {
		t.Errorf("unexpected listing %s", got)
	}
}

func TestChatCompletions_Blocking(t *testing.T) {
	ts := newTestProxy(t, &enginetest.Scripted{Response: "hello"})

	body := `{"model":"m","messages":[{"role":"user","content":"hi"}]}`
	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	choice := result["choices"].([]any)[0].(map[string]any)
	if got := choice["message"].(map[string]any)["content"]; got != "hello" {
		t.Errorf("expected content %q, got %v", "hello", got)
	}
	if choice["finish_reason"] != "stop" {
		t.Errorf("expected finish_reason stop, got %v", choice["finish_reason"])
	}
}

// The logging middleware wraps the writer; frames must still reach the
// client one by one.
func TestChatCompletions_StreamingIsNotBuffered(t *testing.T) {
	gate := make(chan struct{})
	eng := &enginetest.Scripted{Snapshots: []string{"Hello", "Hello world"}, Gate: gate}
	ts := newTestProxy(t, eng)

	body := `{"model":"m","messages":[{"role":"user","content":"hi"}],"stream":true}`
	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected SSE content-type, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readFrame := func() string {
		t.Helper()
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if _, err := reader.ReadString('\n'); err != nil {
			t.Fatalf("read frame separator: %v", err)
		}
		return strings.TrimPrefix(strings.TrimSpace(line), "data: ")
	}

	gate <- struct{}{}
	if f := readFrame(); !strings.Contains(f, `"content":"Hello"`) {
		t.Errorf("first frame: %s", f)
	}
	gate <- struct{}{}
	if f := readFrame(); !strings.Contains(f, `"content":" world"`) {
		t.Errorf("second frame: %s", f)
	}
	if f := readFrame(); !strings.Contains(f, `"finish_reason":"stop"`) {
		t.Errorf("finish frame: %s", f)
	}
	if f := readFrame(); f != "[DONE]" {
		t.Errorf("expected [DONE], got %s", f)
	}
}

func TestRouting(t *testing.T) {
	ts := newTestProxy(t, &enginetest.Scripted{})

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/v1/chat/completions", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/models", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(tc.method, ts.URL+tc.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.StatusCode)
		}
	}
}

func TestRoutingErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := &config.Config{ModelID: "foundation-model"}
	h := New(cfg, session.New(&enginetest.Scripted{}), nil).Handler()

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/v1/unknown", http.StatusNotFound},
		{http.MethodDelete, "/v1/models", http.StatusMethodNotAllowed},
	} {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

		if rec.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rec.Code)
		}
		line := buf.String()
		if !strings.Contains(line, "msg=request") || !strings.Contains(line, "path="+tc.path) {
			t.Errorf("%s %s: request not logged: %q", tc.method, tc.path, line)
		}
		if want := "status=" + strconv.Itoa(tc.want); !strings.Contains(line, want) {
			t.Errorf("%s %s: log line missing %s: %q", tc.method, tc.path, want, line)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestProxy(t, &enginetest.Scripted{Response: "x"})

	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"model":"m","messages":[{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `bridge_requests_total{mode="blocking",outcome="ok"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", raw)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
