package inspect

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/templatestore/pkg/reactive"
	"github.com/vango-dev/templatestore/pkg/store"
)

func newTestInspector(t *testing.T) (*store.Store, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(store.WithLogger(logger), store.WithMetrics(store.WithRegistry(reg)))
	srv := httptest.NewServer(New(st, WithGatherer(reg), WithLogger(logger)))
	t.Cleanup(srv.Close)
	return st, srv
}

func getJSON(t *testing.T, u string, v any) int {
	t.Helper()
	resp, err := http.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", u, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	st, srv := newTestInspector(t)
	st.Set(context.Background(), "id", "p", 1)

	var body struct {
		Status string `json:"status"`
		Keys   int    `json:"keys"`
	}
	if code := getJSON(t, srv.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Status != "ok" || body.Keys != 1 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestKeys(t *testing.T) {
	st, srv := newTestInspector(t)
	ctx := context.Background()
	l := reactive.NewListenerFunc(func() {})

	st.Set(ctx, "card1", "tvguide->expanded", true)
	st.Set(ctx, nil, "session->user", map[string]any{"name": "ada"})
	st.Set(ctx, "card2", "callback", func() {})
	st.Get(reactive.WithListener(ctx, l), "card1", "tvguide->expanded")

	var body struct {
		Keys []KeyInfo `json:"keys"`
	}
	if code := getJSON(t, srv.URL+"/keys", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(body.Keys))
	}

	// Sorted by key.
	if body.Keys[0].Key != "card1_tvguide->expanded" {
		t.Errorf("first key = %s", body.Keys[0].Key)
	}
	if body.Keys[0].Dependents != 1 {
		t.Errorf("dependents = %d, want 1", body.Keys[0].Dependents)
	}
	if string(body.Keys[0].Value) != "true" {
		t.Errorf("value = %s", body.Keys[0].Value)
	}
	if body.Keys[2].Scope != "default" || body.Keys[2].Property != "session->user" {
		t.Errorf("unexpected parts %+v", body.Keys[2])
	}
	// Functions cannot be encoded and fall back to their printed form.
	if !strings.HasPrefix(string(body.Keys[1].Value), `"0x`) {
		t.Errorf("func value = %s", body.Keys[1].Value)
	}
}

func TestKey(t *testing.T) {
	st, srv := newTestInspector(t)
	st.Set(context.Background(), "card1", "tvguide->expanded", false)

	var info KeyInfo
	u := srv.URL + "/keys/" + url.PathEscape("card1_tvguide->expanded")
	if code := getJSON(t, u, &info); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if info.Key != "card1_tvguide->expanded" || string(info.Value) != "false" {
		t.Errorf("unexpected info %+v", info)
	}

	if code := getJSON(t, srv.URL+"/keys/missing_key", nil); code != http.StatusNotFound {
		t.Errorf("missing key status = %d, want 404", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	st, srv := newTestInspector(t)
	st.Set(context.Background(), "id", "p", 1)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `templatestore_operations_total{op="set"} 1`) {
		t.Errorf("metrics output missing set counter:\n%s", body)
	}
}

func TestWebSocketStreamsEvents(t *testing.T) {
	st, srv := newTestInspector(t)
	ctx := context.Background()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" || hello.Client == "" {
		t.Fatalf("unexpected hello %+v", hello)
	}

	st.Set(ctx, "id", "p", "v")
	st.Unset(ctx, "id", "p")

	var set, unset Message
	if err := conn.ReadJSON(&set); err != nil {
		t.Fatalf("read set: %v", err)
	}
	if err := conn.ReadJSON(&unset); err != nil {
		t.Fatalf("read unset: %v", err)
	}

	if set.Kind != store.EventSet || set.Key != "id_p" || string(set.Value) != `"v"` {
		t.Errorf("unexpected set message %+v", set)
	}
	if unset.Kind != store.EventUnset || unset.Value != nil {
		t.Errorf("unexpected unset message %+v", unset)
	}
}

func TestWithMiddleware(t *testing.T) {
	st := store.New(store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Inspector", "1")
			next.ServeHTTP(w, r)
		})
	}
	srv := httptest.NewServer(New(st, WithGatherer(prometheus.NewRegistry()), WithMiddleware(tag)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Inspector") != "1" {
		t.Error("middleware not applied")
	}
}

func dialWS(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConfigDefaults(t *testing.T) {
	st := store.New()

	tests := []struct {
		name    string
		opts    []Option
		timeout time.Duration
		buffer  int
	}{
		{"defaults", nil, 10 * time.Second, 256},
		{"custom", []Option{WithWriteTimeout(time.Second), WithEventBuffer(8)}, time.Second, 8},
		{"zero", []Option{WithWriteTimeout(0), WithEventBuffer(0)}, 10 * time.Second, 1},
		{"negative", []Option{WithWriteTimeout(-time.Second), WithEventBuffer(-3)}, 10 * time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := New(st, tt.opts...)
			if i.config.WriteTimeout != tt.timeout {
				t.Errorf("WriteTimeout = %v, want %v", i.config.WriteTimeout, tt.timeout)
			}
			if i.config.EventBuffer != tt.buffer {
				t.Errorf("EventBuffer = %d, want %d", i.config.EventBuffer, tt.buffer)
			}
		})
	}
}

func TestWebSocketZeroWriteTimeout(t *testing.T) {
	st := store.New(store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	srv := httptest.NewServer(New(st, WithGatherer(prometheus.NewRegistry()), WithWriteTimeout(0)))
	t.Cleanup(srv.Close)

	conn, _, err := dialWS(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("hello not delivered with a zero write timeout: %v", err)
	}

	st.Set(context.Background(), "id", "p", 1)
	var ev Message
	if err := conn.ReadJSON(&ev); err != nil || ev.Kind != store.EventSet {
		t.Fatalf("event not delivered: %+v, %v", ev, err)
	}
}

func TestWebSocketCheckOrigin(t *testing.T) {
	st := store.New(store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	allow := func(r *http.Request) bool { return r.Header.Get("Origin") == "http://trusted.test" }
	srv := httptest.NewServer(New(st, WithGatherer(prometheus.NewRegistry()), WithCheckOrigin(allow)))
	t.Cleanup(srv.Close)

	_, resp, err := dialWS(t, srv, http.Header{"Origin": {"http://evil.test"}})
	if err == nil {
		t.Fatal("expected rejected origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}

	conn, _, err := dialWS(t, srv, http.Header{"Origin": {"http://trusted.test"}})
	if err != nil {
		t.Fatalf("trusted origin rejected: %v", err)
	}
	conn.Close()
}

func TestClientsCount(t *testing.T) {
	st := store.New(store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	insp := New(st, WithGatherer(prometheus.NewRegistry()))
	srv := httptest.NewServer(insp)
	t.Cleanup(srv.Close)

	if insp.Clients() != 0 {
		t.Fatalf("Clients() = %d before connecting", insp.Clients())
	}

	conn, _, err := dialWS(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, "client to register", func() bool { return insp.Clients() == 1 })

	conn.Close()
	waitFor(t, "client to unregister", func() bool { return insp.Clients() == 0 })
}
