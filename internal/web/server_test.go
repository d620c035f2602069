package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatwatch/internal/source"
	"chatwatch/internal/source/webhook"
	"chatwatch/pkg/logx"
)

func newTestServer(t *testing.T) (*Server, *webhook.Source) {
	t.Helper()
	src := webhook.New(webhook.Config{
		Source: source.Config{Name: "kf", Platform: "wechat_kf", Enabled: true},
		Token:  "tok",
	})
	status := func() any { return map[string]int{"processed": 7} }
	s := New(Config{}, status, nil, []*webhook.Source{src}, logx.Nop(), nil)
	return s, src
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["monitor"]; !ok {
		t.Fatalf("monitor snapshot missing: %s", rec.Body.String())
	}
}

func TestIngestAcceptsAndQueues(t *testing.T) {
	s, src := newTestServer(t)
	body := `{"channel":"c","content":"我要退款"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/kf", strings.NewReader(body))
	req.Header.Set("X-Chatwatch-Token", "tok")
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	msgs, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "我要退款" {
		t.Fatalf("queued message wrong: %+v", msgs)
	}
}

func TestIngestRejectsBadToken(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook/kf", strings.NewReader(`{"channel":"c","content":"x"}`))
	req.Header.Set("X-Chatwatch-Token", "wrong")
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestIngestUnknownSource(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook/nope", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestIngestBadPayload(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook/kf", strings.NewReader(`{"channel":"c"}`))
	req.Header.Set("X-Chatwatch-Token", "tok")
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
