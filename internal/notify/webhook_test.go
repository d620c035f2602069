package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestWebhookSend(t *testing.T) {
	var got struct {
		MsgType string `json:"msgtype"`
		Text    struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhook("ops", srv.URL, "")
	err := ch.Send(context.Background(), Message{Title: "alert", Body: "退款 detected"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.MsgType != "text" || got.Text.Content != "alert\n退款 detected" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestWebhookSignature(t *testing.T) {
	const secret = "s3cr3t"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ts, err := strconv.ParseInt(q.Get("timestamp"), 10, 64)
		if err != nil {
			t.Errorf("timestamp param: %v", err)
		}
		mac := hmac.New(sha256.New, []byte(secret))
		fmt.Fprintf(mac, "%d\n%s", ts, secret)
		want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
		if q.Get("sign") != want {
			t.Errorf("sign = %q, want %q", q.Get("sign"), want)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhook("ops", srv.URL, secret)
	ch.now = func() time.Time { return time.UnixMilli(1756540800000) }
	if err := ch.Send(context.Background(), Message{Title: "t", Body: "b"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhook("ops", srv.URL, "")
	if err := ch.Send(context.Background(), Message{Title: "t", Body: "b"}); err == nil {
		t.Fatal("expected error on 502")
	}
}
