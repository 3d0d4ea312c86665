package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func gatewayServer(t *testing.T, status int, body string, seen *http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		*seen = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGatewaySender_Send(t *testing.T) {
	var seen http.Request
	srv := gatewayServer(t, http.StatusOK, `{"status":true,"reason":""}`, &seen)

	g := NewGatewaySender(srv.URL, "secret-token")
	if err := g.Send(context.Background(), "6281234", "Hello Siti"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", seen.Method)
	}
	if got := seen.Header.Get("Authorization"); got != "secret-token" {
		t.Errorf("expected raw token in Authorization, got %q", got)
	}
	if seen.PostForm.Get("target") != "6281234" || seen.PostForm.Get("message") != "Hello Siti" {
		t.Errorf("unexpected form: %v", seen.PostForm)
	}
}

func TestGatewaySender_Rejected(t *testing.T) {
	var seen http.Request
	srv := gatewayServer(t, http.StatusOK, `{"status":false,"reason":"invalid token"}`, &seen)

	err := NewGatewaySender(srv.URL, "bad").Send(context.Background(), "62811", "x")
	if err == nil || !strings.Contains(err.Error(), "invalid token") {
		t.Errorf("expected rejection reason, got %v", err)
	}
}

func TestGatewaySender_HTTPError(t *testing.T) {
	var seen http.Request
	srv := gatewayServer(t, http.StatusUnauthorized, `{"status":false}`, &seen)

	err := NewGatewaySender(srv.URL, "").Send(context.Background(), "62811", "x")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestNewGatewaySender_DefaultURL(t *testing.T) {
	if g := NewGatewaySender("", "t"); g.url != DefaultGatewayURL {
		t.Errorf("expected default url, got %s", g.url)
	}
}
