package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "github.com/text2toss/junk-removal-api/internal/config"
)

func TestNewServerUsesPortAndTimeouts(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	srv := newServer(&appconfig.Config{Port: "9090"}, h)

	if srv.Addr != ":9090" {
		t.Fatalf("expected :9090, got %q", srv.Addr)
	}
	if srv.WriteTimeout < 30*time.Second {
		t.Fatalf("write timeout %s is shorter than the estimator budget", srv.WriteTimeout)
	}
	if srv.ReadHeaderTimeout == 0 {
		t.Fatalf("expected a read header timeout")
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected handler to be mounted, got %d", rec.Code)
	}
}
