package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/text2toss/junk-removal-api/internal/config"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

func inMemoryConfig() *appconfig.Config {
	return &appconfig.Config{
		BusinessTimezone:   "America/New_York",
		AdminPassword:      "hunter2",
		AdminJWTSecret:     "bootstrap-secret",
		SMSProvider:        "auto",
		VenmoHandle:        "@Text2toss",
		RateLimitPerMinute: 30,
		MetricsEnabled:     true,
		InlineWorkers:      true,
		TempImageMaxAge:    72 * time.Hour,
		JanitorInterval:    time.Hour,
		OutboxInterval:     time.Second,
		EstimatorTimeout:   time.Second,
	}
}

func TestBuildInMemoryServesAPI(t *testing.T) {
	app, err := Build(context.Background(), inMemoryConfig(), logging.New("error"), Options{})
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Text2toss Junk Removal API")

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/quotes",
		strings.NewReader(`{"items":[{"name":"mattress","quantity":1,"size":"large"}]}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "text2toss_quotes_created_total")
}

func TestBuildInMemoryDashboardUnavailable(t *testing.T) {
	app, err := Build(context.Background(), inMemoryConfig(), logging.New("error"), Options{})
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"password":"hunter2"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	token := extractToken(t, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAppStartStopsOnCancel(t *testing.T) {
	app, err := Build(context.Background(), inMemoryConfig(), logging.New("error"), Options{})
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	app.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		app.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background loops did not stop")
	}
	assert.NoError(t, app.Ready(context.Background()))
}

func TestBuildRequiresConfig(t *testing.T) {
	_, err := Build(context.Background(), nil, nil, Options{})
	assert.Error(t, err)
}

func extractToken(t *testing.T, body string) string {
	t.Helper()
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}
