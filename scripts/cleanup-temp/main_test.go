package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintTokenClaims(t *testing.T) {
	raw, err := mintToken("s3cret", "cron", time.Minute)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "text2toss", claims.Issuer)
	assert.Equal(t, "cron", claims.Subject)
}

func TestTriggerSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"deleted":3,"message":"Cleaned up 3 temporary images"}`))
	}))
	defer srv.Close()

	res, err := trigger(srv.Client(), srv.URL, "tok")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Deleted)
}

func TestTriggerReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := trigger(srv.Client(), srv.URL, "tok")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "401"))
}
