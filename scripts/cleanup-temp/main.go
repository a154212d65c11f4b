// Command cleanup-temp asks a running API to delete temporary quote images,
// signing an admin token locally so it can run from cron without a login.
//
//	ADMIN_JWT_SECRET=... API_URL=https://api.text2toss.com go run ./scripts/cleanup-temp
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type cleanupResult struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

func main() {
	actor := flag.String("as", "cleanup-script", "subject recorded in the admin audit log")
	timeout := flag.Duration("timeout", time.Minute, "request timeout")
	flag.Parse()

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fail("ADMIN_JWT_SECRET is not set")
	}
	apiURL := strings.TrimRight(os.Getenv("API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	token, err := mintToken(secret, *actor, 5*time.Minute)
	if err != nil {
		fail("sign token: %v", err)
	}
	res, err := trigger(&http.Client{Timeout: *timeout}, apiURL+"/api/admin/cleanup-temp-images", token)
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("deleted %d temporary image(s): %s\n", res.Deleted, res.Message)
}

func mintToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "text2toss",
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func trigger(client *http.Client, url, token string) (*cleanupResult, error) {
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var res cleanupResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "cleanup-temp: "+format+"\n", args...)
	os.Exit(1)
}
