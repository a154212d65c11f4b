// Package main runs end-to-end scenarios against a running API.
//
// Scenarios cover:
//   - Item quotes and quote lookup
//   - Booking a free slot and opening a Stripe checkout
//   - Double booking and restricted-day rejection
//   - Admin review of a large quote with a price increase
//
// Usage:
//
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go [scenario-name]
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go              # runs all
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go book-and-pay # runs one
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

const (
	testPhone   = "+15005550006"
	testAddress = "100 E2E Test Ln"
	originURL   = "https://text2toss.com"
)

var (
	apiBase   string
	jwtSecret string
	jwt       string
	client    = &http.Client{Timeout: 60 * time.Second}
)

// ---------------------------------------------------------------------------
// Scenario definition
// ---------------------------------------------------------------------------

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func call(method, path string, body interface{}, auth bool, out interface{}) (int, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, apiBase+path, rdr)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+jwt)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w (%s)", path, err, string(raw))
		}
	}
	return resp.StatusCode, nil
}

type quote struct {
	ID             string  `json:"id"`
	ScaleLevel     int     `json:"scale_level"`
	TotalPrice     float64 `json:"total_price"`
	ApprovalStatus string  `json:"approval_status"`
}

type booking struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"payment_status"`
	AdjustedPrice *float64 `json:"adjusted_price"`
}

func createQuote(items ...map[string]interface{}) (*quote, error) {
	var q quote
	code, err := call(http.MethodPost, "/api/quotes", map[string]interface{}{"items": items, "description": "e2e run"}, false, &q)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("create quote returned %d", code)
	}
	return &q, nil
}

func item(name, size string, qty int) map[string]interface{} {
	return map[string]interface{}{"name": name, "size": size, "quantity": qty}
}

// freeSlot finds the first open slot on a service day at least a week out.
func freeSlot() (string, string, error) {
	start := time.Now().AddDate(0, 0, 7)
	end := start.AddDate(0, 0, 28)
	var days map[string]struct {
		AvailableCount int  `json:"available_count"`
		IsRestricted   bool `json:"is_restricted"`
	}
	path := fmt.Sprintf("/api/availability-range?start_date=%s&end_date=%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	if _, err := call(http.MethodGet, path, nil, false, &days); err != nil {
		return "", "", err
	}
	dates := make([]string, 0, len(days))
	for d, s := range days {
		if !s.IsRestricted && s.AvailableCount > 0 {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	for _, d := range dates {
		var day struct {
			AvailableSlots []string `json:"available_slots"`
		}
		if _, err := call(http.MethodGet, "/api/availability/"+d, nil, false, &day); err != nil {
			continue
		}
		if len(day.AvailableSlots) > 0 {
			return d, day.AvailableSlots[0], nil
		}
	}
	return "", "", fmt.Errorf("no free slot between %s and %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
}

func book(quoteID, date, slot string) (int, *booking, error) {
	var b booking
	code, err := call(http.MethodPost, "/api/bookings", map[string]interface{}{
		"quote_id":           quoteID,
		"pickup_date":        date,
		"pickup_time":        slot,
		"address":            testAddress,
		"phone":              testPhone,
		"curbside_confirmed": true,
		"sms_notifications":  false,
	}, false, &b)
	return code, &b, err
}

// cancel frees the slot again so repeated runs do not fill the calendar.
func cancel(id string) {
	_, _ = call(http.MethodPatch, "/api/admin/bookings/"+id, map[string]string{"status": "cancelled"}, true, nil)
}

func generateJWT(secret string) string {
	header := base64url(map[string]string{"alg": "HS256", "typ": "JWT"})
	now := time.Now()
	payload := base64url(map[string]interface{}{
		"iss": "text2toss",
		"sub": "e2e",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	unsigned := header + "." + payload
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(unsigned))
	sig := strings.TrimRight(base64.URLEncoding.EncodeToString(mac.Sum(nil)), "=")
	return unsigned + "." + sig
}

func base64url(v interface{}) string {
	b, _ := json.Marshal(v)
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "=")
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioItemQuote(t *T) {
	q, err := createQuote(item("couch", "large", 1), item("chair", "small", 2))
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("quote has an id", q.ID != "")
	t.check("scale within 1-20", q.ScaleLevel >= 1 && q.ScaleLevel <= 20)
	t.check("price is positive", q.TotalPrice > 0)

	var again quote
	code, err := call(http.MethodGet, "/api/quotes/"+q.ID, nil, false, &again)
	t.check("quote can be read back", err == nil && code == http.StatusOK && again.ID == q.ID)

	code, _ = call(http.MethodGet, "/api/quotes/does-not-exist", nil, false, nil)
	t.check("unknown quote is 404", code == http.StatusNotFound)
}

func scenarioBookAndPay(t *T) {
	q, err := createQuote(item("chair", "small", 1))
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	date, slot, err := freeSlot()
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	code, b, err := book(q.ID, date, slot)
	if err != nil || code != http.StatusOK {
		t.fatalf("book returned %d: %v", code, err)
		return
	}
	defer cancel(b.ID)
	t.check("booking is scheduled", b.Status == "scheduled")
	t.check("booking starts unpaid", b.PaymentStatus == "unpaid")

	var session struct {
		URL       string  `json:"url"`
		SessionID string  `json:"session_id"`
		Amount    float64 `json:"amount"`
	}
	code, err = call(http.MethodPost, "/api/payments/create-checkout-session",
		map[string]string{"booking_id": b.ID, "origin_url": originURL}, false, &session)
	if err != nil || code != http.StatusOK {
		t.fatalf("checkout returned %d: %v", code, err)
		return
	}
	t.check("checkout has a url", strings.HasPrefix(session.URL, "https://"))
	t.check("checkout charges the quoted price", session.Amount == q.TotalPrice)

	var status struct {
		Status string `json:"status"`
	}
	code, err = call(http.MethodGet, "/api/payments/status/"+session.SessionID, nil, false, &status)
	t.check("status endpoint answers", err == nil && code == http.StatusOK && status.Status != "")
}

func scenarioDoubleBooking(t *T) {
	q1, err := createQuote(item("lamp", "small", 1))
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	q2, err := createQuote(item("desk", "medium", 1))
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	date, slot, err := freeSlot()
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	code, b, err := book(q1.ID, date, slot)
	if err != nil || code != http.StatusOK {
		t.fatalf("book returned %d: %v", code, err)
		return
	}
	defer cancel(b.ID)

	code, _, _ = book(q2.ID, date, slot)
	t.check("second booking of the slot is 409", code == http.StatusConflict)
}

func scenarioRestrictedDay(t *T) {
	q, err := createQuote(item("box", "small", 1))
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	friday := time.Now().AddDate(0, 0, 7)
	for friday.Weekday() != time.Friday {
		friday = friday.AddDate(0, 0, 1)
	}
	code, _, _ := book(q.ID, friday.Format("2006-01-02"), "08:00-10:00")
	t.check("friday booking is 400", code == http.StatusBadRequest)
}

func scenarioAdminReview(t *T) {
	q, err := createQuote(item("sectional", "large", 3))
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("large quote needs review", q.ApprovalStatus == "pending_approval")

	date, slot, err := freeSlot()
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	code, b, err := book(q.ID, date, slot)
	if err != nil || code != http.StatusOK {
		t.fatalf("book returned %d: %v", code, err)
		return
	}
	defer cancel(b.ID)

	code, _ = call(http.MethodPost, "/api/payments/create-checkout-session",
		map[string]string{"booking_id": b.ID, "origin_url": originURL}, false, nil)
	t.check("checkout blocked until review", code != http.StatusOK)

	higher := q.TotalPrice + 40
	var review struct {
		PriceIncreased        bool `json:"price_increased"`
		AwaitingCustomerCount int  `json:"awaiting_customer_count"`
	}
	code, err = call(http.MethodPost, "/api/admin/quotes/"+q.ID+"/approve",
		map[string]interface{}{"action": "approve", "approved_price": higher, "admin_notes": "e2e: more than pictured"}, true, &review)
	if err != nil || code != http.StatusOK {
		t.fatalf("review returned %d: %v", code, err)
		return
	}
	t.check("price increase reported", review.PriceIncreased)
	t.check("booking sent to customer", review.AwaitingCustomerCount == 1)

	var after booking
	_, _ = call(http.MethodGet, "/api/bookings/"+b.ID, nil, false, &after)
	t.check("booking awaits customer approval", after.Status == "pending_customer_approval")
	t.check("adjusted price recorded", after.AdjustedPrice != nil && *after.AdjustedPrice == higher)
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	jwtSecret = os.Getenv("ADMIN_JWT_SECRET")
	if apiBase == "" || jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL and ADMIN_JWT_SECRET required")
		os.Exit(1)
	}
	jwt = generateJWT(jwtSecret)

	scenarios := []scenario{
		{"item-quote", scenarioItemQuote},
		{"book-and-pay", scenarioBookAndPay},
		{"double-booking", scenarioDoubleBooking},
		{"restricted-day", scenarioRestrictedDay},
		{"admin-review", scenarioAdminReview},
	}

	// Filter by name if argument provided
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "OK  "
		if t.failed > 0 {
			status = "FAIL"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\nSOME SCENARIOS FAILED")
		os.Exit(1)
	}
	fmt.Println("\nALL SCENARIOS PASSED")
}
