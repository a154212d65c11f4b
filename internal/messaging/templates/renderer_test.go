package templates

import "testing"

func TestRendererRender(t *testing.T) {
	r := Renderer{}
	out, err := r.Render("greet", "Hello {{.Name}}", map[string]string{"Name": "Customer"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello Customer" {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := r.Render("bad", "Hello {{.Missing}}", map[string]string{"Name": "x"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestCustomerTemplates(t *testing.T) {
	r := Renderer{}
	out, err := r.Render("price", PriceAdjustment, map[string]string{
		"Reference":     "abcd1234",
		"AdjustedPrice": "250.00",
		"OriginalPrice": "199.00",
		"Link":          "https://text2toss.com/customer-approval/tok",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Text2toss: after review, your pickup #abcd1234 is priced at $250.00 (was $199.00). Approve or decline here: https://text2toss.com/customer-approval/tok"
	if out != want {
		t.Fatalf("unexpected output %q", out)
	}

	for name, tmpl := range map[string]string{"booked": BookingConfirmed, "paid": PaymentReceived, "done": PickupCompleted} {
		if _, err := r.Render(name, tmpl, map[string]string{}); err == nil {
			t.Fatalf("%s: expected missing key error", name)
		}
	}
}

func TestRendererCollapsesWhitespace(t *testing.T) {
	out, err := Renderer{}.Render("booked", BookingConfirmed, map[string]string{
		"PickupDate": "2026-03-02",
		"PickupTime": "08:00-10:00",
		"Address":    "12 Elm St\nApt 3",
		"Reference":  "abcd1234",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Text2toss: your pickup is booked for 2026-03-02 between 08:00-10:00 at 12 Elm St Apt 3. Ref #abcd1234. Please have items at the curb."
	if out != want {
		t.Fatalf("unexpected output %q", out)
	}
}
