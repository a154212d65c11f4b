// Package templates holds the customer SMS copy.
package templates

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

const (
	BookingConfirmed = `Text2toss: your pickup is booked for {{.PickupDate}} between {{.PickupTime}} at {{.Address}}. Ref #{{.Reference}}. Please have items at the curb.`

	PriceAdjustment = `Text2toss: after review, your pickup #{{.Reference}} is priced at ${{.AdjustedPrice}} (was ${{.OriginalPrice}}). Approve or decline here: {{.Link}}`

	PaymentReceived = `Text2toss: we received your payment of ${{.Amount}} for pickup #{{.Reference}}. Thank you!`

	PickupCompleted = `Text2toss: your junk removal #{{.Reference}} is complete. Thanks for choosing us!`
)

// parsed caches compiled templates by source text.
var parsed sync.Map

// Renderer fills SMS templates. The zero value is ready to use.
type Renderer struct{}

// Render fails on any missing key so a half-filled text is never sent.
// Output is collapsed onto one line.
func (Renderer) Render(name, text string, data any) (string, error) {
	if text == "" {
		return "", errors.New("templates: template text required")
	}
	t, err := compile(name, text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: %s: %w", name, err)
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}

func compile(name, text string) (*template.Template, error) {
	if t, ok := parsed.Load(text); ok {
		return t.(*template.Template), nil
	}
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", name, err)
	}
	actual, _ := parsed.LoadOrStore(text, t)
	return actual.(*template.Template), nil
}
