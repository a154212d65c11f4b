package payments

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/text2toss/junk-removal-api/internal/bookings"
)

const defaultVenmoHandle = "@Text2toss"

// VenmoInstructions tell the customer how to pay by Venmo.
type VenmoInstructions struct {
	Handle       string   `json:"handle"`
	Amount       float64  `json:"amount"`
	Note         string   `json:"note"`
	DeepLink     string   `json:"deep_link"`
	WebLink      string   `json:"web_link"`
	QRCodePNG    string   `json:"qr_code_png"`
	Instructions []string `json:"instructions"`
}

// VenmoBuilder renders payment links and a scannable QR code.
type VenmoBuilder struct {
	handle string
	qrSize int
}

func NewVenmoBuilder(handle string) *VenmoBuilder {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		handle = defaultVenmoHandle
	}
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	return &VenmoBuilder{handle: handle, qrSize: 256}
}

// Build produces the instructions for one booking.
func (v *VenmoBuilder) Build(b *bookings.Booking, amount decimal.Decimal) (*VenmoInstructions, error) {
	note := fmt.Sprintf("Text2toss junk removal #%s", b.ShortID())
	user := strings.TrimPrefix(v.handle, "@")
	amt := amount.StringFixed(2)

	q := url.Values{}
	q.Set("txn", "pay")
	q.Set("recipients", user)
	q.Set("amount", amt)
	q.Set("note", note)
	deepLink := "venmo://paycharge?" + q.Encode()
	webLink := "https://venmo.com/" + url.PathEscape(user) + "?" + q.Encode()

	png, err := qrcode.Encode(webLink, qrcode.Medium, v.qrSize)
	if err != nil {
		return nil, fmt.Errorf("payments: render venmo qr: %w", err)
	}

	return &VenmoInstructions{
		Handle:   v.handle,
		Amount:   amount.InexactFloat64(),
		Note:     note,
		DeepLink: deepLink,
		WebLink:  webLink,
		// Frontend renders it via data:image/png;base64,
		QRCodePNG: base64.StdEncoding.EncodeToString(png),
		Instructions: []string{
			fmt.Sprintf("Open Venmo and pay %s", v.handle),
			fmt.Sprintf("Send $%s", amt),
			fmt.Sprintf("Include the note \"%s\" so we can match your payment", note),
			"We confirm your payment before your pickup day",
		},
	}, nil
}
