package quotes

import (
	"strings"
	"time"
)

// Item sizes accepted on manual quotes.
const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

// Quote sources.
const (
	SourceItems = "items"
	SourceImage = "image"
)

// ApprovalStatus tracks admin review of a quote.
type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "pending_approval"
	ApprovalAutoApproved ApprovalStatus = "auto_approved"
	ApprovalApproved     ApprovalStatus = "approved"
	ApprovalRejected     ApprovalStatus = "rejected"
)

// Item is a single piece of junk on a quote.
type Item struct {
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Size        string `json:"size"`
	Description string `json:"description,omitempty"`
}

// Breakdown splits the quoted total into base cost and service charges.
type Breakdown struct {
	BaseCost          float64 `json:"base_cost"`
	AdditionalCharges float64 `json:"additional_charges"`
	Total             float64 `json:"total"`
}

// Quote is a priced junk-removal estimate.
type Quote struct {
	ID               string         `json:"id"`
	Items            []Item         `json:"items"`
	Description      string         `json:"description"`
	TotalPrice       float64        `json:"total_price"`
	ScaleLevel       int            `json:"scale_level"`
	SizeTier         string         `json:"size_tier"`
	Breakdown        Breakdown      `json:"breakdown"`
	AIExplanation    string         `json:"ai_explanation"`
	Source           string         `json:"source"`
	ImageKey         string         `json:"image_key,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
	HighPriority     bool           `json:"high_priority"`
	ApprovalStatus   ApprovalStatus `json:"approval_status"`
	ApprovedPrice    *float64       `json:"approved_price,omitempty"`
	AdminNotes       string         `json:"admin_notes,omitempty"`
	ApprovedBy       string         `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// PayableAmount is the price a customer is charged: the approved price when
// an admin set one, otherwise the quoted total.
func (q *Quote) PayableAmount() float64 {
	if q.ApprovedPrice != nil {
		return *q.ApprovedPrice
	}
	return q.TotalPrice
}

// PaymentAllowed reports whether the approval state lets the customer pay.
func (q *Quote) PaymentAllowed() bool {
	return q.ApprovalStatus == ApprovalAutoApproved || q.ApprovalStatus == ApprovalApproved
}

// CreateQuoteRequest is the body of POST /quotes.
type CreateQuoteRequest struct {
	Items       []Item `json:"items"`
	Description string `json:"description"`
}

// Validate normalizes item sizes and checks required fields.
func (r *CreateQuoteRequest) Validate() error {
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	for i := range r.Items {
		item := &r.Items[i]
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" || item.Quantity < 1 {
			return ErrInvalidItem
		}
		item.Size = normalizeSize(item.Size)
	}
	r.Description = strings.TrimSpace(r.Description)
	return nil
}

// ReviewAction is an admin decision on a quote.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// ReviewRequest is the body of POST /admin/quotes/{id}/approve.
type ReviewRequest struct {
	Action        ReviewAction `json:"action"`
	AdminNotes    string       `json:"admin_notes,omitempty"`
	ApprovedPrice *float64     `json:"approved_price,omitempty"`
}

// Validate checks the action and price.
func (r *ReviewRequest) Validate() error {
	switch r.Action {
	case ReviewApprove, ReviewReject:
	default:
		return ErrInvalidReview
	}
	if r.ApprovedPrice != nil && *r.ApprovedPrice <= 0 {
		return ErrInvalidReview
	}
	return nil
}

// ApprovalStats summarizes the review queue.
type ApprovalStats struct {
	TotalRequiringApproval int `json:"total_requiring_approval"`
	PendingApproval        int `json:"pending_approval"`
	Approved               int `json:"approved"`
	Rejected               int `json:"rejected"`
	AutoApproved           int `json:"auto_approved"`
}

func normalizeSize(size string) string {
	switch strings.ToLower(strings.TrimSpace(size)) {
	case SizeSmall:
		return SizeSmall
	case SizeLarge:
		return SizeLarge
	default:
		return SizeMedium
	}
}
