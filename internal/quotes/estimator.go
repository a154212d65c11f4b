package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Estimate is a priced assessment of a junk pile.
type Estimate struct {
	ScaleLevel  int
	TotalPrice  float64
	Explanation string
	Items       []Item
	Provider    string
}

// ImageInput is an uploaded photo to be priced.
type ImageInput struct {
	Data        []byte
	MIMEType    string
	Description string
}

// Estimator prices junk from an item list or a photo.
type Estimator interface {
	EstimateItems(ctx context.Context, items []Item, description string) (Estimate, error)
	EstimateImage(ctx context.Context, img ImageInput) (Estimate, error)
}

// visionModel is the provider-specific half of an estimator: it sends one
// prompt, optionally with an image, and returns the raw model text.
type visionModel interface {
	Generate(ctx context.Context, prompt string, img *ImageInput) (string, error)
}

// ModelEstimator adapts a visionModel into an Estimator using a shared
// prompt and JSON contract.
type ModelEstimator struct {
	model visionModel
	name  string
}

// NewModelEstimator wraps a provider model.
func NewModelEstimator(name string, model visionModel) *ModelEstimator {
	if model == nil {
		panic("quotes: estimator model cannot be nil")
	}
	return &ModelEstimator{model: model, name: name}
}

func (e *ModelEstimator) EstimateItems(ctx context.Context, items []Item, description string) (Estimate, error) {
	listing, err := json.Marshal(items)
	if err != nil {
		return Estimate{}, fmt.Errorf("quotes: marshal items: %w", err)
	}
	prompt := pricingInstructions + "\n\nCustomer item list (JSON): " + string(listing)
	if description != "" {
		prompt += "\nCustomer description: " + ScrubContact(description)
	}
	raw, err := e.model.Generate(ctx, prompt, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("quotes: %s items estimate: %w", e.name, err)
	}
	est, err := parseEstimate(raw)
	if err != nil {
		return Estimate{}, fmt.Errorf("quotes: %s items estimate: %w", e.name, err)
	}
	if len(est.Items) == 0 {
		est.Items = items
	}
	est.Provider = e.name
	return est, nil
}

func (e *ModelEstimator) EstimateImage(ctx context.Context, img ImageInput) (Estimate, error) {
	prompt := pricingInstructions + "\n\nIdentify every item visible in the attached photo before choosing a scale level."
	if img.Description != "" {
		prompt += "\nCustomer description: " + ScrubContact(img.Description)
	}
	raw, err := e.model.Generate(ctx, prompt, &img)
	if err != nil {
		return Estimate{}, fmt.Errorf("quotes: %s image estimate: %w", e.name, err)
	}
	est, err := parseEstimate(raw)
	if err != nil {
		return Estimate{}, fmt.Errorf("quotes: %s image estimate: %w", e.name, err)
	}
	est.Provider = e.name
	return est, nil
}

// FallbackEstimator tries each estimator in order until one succeeds.
type FallbackEstimator struct {
	chain  []Estimator
	logger *logging.Logger
}

// NewFallbackEstimator chains the non-nil estimators.
func NewFallbackEstimator(logger *logging.Logger, estimators ...Estimator) *FallbackEstimator {
	if logger == nil {
		logger = logging.Default()
	}
	f := &FallbackEstimator{logger: logger}
	for _, est := range estimators {
		if est != nil {
			f.chain = append(f.chain, est)
		}
	}
	return f
}

// Len reports how many estimators are chained.
func (f *FallbackEstimator) Len() int {
	if f == nil {
		return 0
	}
	return len(f.chain)
}

func (f *FallbackEstimator) EstimateItems(ctx context.Context, items []Item, description string) (Estimate, error) {
	return f.run(ctx, func(est Estimator) (Estimate, error) {
		return est.EstimateItems(ctx, items, description)
	})
}

func (f *FallbackEstimator) EstimateImage(ctx context.Context, img ImageInput) (Estimate, error) {
	return f.run(ctx, func(est Estimator) (Estimate, error) {
		return est.EstimateImage(ctx, img)
	})
}

func (f *FallbackEstimator) run(ctx context.Context, call func(Estimator) (Estimate, error)) (Estimate, error) {
	if f.Len() == 0 {
		return Estimate{}, ErrEstimatorUnavailable
	}
	var errs []error
	for i, est := range f.chain {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, err := call(est)
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)
		f.logger.Warn("estimator failed", "position", i, "remaining", len(f.chain)-i-1, "error", err)
	}
	return Estimate{}, errors.Join(errs...)
}

type estimatePayload struct {
	ScaleLevel  int     `json:"scale_level"`
	TotalPrice  float64 `json:"total_price"`
	Explanation string  `json:"explanation"`
	Items       []Item  `json:"items"`
}

// parseEstimate extracts the JSON object from model output, tolerating
// markdown fences and surrounding prose.
func parseEstimate(raw string) (Estimate, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Estimate{}, errors.New("no JSON object in model response")
	}
	var payload estimatePayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return Estimate{}, fmt.Errorf("decode model response: %w", err)
	}
	if payload.ScaleLevel == 0 {
		return Estimate{}, errors.New("model response missing scale_level")
	}
	items := payload.Items[:0]
	for _, item := range payload.Items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		item.Size = normalizeSize(item.Size)
		items = append(items, item)
	}
	return Estimate{
		ScaleLevel:  payload.ScaleLevel,
		TotalPrice:  payload.TotalPrice,
		Explanation: strings.TrimSpace(payload.Explanation),
		Items:       items,
	}, nil
}

const pricingInstructions = `You price junk removal jobs for Text2toss, a curbside junk hauling service.
All items are staged at ground level, so do not add labor for stairs or carrying.
Use a 1-20 scale where one level is a 3x3x3 ft pile (27 cubic feet) and level 10 is a full pickup truck.
Price bands in USD: 1: 35-45, 2: 55-75, 3: 80-100, 4: 100-130, 5: 125-165, 6: 165-205, 7: 200-250,
8: 240-300, 9: 290-350, 10: 350-450, and each level above 10 adds 50 to both ends of the 10 band.
Respond with only a JSON object of the form:
{"scale_level": <int>, "total_price": <number>, "explanation": "<one or two sentences mentioning the scale and cubic feet>",
 "items": [{"name": "<item>", "quantity": <int>, "size": "small|medium|large"}]}`
