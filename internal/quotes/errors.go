package quotes

import "errors"

var (
	// ErrNoItems is returned when an item quote has nothing to price
	ErrNoItems = errors.New("at least one item is required")

	// ErrInvalidItem is returned when an item is missing a name or has a non-positive quantity
	ErrInvalidItem = errors.New("each item needs a name and a quantity of at least 1")

	// ErrImageRequired is returned when an image quote arrives without a file
	ErrImageRequired = errors.New("an image file is required")

	// ErrUnsupportedImage is returned for content types the estimators cannot read
	ErrUnsupportedImage = errors.New("unsupported image type")

	// ErrQuoteNotFound is returned when a quote is not found
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrInvalidReview is returned when an approval action is malformed
	ErrInvalidReview = errors.New("action must be approve or reject")

	// ErrAlreadyReviewed is returned when a quote no longer awaits review
	ErrAlreadyReviewed = errors.New("quote is not awaiting approval")

	// ErrEstimatorUnavailable is returned when no AI estimator is configured
	ErrEstimatorUnavailable = errors.New("estimator unavailable")
)
