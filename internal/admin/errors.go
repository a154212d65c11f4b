package admin

import "errors"

var (
	// ErrInvalidCredentials is returned for a wrong username or password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthNotConfigured is returned when no admin password or signing secret is set
	ErrAuthNotConfigured = errors.New("admin login is not configured")

	// ErrInvalidRange is returned for malformed or oversized date ranges
	ErrInvalidRange = errors.New("invalid date range")

	// ErrNoPhoto is returned when a booking has no completion photo
	ErrNoPhoto = errors.New("no completion photo for this booking")

	// ErrNoImage is returned when a quote was not created from an image
	ErrNoImage = errors.New("quote has no image")

	// ErrPhotosUnavailable is returned when no object store is configured
	ErrPhotosUnavailable = errors.New("photo storage is not configured")
)
