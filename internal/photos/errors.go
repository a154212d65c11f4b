package photos

import "errors"

var (
	// ErrNotFound is returned for missing objects
	ErrNotFound = errors.New("photo not found")

	// ErrPhotoNotFound is returned for unknown gallery photos
	ErrPhotoNotFound = errors.New("gallery photo not found")

	// ErrInvalidReelSlot is returned for reel slots outside 0-5
	ErrInvalidReelSlot = errors.New("slot_index must be between 0 and 5")

	// ErrUnsupportedType is returned for uploads that are not images
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes
	ErrTooLarge = errors.New("image exceeds upload limit")
)
