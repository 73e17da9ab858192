package image

import "errors"

var (
	// ErrAssetNotFound signals that no asset exists for the short code.
	ErrAssetNotFound = errors.New("image not found")
	// ErrUnsupportedType is returned for files outside the allowed image set.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrCodeSpaceExhausted is returned when short code issuance keeps colliding.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")
)
