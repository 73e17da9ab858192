package upload

import "errors"

var (
	// ErrInvalidRequest indicates malformed or missing init/part parameters.
	ErrInvalidRequest = errors.New("invalid upload request")
	// ErrSessionNotFound signals an unknown upload session or part number.
	ErrSessionNotFound = errors.New("upload session not found")
	// ErrInvalidState is returned for operations on a terminal or claimed session.
	ErrInvalidState = errors.New("upload session in invalid state")
	// ErrIncomplete is returned when completion is attempted before all parts arrived.
	ErrIncomplete = errors.New("upload incomplete")
	// ErrMissingPart signals that a stored part could not be read back.
	ErrMissingPart = errors.New("upload part missing")
	// ErrUnsupportedType is returned for mime types outside the allowed image set.
	ErrUnsupportedType = errors.New("unsupported file type")
)
