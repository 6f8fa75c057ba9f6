package cbor

import "errors"

// Sentinel errors for the flat error taxonomy described in the design notes.
var (
	// ErrInsufficientBuffer is returned when the reader runs out of bytes
	// before a production is complete.
	ErrInsufficientBuffer = errors.New("cbor: insufficient buffer")
	// ErrMalformed is returned for CBOR bytes that are not well-formed.
	ErrMalformed = errors.New("cbor: malformed encoding")
	// ErrUnexpectedMajorType is returned when a production expected one
	// major type and observed another.
	ErrUnexpectedMajorType = errors.New("cbor: unexpected major type")
	// ErrUnexpectedTag is returned when validate_tag observes a tag number
	// other than the one it was asked to validate.
	ErrUnexpectedTag = errors.New("cbor: unexpected tag number")
	// ErrArrayLength is returned by validate_array_of_n on a length mismatch.
	ErrArrayLength = errors.New("cbor: array length mismatch")
	// ErrMapLength is returned by validate_map_of_n on a length mismatch.
	ErrMapLength = errors.New("cbor: map length mismatch")
	// ErrUnsupportedType is returned when Encode/Decode is given a Go value
	// with no defined CBOR mapping.
	ErrUnsupportedType = errors.New("cbor: unsupported Go type")
)

// ShapeError names the production that rejected a value, for the
// "shape mismatch -> typed error naming the expected production" contract
// in the error handling design.
type ShapeError struct {
	Production string
	Err        error
}

func (e *ShapeError) Error() string {
	return "cbor: " + e.Production + ": " + e.Err.Error()
}

func (e *ShapeError) Unwrap() error { return e.Err }

// NewShapeError wraps err naming the enclosing production.
func NewShapeError(production string, err error) error {
	return &ShapeError{Production: production, Err: err}
}
