package galprof

import "errors"

var (
	// ErrInvalidLockType is returned when lock control receives something other than a bool or an int.
	ErrInvalidLockType = errors.New("unrecognized lock type")

	// ErrLockedParameter is returned when a fixed parameter is mutated without an override.
	ErrLockedParameter = errors.New("parameter is fixed")

	// ErrKeyNotFound is returned when a lookup misses both direct names and array sub-keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnrecognizedParameterSpec is returned for malformed parameter specifications.
	ErrUnrecognizedParameterSpec = errors.New("unrecognized parameter specification")

	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrUnknownModelType = errors.New("unknown model type")
	ErrDuplicateModel   = errors.New("duplicate model name")
	ErrEmptyIsophote    = errors.New("isophote has no samples inside the image")
	ErrNoTarget         = errors.New("model has no target image")
	ErrInvalidWindow    = errors.New("invalid window")
	ErrProfileNotReady  = errors.New("profile has no value")
)
