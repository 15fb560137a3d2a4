package manager

import "whisperd/pkg/types"

// invalidRequestError signals a caller contract violation detected
// before any background work is scheduled (400 mapping).
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return "invalid request: " + e.msg }

// ErrInvalidRequest constructs an invalidRequestError.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err is a caller error (return 400).
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}

// modelNotFoundError signals an unknown catalog name or a backing file
// missing on disk (404 mapping for the primary model).
type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.name }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether the error indicates a missing model.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// modelLoadFailedError signals that the engine rejected initialization
// with a model file. The slot keeps its prior state when this happens.
type modelLoadFailedError struct {
	path string
	err  error
}

func (e modelLoadFailedError) Error() string { return "model load failed: " + e.path + ": " + e.err.Error() }
func (e modelLoadFailedError) Unwrap() error { return e.err }

// ErrModelLoadFailed constructs a modelLoadFailedError.
func ErrModelLoadFailed(path string, err error) error {
	return modelLoadFailedError{path: path, err: err}
}

// IsModelLoadFailed reports whether err indicates a failed engine load.
func IsModelLoadFailed(err error) bool {
	_, ok := err.(modelLoadFailedError)
	return ok
}

// errorKind classifies an error into the wire taxonomy written on
// failed job records. Anything unrecognized is an engine failure.
func errorKind(err error) types.ErrorKind {
	switch {
	case IsInvalidRequest(err):
		return types.ErrKindInvalidRequest
	case IsModelNotFound(err):
		return types.ErrKindModelNotFound
	case IsModelLoadFailed(err):
		return types.ErrKindModelLoadFailed
	default:
		return types.ErrKindEngineFailure
	}
}
