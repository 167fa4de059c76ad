package apperrors

import "errors"

var (
	ErrBadRequest            = errors.New("bad request")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrStaleVersion          = errors.New("stale version")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	ErrUnparsableResponse    = errors.New("unparsable model response")
	ErrCancelled             = errors.New("analysis cancelled")
	ErrTimedOut              = errors.New("analysis timed out")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrEmptySource           = errors.New("empty source")
)
