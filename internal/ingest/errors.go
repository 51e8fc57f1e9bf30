package ingest

import "fmt"

// Rejection marks an upload refused because of its content or the user's
// quota, as opposed to a processing failure on our side.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("upload rejected (%s): %s", r.Code, r.Message)
}

// ExtractionFailure wraps a decoder error from the extraction stage.
type ExtractionFailure struct {
	Err error
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionFailure) Unwrap() error { return e.Err }

// Rejection codes.
const (
	CodeUnsupportedType  = "unsupported_type"
	CodeFileTooLarge     = "file_too_large"
	CodeQuotaExceeded    = "quota_exceeded"
	CodeInsufficientText = "insufficient_text"
	CodeUserNotFound     = "user_not_found"
	CodeInvalidRequest   = "validation_error"
)
