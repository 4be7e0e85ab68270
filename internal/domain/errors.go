package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Not found errors
var (
	ErrItemNotFound       = NewDomainError(ErrCodeNotFound, "curation item not found")
	ErrDocumentNotFound   = NewDomainError(ErrCodeNotFound, "document not found")
	ErrAttachmentNotFound = NewDomainError(ErrCodeNotFound, "attachment not found")
	ErrTenantNotFound     = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrNamespaceNotFound  = NewDomainError(ErrCodeNotFound, "namespace not found")
	ErrAPIKeyNotFound     = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrDocumentAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "document with this content hash already exists")
	ErrItemAlreadyExists     = NewDomainError(ErrCodeAlreadyExists, "curation item with this content hash already exists")
	ErrTenantAlreadyExists   = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrAPIKeyAlreadyExists   = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Operation errors
var (
	ErrItemNotPending       = NewDomainError(ErrCodeInvalidOperation, "curation item is no longer pending")
	ErrTrainingRecordFailed = NewDomainError(ErrCodeInternalError, "failed to record training example")
)

// DuplicateOf identifies the content a submission collided with.
type DuplicateOf struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// DuplicateContentError is returned when a submission matches existing
// content. Its JSON shape is a compatibility contract: callers map it to a
// conflict-style response.
type DuplicateContentError struct {
	IsDuplicate bool        `json:"isDuplicate"`
	IsPending   bool        `json:"isPending"`
	DuplicateOf DuplicateOf `json:"duplicateOf"`
	Similarity  float64     `json:"similarity,omitempty"`
	Message     string      `json:"message"`
}

// Error implements the error interface
func (e *DuplicateContentError) Error() string {
	return e.Message
}

// NewDuplicateContentError builds a duplicate error referencing the conflicting content.
func NewDuplicateContentError(id, title string, pending bool, similarity float64) *DuplicateContentError {
	state := "an indexed document"
	if pending {
		state = "a pending submission"
	}
	return &DuplicateContentError{
		IsDuplicate: true,
		IsPending:   pending,
		DuplicateOf: DuplicateOf{ID: id, Title: title},
		Similarity:  similarity,
		Message:     fmt.Sprintf("content duplicates %s: %q", state, title),
	}
}

// AbsorptionRejectedError is returned when a near-duplicate submission does
// not contain enough novel material to justify publication. Approval must
// abort with this reason rather than publish a degenerate document.
type AbsorptionRejectedError struct {
	Reason      string
	UniqueLines int
	TotalLines  int
	Ratio       float64
}

// Error implements the error interface
func (e *AbsorptionRejectedError) Error() string {
	return fmt.Sprintf("absorption rejected: %s (%d of %d lines new)", e.Reason, e.UniqueLines, e.TotalLines)
}
