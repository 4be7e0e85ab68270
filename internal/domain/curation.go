package domain

import (
	"fmt"
	"regexp"
	"time"
)

// CurationStatus represents the workflow state of a queue item
type CurationStatus string

const (
	CurationStatusPending  CurationStatus = "pending"
	CurationStatusApproved CurationStatus = "approved"
	CurationStatusRejected CurationStatus = "rejected"
)

// DuplicationStatus represents the semantic-scan classification of a queue item
type DuplicationStatus string

const (
	DuplicationStatusUnset  DuplicationStatus = "unset"
	DuplicationStatusUnique DuplicationStatus = "unique"
	DuplicationStatusNear   DuplicationStatus = "near"
	DuplicationStatusExact  DuplicationStatus = "exact"
)

// RejectedRetention is how long a rejected item is kept before the reaper may purge it.
const RejectedRetention = 30 * 24 * time.Hour

// HistoryRetention is how long approved/rejected items remain visible in history.
const HistoryRetention = 5 * 365 * 24 * time.Hour

var contentHashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// CurationItem is the unit moving through the curation pipeline,
// from submission intake to a terminal approved/rejected state.
type CurationItem struct {
	ID       string
	TenantID string

	Title             string
	Content           string
	NormalizedContent string
	ContentHash       string

	DuplicationStatus DuplicationStatus
	SimilarityScore   float64
	DuplicateOfID     string // document or queue item id, empty when unset/unique
	Embedding         []float32

	Status          CurationStatus
	SubmittedBy     string
	SubmittedAt     time.Time
	ReviewedBy      string
	ReviewedAt      *time.Time
	StatusChangedAt time.Time
	ExpiresAt       *time.Time // set only on rejection
	PublishedID     string     // set once promotion completed

	SuggestedNamespaces []string
	Tags                []string
	Attachments         []Attachment
	ReviewNote          string
}

// IsTerminal returns true once the item has left the pending state.
func (i *CurationItem) IsTerminal() bool {
	return i.Status == CurationStatusApproved || i.Status == CurationStatusRejected
}

// CanTransition reports whether the workflow allows moving to the target state.
// Transitions are monotonic: pending -> {approved, rejected} only.
func (i *CurationItem) CanTransition(target CurationStatus) bool {
	return i.Status == CurationStatusPending &&
		(target == CurationStatusApproved || target == CurationStatusRejected)
}

// ValidateCurationItem validates a CurationItem instance
func ValidateCurationItem(i *CurationItem) error {
	if i == nil {
		return fmt.Errorf("curation item cannot be nil")
	}

	if i.ID == "" {
		return fmt.Errorf("curation item ID is required")
	}

	if i.TenantID == "" {
		return fmt.Errorf("curation item TenantID is required")
	}

	if i.Content == "" {
		return fmt.Errorf("curation item Content is required")
	}

	if !contentHashPattern.MatchString(i.ContentHash) {
		return fmt.Errorf("curation item ContentHash must be 64 lowercase hex characters")
	}

	if !isValidCurationStatus(i.Status) {
		return fmt.Errorf("curation item Status is invalid: %s", i.Status)
	}

	if !isValidDuplicationStatus(i.DuplicationStatus) {
		return fmt.Errorf("curation item DuplicationStatus is invalid: %s", i.DuplicationStatus)
	}

	if i.SimilarityScore < 0 || i.SimilarityScore > 1 {
		return fmt.Errorf("curation item SimilarityScore must be within [0,1]")
	}

	if (i.ExpiresAt != nil) != (i.Status == CurationStatusRejected) {
		return fmt.Errorf("curation item ExpiresAt must be set exactly when Status is rejected")
	}

	if i.PublishedID != "" && i.Status != CurationStatusApproved {
		return fmt.Errorf("curation item PublishedID requires Status approved")
	}

	return nil
}

func isValidCurationStatus(s CurationStatus) bool {
	switch s {
	case CurationStatusPending, CurationStatusApproved, CurationStatusRejected:
		return true
	}
	return false
}

func isValidDuplicationStatus(s DuplicationStatus) bool {
	switch s {
	case DuplicationStatusUnset, DuplicationStatusUnique, DuplicationStatusNear, DuplicationStatusExact:
		return true
	}
	return false
}
