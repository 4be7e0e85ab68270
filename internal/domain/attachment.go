package domain

import (
	"fmt"
	"time"
)

// AttachmentKind discriminates the attachment variants
type AttachmentKind string

const (
	AttachmentKindImage    AttachmentKind = "image"
	AttachmentKindVideo    AttachmentKind = "video"
	AttachmentKindAudio    AttachmentKind = "audio"
	AttachmentKindDocument AttachmentKind = "document"
)

// Attachment is a tagged variant: an attachment carries either inline bytes
// (base64, materialized to object storage at approval) or an external URL,
// never both. Mime type is inferred once, at materialization time.
type Attachment struct {
	ID         string
	ItemID     string
	Kind       AttachmentKind
	Filename   string
	MimeType   string
	InlineData []byte // raw bytes decoded from the submission, nil for URL variants
	SourceURL  string
	StorageKey string // set once materialized
	SHA256     string
	CreatedAt  time.Time
}

// IsInline returns true for attachments carrying submitted bytes.
func (a *Attachment) IsInline() bool {
	return len(a.InlineData) > 0
}

// IsMaterialized returns true once the payload has been persisted to storage.
func (a *Attachment) IsMaterialized() bool {
	return a.StorageKey != ""
}

// ValidateAttachment validates an Attachment instance
func ValidateAttachment(a *Attachment) error {
	if a == nil {
		return fmt.Errorf("attachment cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("attachment ID is required")
	}

	if a.ItemID == "" {
		return fmt.Errorf("attachment ItemID is required")
	}

	if !isValidAttachmentKind(a.Kind) {
		return fmt.Errorf("attachment Kind is invalid: %s", a.Kind)
	}

	if a.Filename == "" {
		return fmt.Errorf("attachment Filename is required")
	}

	if len(a.InlineData) == 0 && a.SourceURL == "" && a.StorageKey == "" {
		return fmt.Errorf("attachment must carry inline data, a source URL, or a storage key")
	}

	if len(a.InlineData) > 0 && a.SourceURL != "" {
		return fmt.Errorf("attachment cannot carry both inline data and a source URL")
	}

	return nil
}

func isValidAttachmentKind(k AttachmentKind) bool {
	switch k {
	case AttachmentKindImage, AttachmentKindVideo, AttachmentKindAudio, AttachmentKindDocument:
		return true
	}
	return false
}
