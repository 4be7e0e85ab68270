package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"mime"
	"path/filepath"

	"github.com/kbforge/curatex/internal/domain"
)

// AttachmentStorage is the object store attachments materialize into.
type AttachmentStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

// AttachmentService materializes inline attachment payloads into object
// storage at approval time and cleans up stored objects on rejection.
type AttachmentService struct {
	repo    AttachmentRepositoryInterface
	storage AttachmentStorage
}

// NewAttachmentService creates a new AttachmentService instance
func NewAttachmentService(repo AttachmentRepositoryInterface, storage AttachmentStorage) *AttachmentService {
	return &AttachmentService{repo: repo, storage: storage}
}

// MaterializeForItem uploads every inline attachment of the item and records
// its storage key. URL-variant attachments stay as references; already
// materialized attachments are skipped, so retries are idempotent.
func (s *AttachmentService) MaterializeForItem(ctx context.Context, itemID string) error {
	attachments, err := s.repo.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}

	for _, a := range attachments {
		if a.IsMaterialized() || !a.IsInline() {
			continue
		}

		mimeType := inferMimeType(a)
		sum := sha256.Sum256(a.InlineData)
		digest := hex.EncodeToString(sum[:])
		key := fmt.Sprintf("attachments/%s/%s/%s", itemID, a.ID, a.Filename)

		if err := s.storage.Upload(ctx, key, a.InlineData, mimeType); err != nil {
			return fmt.Errorf("failed to upload attachment %s: %w", a.ID, err)
		}
		if err := s.repo.MarkMaterialized(ctx, a.ID, key, mimeType, digest); err != nil {
			return err
		}
	}

	return nil
}

// CleanupForItem deletes the item's stored objects and attachment rows.
// Object deletion is best-effort: a missing object must not keep the rows
// alive forever.
func (s *AttachmentService) CleanupForItem(ctx context.Context, itemID string) error {
	attachments, err := s.repo.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}

	for _, a := range attachments {
		if !a.IsMaterialized() {
			continue
		}
		if err := s.storage.DeleteObject(ctx, a.StorageKey); err != nil {
			log.Printf("Failed to delete attachment object %s: %v", a.StorageKey, err)
		}
	}

	return s.repo.DeleteByItem(ctx, itemID)
}

// inferMimeType resolves the content type once, at materialization time:
// filename extension first, then a per-kind default.
func inferMimeType(a *domain.Attachment) string {
	if a.MimeType != "" {
		return a.MimeType
	}
	if t := mime.TypeByExtension(filepath.Ext(a.Filename)); t != "" {
		return t
	}
	switch a.Kind {
	case domain.AttachmentKindImage:
		return "image/jpeg"
	case domain.AttachmentKindVideo:
		return "video/mp4"
	case domain.AttachmentKindAudio:
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
