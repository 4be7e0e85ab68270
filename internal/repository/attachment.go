package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbforge/curatex/internal/domain"
)

type AttachmentRepository struct {
	db dbtx
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{db: pool}
}

func NewAttachmentRepositoryWithTx(tx pgx.Tx) *AttachmentRepository {
	return &AttachmentRepository{db: tx}
}

// Create persists attachment metadata. Inline payload bytes stay on the row
// until materialization moves them to object storage.
func (r *AttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO attachments (id, item_id, kind, filename, mime_type, inline_data, source_url, storage_key, sha256, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.ItemID, a.Kind, a.Filename, nullableString(a.MimeType), a.InlineData,
		nullableString(a.SourceURL), nullableString(a.StorageKey), nullableString(a.SHA256), a.CreatedAt,
	)
	return err
}

func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, item_id, kind, filename, mime_type, inline_data, source_url, storage_key, sha256, created_at
		 FROM attachments WHERE id = $1`,
		id,
	)
	a, err := scanAttachment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAttachmentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AttachmentRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.Attachment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, item_id, kind, filename, mime_type, inline_data, source_url, storage_key, sha256, created_at
		 FROM attachments WHERE item_id = $1 ORDER BY created_at ASC`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// MarkMaterialized records the storage location of an uploaded payload and
// drops the inline bytes from the row.
func (r *AttachmentRepository) MarkMaterialized(ctx context.Context, id, storageKey, mimeType, sha256 string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE attachments
		 SET storage_key = $1, mime_type = $2, sha256 = $3, inline_data = NULL
		 WHERE id = $4`,
		storageKey, mimeType, sha256, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}

// DeleteByItem removes all attachment rows for an item. Callers delete the
// stored objects first; row deletion is the final step of cleanup.
func (r *AttachmentRepository) DeleteByItem(ctx context.Context, itemID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE item_id = $1`, itemID)
	return err
}

func scanAttachment(row pgx.Row) (*domain.Attachment, error) {
	var a domain.Attachment
	var mimeType, sourceURL, storageKey, sha256 *string
	err := row.Scan(&a.ID, &a.ItemID, &a.Kind, &a.Filename, &mimeType, &a.InlineData, &sourceURL, &storageKey, &sha256, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.MimeType = derefString(mimeType)
	a.SourceURL = derefString(sourceURL)
	a.StorageKey = derefString(storageKey)
	a.SHA256 = derefString(sha256)
	return &a, nil
}
