package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/pagination"
	"github.com/kbforge/curatex/internal/service"
)

const curationColumns = `id, tenant_id, title, content, normalized_content, content_hash,
	duplication_status, similarity_score, duplicate_of_id, embedding,
	status, submitted_by, submitted_at, reviewed_by, reviewed_at, status_changed_at,
	expires_at, published_id, suggested_namespaces, tags, review_note`

type CurationRepository struct {
	db dbtx
}

func NewCurationRepository(pool *pgxpool.Pool) *CurationRepository {
	return &CurationRepository{db: pool}
}

func NewCurationRepositoryWithTx(tx pgx.Tx) *CurationRepository {
	return &CurationRepository{db: tx}
}

func (r *CurationRepository) Create(ctx context.Context, item *domain.CurationItem) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO curation_items (`+curationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		item.ID, item.TenantID, item.Title, item.Content, item.NormalizedContent, item.ContentHash,
		item.DuplicationStatus, item.SimilarityScore, nullableString(item.DuplicateOfID), embeddingOrNil(item.Embedding),
		item.Status, item.SubmittedBy, item.SubmittedAt, nullableString(item.ReviewedBy), item.ReviewedAt, item.StatusChangedAt,
		item.ExpiresAt, nullableString(item.PublishedID), item.SuggestedNamespaces, item.Tags, item.ReviewNote,
	)
	if isUniqueViolation(err) {
		return domain.ErrItemAlreadyExists
	}
	return err
}

func (r *CurationRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.CurationItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+curationColumns+` FROM curation_items WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	item, err := scanCurationItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// FindActiveByHash looks up a pending or approved queue item with the given
// content hash. Used by the tier-1 duplicate gate.
func (r *CurationRepository) FindActiveByHash(ctx context.Context, tenantID, hash string) (*domain.CurationItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+curationColumns+` FROM curation_items
		 WHERE tenant_id = $1 AND content_hash = $2 AND status IN ('pending', 'approved')
		 LIMIT 1`,
		tenantID, hash,
	)
	item, err := scanCurationItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// UpdateContent rewrites the editable fields of a pending item. The caller is
// responsible for recomputing hash and normalized content when content changed.
func (r *CurationRepository) UpdateContent(ctx context.Context, item *domain.CurationItem) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE curation_items
		 SET title = $1, content = $2, normalized_content = $3, content_hash = $4,
		     duplication_status = $5, similarity_score = $6, duplicate_of_id = $7, embedding = $8,
		     suggested_namespaces = $9, tags = $10, review_note = $11
		 WHERE tenant_id = $12 AND id = $13 AND status = 'pending'`,
		item.Title, item.Content, item.NormalizedContent, item.ContentHash,
		item.DuplicationStatus, item.SimilarityScore, nullableString(item.DuplicateOfID), embeddingOrNil(item.Embedding),
		item.SuggestedNamespaces, item.Tags, item.ReviewNote,
		item.TenantID, item.ID,
	)
	if isUniqueViolation(err) {
		return domain.ErrItemAlreadyExists
	}
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotPending
	}
	return nil
}

// UpdateClassification persists the semantic scan outcome, including the
// computed embedding so it is never recomputed for the same content.
func (r *CurationRepository) UpdateClassification(ctx context.Context, tenantID, id string, status domain.DuplicationStatus, score float64, duplicateOfID string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE curation_items
		 SET duplication_status = $1, similarity_score = $2, duplicate_of_id = $3, embedding = $4
		 WHERE tenant_id = $5 AND id = $6`,
		status, score, nullableString(duplicateOfID), embeddingOrNil(embedding), tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// MarkApproved moves a pending item to approved and records the published
// document. The status guard in the WHERE clause keeps the transition monotonic.
func (r *CurationRepository) MarkApproved(ctx context.Context, tenantID, id, reviewedBy, publishedID string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE curation_items
		 SET status = 'approved', reviewed_by = $1, reviewed_at = $2, status_changed_at = $2, published_id = $3
		 WHERE tenant_id = $4 AND id = $5 AND status = 'pending'`,
		reviewedBy, at, publishedID, tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotPending
	}
	return nil
}

// MarkRejected moves a pending item to rejected and stamps the retention deadline.
func (r *CurationRepository) MarkRejected(ctx context.Context, tenantID, id, reviewedBy, note string, at, expiresAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE curation_items
		 SET status = 'rejected', reviewed_by = $1, reviewed_at = $2, status_changed_at = $2,
		     expires_at = $3, review_note = CASE WHEN $4 = '' THEN review_note ELSE $4 END
		 WHERE tenant_id = $5 AND id = $6 AND status = 'pending'`,
		reviewedBy, at, expiresAt, note, tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotPending
	}
	return nil
}

// SetPublished records the published document on an approved item that missed
// its inline publish step. Used by the promotion worker.
func (r *CurationRepository) SetPublished(ctx context.Context, tenantID, id, publishedID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE curation_items SET published_id = $1
		 WHERE tenant_id = $2 AND id = $3 AND status = 'approved' AND published_id IS NULL`,
		publishedID, tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// UpdateContentForAbsorption replaces content, normalized cache and hash after
// partial absorption extracted the novel lines of a near-duplicate.
func (r *CurationRepository) UpdateContentForAbsorption(ctx context.Context, tenantID, id, content, normalized, hash string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE curation_items
		 SET content = $1, normalized_content = $2, content_hash = $3, embedding = NULL
		 WHERE tenant_id = $4 AND id = $5`,
		content, normalized, hash, tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *CurationRepository) ListPending(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*service.CurationPageResult, error) {
	return r.listByStatus(ctx, tenantID, []string{"pending"}, time.Time{}, cursor, limit)
}

// ListHistory returns approved/rejected items whose status change falls within
// the five-year retention window.
func (r *CurationRepository) ListHistory(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*service.CurationPageResult, error) {
	cutoff := time.Now().UTC().Add(-domain.HistoryRetention)
	return r.listByStatus(ctx, tenantID, []string{"approved", "rejected"}, cutoff, cursor, limit)
}

func (r *CurationRepository) listByStatus(ctx context.Context, tenantID string, statuses []string, cutoff time.Time, cursor *pagination.Cursor, limit int) (*service.CurationPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + curationColumns + ` FROM curation_items
		 WHERE tenant_id = $1 AND status = ANY($2) AND status_changed_at > $3`
	args := []any{tenantID, statuses, cutoff}

	if cursor != nil {
		query += ` AND (status_changed_at, id) < ($4, $5)
		 ORDER BY status_changed_at DESC, id DESC LIMIT $6`
		args = append(args, cursor.Timestamp, cursor.LastID, limit+1)
	} else {
		query += ` ORDER BY status_changed_at DESC, id DESC LIMIT $4`
		args = append(args, limit+1)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanCurationRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore {
		nextCursor = pagination.CreateNextCursor(items, limit,
			func(i *domain.CurationItem) string { return i.ID },
			func(i *domain.CurationItem) time.Time { return i.StatusChangedAt })
	}

	return &service.CurationPageResult{
		Items:   items,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}

// ListUnclassified returns pending items the semantic scanner has not touched yet.
func (r *CurationRepository) ListUnclassified(ctx context.Context, limit int) ([]*domain.CurationItem, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+curationColumns+` FROM curation_items
		 WHERE status = 'pending' AND duplication_status = 'unset'
		 ORDER BY submitted_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCurationRows(rows)
}

// ListEmbeddedPending returns pending items (other than the one being scanned)
// that already carry a cached embedding, bounded for cost control.
func (r *CurationRepository) ListEmbeddedPending(ctx context.Context, tenantID, excludeID string, limit int) ([]*service.EmbeddingCandidate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, embedding FROM curation_items
		 WHERE tenant_id = $1 AND id <> $2 AND status = 'pending' AND embedding IS NOT NULL
		 ORDER BY submitted_at DESC LIMIT $3`,
		tenantID, excludeID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEmbeddingCandidates(rows, service.CandidateSourceQueue)
}

// ListApprovedUnpublished returns approved items whose inline publish never
// completed, oldest first. Used by the promotion safety net.
func (r *CurationRepository) ListApprovedUnpublished(ctx context.Context, limit int) ([]*domain.CurationItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+curationColumns+` FROM curation_items
		 WHERE status = 'approved' AND published_id IS NULL
		 ORDER BY status_changed_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCurationRows(rows)
}

// DeleteExpiredRejected purges rejected items past their retention deadline.
func (r *CurationRepository) DeleteExpiredRejected(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM curation_items WHERE status = 'rejected' AND expires_at IS NOT NULL AND expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// DeleteHistoryOlderThan purges terminal items past the five-year horizon.
// Pending items are never touched.
func (r *CurationRepository) DeleteHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM curation_items
		 WHERE status IN ('approved', 'rejected') AND status_changed_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanCurationItem(row pgx.Row) (*domain.CurationItem, error) {
	var item domain.CurationItem
	var duplicateOfID, reviewedBy, publishedID *string
	var embedding *pgvector.Vector
	err := row.Scan(
		&item.ID, &item.TenantID, &item.Title, &item.Content, &item.NormalizedContent, &item.ContentHash,
		&item.DuplicationStatus, &item.SimilarityScore, &duplicateOfID, &embedding,
		&item.Status, &item.SubmittedBy, &item.SubmittedAt, &reviewedBy, &item.ReviewedAt, &item.StatusChangedAt,
		&item.ExpiresAt, &publishedID, &item.SuggestedNamespaces, &item.Tags, &item.ReviewNote,
	)
	if err != nil {
		return nil, err
	}
	item.DuplicateOfID = derefString(duplicateOfID)
	item.ReviewedBy = derefString(reviewedBy)
	item.PublishedID = derefString(publishedID)
	if embedding != nil {
		item.Embedding = embedding.Slice()
	}
	return &item, nil
}

func scanCurationRows(rows pgx.Rows) ([]*domain.CurationItem, error) {
	var results []*domain.CurationItem
	for rows.Next() {
		item, err := scanCurationItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func scanEmbeddingCandidates(rows pgx.Rows, source service.CandidateSource) ([]*service.EmbeddingCandidate, error) {
	var results []*service.EmbeddingCandidate
	for rows.Next() {
		var c service.EmbeddingCandidate
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.Title, &vec); err != nil {
			return nil, err
		}
		c.Embedding = vec.Slice()
		c.Source = source
		results = append(results, &c)
	}
	return results, rows.Err()
}

func embeddingOrNil(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	vec := pgvector.NewVector(embedding)
	return &vec
}
