package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/service"
)

const documentColumns = `id, tenant_id, namespace_id, title, content, content_hash,
	status, provenance, absorbed_from_id, embedding, created_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// Create inserts a document. The partial unique index on
// (tenant_id, content_hash) over indexed documents is the last line of
// defense against concurrent promotion; a violation surfaces as
// domain.ErrDocumentAlreadyExists.
func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.TenantID, d.NamespaceID, d.Title, d.Content, d.ContentHash,
		d.Status, d.Provenance, nullableString(d.AbsorbedFromID), embeddingOrNil(d.Embedding), d.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDocumentAlreadyExists
	}
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// FindByHash looks up an indexed document with the given content hash.
// Used by the tier-1 duplicate gate and the approval re-verification step.
func (r *DocumentRepository) FindByHash(ctx context.Context, tenantID, hash string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE tenant_id = $1 AND content_hash = $2 AND status = 'indexed'
		 LIMIT 1`,
		tenantID, hash,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListEmbedded returns indexed documents carrying an embedding, bounded for
// the scanner's comparison set.
func (r *DocumentRepository) ListEmbedded(ctx context.Context, tenantID string, limit int) ([]*service.EmbeddingCandidate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, embedding FROM documents
		 WHERE tenant_id = $1 AND status = 'indexed' AND embedding IS NOT NULL
		 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEmbeddingCandidates(rows, service.CandidateSourceDocument)
}

// UpdateEmbedding stores the document-level embedding after publication.
func (r *DocumentRepository) UpdateEmbedding(ctx context.Context, tenantID, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET embedding = $1 WHERE tenant_id = $2 AND id = $3`,
		embeddingOrNil(embedding), tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var absorbedFromID *string
	var embedding *pgvector.Vector
	err := row.Scan(
		&d.ID, &d.TenantID, &d.NamespaceID, &d.Title, &d.Content, &d.ContentHash,
		&d.Status, &d.Provenance, &absorbedFromID, &embedding, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.AbsorbedFromID = derefString(absorbedFromID)
	if embedding != nil {
		d.Embedding = embedding.Slice()
	}
	return &d, nil
}
