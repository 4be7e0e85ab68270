package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchIndexRepository maintains the lexical retrieval index for published
// documents. Indexing happens exactly once per successful approval/promotion;
// re-indexing the same document id is an upsert so retries stay idempotent.
type SearchIndexRepository struct {
	db dbtx
}

func NewSearchIndexRepository(pool *pgxpool.Pool) *SearchIndexRepository {
	return &SearchIndexRepository{db: pool}
}

func NewSearchIndexRepositoryWithTx(tx pgx.Tx) *SearchIndexRepository {
	return &SearchIndexRepository{db: tx}
}

func (r *SearchIndexRepository) IndexDocument(ctx context.Context, documentID, content string, meta map[string]string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO document_search (document_id, namespace_id, title, body, search_vector, indexed_at)
		 VALUES ($1, $2, $3, $4, to_tsvector('simple', $3 || ' ' || $4), $5)
		 ON CONFLICT (document_id) DO UPDATE
		 SET namespace_id = EXCLUDED.namespace_id, title = EXCLUDED.title, body = EXCLUDED.body,
		     search_vector = EXCLUDED.search_vector, indexed_at = EXCLUDED.indexed_at`,
		documentID, meta["namespace"], meta["title"], content, time.Now().UTC(),
	)
	return err
}
