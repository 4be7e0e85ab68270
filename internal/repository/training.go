package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbforge/curatex/internal/domain"
)

// TrainingExampleRepository records approved content into the training-data
// collection. Approval treats this write as fail-closed: if the record cannot
// be created the whole approval aborts.
type TrainingExampleRepository struct {
	db dbtx
}

func NewTrainingExampleRepository(pool *pgxpool.Pool) *TrainingExampleRepository {
	return &TrainingExampleRepository{db: pool}
}

func NewTrainingExampleRepositoryWithTx(tx pgx.Tx) *TrainingExampleRepository {
	return &TrainingExampleRepository{db: tx}
}

func (r *TrainingExampleRepository) Create(ctx context.Context, id, tenantID, documentID, itemID, content string, provenance domain.Provenance) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO training_examples (id, tenant_id, document_id, item_id, content, provenance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, tenantID, documentID, itemID, content, provenance, time.Now().UTC(),
	)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to record training example", err)
	}
	return nil
}
