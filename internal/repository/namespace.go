package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbforge/curatex/internal/domain"
)

type NamespaceRepository struct {
	db dbtx
}

func NewNamespaceRepository(pool *pgxpool.Pool) *NamespaceRepository {
	return &NamespaceRepository{db: pool}
}

func NewNamespaceRepositoryWithTx(tx pgx.Tx) *NamespaceRepository {
	return &NamespaceRepository{db: tx}
}

func (r *NamespaceRepository) Create(ctx context.Context, n *domain.Namespace) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO namespaces (id, tenant_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		n.ID, n.TenantID, n.Name, n.CreatedAt,
	)
	return err
}

func (r *NamespaceRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Namespace, error) {
	var n domain.Namespace
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, name, created_at FROM namespaces WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&n.ID, &n.TenantID, &n.Name, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNamespaceNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NamespaceRepository) GetByName(ctx context.Context, tenantID, name string) (*domain.Namespace, error) {
	var n domain.Namespace
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, name, created_at FROM namespaces WHERE tenant_id = $1 AND name = $2`,
		tenantID, name,
	).Scan(&n.ID, &n.TenantID, &n.Name, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNamespaceNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NamespaceRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Namespace, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, name, created_at FROM namespaces WHERE tenant_id = $1 ORDER BY name ASC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var namespaces []*domain.Namespace
	for rows.Next() {
		var n domain.Namespace
		if err := rows.Scan(&n.ID, &n.TenantID, &n.Name, &n.CreatedAt); err != nil {
			return nil, err
		}
		namespaces = append(namespaces, &n)
	}
	return namespaces, rows.Err()
}
