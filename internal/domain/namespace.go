package domain

import (
	"fmt"
	"time"
)

// DefaultNamespace is the fallback namespace guaranteed to every tenant when
// none of a submission's suggested namespaces resolve.
const DefaultNamespace = "general"

// Namespace represents a knowledge namespace scoped to a tenant
type Namespace struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// NewNamespace creates a new Namespace instance
func NewNamespace(id, tenantID, name string, createdAt time.Time) *Namespace {
	return &Namespace{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateNamespace validates a Namespace instance
func ValidateNamespace(n *Namespace) error {
	if n == nil {
		return fmt.Errorf("namespace cannot be nil")
	}

	if n.ID == "" {
		return fmt.Errorf("namespace ID is required")
	}

	if n.TenantID == "" {
		return fmt.Errorf("namespace TenantID is required")
	}

	if n.Name == "" {
		return fmt.Errorf("namespace Name is required")
	}

	return nil
}
