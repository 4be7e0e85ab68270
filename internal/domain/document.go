package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the lifecycle state of a published document
type DocumentStatus string

const (
	DocumentStatusIndexed DocumentStatus = "indexed"
)

// Provenance records how a document entered the knowledge base
type Provenance string

const (
	ProvenanceCurationApproved   Provenance = "curation_approved"
	ProvenanceCurationAbsorption Provenance = "curation_absorption"
	ProvenanceIngestion          Provenance = "ingestion"
)

// Document is the published, indexed unit of knowledge. It is created exactly
// once, at approval/promotion time, and never duplicated for the same content
// hash while it remains indexed.
type Document struct {
	ID             string
	TenantID       string
	NamespaceID    string
	Title          string
	Content        string
	ContentHash    string
	Status         DocumentStatus
	Provenance     Provenance
	AbsorbedFromID string // back-reference to the queue item it absorbed from
	Embedding      []float32
	CreatedAt      time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.TenantID == "" {
		return fmt.Errorf("document TenantID is required")
	}

	if d.NamespaceID == "" {
		return fmt.Errorf("document NamespaceID is required")
	}

	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}

	if d.Content == "" {
		return fmt.Errorf("document Content is required")
	}

	if !contentHashPattern.MatchString(d.ContentHash) {
		return fmt.Errorf("document ContentHash must be 64 lowercase hex characters")
	}

	if !isValidProvenance(d.Provenance) {
		return fmt.Errorf("document Provenance is invalid: %s", d.Provenance)
	}

	return nil
}

func isValidProvenance(p Provenance) bool {
	switch p {
	case ProvenanceCurationApproved, ProvenanceCurationAbsorption, ProvenanceIngestion:
		return true
	}
	return false
}
