package similarity

import "github.com/kbforge/curatex/internal/domain"

// Classification thresholds. The boundary at ExactThreshold is asymmetric on
// purpose: a score exactly equal to 0.98 classifies as near, not exact.
const (
	ExactThreshold = 0.98
	NearThreshold  = 0.85
)

// Classify maps a cosine score to a duplication status using the fixed
// thresholds: > 0.98 exact, [0.85, 0.98] near, < 0.85 unique.
func Classify(score float64) domain.DuplicationStatus {
	switch {
	case score > ExactThreshold:
		return domain.DuplicationStatusExact
	case score >= NearThreshold:
		return domain.DuplicationStatusNear
	default:
		return domain.DuplicationStatusUnique
	}
}
