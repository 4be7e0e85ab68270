package service

import (
	"fmt"
	"strings"

	"github.com/kbforge/curatex/internal/content"
	"github.com/kbforge/curatex/internal/domain"
)

const (
	// AbsorptionSizeCap is the largest text absorption will attempt; bigger
	// documents route to manual review.
	AbsorptionSizeCap = 50000

	// AbsorptionMinLength is the shortest extracted remainder worth publishing.
	AbsorptionMinLength = 50

	// AbsorptionMinRatio is the smallest share of novel lines worth publishing.
	AbsorptionMinRatio = 0.10
)

// AbsorptionResult is the extracted novel remainder of a near-duplicate.
type AbsorptionResult struct {
	Content     string
	UniqueLines int
	TotalLines  int
	Ratio       float64
}

// ExtractAbsorption runs a line-oriented diff of a near-duplicate candidate
// against the existing document it matched, keeping only lines whose
// normalized form is absent from the existing text. Original line text is
// preserved so formatting survives extraction. It returns an
// AbsorptionRejectedError when the remainder is not worth publishing.
//
// Line-level diffing is intentionally simple and auditable: it will not catch
// duplication rephrased as one long unsplit paragraph, but it can never
// corrupt submitted text.
func ExtractAbsorption(status domain.DuplicationStatus, candidate, existing string) (*AbsorptionResult, error) {
	if status != domain.DuplicationStatusNear {
		return nil, &domain.AbsorptionRejectedError{
			Reason: fmt.Sprintf("absorption applies only to near-duplicate content, not %s", status),
		}
	}

	if len(candidate) > AbsorptionSizeCap || len(existing) > AbsorptionSizeCap {
		return nil, &domain.AbsorptionRejectedError{
			Reason: fmt.Sprintf("content exceeds the %d character absorption cap; route to manual review", AbsorptionSizeCap),
		}
	}

	existingSet := make(map[string]struct{})
	for _, line := range strings.Split(existing, "\n") {
		normalized := content.Normalize(line)
		if normalized != "" {
			existingSet[normalized] = struct{}{}
		}
	}

	var uniqueLines []string
	total := 0
	for _, line := range strings.Split(candidate, "\n") {
		normalized := content.Normalize(line)
		if normalized == "" {
			continue
		}
		total++
		if _, dup := existingSet[normalized]; !dup {
			uniqueLines = append(uniqueLines, line)
		}
	}

	if total == 0 || len(uniqueLines) == 0 {
		return nil, &domain.AbsorptionRejectedError{
			Reason:     "no novel content; candidate is a full duplicate",
			TotalLines: total,
		}
	}

	extracted := strings.TrimSpace(strings.Join(uniqueLines, "\n"))
	ratio := float64(len(uniqueLines)) / float64(total)

	if len(extracted) < AbsorptionMinLength {
		return nil, &domain.AbsorptionRejectedError{
			Reason:      fmt.Sprintf("extracted content is below the %d character minimum", AbsorptionMinLength),
			UniqueLines: len(uniqueLines),
			TotalLines:  total,
			Ratio:       ratio,
		}
	}

	if ratio < AbsorptionMinRatio {
		return nil, &domain.AbsorptionRejectedError{
			Reason:      fmt.Sprintf("too small to justify absorption (ratio %.2f)", ratio),
			UniqueLines: len(uniqueLines),
			TotalLines:  total,
			Ratio:       ratio,
		}
	}

	return &AbsorptionResult{
		Content:     extracted,
		UniqueLines: len(uniqueLines),
		TotalLines:  total,
		Ratio:       ratio,
	}, nil
}
