package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/curatex/internal/domain"
)

func TestExtractAbsorption(t *testing.T) {
	sharedLines := []string{
		"Stop the rollout immediately.",
		"Page the on-call engineer.",
		"Check the error budget dashboard.",
		"Freeze further deploys.",
		"Locate the last good release.",
		"Verify database migrations are reversible.",
		"Drain traffic from the bad pods.",
		"Confirm the health checks pass.",
	}
	existing := strings.Join(sharedLines, "\n")

	t.Run("extracts only the novel lines, preserving original text", func(t *testing.T) {
		newLines := []string{
			"This Brand New Section explains the rollback approval chain.",
			"Another new section covers the post-incident review template.",
		}
		candidate := existing + "\n" + strings.Join(newLines, "\n")

		result, err := ExtractAbsorption(domain.DuplicationStatusNear, candidate, existing)

		require.NoError(t, err)
		assert.Equal(t, strings.Join(newLines, "\n"), result.Content)
		assert.Equal(t, 2, result.UniqueLines)
		assert.Equal(t, 10, result.TotalLines)
		assert.InDelta(t, 0.2, result.Ratio, 1e-9)
	})

	t.Run("line matching ignores case and whitespace", func(t *testing.T) {
		candidate := "  STOP THE ROLLOUT   IMMEDIATELY.  \n" +
			"A genuinely new line that is long enough to clear the minimum length floor."

		result, err := ExtractAbsorption(domain.DuplicationStatusNear, candidate, existing)

		require.NoError(t, err)
		assert.Equal(t, 1, result.UniqueLines)
		assert.Equal(t, 2, result.TotalLines)
		assert.NotContains(t, result.Content, "STOP")
	})

	t.Run("full duplicate in disguise is non-absorbable", func(t *testing.T) {
		candidate := strings.ToUpper(existing)

		_, err := ExtractAbsorption(domain.DuplicationStatusNear, candidate, existing)

		var rejected *domain.AbsorptionRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Contains(t, rejected.Reason, "no novel content")
	})

	t.Run("remainder below fifty characters declines with length reason", func(t *testing.T) {
		candidate := existing + "\nnine ch." // ratio 1/9 ≥ 0.10 but far too short

		_, err := ExtractAbsorption(domain.DuplicationStatusNear, candidate, existing)

		var rejected *domain.AbsorptionRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Contains(t, rejected.Reason, "minimum")
		assert.Equal(t, 1, rejected.UniqueLines)
		assert.Equal(t, 9, rejected.TotalLines)
	})

	t.Run("ratio below ten percent declines with the ratio in the reason", func(t *testing.T) {
		var many []string
		for i := 0; i < 20; i++ {
			many = append(many, sharedLines...)
		}
		// 160 shared lines plus 2 new ones: ratio 2/162 < 0.10.
		bigExisting := strings.Join(many, "\n")
		candidate := bigExisting + "\n" +
			"A genuinely new line that is long enough to clear the minimum length floor.\n" +
			"And a second genuinely new line to push the joined text well past fifty."

		_, err := ExtractAbsorption(domain.DuplicationStatusNear, candidate, bigExisting)

		var rejected *domain.AbsorptionRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Contains(t, rejected.Reason, "ratio")
		assert.Contains(t, rejected.Reason, "0.0")
	})

	t.Run("oversized content routes to manual review", func(t *testing.T) {
		huge := strings.Repeat("x", AbsorptionSizeCap+1)

		_, err := ExtractAbsorption(domain.DuplicationStatusNear, huge, existing)

		var rejected *domain.AbsorptionRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Contains(t, rejected.Reason, "manual review")
	})

	t.Run("only near classifications are absorbable", func(t *testing.T) {
		for _, status := range []domain.DuplicationStatus{
			domain.DuplicationStatusExact,
			domain.DuplicationStatusUnique,
			domain.DuplicationStatusUnset,
		} {
			_, err := ExtractAbsorption(status, "candidate", existing)

			var rejected *domain.AbsorptionRejectedError
			require.ErrorAs(t, err, &rejected, "status %s", status)
		}
	})

	t.Run("empty lines never count toward the ratio", func(t *testing.T) {
		candidate := "\n\n" + sharedLines[0] + "\n\n" +
			"A genuinely new line that is long enough to clear the minimum length floor.\n\n"

		result, err := ExtractAbsorption(domain.DuplicationStatusNear, candidate, existing)

		require.NoError(t, err)
		assert.Equal(t, 2, result.TotalLines)
		assert.Equal(t, 1, result.UniqueLines)
	})
}
