package content

import (
	"math/rand"

	"github.com/HelyeFab/moshimoshi-sub004/internal/validator"
)

// minDistractorDistance is the minimum edit distance a distractor must keep
// from the correct answer so the choice is not degenerate. Short answers
// like kana romaji only need to be distinct; any stricter bound would
// empty their pools.
func minDistractorDistance(correct string) int {
	if len([]rune(correct)) < 4 {
		return 1
	}
	return 2
}

// pickDistractors selects up to count candidates that are distinct from each
// other and not trivially close to the correct answer. The pool is sampled
// in shuffled order; when it cannot supply enough valid options the shorter
// list is returned rather than an error.
func pickDistractors(correct string, pool []string, count int, rng *rand.Rand) []string {
	candidates := make([]string, len(pool))
	copy(candidates, pool)
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	normCorrect := validator.Normalize(correct)
	minDistance := minDistractorDistance(normCorrect)
	seen := map[string]bool{normCorrect: true}

	out := make([]string, 0, count)
	for _, c := range candidates {
		if len(out) >= count {
			break
		}
		norm := validator.Normalize(c)
		if norm == "" || seen[norm] {
			continue
		}
		if validator.EditDistance(norm, normCorrect) < minDistance {
			continue
		}
		seen[norm] = true
		out = append(out, c)
	}
	return out
}
