package match

import (
	"slices"
	"strings"

	"github.com/agext/levenshtein"
)

var levParams = levenshtein.NewParams()

// Similarity returns a token-set similarity score in [0, 1] between two
// already-normalized strings. Tokens are deduplicated and sorted before
// comparison so word order and repetition do not depress the score, and the
// shared-token core is compared against each side separately; the best of
// the three pairings wins. This mirrors the behavior of trigram/token-set
// matching used for cross-dataset entity linking, but runs in-process so
// matching stays deterministic and auditable.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ta := tokenSet(a)
	tb := tokenSet(b)

	var shared, onlyA, onlyB []string
	for _, t := range ta {
		if slices.Contains(tb, t) {
			shared = append(shared, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tb {
		if !slices.Contains(ta, t) {
			onlyB = append(onlyB, t)
		}
	}

	core := strings.Join(shared, " ")
	full1 := joinNonEmpty(core, strings.Join(onlyA, " "))
	full2 := joinNonEmpty(core, strings.Join(onlyB, " "))

	best := levenshtein.Similarity(full1, full2, levParams)
	if core != "" {
		if s := levenshtein.Similarity(core, full1, levParams); s > best {
			best = s
		}
		if s := levenshtein.Similarity(core, full2, levParams); s > best {
			best = s
		}
	}
	return best
}

// BestAgainst returns the highest similarity between candidate and any of
// the given variants.
func BestAgainst(candidate string, variants []string) float64 {
	var best float64
	for _, v := range variants {
		if s := Similarity(candidate, v); s > best {
			best = s
		}
	}
	return best
}

func tokenSet(s string) []string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return slices.Compact(tokens)
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
