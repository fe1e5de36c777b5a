package mask

import (
	"fmt"
	"regexp"
	"strings"
)

// compoundMarkerConstraint builds the "markers" property sub-schema spec.md
// §4.6 step 5 describes: the markers array must be empty, or every element
// must either equal one of markerSet's members or match the compound-marker
// regex (^|\+)(m1|m2|...)($|\+) that also matches "+"-joined combinations
// of them. An empty markerSet collapses to "only an empty markers array is
// valid".
func compoundMarkerConstraint(markerSet []string) map[string]any {
	if len(markerSet) == 0 {
		return map[string]any{
			"type":     "array",
			"maxItems": 0,
		}
	}

	pattern := compoundMarkerRegex(markerSet)
	return map[string]any{
		"type": "array",
		"anyOf": []any{
			map[string]any{"maxItems": 0},
			map[string]any{
				"items": map[string]any{
					"type":    "string",
					"pattern": pattern,
				},
			},
		},
	}
}

// compoundMarkerRegex renders (^|\+)(m1|m2|...)($|\+) with every marker
// regexp-escaped, so a marker slug containing a regex metacharacter can
// never widen the match.
func compoundMarkerRegex(markerSet []string) string {
	escaped := make([]string, len(markerSet))
	for i, m := range markerSet {
		escaped[i] = regexp.QuoteMeta(m)
	}
	return fmt.Sprintf(`(^|\+)(%s)($|\+)`, strings.Join(escaped, "|"))
}

// buildMarkerSet is {actor.slug} ∪ {org.slug for each org}, deduplicated.
func buildMarkerSet(actorSlug string, orgSlugs []string) []string {
	seen := map[string]bool{actorSlug: true}
	set := []string{actorSlug}
	for _, s := range orgSlugs {
		if seen[s] {
			continue
		}
		seen[s] = true
		set = append(set, s)
	}
	return set
}
