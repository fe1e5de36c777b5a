package mask

import (
	gojson "github.com/goccy/go-json"

	"dario.cat/mergo"
)

// deepMerge combines left and right per spec.md §4.6 step 8: object keys
// combined, arrays concatenated and deduplicated, scalars from the right
// win, "required" arrays unioned, "$$links" entries unioned (both sides
// compose recursively). The generic object/array-concat case is delegated
// to dario.cat/mergo, which does not know about JSON-Schema's two special
// keys — required's union (not blind concat, which would duplicate shared
// names) and $$links's recursive two-sided compose are applied by hand
// afterward.
func deepMerge(left, right map[string]any) (map[string]any, error) {
	dst := cloneMap(left)

	if err := mergo.Merge(&dst, cloneMap(right), mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, err
	}
	dedupeArrays(dst)

	if merged := unionRequired(left["required"], right["required"]); merged != nil {
		dst["required"] = merged
	}

	if merged, err := mergeLinkEntries(left["$$links"], right["$$links"]); err != nil {
		return nil, err
	} else if merged != nil {
		dst["$$links"] = merged
	}

	return dst, nil
}

// cloneMap deep-copies v through a JSON round trip — masks and caller
// schemas are small, and this guarantees mergo never mutates either input.
func cloneMap(v map[string]any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	raw, err := gojson.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := gojson.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// dedupeArrays walks every []any leaf in v and removes duplicate elements
// (compared by JSON encoding, since elements may themselves be maps),
// preserving first-seen order — mergo's WithAppendSlice concatenates but
// never deduplicates.
func dedupeArrays(v map[string]any) {
	for k, val := range v {
		v[k] = dedupeValue(val)
	}
}

func dedupeValue(v any) any {
	switch t := v.(type) {
	case []any:
		seen := map[string]bool{}
		out := make([]any, 0, len(t))
		for _, e := range t {
			e = dedupeValue(e)
			key, err := gojson.Marshal(e)
			if err == nil && seen[string(key)] {
				continue
			}
			if err == nil {
				seen[string(key)] = true
			}
			out = append(out, e)
		}
		return out
	case map[string]any:
		for k, sub := range t {
			t[k] = dedupeValue(sub)
		}
		return t
	default:
		return v
	}
}

// unionRequired merges two "required" values (each expected to be a
// []any of strings, but tolerated as absent) into a deduplicated union,
// preserving left's order then right's new entries.
func unionRequired(left, right any) []any {
	la, _ := left.([]any)
	ra, _ := right.([]any)
	if len(la) == 0 && len(ra) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]any, 0, len(la)+len(ra))
	for _, v := range append(append([]any{}, la...), ra...) {
		s, ok := v.(string)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, v)
	}
	return out
}

// mergeLinkEntries unions two "$$links" objects, recursively deepMerge-ing
// any link name present on both sides so a mask's own $$links constraints
// compose with a caller's link sub-schema instead of one replacing the
// other.
func mergeLinkEntries(left, right any) (map[string]any, error) {
	lm, lok := left.(map[string]any)
	rm, rok := right.(map[string]any)
	if !lok && !rok {
		return nil, nil
	}
	out := make(map[string]any, len(lm)+len(rm))
	for name, sub := range lm {
		out[name] = sub
	}
	for name, rsub := range rm {
		rSchema, _ := rsub.(map[string]any)
		lsub, exists := out[name]
		if !exists {
			out[name] = rsub
			continue
		}
		lSchema, ok := lsub.(map[string]any)
		if !ok {
			out[name] = rsub
			continue
		}
		merged, err := deepMerge(lSchema, rSchema)
		if err != nil {
			return nil, err
		}
		out[name] = merged
	}
	return out, nil
}
