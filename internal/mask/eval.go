package mask

import "strings"

// evalTemplate walks node and replaces every sub-object of the exact shape
// {"$eval": "<dotted.path>"} with the value that path resolves to inside
// ctx (spec.md §4.6 step 4: "any sub-object containing $eval is
// substituted"; the only binding a role's read schema currently needs is
// user → actor). Unmatched paths resolve to nil rather than erroring — a
// role schema that evaluates to nil is later stripped by deepMerge the same
// way an absent field would be.
func evalTemplate(node any, ctx map[string]any) any {
	switch v := node.(type) {
	case map[string]any:
		if expr, ok := v["$eval"]; ok && len(v) == 1 {
			if dotted, ok := expr.(string); ok {
				return resolveDottedPath(ctx, dotted)
			}
		}
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = evalTemplate(val, ctx)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = evalTemplate(val, ctx)
		}
		return out
	default:
		return v
	}
}

// resolveDottedPath walks ctx through each "."-separated segment of dotted,
// returning nil the moment a segment is missing or the current value is not
// itself a map.
func resolveDottedPath(ctx map[string]any, dotted string) any {
	var cur any = ctx
	for _, part := range strings.Split(dotted, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}
