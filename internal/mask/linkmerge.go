package mask

// mergeMaskInLinks walks caller and, at every "$$links.<name>", replaces the
// link sub-schema with deepMerge(mask, linkSubSchema) — recursing through
// properties, allOf, anyOf, contains, items and not, exactly the set
// spec.md §4.6 step 7 names. Unlike the source this implementation is a
// pure rewrite: it returns a new schema rather than mutating caller in
// place (REDESIGN FLAGS: in-place rewrite of a shared schema value is a
// needless global-mutability hazard when the schemas involved are small).
func mergeMaskInLinks(caller map[string]any, mask map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(caller))
	for k, v := range caller {
		switch k {
		case "$$links":
			links, ok := v.(map[string]any)
			if !ok {
				out[k] = v
				continue
			}
			merged := make(map[string]any, len(links))
			for name, sub := range links {
				subSchema, ok := sub.(map[string]any)
				if !ok {
					merged[name] = sub
					continue
				}
				rewritten, err := mergeMaskInLinks(subSchema, mask)
				if err != nil {
					return nil, err
				}
				withMask, err := deepMerge(mask, rewritten)
				if err != nil {
					return nil, err
				}
				merged[name] = withMask
			}
			out[k] = merged

		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				out[k] = v
				continue
			}
			merged := make(map[string]any, len(props))
			for name, sub := range props {
				rewritten, err := rewriteSchemaValue(sub, mask)
				if err != nil {
					return nil, err
				}
				merged[name] = rewritten
			}
			out[k] = merged

		case "allOf", "anyOf":
			arr, ok := v.([]any)
			if !ok {
				out[k] = v
				continue
			}
			merged := make([]any, len(arr))
			for i, e := range arr {
				rewritten, err := rewriteSchemaValue(e, mask)
				if err != nil {
					return nil, err
				}
				merged[i] = rewritten
			}
			out[k] = merged

		case "contains", "items", "not":
			rewritten, err := rewriteSchemaValue(v, mask)
			if err != nil {
				return nil, err
			}
			out[k] = rewritten

		default:
			out[k] = v
		}
	}
	return out, nil
}

// rewriteSchemaValue recurses mergeMaskInLinks into v when it is itself a
// schema object, and leaves any other shape (a boolean schema, a tuple
// "items" array) untouched.
func rewriteSchemaValue(v any, mask map[string]any) (any, error) {
	sub, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	return mergeMaskInLinks(sub, mask)
}
