package compiler

import (
	gojson "github.com/goccy/go-json"

	"github.com/product-os/autumndb-sub002/internal/selectmap"
)

// selectmapDiscard returns a throwaway selectmap.Map for sub-compiles whose
// projection is never surfaced to the caller — a "not" child, a contains/
// items array element, the synthetic tuple-items schemas. Only the filter
// these sub-compiles produce is ever consulted.
func selectmapDiscard() *selectmap.Map {
	return selectmap.New()
}

// marshalJSONArray wraps v as the sole element of a one-item JSON array,
// the shape the jsonb "@>" containment optimization needs on its right-hand
// side (spec.md §4.4: "contains": {"const": X} → "path @> '[X]'").
func marshalJSONArray(v any) ([]byte, error) {
	return gojson.Marshal([]any{v})
}
