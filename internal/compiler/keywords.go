package compiler

import (
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/filter"
	"github.com/product-os/autumndb-sub002/internal/fts"
	"github.com/product-os/autumndb-sub002/internal/path"
)

// formatRegexes maps a "format" value to the POSIX regex MatchesRegex
// compiles it to (spec.md §4.4's supported-format set).
var formatRegexes = map[string]string{
	"date-time":     `^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})$`,
	"email":         `^[^@[:space:]]+@[^@[:space:]]+\.[^@[:space:]]+$`,
	"hostname":      `^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`,
	"ipv4":          `^([0-9]{1,3}\.){3}[0-9]{1,3}$`,
	"ipv6":          `^[0-9a-fA-F:]+$`,
	"json-pointer":  `^(/[^/~]*(~[01][^/~]*)*)*$`,
	"uri-reference": `^[^[:space:]]*$`,
	"uri-template":  `^[^[:space:]]*$`,
	"uri":           `^[a-zA-Z][a-zA-Z0-9+.-]*:[^[:space:]]*$`,
	"uuid":          `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`,
}

// formatCast maps a formatMaximum/formatMinimum-compatible format to the
// SQL cast ValueIs needs (spec.md §4.4).
var formatCast = map[string]path.Cast{
	"date":      path.CastDate,
	"time":      path.CastTime,
	"date-time": path.CastTimestamp,
}

var keywordDispatch map[string]keywordHandler

func init() {
	keywordDispatch = map[string]keywordHandler{
		"properties":         handleProperties,
		"const":              handleConst,
		"enum":               handleEnum,
		"contains":           handleContains,
		"items":              handleItems,
		"not":                handleNot,
		"pattern":            handlePattern,
		"regexp":             handleRegexp,
		"formatMaximum":      handleFormatMaximum,
		"formatMinimum":      handleFormatMinimum,
		"multipleOf":         handleMultipleOf,
		"maximum":            handleNumericComparison(filter.LTE),
		"minimum":            handleNumericComparison(filter.GTE),
		"exclusiveMaximum":   handleNumericComparison(filter.LT),
		"exclusiveMinimum":   handleNumericComparison(filter.GT),
		"minItems":           handleArrayLength(filter.GTE),
		"maxItems":           handleArrayLength(filter.LTE),
		"minLength":          handleStringLength(filter.GTE),
		"maxLength":          handleStringLength(filter.LTE),
		"minProperties":      handleMapPropertyCount(filter.GTE),
		"maxProperties":      handleMapPropertyCount(filter.LTE),
		"fullTextSearch":     handleFullTextSearch,
		"allOf":              handleAllOf,
		"anyOf":              handleAnyOf,
		"oneOf":              handleOneOf,
		"$$links":            handleLinks,
	}
}

func handleProperties(ctx *nodeCtx, raw map[string]any, value any) error {
	props, ok := value.(map[string]any)
	if !ok {
		return schemaErr(ctx, "properties must be an object")
	}

	for _, name := range sortedKeys(props) {
		subSchema := props[name]
		subPath, err := propertyPath(ctx, name)
		if err != nil {
			return err
		}
		subSel := ctx.sel.GetProperty(name)
		subExpr, impliesExists, subLinks, err := compileNode(
			subSchema, subPath, ctx.alias, subSel, ctx.jsonPtr+"/properties/"+name, ctx.b,
		)
		if err != nil {
			return err
		}
		ctx.links = append(ctx.links, subLinks...)
		ctx.seenProps[name] = true

		required := ctx.required[name]
		exists := filter.Leaf(&filter.IsNull{Path: subPath, Negate: true, Opts: ctx.renderOpts()})

		var propExpr *filter.Expression
		switch {
		case required && !impliesExists:
			propExpr = exists.And(subExpr)
		case required:
			propExpr = subExpr
		default:
			propExpr = exists.Implies(subExpr)
		}
		ctx.propsExpr = andMaybe(ctx.propsExpr, propExpr)
	}
	return nil
}

func handleConst(ctx *nodeCtx, raw map[string]any, value any) error {
	if ctx.path.IsJSONDescent() {
		return applyJSONBEquals(ctx, []any{value})
	}
	f := filter.Leaf(&filter.Equals{Path: ctx.path, Values: []any{value}, Opts: ctx.renderOpts()})
	ctx.expr = ctx.expr.And(f)
	ctx.implies = true
	return nil
}

func handleEnum(ctx *nodeCtx, raw map[string]any, value any) error {
	values, ok := value.([]any)
	if !ok || len(values) == 0 {
		return schemaErr(ctx, "enum must be a non-empty array")
	}
	if ctx.path.IsJSONDescent() {
		return applyJSONBEquals(ctx, values)
	}
	f := filter.Leaf(&filter.Equals{Path: ctx.path, Values: values, Opts: ctx.renderOpts()})
	ctx.expr = ctx.expr.And(f)
	ctx.implies = true
	return nil
}

// applyJSONBEquals renders a const/enum comparison against a JSONB path as
// jsonb equality rather than text equality: comparing the extracted value
// as jsonb means a stored string "1" is never equal to the JSON number 1,
// where the usual text-extraction path would force either a SQL type
// mismatch or a silent string coercion depending on the bound value's Go
// type (spec.md §8 invariant 1, scenario S5). The same jsonb-literal-plus-
// cast shape as applyContainsConstOptimization's "@>" optimization below.
func applyJSONBEquals(ctx *nodeCtx, values []any) error {
	opts := ctx.renderOpts()
	opts.AsJSONB = true
	expr := ctx.path.Render(opts)

	placeholders := make([]string, len(values))
	for i, v := range values {
		encoded, err := gojson.Marshal(v)
		if err != nil {
			return schemaErr(ctx, "const/enum value is not JSON-encodable")
		}
		placeholders[i] = fmt.Sprintf("%s::jsonb", ctx.b.Bind(string(encoded)))
	}

	sql := fmt.Sprintf("%s = %s", expr, placeholders[0])
	if len(placeholders) > 1 {
		sql = fmt.Sprintf("%s IN (%s)", expr, strings.Join(placeholders, ", "))
	}
	ctx.expr = ctx.expr.And(filter.Leaf(filter.Raw(sql)))
	ctx.implies = true
	return nil
}

func handlePattern(ctx *nodeCtx, raw map[string]any, value any) error {
	pattern, ok := value.(string)
	if !ok {
		return schemaErr(ctx, "pattern must be a string")
	}
	f := filter.Leaf(&filter.MatchesRegex{Path: ctx.path, Pattern: pattern, Opts: ctx.renderOpts()})
	ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONString}, f))
	return nil
}

func handleRegexp(ctx *nodeCtx, raw map[string]any, value any) error {
	var pattern string
	var ignoreCase bool
	switch v := value.(type) {
	case string:
		pattern = v
	case map[string]any:
		p, _ := v["pattern"].(string)
		pattern = p
		if flags, ok := v["flags"].(string); ok {
			ignoreCase = strings.Contains(flags, "i")
		}
	default:
		return schemaErr(ctx, "regexp must be a string or {pattern, flags}")
	}
	f := filter.Leaf(&filter.MatchesRegex{Path: ctx.path, Pattern: pattern, IgnoreCase: ignoreCase, Opts: ctx.renderOpts()})
	ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONString}, f))
	return nil
}

func handleFormatMaximum(ctx *nodeCtx, raw map[string]any, value any) error {
	return handleFormatBound(ctx, value, filter.LTE)
}

func handleFormatMinimum(ctx *nodeCtx, raw map[string]any, value any) error {
	return handleFormatBound(ctx, value, filter.GTE)
}

func handleFormatBound(ctx *nodeCtx, value any, op filter.Comparator) error {
	cast, ok := formatCast[ctx.declaredFormat]
	if !ok {
		return schemaErr(ctx, fmt.Sprintf("formatMaximum/formatMinimum requires a compatible format, got %q", ctx.declaredFormat))
	}
	str, ok := value.(string)
	if !ok {
		return schemaErr(ctx, "formatMaximum/formatMinimum value must be a string")
	}
	opts := ctx.renderOpts()
	opts.Cast = cast
	f := filter.Leaf(&filter.ValueIs{Path: ctx.path, Op: op, Value: str, Opts: opts})
	ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONString}, f))
	return nil
}

func handleMultipleOf(ctx *nodeCtx, raw map[string]any, value any) error {
	n, ok := numberOf(value)
	if !ok {
		return schemaErr(ctx, "multipleOf must be a number")
	}
	f := filter.Leaf(&filter.MultipleOf{Path: ctx.path, Divisor: n, Opts: ctx.renderOpts()})
	ctx.expr = ctx.expr.And(ctx.guardScalar(numberTypeSet, f))
	return nil
}

func handleNumericComparison(op filter.Comparator) keywordHandler {
	return func(ctx *nodeCtx, raw map[string]any, value any) error {
		n, ok := numberOf(value)
		if !ok {
			return schemaErr(ctx, "expected a number")
		}
		opts := ctx.renderOpts()
		opts.Cast = path.CastNumeric
		f := filter.Leaf(&filter.ValueIs{Path: ctx.path, Op: op, Value: n, Opts: opts})
		ctx.expr = ctx.expr.And(ctx.guardScalar(numberTypeSet, f))
		return nil
	}
}

func handleArrayLength(op filter.Comparator) keywordHandler {
	return func(ctx *nodeCtx, raw map[string]any, value any) error {
		n, ok := intOf(value)
		if !ok {
			return schemaErr(ctx, "expected an integer")
		}
		f := filter.Leaf(&filter.ArrayLength{Path: ctx.path, Op: op, N: n, JSONB: ctx.path.IsJSONDescent(), Opts: ctx.renderOpts()})
		ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONArray}, f))
		return nil
	}
}

func handleStringLength(op filter.Comparator) keywordHandler {
	return func(ctx *nodeCtx, raw map[string]any, value any) error {
		n, ok := intOf(value)
		if !ok {
			return schemaErr(ctx, "expected an integer")
		}
		f := filter.Leaf(&filter.StringLength{Path: ctx.path, Op: op, N: n, Opts: ctx.renderOpts()})
		ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONString}, f))
		return nil
	}
}

func handleMapPropertyCount(op filter.Comparator) keywordHandler {
	return func(ctx *nodeCtx, raw map[string]any, value any) error {
		n, ok := intOf(value)
		if !ok {
			return schemaErr(ctx, "expected an integer")
		}
		f := filter.Leaf(&filter.JSONMapPropertyCount{Path: ctx.path, Op: op, N: n, Opts: ctx.renderOpts()})
		ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONObject}, f))
		return nil
	}
}

func handleFullTextSearch(ctx *nodeCtx, raw map[string]any, value any) error {
	term, ok := value.(string)
	if !ok {
		return schemaErr(ctx, "fullTextSearch must be a string")
	}
	kind := fts.KindPlainColumn
	if ctx.path.IsJSONDescent() {
		kind = fts.KindJSONBString
	}
	f := filter.Leaf(&filter.FullTextSearch{Path: ctx.path, Term: term, Kind: kind, Opts: ctx.renderOpts()})
	ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONString}, f))
	return nil
}

func handleNot(ctx *nodeCtx, raw map[string]any, value any) error {
	childExpr, _, childLinks, err := compileNode(value, ctx.path, ctx.alias, selectmapDiscard(), ctx.jsonPtr+"/not", ctx.b)
	if err != nil {
		return err
	}
	ctx.links = append(ctx.links, childLinks...)
	ctx.expr = ctx.expr.And(childExpr.Negate())
	return nil
}

func handleAllOf(ctx *nodeCtx, raw map[string]any, value any) error {
	branches, ok := value.([]any)
	if !ok {
		return schemaErr(ctx, "allOf must be an array")
	}
	anyImplies := false
	for i, branch := range branches {
		expr, implies, links, err := compileNode(branch, ctx.path, ctx.alias, ctx.sel, fmt.Sprintf("%s/allOf/%d", ctx.jsonPtr, i), ctx.b)
		if err != nil {
			return err
		}
		ctx.links = append(ctx.links, links...)
		ctx.expr = ctx.expr.And(expr)
		if implies {
			anyImplies = true
		}
	}
	if anyImplies {
		ctx.implies = true
	}
	return nil
}

func handleAnyOf(ctx *nodeCtx, raw map[string]any, value any) error {
	branches, ok := value.([]any)
	if !ok || len(branches) == 0 {
		return schemaErr(ctx, "anyOf must be a non-empty array")
	}
	var disj *filter.Expression
	allImply := true
	for i, branch := range branches {
		branchSel := ctx.sel.NewBranch()
		expr, implies, links, err := compileNode(branch, ctx.path, ctx.alias, branchSel, fmt.Sprintf("%s/anyOf/%d", ctx.jsonPtr, i), ctx.b)
		if err != nil {
			return err
		}
		ctx.links = append(ctx.links, links...)
		branchSel.SetFilter(expr)
		if disj == nil {
			disj = expr
		} else {
			disj = disj.Or(expr)
		}
		if !implies {
			allImply = false
		}
	}
	ctx.expr = ctx.expr.And(disj)
	if allImply {
		ctx.implies = true
	}
	return nil
}

// handleOneOf treats oneOf as anyOf for filtering purposes: SQL-side
// uniqueness enforcement across branches is prohibitively expensive and is
// not attempted (spec.md §4.4, a documented limitation — see DESIGN.md).
func handleOneOf(ctx *nodeCtx, raw map[string]any, value any) error {
	return handleAnyOf(ctx, raw, value)
}

func handleContains(ctx *nodeCtx, raw map[string]any, value any) error {
	childSchema, isObj := value.(map[string]any)

	if isObj && len(childSchema) == 1 {
		if term, ok := childSchema["fullTextSearch"]; ok {
			if s, ok := term.(string); ok {
				f := filter.Leaf(&filter.FullTextSearch{Path: ctx.path, Term: s, Kind: fts.KindTextArray, Opts: ctx.renderOpts()})
				ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONArray}, f))
				return nil
			}
		}
		if constVal, ok := childSchema["const"]; ok {
			return applyContainsConstOptimization(ctx, constVal)
		}
	}
	if isObj && len(childSchema) == 2 {
		if constVal, hasConst := childSchema["const"]; hasConst {
			if _, hasType := childSchema["type"]; hasType {
				return applyContainsConstOptimization(ctx, constVal)
			}
		}
	}

	elementAlias := fmt.Sprintf("%s_contains_elem_%d", ctx.alias, len(ctx.links)+1)
	elemPath := path.New()
	childExpr, _, childLinks, err := compileNode(value, elemPath, elementAlias, selectmapDiscard(), ctx.jsonPtr+"/contains", ctx.b)
	if err != nil {
		return err
	}
	ctx.links = append(ctx.links, childLinks...)

	wrapper := &filter.ArrayContains{
		Source: ctx.path, ElementAlias: elementAlias, JSONB: ctx.path.IsJSONDescent(),
		Child: childExpr, Opts: ctx.renderOpts(),
	}
	ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONArray}, filter.Leaf(wrapper)))
	return nil
}

func applyContainsConstOptimization(ctx *nodeCtx, constVal any) error {
	jsonBytes, err := marshalJSONArray(constVal)
	if err != nil {
		return schemaErr(ctx, "contains const value is not JSON-encodable")
	}
	opts := ctx.renderOpts()
	opts.AsJSONB = true
	placeholder := ctx.b.Bind(string(jsonBytes))
	expr := fmt.Sprintf("%s @> %s::jsonb", ctx.path.Render(opts), placeholder)
	f := filter.Leaf(filter.Raw(expr))
	ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONArray}, f))
	return nil
}

func handleItems(ctx *nodeCtx, raw map[string]any, value any) error {
	switch v := value.(type) {
	case []any:
		return handleTupleItems(ctx, raw, v)
	default:
		return handleListItems(ctx, value)
	}
}

func handleTupleItems(ctx *nodeCtx, raw map[string]any, items []any) error {
	conj := filter.True()
	for i, itemSchema := range items {
		idxPath := ctx.path.Flattened()
		idxPath.Push(path.Segment{Kind: path.JSONIndex, Index: i})
		itemExpr, _, itemLinks, err := compileNode(itemSchema, idxPath, ctx.alias, selectmapDiscard(), fmt.Sprintf("%s/items/%d", ctx.jsonPtr, i), ctx.b)
		if err != nil {
			return err
		}
		ctx.links = append(ctx.links, itemLinks...)
		conj = conj.And(itemExpr)
	}

	lengthOp := filter.GTE
	if ap, ok := raw["additionalProperties"].(bool); ok && !ap {
		lengthOp = filter.EQ
	}
	lenFilter := filter.Leaf(&filter.ArrayLength{
		Path: ctx.path, Op: lengthOp, N: len(items), JSONB: ctx.path.IsJSONDescent(), Opts: ctx.renderOpts(),
	})
	combined := conj.And(lenFilter)
	ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONArray}, combined))
	return nil
}

func handleListItems(ctx *nodeCtx, itemSchema any) error {
	elementAlias := fmt.Sprintf("%s_items_elem", ctx.alias)
	elemPath := path.New()
	childExpr, _, childLinks, err := compileNode(itemSchema, elemPath, elementAlias, selectmapDiscard(), ctx.jsonPtr+"/items", ctx.b)
	if err != nil {
		return err
	}
	ctx.links = append(ctx.links, childLinks...)

	negated := childExpr.Negate()
	wrapper := &filter.ArrayContains{
		Source: ctx.path, ElementAlias: elementAlias, JSONB: ctx.path.IsJSONDescent(),
		Child: negated, Opts: ctx.renderOpts(),
	}
	allMatch := filter.Leaf(wrapper).Negate()
	ctx.expr = ctx.expr.And(ctx.guardScalar([]contract.JSONType{contract.JSONArray}, allMatch))
	return nil
}
