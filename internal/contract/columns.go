package contract

// JSONType is one of the six JSON-Schema primitive types the compiler
// reasons about when it needs to guard a JSONB path (spec.md §4.2,
// IsOfJsonTypes).
type JSONType string

const (
	JSONString  JSONType = "string"
	JSONNumber  JSONType = "number"
	JSONBoolean JSONType = "boolean"
	JSONNull    JSONType = "null"
	JSONArray   JSONType = "array"
	JSONObject  JSONType = "object"
)

// ColumnKind distinguishes the handful of storage shapes the column
// capability table below needs to describe.
type ColumnKind int

const (
	// KindScalar is a plain scalar column (text, boolean, timestamp, uuid).
	KindScalar ColumnKind = iota
	// KindTextArray is a native Postgres array column (text[]).
	KindTextArray
	// KindJSONBArray is an array-of-jsonb column (jsonb[]).
	KindJSONBArray
	// KindJSONB is a single jsonb column that itself descends into
	// arbitrary nested JSON-Schema structure.
	KindJSONB
)

// ColumnInfo describes one column of the contracts table: its static JSON
// type, whether it is an array of that type, and whether it may be SQL
// NULL. The compiler consults this table instead of any runtime
// introspection (spec.md §1: schema shape beyond the compiler's needs is
// out of scope).
type ColumnInfo struct {
	Name     string
	JSONType JSONType
	Kind     ColumnKind
	Nullable bool
}

// Columns is the column-capability table for the contracts table, keyed by
// top-level JSON-Schema property name. A property not present here — other
// than "data", which opens onto the free-form jsonb payload — does not
// exist on a contract and the compiler rejects it.
var Columns = map[string]ColumnInfo{
	"id":           {Name: "id", JSONType: JSONString, Kind: KindScalar, Nullable: false},
	"slug":         {Name: "slug", JSONType: JSONString, Kind: KindScalar, Nullable: false},
	"version":      {Name: "version", JSONType: JSONString, Kind: KindScalar, Nullable: false},
	"type":         {Name: "type", JSONType: JSONString, Kind: KindScalar, Nullable: false},
	"name":         {Name: "name", JSONType: JSONString, Kind: KindScalar, Nullable: true},
	"tags":         {Name: "tags", JSONType: JSONString, Kind: KindTextArray, Nullable: false},
	"markers":      {Name: "markers", JSONType: JSONString, Kind: KindTextArray, Nullable: false},
	"created_at":   {Name: "created_at", JSONType: JSONString, Kind: KindScalar, Nullable: false},
	"updated_at":   {Name: "updated_at", JSONType: JSONString, Kind: KindScalar, Nullable: true},
	"active":       {Name: "active", JSONType: JSONBoolean, Kind: KindScalar, Nullable: false},
	"requires":     {Name: "requires", JSONType: JSONObject, Kind: KindJSONBArray, Nullable: false},
	"capabilities": {Name: "capabilities", JSONType: JSONObject, Kind: KindJSONBArray, Nullable: false},
	"linked_at":    {Name: "linked_at", JSONType: JSONObject, Kind: KindJSONB, Nullable: false},
	"links":        {Name: "links", JSONType: JSONObject, Kind: KindJSONB, Nullable: false},
	"data":         {Name: "data", JSONType: JSONObject, Kind: KindJSONB, Nullable: false},
}

// TableName is the physical name of the primary table.
const TableName = "cards"

// LinksTableName is the physical name of the link-edge table.
const LinksTableName = "links"

// StringsTableName is the physical name of the string-intern table.
const StringsTableName = "strings"
