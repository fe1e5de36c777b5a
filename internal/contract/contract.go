// Package contract is the data model the compiler hard-codes against: the
// "contracts" table and the link-edge table described in spec.md §3. Their
// shape is a compile-time constant of this module, not something read from
// a live catalog — introspecting an arbitrary Postgres schema is explicitly
// out of scope (spec.md §1).
package contract

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Contract is one row of the primary table.
type Contract struct {
	ID                uuid.UUID
	Slug              string
	VersionMajor      int
	VersionMinor      int
	VersionPatch      int
	VersionPrerelease string
	VersionBuild      string
	Type              string
	Name              *string
	Tags              []string
	Markers           []string
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	Active            bool
	Requires          []json.RawMessage
	Capabilities      []json.RawMessage
	LinkedAt          map[string]time.Time
	Links             json.RawMessage
	Data              json.RawMessage
}

// LinkEdge is one row of the link table. Both directions of a link are
// stored so that traversal in either direction hits an index.
type LinkEdge struct {
	ID       uuid.UUID
	Forward  bool
	FromID   uuid.UUID
	ToID     uuid.UUID
	NameID   int // interned string FK
}

// StringInterner resolves a link relation name to its integer id in the
// shared string-intern table, upserting on first use. Its storage is an
// external collaborator (spec.md §1); this module only depends on the
// interface.
type StringInterner interface {
	Intern(name string) (int, error)
	Lookup(id int) (string, bool)
}
