// Package collaborators declares the external systems this module treats as
// collaborators rather than implementation targets (SPEC_FULL.md §1, the
// spec's own "out of scope, referenced only by interface" list): the
// database driver and connection pool, the in-memory contract lookup cache,
// and the change-data stream. internal/mask depends only on these
// interfaces; a caller wires in its own pgx pool, cache and trigger.
package collaborators

import (
	"context"
	"log/slog"

	"github.com/product-os/autumndb-sub002/internal/contract"
)

// Row is the minimal result-row surface a Connection's query methods return,
// mirroring the subset of pgx.Row/pgx.Rows this module actually consumes.
type Row interface {
	Scan(dest ...any) error
}

// Executor runs a query against whatever connection or transaction a
// Connection handed out. Task-scoped code never sees a raw *pgx.Conn —
// it only ever sees an Executor, so the ambient-transaction contract in
// SPEC_FULL.md §5 ("re-entrant, auto-joined") is the Connection's job alone.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (Row, error)
	Exec(ctx context.Context, sql string, args ...any) error
}

// Connection is the ambient-transaction-aware connection pool collaborator.
// Any and One return a handle for a single statement; Task and Tx both run
// fn against a handle that callers nested inside fn automatically share —
// calling Tx from inside an already-open Tx joins the outer transaction
// rather than nesting a new one.
type Connection interface {
	Any(ctx context.Context) (Executor, error)
	One(ctx context.Context) (Executor, error)
	Task(ctx context.Context, fn func(context.Context, Executor) error) error
	Tx(ctx context.Context, fn func(context.Context, Executor) error) error
}

// ChangeEvent is one row-level change the change-data stream collaborator
// reports (insert/update/delete of a contract).
type ChangeEvent struct {
	Type     string // "insert", "update", "delete"
	Contract *contract.Contract
}

// ChangeStream is the change-data-capture trigger collaborator. Start
// begins delivering events to every handler registered with Attach; Close
// stops delivery. Neither C1–C8 in this module consumes a ChangeStream
// directly — it exists so a caller's cache-invalidation wiring has a name
// to type against.
type ChangeStream interface {
	Start(ctx context.Context) error
	Attach(handler func(ChangeEvent))
	Close() error
}

// Cache is the in-memory contract lookup collaborator the mask composer's
// session/actor/role/org loads are expected to run through before falling
// back to Connection.
type Cache interface {
	GetByID(id string) (*contract.Contract, bool)
	GetBySlug(slug string) (*contract.Contract, bool)
	Set(c *contract.Contract)
	SetMissingID(id string)
	SetMissingSlug(slug string)
	Unset(id string)
	Reset()
}

// Metrics is a no-op-friendly recorder interface; SPEC_FULL.md §2a carries
// it only so collaborator-facing code has somewhere to report without this
// module owning an actual metrics backend.
type Metrics interface {
	IncrementCounter(name string, tags ...string)
	ObserveDuration(name string, tags ...string) func()
}

// Context bundles the ambient services C6 (and any future collaborator
// caller) expects to have in hand: structured logging, an invariant
// assertion helper, and metrics. It deliberately has nothing to do with
// context.Context — the name matches spec.md's own "Context" collaborator
// type, distinct from the standard library's.
type Context interface {
	Logger() *slog.Logger
	Assert(cond bool, msg string)
	Metrics() Metrics
}
