// Package dberrors is the closed error taxonomy surfaced across the
// compiler, select map, and mask composer package boundary (§7 of
// SPEC_FULL.md). Every error is a distinct type so callers can discriminate
// with errors.As instead of matching on message text — the teacher's own
// design note against matching driver error strings (statement timeout,
// invalid regular expression:) applies just as much to our own callers.
package dberrors

import "fmt"

// InvalidSchema is raised synchronously during compilation when a JSON-Schema
// node uses an unsupported keyword or a keyword combination the compiler
// cannot translate to SQL. Path is a JSON-pointer into the offending schema.
type InvalidSchema struct {
	Path   string
	Reason string
}

func (e *InvalidSchema) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schema at %s: %s", e.Path, e.Reason)
}

// InvalidRegularExpression is raised when a pattern/regexp keyword fails to
// compile, either at schema-compile time or — for the driver fallback path —
// when Postgres rejects the emitted POSIX regex at execution time.
type InvalidRegularExpression struct {
	Path    string
	Pattern string
	Reason  string
}

func (e *InvalidRegularExpression) Error() string {
	return fmt.Sprintf("invalid regular expression at %s (%q): %s", e.Path, e.Pattern, e.Reason)
}

// InvalidLimit is raised when a caller requests more than the hard query
// limit (1000 rows, §5) or a non-positive limit/skip.
type InvalidLimit struct {
	Requested int
	Max       int
}

func (e *InvalidLimit) Error() string {
	return fmt.Sprintf("requested limit %d exceeds maximum of %d", e.Requested, e.Max)
}

// InvalidVersion is raised when a slug's version component does not match
// the grammar major[.minor[.patch]][-prerelease][+build] or "latest".
type InvalidVersion struct {
	Raw    string
	Reason string
}

func (e *InvalidVersion) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Raw, e.Reason)
}

// DatabaseTimeoutError wraps a driver timeout (Postgres statement_timeout).
// Collaborator-supplied, not raised by this module directly, but defined
// here since it belongs to the shared taxonomy callers match against.
type DatabaseTimeoutError struct {
	Cause error
}

func (e *DatabaseTimeoutError) Error() string {
	return fmt.Sprintf("database timeout: %v", e.Cause)
}

func (e *DatabaseTimeoutError) Unwrap() error { return e.Cause }

// InvalidSession is raised when a session id does not resolve to a session,
// or the session is inactive.
type InvalidSession struct {
	SessionID string
}

func (e *InvalidSession) Error() string {
	return fmt.Sprintf("invalid session %q", e.SessionID)
}

// SessionExpired is raised when a session resolves but its expiry has
// passed.
type SessionExpired struct {
	SessionID string
}

func (e *SessionExpired) Error() string {
	return fmt.Sprintf("session %q has expired", e.SessionID)
}

// NoElement is raised when a referenced contract (most commonly the
// session's actor) cannot be found.
type NoElement struct {
	Kind string
	Ref  string
}

func (e *NoElement) Error() string {
	return fmt.Sprintf("no such %s: %s", e.Kind, e.Ref)
}
