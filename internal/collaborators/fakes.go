package collaborators

import (
	"io"
	"log/slog"

	"github.com/product-os/autumndb-sub002/internal/contract"
)

// FakeCache is an in-memory Cache used by tests. It distinguishes "never
// looked up" from "confirmed absent" via the missing sets, mirroring a real
// write-through cache's shape closely enough to exercise mask code that
// checks the cache before falling back to a Connection.
type FakeCache struct {
	byID      map[string]*contract.Contract
	bySlug    map[string]*contract.Contract
	missingID map[string]bool
	missingSl map[string]bool
}

// NewFakeCache returns an empty FakeCache.
func NewFakeCache() *FakeCache {
	return &FakeCache{
		byID:      map[string]*contract.Contract{},
		bySlug:    map[string]*contract.Contract{},
		missingID: map[string]bool{},
		missingSl: map[string]bool{},
	}
}

func (c *FakeCache) GetByID(id string) (*contract.Contract, bool) {
	v, ok := c.byID[id]
	return v, ok
}

func (c *FakeCache) GetBySlug(slug string) (*contract.Contract, bool) {
	v, ok := c.bySlug[slug]
	return v, ok
}

func (c *FakeCache) Set(ct *contract.Contract) {
	id := ct.ID.String()
	c.byID[id] = ct
	c.bySlug[ct.Slug] = ct
	delete(c.missingID, id)
	delete(c.missingSl, ct.Slug)
}

func (c *FakeCache) SetMissingID(id string)     { c.missingID[id] = true }
func (c *FakeCache) SetMissingSlug(slug string) { c.missingSl[slug] = true }

func (c *FakeCache) Unset(id string) {
	if ct, ok := c.byID[id]; ok {
		delete(c.bySlug, ct.Slug)
	}
	delete(c.byID, id)
}

func (c *FakeCache) Reset() {
	c.byID = map[string]*contract.Contract{}
	c.bySlug = map[string]*contract.Contract{}
	c.missingID = map[string]bool{}
	c.missingSl = map[string]bool{}
}

// FakeContext is a Context collaborator for tests: a discard logger, a
// panicking Assert (so a violated invariant fails the test loudly), and a
// no-op Metrics.
type FakeContext struct{}

func (FakeContext) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (FakeContext) Assert(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}

func (FakeContext) Metrics() Metrics { return noopMetrics{} }

type noopMetrics struct{}

func (noopMetrics) IncrementCounter(name string, tags ...string)       {}
func (noopMetrics) ObserveDuration(name string, tags ...string) func() { return func() {} }
