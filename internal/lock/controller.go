// Package lock is the process-wide concurrency controller: one
// reader-writer lock over the catalog and one per live table.
package lock

import (
	"log/slog"

	"github.com/sasha-s/go-deadlock"
)

func init() {
	// The detector prints its report to stderr; it must not take the whole
	// server down with it.
	deadlock.Opts.OnPotentialDeadlock = func() {
		slog.Error("potential deadlock reported by lock detector")
	}
}

// Controller arbitrates shared/exclusive access. The RWMutexes are
// writer-preferring: once a writer queues, new readers block until it
// drains, so CREATE/DROP/FLUSH make progress under continuous SELECT load.
//
// Acquisition order for table-scoped statements: catalog shared, resolve
// the table, table lock, release catalog. Catalog-scoped statements take
// the catalog lock exclusively and nothing else.
type Controller struct {
	catalog deadlock.RWMutex

	mu     deadlock.Mutex
	tables map[string]*deadlock.RWMutex
}

func NewController() *Controller {
	return &Controller{tables: make(map[string]*deadlock.RWMutex)}
}

// CatalogShared takes the catalog lock in shared mode and returns the
// release. Releases must be unconditional (deferred) so a panicking
// statement cannot strand the lock.
func (c *Controller) CatalogShared() func() {
	c.catalog.RLock()
	return c.catalog.RUnlock
}

// CatalogExclusive takes the catalog lock in exclusive mode.
func (c *Controller) CatalogExclusive() func() {
	c.catalog.Lock()
	return c.catalog.Unlock
}

func (c *Controller) tableLock(name string) *deadlock.RWMutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.tables[name]
	if !ok {
		l = new(deadlock.RWMutex)
		c.tables[name] = l
	}
	return l
}

// TableShared takes name's lock in shared mode. The caller must still hold
// the catalog lock (shared) while acquiring, per the two-step protocol.
func (c *Controller) TableShared(name string) func() {
	l := c.tableLock(name)
	l.RLock()
	return l.RUnlock
}

// TableExclusive takes name's lock in exclusive mode.
func (c *Controller) TableExclusive(name string) func() {
	l := c.tableLock(name)
	l.Lock()
	return l.Unlock
}

// Forget drops the lock of a removed table. Callers must hold the catalog
// lock exclusively and have drained the table lock first: statements queue
// on table locks only while holding the catalog shared lock, so under the
// exclusive catalog lock no new waiter can arrive.
func (c *Controller) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, name)
}
