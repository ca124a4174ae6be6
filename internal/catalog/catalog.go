// Package catalog owns the single database: the mapping from table name to
// storage engine instance and the persistent root directory.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/bongodb/internal/bongoerr"
	"github.com/tuannm99/bongodb/internal/record"
	"github.com/tuannm99/bongodb/internal/storage"
)

const (
	metaFile = "meta.json"
	tableExt = ".bongo"

	fileMode0755 = 0o755
	fileMode0644 = 0o644
)

// flushParallelism caps concurrent table writes during FLUSH.
const flushParallelism = 4

// Catalog is the process-wide table registry. It is not goroutine-safe;
// the concurrency controller guards it.
type Catalog struct {
	dir    string
	tables map[string]*storage.Table

	// pendingRemoval holds table files whose tables were dropped; the files
	// are unlinked by the next FLUSH.
	pendingRemoval []string
	metaDirty      bool
}

type metaModel struct {
	Tables []tableMeta `json:"tables"`
}

type tableMeta struct {
	Name   string             `json:"name"`
	Schema []record.ColumnDef `json:"schema"`
}

// OpenOrCreate opens the catalog at dir. Without a meta file the catalog is
// only initialized fresh when createIfMissing is set; otherwise the
// directory does not hold a valid database.
func OpenOrCreate(dir string, createIfMissing bool) (*Catalog, error) {
	c := &Catalog{
		dir:    dir,
		tables: make(map[string]*storage.Table),
	}

	if _, err := os.Stat(c.metaPath()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, bongoerr.IoWrap("stat catalog meta", err)
		}
		if !createIfMissing {
			return nil, bongoerr.IoWrap(fmt.Sprintf("no database at %q", dir), err)
		}
		if err := os.MkdirAll(dir, fileMode0755); err != nil {
			return nil, bongoerr.IoWrap("create data dir", err)
		}
		c.metaDirty = true
		return c, nil
	}

	if err := c.LoadAll(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Dir() string      { return c.dir }
func (c *Catalog) metaPath() string { return filepath.Join(c.dir, metaFile) }

// TableFile is the on-disk path of name's slot file.
func (c *Catalog) TableFile(name string) string {
	return filepath.Join(c.dir, name+tableExt)
}

// TableNames returns the live table names in map order.
func (c *Catalog) TableNames() []string {
	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	return out
}

// Get resolves a table handle by its case-sensitive name.
func (c *Catalog) Get(name string) (*storage.Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, bongoerr.Schemaf("unknown table %q", name)
	}
	return t, nil
}

// Has reports whether name exists.
func (c *Catalog) Has(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// Create registers a fresh empty table under name.
func (c *Catalog) Create(name string, schema record.Schema) (*storage.Table, error) {
	if _, ok := c.tables[name]; ok {
		return nil, bongoerr.Schemaf("table %q already exists", name)
	}

	// Re-creating a name dropped since the last FLUSH revokes the pending
	// unlink; the new table owns the file path now.
	path := c.TableFile(name)
	for i, pending := range c.pendingRemoval {
		if pending == path {
			c.pendingRemoval = append(c.pendingRemoval[:i], c.pendingRemoval[i+1:]...)
			break
		}
	}

	t := storage.NewTable(name, schema)
	c.tables[name] = t
	c.metaDirty = true
	return t, nil
}

// Drop removes name from the catalog. Its file is unlinked by the next
// FLUSH, so the in-memory drop stays cheap under the exclusive catalog lock.
func (c *Catalog) Drop(name string) error {
	if _, ok := c.tables[name]; !ok {
		return bongoerr.Schemaf("unknown table %q", name)
	}
	delete(c.tables, name)
	c.pendingRemoval = append(c.pendingRemoval, c.TableFile(name))
	c.metaDirty = true
	return nil
}

// FlushAll unlinks files of dropped tables, persists every dirty table and
// rewrites the meta file, in that order: removals run first so they can
// never hit a file a live table just wrote, and the meta write happens last
// so a valid meta never points at missing files. Table writes run in a
// bounded errgroup.
func (c *Catalog) FlushAll() error {
	for _, path := range c.pendingRemoval {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return bongoerr.IoWrap("remove dropped table file", err)
		}
	}
	c.pendingRemoval = nil

	var g errgroup.Group
	g.SetLimit(flushParallelism)

	for _, t := range c.tables {
		if !t.Dirty() {
			continue
		}
		t := t
		g.Go(func() error {
			return c.flushTable(t)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := c.writeMeta(); err != nil {
		return err
	}
	c.metaDirty = false
	return nil
}

func (c *Catalog) flushTable(t *storage.Table) error {
	f, err := os.OpenFile(c.TableFile(t.Name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode0644)
	if err != nil {
		return bongoerr.IoWrap("open table file", err)
	}
	defer func() { _ = f.Close() }()

	if err := t.Flush(f); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return bongoerr.IoWrap("sync table file", err)
	}
	return f.Close()
}

func (c *Catalog) writeMeta() error {
	meta := metaModel{Tables: make([]tableMeta, 0, len(c.tables))}
	for name, t := range c.tables {
		meta.Tables = append(meta.Tables, tableMeta{Name: name, Schema: t.Schema.Cols})
	}

	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return bongoerr.Internalf("marshal catalog meta: %v", err)
	}
	if err := os.WriteFile(c.metaPath(), b, fileMode0644); err != nil {
		return bongoerr.IoWrap("write catalog meta", err)
	}
	return nil
}

// LoadAll is the reverse of FlushAll: it reads the meta file and every
// table file it references.
func (c *Catalog) LoadAll() error {
	b, err := os.ReadFile(c.metaPath())
	if err != nil {
		return bongoerr.IoWrap("read catalog meta", err)
	}
	var meta metaModel
	if err := json.Unmarshal(b, &meta); err != nil {
		return bongoerr.IoWrap("parse catalog meta", err)
	}

	tables := make(map[string]*storage.Table, len(meta.Tables))
	for _, tm := range meta.Tables {
		t, err := c.loadTable(tm)
		if err != nil {
			return err
		}
		tables[tm.Name] = t
	}

	c.tables = tables
	c.pendingRemoval = nil
	c.metaDirty = false
	return nil
}

func (c *Catalog) loadTable(tm tableMeta) (*storage.Table, error) {
	f, err := os.Open(c.TableFile(tm.Name))
	if err != nil {
		return nil, bongoerr.IoWrap("open table file", err)
	}
	defer func() { _ = f.Close() }()

	return storage.Load(tm.Name, record.Schema{Cols: tm.Schema}, f)
}
