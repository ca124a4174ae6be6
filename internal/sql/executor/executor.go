// Package executor dispatches parsed statements against the catalog under
// the lock discipline of the concurrency controller.
package executor

import (
	"log/slog"
	"sort"

	"github.com/tuannm99/bongodb/internal/bongoerr"
	"github.com/tuannm99/bongodb/internal/catalog"
	"github.com/tuannm99/bongodb/internal/lock"
	"github.com/tuannm99/bongodb/internal/record"
	"github.com/tuannm99/bongodb/internal/sql/parser"
	"github.com/tuannm99/bongodb/internal/storage"
)

// Executor executes statements against a Catalog.
type Executor struct {
	cat *catalog.Catalog
	ctl *lock.Controller

	// autoFlush makes every non-SELECT statement end with an implicit FLUSH.
	autoFlush bool

	log *slog.Logger
}

func New(cat *catalog.Catalog, ctl *lock.Controller, autoFlush bool) *Executor {
	return &Executor{
		cat:       cat,
		ctl:       ctl,
		autoFlush: autoFlush,
		log:       slog.Default(),
	}
}

// ExecSQL is the top-level entry: SQL string -> Result.
func (e *Executor) ExecSQL(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	return e.Execute(stmt)
}

// Execute runs one statement. A panic aborts only this statement; every
// lock is released by defers on the way out.
func (e *Executor) Execute(stmt parser.Statement) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("statement panicked", "panic", r)
			res = nil
			err = bongoerr.Internalf("statement aborted")
		}
	}()

	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return e.execSelect(s)
	case *parser.InsertStmt:
		res, err = e.execInsert(s)
	case *parser.UpdateStmt:
		res, err = e.execUpdate(s)
	case *parser.DeleteStmt:
		res, err = e.execDelete(s)
	case *parser.CreateTableStmt:
		res, err = e.execCreateTable(s)
	case *parser.DropTableStmt:
		res, err = e.execDropTable(s)
	case *parser.FlushStmt:
		return e.execFlush()
	default:
		return nil, bongoerr.Internalf("unsupported statement type %T", stmt)
	}

	if err == nil && e.autoFlush {
		// The statement's locks are released by now; the implicit FLUSH
		// re-enters through the exclusive catalog lock. Another statement may
		// commit in between, which only widens what this flush persists.
		if ferr := e.flushUnderCatalogLock(); ferr != nil {
			return nil, ferr
		}
	}
	return res, err
}

// lockTable resolves name and takes its table lock, holding the catalog
// lock in shared mode only for the lookup.
func (e *Executor) lockTable(name string, exclusive bool) (*storage.Table, func(), error) {
	releaseCat := e.ctl.CatalogShared()

	tbl, err := e.cat.Get(name)
	if err != nil {
		releaseCat()
		return nil, nil, err
	}

	var releaseTbl func()
	if exclusive {
		releaseTbl = e.ctl.TableExclusive(name)
	} else {
		releaseTbl = e.ctl.TableShared(name)
	}
	releaseCat()
	return tbl, releaseTbl, nil
}

// ----- SELECT -----

func (e *Executor) execSelect(s *parser.SelectStmt) (*Result, error) {
	tbl, release, err := e.lockTable(s.Table, false)
	if err != nil {
		return nil, err
	}
	defer release()

	schema := tbl.Schema

	// Resolve the projection. `*` expands to schema order.
	var cols []string
	if s.Wildcard {
		cols = schema.ColNames()
	} else {
		cols = s.Items
	}
	proj := make([]int, len(cols))
	for i, name := range cols {
		pos := schema.ColIndex(name)
		if pos < 0 {
			return nil, bongoerr.Schemaf("unknown column %q in table %q", name, s.Table)
		}
		proj[i] = pos
	}

	orderPos := -1
	if s.OrderBy != nil {
		orderPos = schema.ColIndex(s.OrderBy.Column)
		if orderPos < 0 {
			return nil, bongoerr.Schemaf("unknown column %q in table %q",
				s.OrderBy.Column, s.Table)
		}
	}

	// Collect full rows first so ORDER BY can use non-projected columns.
	var matched []record.Row
	err = tbl.Find(s.Where, func(_ uint32, row record.Row) error {
		matched = append(matched, row.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if orderPos >= 0 {
		desc := s.OrderBy.Desc
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareForOrder(matched[i][orderPos], matched[j][orderPos])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	rows := make([][]record.Value, 0, len(matched))
	for _, row := range matched {
		out := make([]record.Value, len(proj))
		for i, pos := range proj {
			out[i] = row[pos]
		}
		rows = append(rows, out)
	}

	return &Result{Columns: cols, Rows: rows, AffectedRows: int64(len(rows))}, nil
}

// compareForOrder orders values for ORDER BY ASC with NULLS LAST;
// DESC callers flip the sign, putting nulls first.
func compareForOrder(a, b record.Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return 1
	case b.IsNull():
		return -1
	default:
		return record.Compare(a, b)
	}
}

// ----- INSERT -----

func (e *Executor) execInsert(s *parser.InsertStmt) (*Result, error) {
	tbl, release, err := e.lockTable(s.Table, true)
	if err != nil {
		return nil, err
	}
	defer release()

	schema := tbl.Schema

	// The column list must equal the schema's names, in order.
	names := schema.ColNames()
	if len(s.Columns) != len(names) {
		return nil, bongoerr.Schemaf(
			"INSERT lists %d columns, table %q has %d", len(s.Columns), s.Table, len(names))
	}
	for i, name := range s.Columns {
		if name != names[i] {
			return nil, bongoerr.Schemaf(
				"INSERT column %d is %q, table %q declares %q", i+1, name, s.Table, names[i])
		}
	}

	// Validate everything before touching any slot.
	rows := make([]record.Row, len(s.Rows))
	for i, vals := range s.Rows {
		if len(vals) != len(names) {
			return nil, bongoerr.Schemaf(
				"row %d has %d values, expected %d", i+1, len(vals), len(names))
		}
		for j, col := range schema.Cols {
			if err := record.CheckValue(col, vals[j]); err != nil {
				return nil, err
			}
		}
		rows[i] = record.Row(vals)
	}

	if err := tbl.Insert(rows); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: int64(len(rows))}, nil
}

// ----- UPDATE -----

func (e *Executor) execUpdate(s *parser.UpdateStmt) (*Result, error) {
	tbl, release, err := e.lockTable(s.Table, true)
	if err != nil {
		return nil, err
	}
	defer release()

	assigns := make([]storage.Assignment, len(s.Assignments))
	for i, a := range s.Assignments {
		pos := tbl.Schema.ColIndex(a.Column)
		if pos < 0 {
			return nil, bongoerr.Schemaf("unknown column %q in table %q", a.Column, s.Table)
		}
		if err := record.CheckValue(tbl.Schema.Cols[pos], a.Value); err != nil {
			return nil, err
		}
		assigns[i] = storage.Assignment{Col: a.Column, Val: a.Value}
	}

	affected, err := tbl.Update(s.Where, assigns)
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: affected}, nil
}

// ----- DELETE -----

func (e *Executor) execDelete(s *parser.DeleteStmt) (*Result, error) {
	tbl, release, err := e.lockTable(s.Table, true)
	if err != nil {
		return nil, err
	}
	defer release()

	affected, err := tbl.Delete(s.Where)
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: affected}, nil
}

// ----- CREATE TABLE -----

func (e *Executor) execCreateTable(s *parser.CreateTableStmt) (*Result, error) {
	if len(s.Columns) == 0 {
		return nil, bongoerr.Schemaf("table %q needs at least one column", s.Table)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		if _, dup := seen[col.Name]; dup {
			return nil, bongoerr.Schemaf("duplicate column %q in table %q", col.Name, s.Table)
		}
		seen[col.Name] = struct{}{}
	}

	release := e.ctl.CatalogExclusive()
	defer release()

	if _, err := e.cat.Create(s.Table, record.Schema{Cols: s.Columns}); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

// ----- DROP TABLE -----

func (e *Executor) execDropTable(s *parser.DropTableStmt) (*Result, error) {
	release := e.ctl.CatalogExclusive()
	defer release()

	// The whole statement fails before any destruction.
	for _, name := range s.Tables {
		if !e.cat.Has(name) {
			return nil, bongoerr.Schemaf("unknown table %q", name)
		}
	}
	for _, name := range s.Tables {
		// Drain the last in-flight statement on this table before its lock
		// is forgotten.
		releaseTbl := e.ctl.TableExclusive(name)
		releaseTbl()

		if err := e.cat.Drop(name); err != nil {
			return nil, err
		}
		e.ctl.Forget(name)
	}
	return &Result{AffectedRows: int64(len(s.Tables))}, nil
}

// ----- FLUSH -----

func (e *Executor) execFlush() (*Result, error) {
	if err := e.flushUnderCatalogLock(); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (e *Executor) flushUnderCatalogLock() error {
	release := e.ctl.CatalogExclusive()
	defer release()

	// In-flight statements may still hold table locks: the two-step protocol
	// releases the catalog lock once the table lock is held. Wait them out so
	// the flush never reads a table mid-mutation. New statements queue on the
	// catalog lock, so no new table-lock holder can appear meanwhile.
	names := e.cat.TableNames()
	sort.Strings(names)
	for _, name := range names {
		releaseTbl := e.ctl.TableExclusive(name)
		defer releaseTbl()
	}

	return e.cat.FlushAll()
}
