// Package storage implements the per-table engine: a dense array of
// fixed-size slots cached in memory, a hash index over the first column,
// and a freelist of ghost slots recycled by inserts.
package storage

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tuannm99/bongodb/internal/bongoerr"
	"github.com/tuannm99/bongodb/internal/record"
)

// Table is one storage engine instance. It is not goroutine-safe; the
// concurrency controller serializes access.
type Table struct {
	Name   string
	Schema record.Schema

	// slots is addressed by slot id; a nil entry is a ghost slot.
	slots    []record.Row
	index    *hashIndex
	freelist mapset.Set[uint32]
	dirty    bool
}

// Assignment sets one column to a new value during UPDATE.
type Assignment struct {
	Col string
	Val record.Value
}

// NewTable creates an empty table: no slots, empty index and freelist,
// dirty so the next FLUSH persists it.
func NewTable(name string, schema record.Schema) *Table {
	return &Table{
		Name:     name,
		Schema:   schema,
		index:    newHashIndex(),
		freelist: mapset.NewThreadUnsafeSet[uint32](),
		dirty:    true,
	}
}

func (t *Table) Dirty() bool    { return t.dirty }
func (t *Table) SlotCount() int { return len(t.slots) }

// LiveCount is the number of live rows.
func (t *Table) LiveCount() int { return len(t.slots) - t.freelist.Cardinality() }

func (t *Table) indexCol() record.ColumnDef { return t.Schema.Cols[0] }

// Insert appends rows, reusing ghost slots before growing the slot array.
// Rows must already satisfy the schema; validation happens upfront in the
// executor so an insert never partially applies.
func (t *Table) Insert(rows []record.Row) error {
	for _, row := range rows {
		if len(row) != t.Schema.NumCols() {
			return bongoerr.Internalf("insert: row arity %d does not match table %q",
				len(row), t.Name)
		}
		var id uint32
		if recycled, ok := t.freelist.Pop(); ok {
			id = recycled
		} else {
			id = uint32(len(t.slots))
			t.slots = append(t.slots, nil)
		}
		t.slots[id] = row.Clone()
		t.index.add(row[0], id)
	}
	if len(rows) > 0 {
		t.dirty = true
	}
	return nil
}

// Scan walks live slots in slot-id order and yields rows selected by pred
// (nil pred selects everything). Stops early when fn returns an error.
func (t *Table) Scan(pred record.Expr, fn func(id uint32, row record.Row) error) error {
	for id, row := range t.slots {
		if row == nil {
			continue
		}
		ok, err := record.Matches(t.Schema, row, pred)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(uint32(id), row); err != nil {
			return err
		}
	}
	return nil
}

// Probe answers equality and inequality lookups on the index column.
// Eq walks the value's hash bucket and re-checks each candidate slot's
// actual value to resolve collisions. NotEq is a full scan with the
// inequality filter; it is correct but not accelerated.
func (t *Table) Probe(v record.Value, op record.BinaryOp, fn func(id uint32, row record.Row) error) error {
	if op != record.OpEq && op != record.OpNotEq {
		return bongoerr.Internalf("probe: unsupported operator %s", op)
	}

	// Comparing anything with NULL yields Null, which never selects.
	if v.IsNull() {
		return nil
	}

	if op == record.OpNotEq {
		pred := &record.Binary{
			Op:    record.OpNotEq,
			Left:  &record.Ident{Name: t.indexCol().Name},
			Right: &record.Literal{Val: v},
		}
		return t.Scan(pred, fn)
	}

	for _, id := range t.index.candidates(v) {
		if int(id) >= len(t.slots) || t.slots[id] == nil {
			return bongoerr.Internalf("probe: index points at ghost slot %d of table %q",
				id, t.Name)
		}
		row := t.slots[id]
		if !row[0].Equal(v) {
			continue // hash collision
		}
		if err := fn(id, row); err != nil {
			return err
		}
	}
	return nil
}

// Find dispatches pred to the hash index when its root is a plain
// equality/inequality between the index column and a literal (either
// operand order); everything else takes a full scan.
func (t *Table) Find(pred record.Expr, fn func(id uint32, row record.Row) error) error {
	if v, op, ok := t.probeKey(pred); ok {
		return t.Probe(v, op, fn)
	}
	return t.Scan(pred, fn)
}

func (t *Table) probeKey(pred record.Expr) (record.Value, record.BinaryOp, bool) {
	bin, ok := pred.(*record.Binary)
	if !ok || (bin.Op != record.OpEq && bin.Op != record.OpNotEq) {
		return record.Value{}, 0, false
	}

	ident, lit := bin.Left, bin.Right
	if _, ok := ident.(*record.Ident); !ok {
		ident, lit = lit, ident
	}
	id, ok := ident.(*record.Ident)
	if !ok || id.Name != t.indexCol().Name {
		return record.Value{}, 0, false
	}
	l, ok := lit.(*record.Literal)
	if !ok {
		return record.Value{}, 0, false
	}
	return l.Val, bin.Op, true
}

// Update applies assigns to every row selected by pred and reports how many
// rows changed. New values are type-checked per row; on a mismatch the
// journal of already-rewritten slots is rolled back so the statement leaves
// the table untouched.
func (t *Table) Update(pred record.Expr, assigns []Assignment) (int64, error) {
	positions := make([]int, len(assigns))
	for i, a := range assigns {
		pos := t.Schema.ColIndex(a.Col)
		if pos < 0 {
			return 0, bongoerr.Schemaf("unknown column %q in table %q", a.Col, t.Name)
		}
		positions[i] = pos
	}

	matches, err := t.collect(pred)
	if err != nil {
		return 0, err
	}

	type journalEntry struct {
		id   uint32
		prev record.Row
	}
	var journal []journalEntry

	rollback := func() {
		for i := len(journal) - 1; i >= 0; i-- {
			e := journal[i]
			cur := t.slots[e.id]
			if !sameIndexValue(cur[0], e.prev[0]) {
				t.index.remove(cur[0], e.id)
				t.index.add(e.prev[0], e.id)
			}
			t.slots[e.id] = e.prev
		}
	}

	for _, id := range matches {
		prev := t.slots[id]
		next := prev.Clone()
		for i, a := range assigns {
			next[positions[i]] = a.Val
		}

		if err := t.Schema.CheckRow(next); err != nil {
			rollback()
			return 0, err
		}

		if !sameIndexValue(prev[0], next[0]) {
			t.index.remove(prev[0], id)
			t.index.add(next[0], id)
		}
		t.slots[id] = next
		journal = append(journal, journalEntry{id: id, prev: prev})
	}

	if len(journal) > 0 {
		t.dirty = true
	}
	return int64(len(journal)), nil
}

func sameIndexValue(a, b record.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	return a.Equal(b)
}

// Delete marks every row selected by pred as ghost, drops its index entry
// and hands its slot to the freelist.
func (t *Table) Delete(pred record.Expr) (int64, error) {
	matches, err := t.collect(pred)
	if err != nil {
		return 0, err
	}

	for _, id := range matches {
		row := t.slots[id]
		t.index.remove(row[0], id)
		t.slots[id] = nil
		t.freelist.Add(id)
	}

	if len(matches) > 0 {
		t.dirty = true
	}
	return int64(len(matches)), nil
}

// collect resolves pred to a stable list of slot ids before any mutation.
func (t *Table) collect(pred record.Expr) ([]uint32, error) {
	var ids []uint32
	err := t.Find(pred, func(id uint32, _ record.Row) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
