package executor

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/bongodb/internal/bongoerr"
	"github.com/tuannm99/bongodb/internal/catalog"
	"github.com/tuannm99/bongodb/internal/lock"
	"github.com/tuannm99/bongodb/internal/record"
)

func newExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	dir := t.TempDir()
	cat, err := catalog.OpenOrCreate(dir, true)
	require.NoError(t, err)
	return New(cat, lock.NewController(), false), dir
}

func mustExec(t *testing.T, e *Executor, sql string) *Result {
	t.Helper()
	res, err := e.ExecSQL(sql)
	require.NoError(t, err, sql)
	return res
}

func seedPerson(t *testing.T, e *Executor) {
	t.Helper()
	mustExec(t, e,
		"CREATE TABLE Person (id INT, name VARCHAR(255), married BOOLEAN, grade INT);")
	mustExec(t, e, `INSERT INTO Person (id, name, married, grade) VALUES
		(1, 'James', TRUE, 3),
		(2, 'Karl', FALSE, NULL),
		(3, 'Sarah', TRUE, NULL),
		(4, 'Ana', FALSE, 1);`)
}

func names(res *Result, pos int) []string {
	out := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, row[pos].Str)
	}
	return out
}

func TestCreateInsertSelect(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	res := mustExec(t, e, "SELECT * FROM Person;")
	assert.True(t, res.IsQuery())
	assert.Equal(t, []string{"id", "name", "married", "grade"}, res.Columns)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, record.NewInt(1), res.Rows[0][0])
	assert.Equal(t, record.Null(), res.Rows[1][3])
}

func TestSelectProjectionAndWhere(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	res := mustExec(t, e, "SELECT name FROM Person WHERE married = TRUE;")
	assert.Equal(t, []string{"name"}, res.Columns)
	assert.Equal(t, []string{"James", "Sarah"}, names(res, 0))

	// NULL comparisons select nothing
	res = mustExec(t, e, "SELECT name FROM Person WHERE grade = NULL;")
	assert.Empty(t, res.Rows)
	assert.NotNil(t, res.Rows, "query result rows are never nil")

	// three-valued logic: grade null AND married, null AND true is null
	res = mustExec(t, e, "SELECT name FROM Person WHERE grade > 0 AND married = TRUE;")
	assert.Equal(t, []string{"James"}, names(res, 0))

	// null OR true is true: Sarah's grade is null but she is married
	res = mustExec(t, e, "SELECT name FROM Person WHERE grade > 0 OR married = TRUE;")
	assert.Equal(t, []string{"James", "Sarah", "Ana"}, names(res, 0))
}

func TestSelectIndexProbe(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	res := mustExec(t, e, "SELECT name FROM Person WHERE id = 2;")
	assert.Equal(t, []string{"Karl"}, names(res, 0))

	// literal on the left still probes the same rows
	res = mustExec(t, e, "SELECT name FROM Person WHERE 2 = id;")
	assert.Equal(t, []string{"Karl"}, names(res, 0))

	res = mustExec(t, e, "SELECT name FROM Person WHERE id != 2;")
	assert.Equal(t, []string{"James", "Sarah", "Ana"}, names(res, 0))
}

func TestSelectOrderBy(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	// ASC: nulls last, ties keep slot order (stable sort)
	res := mustExec(t, e, "SELECT name FROM Person ORDER BY grade;")
	assert.Equal(t, []string{"Ana", "James", "Karl", "Sarah"}, names(res, 0))

	// DESC: reverse of ASC, nulls first
	res = mustExec(t, e, "SELECT name FROM Person ORDER BY grade DESC;")
	assert.Equal(t, []string{"Karl", "Sarah", "James", "Ana"}, names(res, 0))

	// ordering by a non-projected column works
	res = mustExec(t, e, "SELECT id FROM Person ORDER BY name;")
	assert.Equal(t, record.NewInt(4), res.Rows[0][0], "Ana sorts first")
}

func TestSelectErrors(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	_, err := e.ExecSQL("SELECT nope FROM Person;")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))

	_, err = e.ExecSQL("SELECT * FROM Person ORDER BY nope;")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))

	_, err = e.ExecSQL("SELECT * FROM Ghost;")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))

	// type mismatch in the predicate
	_, err = e.ExecSQL("SELECT * FROM Person WHERE id = 'one';")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Type, bongoerr.KindOf(err))
}

func TestInsertValidation(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	// column list must match schema order exactly
	_, err := e.ExecSQL("INSERT INTO Person (name, id, married, grade) VALUES ('x', 9, TRUE, 1);")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))

	_, err = e.ExecSQL("INSERT INTO Person (id, name) VALUES (9, 'x');")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))

	// a bad value in the second row rejects the whole statement
	_, err = e.ExecSQL(`INSERT INTO Person (id, name, married, grade) VALUES
		(9, 'ok', TRUE, 1),
		(10, 'bad', 'not a bool', 1);`)
	require.Error(t, err)
	assert.Equal(t, bongoerr.Type, bongoerr.KindOf(err))

	res := mustExec(t, e, "SELECT * FROM Person;")
	assert.Len(t, res.Rows, 4, "failed INSERT must not add any row")
}

func TestInsertVarcharOverflow(t *testing.T) {
	e, _ := newExecutor(t)
	mustExec(t, e, "CREATE TABLE t (s VARCHAR(3));")

	_, err := e.ExecSQL("INSERT INTO t (s) VALUES ('toolong');")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Type, bongoerr.KindOf(err))
}

func TestUpdateAndDelete(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	res := mustExec(t, e, "UPDATE Person SET grade = 2 WHERE married = FALSE;")
	assert.False(t, res.IsQuery())
	assert.Equal(t, int64(2), res.AffectedRows)

	sel := mustExec(t, e, "SELECT name FROM Person WHERE grade = 2;")
	assert.Equal(t, []string{"Karl", "Ana"}, names(sel, 0))

	res = mustExec(t, e, "DELETE FROM Person WHERE grade = 2;")
	assert.Equal(t, int64(2), res.AffectedRows)

	sel = mustExec(t, e, "SELECT name FROM Person;")
	assert.Equal(t, []string{"James", "Sarah"}, names(sel, 0))

	// ghost slots are recycled on the next insert
	mustExec(t, e, "INSERT INTO Person (id, name, married, grade) VALUES (5, 'Eve', TRUE, 7);")
	sel = mustExec(t, e, "SELECT name FROM Person WHERE id = 5;")
	assert.Equal(t, []string{"Eve"}, names(sel, 0))
}

func TestUpdateIndexedColumn(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	mustExec(t, e, "UPDATE Person SET id = 20 WHERE id = 2;")

	res := mustExec(t, e, "SELECT name FROM Person WHERE id = 20;")
	assert.Equal(t, []string{"Karl"}, names(res, 0))
	res = mustExec(t, e, "SELECT name FROM Person WHERE id = 2;")
	assert.Empty(t, res.Rows)
}

func TestUpdateTypeError(t *testing.T) {
	e, _ := newExecutor(t)
	seedPerson(t, e)

	_, err := e.ExecSQL("UPDATE Person SET grade = 'high';")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Type, bongoerr.KindOf(err))

	// nothing changed
	res := mustExec(t, e, "SELECT grade FROM Person WHERE id = 1;")
	assert.Equal(t, record.NewInt(3), res.Rows[0][0])
}

func TestCreateTableErrors(t *testing.T) {
	e, _ := newExecutor(t)
	mustExec(t, e, "CREATE TABLE t (a INT);")

	_, err := e.ExecSQL("CREATE TABLE t (a INT);")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))

	_, err = e.ExecSQL("CREATE TABLE dup (a INT, a BOOLEAN);")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))
}

func TestDropTableAtomicity(t *testing.T) {
	e, _ := newExecutor(t)
	mustExec(t, e, "CREATE TABLE a (x INT);")
	mustExec(t, e, "CREATE TABLE b (x INT);")

	// one unknown name fails the whole statement before any drop
	_, err := e.ExecSQL("DROP TABLE a, ghost;")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))
	mustExec(t, e, "SELECT * FROM a;")

	res := mustExec(t, e, "DROP TABLE a, b;")
	assert.Equal(t, int64(2), res.AffectedRows)
	_, err = e.ExecSQL("SELECT * FROM a;")
	require.Error(t, err)
}

func TestFlushPersistsAcrossReopen(t *testing.T) {
	e, dir := newExecutor(t)
	seedPerson(t, e)
	mustExec(t, e, "FLUSH;")

	assert.FileExists(t, filepath.Join(dir, "Person.bongo"))

	cat, err := catalog.OpenOrCreate(dir, false)
	require.NoError(t, err)
	e2 := New(cat, lock.NewController(), false)

	res := mustExec(t, e2, "SELECT name FROM Person ORDER BY id;")
	assert.Equal(t, []string{"James", "Karl", "Sarah", "Ana"}, names(res, 0))
}

func TestAutoFlush(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.OpenOrCreate(dir, true)
	require.NoError(t, err)
	e := New(cat, lock.NewController(), true)

	mustExec(t, e, "CREATE TABLE t (a INT);")
	mustExec(t, e, "INSERT INTO t (a) VALUES (1);")

	// no explicit FLUSH; everything is already on disk
	cat2, err := catalog.OpenOrCreate(dir, false)
	require.NoError(t, err)
	e2 := New(cat2, lock.NewController(), false)
	res := mustExec(t, e2, "SELECT a FROM t;")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, record.NewInt(1), res.Rows[0][0])
}

// Writers and a FLUSH loop race on the same table; FLUSH must wait out every
// in-flight table-lock holder before reading table state. Run with -race.
func TestConcurrentWritersAndFlush(t *testing.T) {
	e, _ := newExecutor(t)
	mustExec(t, e, "CREATE TABLE t (a INT, b VARCHAR(32));")

	const writers = 4
	var writerWG sync.WaitGroup
	for w := 0; w < writers; w++ {
		writerWG.Add(1)
		go func(seed int) {
			defer writerWG.Done()
			for i := 0; i < 25; i++ {
				key := seed*1000 + i
				for _, sql := range []string{
					fmt.Sprintf("INSERT INTO t (a, b) VALUES (%d, 'w');", key),
					fmt.Sprintf("UPDATE t SET b = 'x' WHERE a = %d;", key),
					fmt.Sprintf("DELETE FROM t WHERE a = %d;", key),
				} {
					if _, err := e.ExecSQL(sql); err != nil {
						t.Errorf("%s: %v", sql, err)
						return
					}
				}
			}
		}(w)
	}

	stopFlush := make(chan struct{})
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		for {
			select {
			case <-stopFlush:
				return
			default:
			}
			if _, err := e.ExecSQL("FLUSH;"); err != nil {
				t.Errorf("flush: %v", err)
				return
			}
		}
	}()

	writerWG.Wait()
	close(stopFlush)
	<-flushDone

	res := mustExec(t, e, "SELECT a FROM t;")
	assert.Empty(t, res.Rows, "every writer deletes what it inserted")
}

// DROP must drain the in-flight statement holding the table lock; writers
// racing the drop either succeed or fail with unknown-table, never crash.
func TestDropTableDuringWrites(t *testing.T) {
	e, _ := newExecutor(t)
	mustExec(t, e, "CREATE TABLE t (a INT);")

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := e.ExecSQL("INSERT INTO t (a) VALUES (1);"); err != nil {
					return // table dropped out from under us
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	mustExec(t, e, "DROP TABLE t;")
	wg.Wait()

	_, err := e.ExecSQL("SELECT * FROM t;")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Schema, bongoerr.KindOf(err))
}

func TestParseErrorSurfacesAsParseKind(t *testing.T) {
	e, _ := newExecutor(t)
	_, err := e.ExecSQL("SELEKT * FROM t;")
	require.Error(t, err)
	assert.Equal(t, bongoerr.Parse, bongoerr.KindOf(err))
}
