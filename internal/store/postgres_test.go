package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/postgres"
)

// docTable is an in-memory stand-in for the documents table. A nil content
// value is a NULL column.
type docTable struct {
	mu      sync.Mutex
	names   []string
	content map[string]driver.Value
	// iterErr is returned once every row has been read.
	iterErr error
	created bool
}

func (d *docTable) put(name string, content driver.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.content[name]; !ok {
		d.names = append(d.names, name)
	}
	d.content[name] = content
}

var (
	registerDriver sync.Once
	tablesMu       sync.Mutex
	tables         = map[string]*docTable{}
)

type tableDriver struct{}

func (tableDriver) Open(dsn string) (driver.Conn, error) {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	t, ok := tables[dsn]
	if !ok {
		return nil, errors.New("no such table set")
	}
	return &tableConn{table: t}, nil
}

type tableConn struct{ table *docTable }

func (c *tableConn) Prepare(query string) (driver.Stmt, error) {
	return &tableStmt{table: c.table, query: query}, nil
}
func (c *tableConn) Close() error              { return nil }
func (c *tableConn) Begin() (driver.Tx, error) { return tableTx{}, nil }

type tableTx struct{}

func (tableTx) Commit() error   { return nil }
func (tableTx) Rollback() error { return nil }

type tableStmt struct {
	table *docTable
	query string
}

func (s *tableStmt) Close() error  { return nil }
func (s *tableStmt) NumInput() int { return -1 }

func (s *tableStmt) Exec(args []driver.Value) (driver.Result, error) {
	switch {
	case strings.HasPrefix(s.query, "CREATE TABLE"):
		s.table.mu.Lock()
		s.table.created = true
		s.table.mu.Unlock()
	case strings.HasPrefix(s.query, "INSERT"):
		s.table.put(args[0].(string), args[1])
	default:
		return nil, errors.New("unexpected statement: " + s.query)
	}
	return driver.RowsAffected(1), nil
}

func (s *tableStmt) Query(args []driver.Value) (driver.Rows, error) {
	t := s.table
	t.mu.Lock()
	defer t.mu.Unlock()
	if strings.Contains(s.query, "WHERE name = $1") {
		content, ok := t.content[args[0].(string)]
		if !ok {
			return &tableRows{cols: []string{"content"}}, nil
		}
		return &tableRows{cols: []string{"content"}, values: [][]driver.Value{{content}}}, nil
	}
	rows := &tableRows{cols: []string{"name", "content"}, err: t.iterErr}
	for _, name := range t.names {
		rows.values = append(rows.values, []driver.Value{name, t.content[name]})
	}
	return rows, nil
}

type tableRows struct {
	cols   []string
	values [][]driver.Value
	err    error
}

func (r *tableRows) Columns() []string { return r.cols }
func (r *tableRows) Close() error      { return nil }

func (r *tableRows) Next(dest []driver.Value) error {
	if len(r.values) == 0 {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.values[0])
	r.values = r.values[1:]
	return nil
}

func newTableStore(t *testing.T, rows map[string]driver.Value, order ...string) (*PostgresStore, *docTable) {
	t.Helper()
	registerDriver.Do(func() { sql.Register("termsearch-table", tableDriver{}) })

	table := &docTable{content: map[string]driver.Value{}}
	for _, name := range order {
		table.put(name, rows[name])
	}
	tablesMu.Lock()
	tables[t.Name()] = table
	tablesMu.Unlock()

	db, err := sql.Open("termsearch-table", t.Name())
	require.NoError(t, err)
	s := NewPostgresStore(postgres.FromDB(db), "documents")
	t.Cleanup(func() { _ = s.Close() })
	return s, table
}

func TestPostgresStoreWalkAndFetch(t *testing.T) {
	s, _ := newTableStore(t, map[string]driver.Value{
		"007": "the cat sat",
		"2":   "a dog barked",
	}, "007", "2")

	docs, err := collect(t, s)
	require.NoError(t, err)
	require.Equal(t, []Document{
		{ID: 7, Name: "007", Text: "the cat sat"},
		{ID: 2, Name: "2", Text: "a dog barked"},
	}, docs)

	text, err := s.Fetch(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "the cat sat", text)
}

func TestPostgresStoreWalkNullContent(t *testing.T) {
	s, _ := newTableStore(t, map[string]driver.Value{"1": "ok", "2": nil}, "1", "2")

	_, err := collect(t, s)
	require.ErrorIs(t, err, apperrors.ErrMalformedDocument)
}

func TestPostgresStoreWalkBadName(t *testing.T) {
	s, _ := newTableStore(t, map[string]driver.Value{"notes": "text"}, "notes")

	_, err := collect(t, s)
	require.ErrorIs(t, err, apperrors.ErrMalformedDocument)
}

func TestPostgresStoreWalkIterationError(t *testing.T) {
	s, table := newTableStore(t, map[string]driver.Value{"1": "first"}, "1")
	table.iterErr = errors.New("connection reset by peer")

	docs, err := collect(t, s)
	require.ErrorIs(t, err, apperrors.ErrEmptyOrMissingStore)
	require.Len(t, docs, 1)
}

func TestPostgresStoreFetchMissingRow(t *testing.T) {
	s, table := newTableStore(t, map[string]driver.Value{"1": "first"}, "1")
	_, err := collect(t, s)
	require.NoError(t, err)

	table.mu.Lock()
	delete(table.content, "1")
	table.mu.Unlock()

	_, err = s.Fetch(context.Background(), 1)
	require.ErrorIs(t, err, apperrors.ErrDocumentUnavailable)

	_, err = s.Fetch(context.Background(), 99)
	require.ErrorIs(t, err, apperrors.ErrDocumentUnavailable)
}

func TestPostgresStoreFetchNullContent(t *testing.T) {
	s, table := newTableStore(t, map[string]driver.Value{"1": "first"}, "1")
	table.put("1", nil)

	_, err := s.Fetch(context.Background(), 1)
	require.ErrorIs(t, err, apperrors.ErrDocumentUnavailable)
}

func TestPostgresStorePut(t *testing.T) {
	s, table := newTableStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.EnsureSchema(ctx))
	require.True(t, table.created)
	require.NoError(t, s.Put(ctx, []Document{
		{ID: 3, Name: "3", Text: "three"},
		{ID: 4, Name: "4", Text: "four"},
	}))

	docs, err := collect(t, s)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	text, err := s.Fetch(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, "four", text)
}
