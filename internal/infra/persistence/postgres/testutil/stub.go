// Package testutil provides a database/sql driver that emulates the Postgres
// state table so the snapshot sink can be tested without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync/atomic"
)

const (
	upsertPrefix = "INSERT INTO STATE"
	selectPrefix = "SELECT BUCKET, PAYLOAD FROM STATE"
)

var driverSeq atomic.Int64

// StateConn keeps one payload per bucket and records every executed statement.
// Setting one of the error fields makes the matching driver call fail.
type StateConn struct {
	Statements []string
	Buckets    map[string]string

	PingErr   error
	ExecErr   error
	UpsertErr error
	QueryErr  error
	BeginErr  error
	CommitErr error
	RowsErr   error
}

// NewStateDB registers a uniquely named driver and opens a sql.DB on it.
func NewStateDB() (*sql.DB, *StateConn) {
	conn := &StateConn{Buckets: make(map[string]string)}
	name := fmt.Sprintf("statepg%d", driverSeq.Add(1))
	sql.Register(name, stateDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stateDriver struct {
	conn *StateConn
}

func (d stateDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn; only the context-aware paths are supported.
func (c *StateConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

// Close implements driver.Conn.
func (c *StateConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StateConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx.
func (c *StateConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	return stateTx{conn: c}, nil
}

// Ping implements driver.Pinger.
func (c *StateConn) Ping(context.Context) error { return c.PingErr }

// ExecContext accepts DDL verbatim and applies bucket upserts.
func (c *StateConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Statements = append(c.Statements, query)
	if c.ExecErr != nil {
		return nil, c.ExecErr
	}
	if !strings.HasPrefix(normalize(query), upsertPrefix) {
		return driver.RowsAffected(0), nil
	}
	if c.UpsertErr != nil {
		return nil, c.UpsertErr
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("upsert expects bucket and payload, got %d args", len(args))
	}
	bucket, ok := args[0].Value.(string)
	if !ok {
		return nil, fmt.Errorf("bucket must be text, got %T", args[0].Value)
	}
	payload, ok := args[1].Value.(string)
	if !ok {
		return nil, fmt.Errorf("payload must be text, got %T", args[1].Value)
	}
	c.Buckets[bucket] = payload
	return driver.RowsAffected(1), nil
}

// QueryContext serves the bucket listing in bucket order.
func (c *StateConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if c.QueryErr != nil {
		return nil, c.QueryErr
	}
	if !strings.HasPrefix(normalize(query), selectPrefix) {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	names := make([]string, 0, len(c.Buckets))
	for name := range c.Buckets {
		names = append(names, name)
	}
	slices.Sort(names)
	rows := make([][2]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, [2]string{name, c.Buckets[name]})
	}
	return &stateRows{rows: rows, err: c.RowsErr}, nil
}

func normalize(query string) string {
	return strings.ToUpper(strings.Join(strings.Fields(query), " "))
}

type stateTx struct {
	conn *StateConn
}

func (t stateTx) Commit() error   { return t.conn.CommitErr }
func (t stateTx) Rollback() error { return nil }

type stateRows struct {
	rows [][2]string
	next int
	err  error
}

func (r *stateRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stateRows) Close() error      { return nil }

func (r *stateRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	dest[0] = r.rows[r.next][0]
	dest[1] = []byte(r.rows[r.next][1])
	r.next++
	return nil
}
