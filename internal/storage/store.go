// Package storage keeps the call log in a SQL table as an alternative to
// the spreadsheet.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type dialect struct {
	name   string
	schema string
	insert string
}

// CallLog implements dispatch.LogSink on top of database/sql.
type CallLog struct {
	db   *sql.DB
	d    dialect
	link string
}

// Open connects to driver ("postgres" or "sqlite") and creates the table.
// link is what alerts point at; it may be empty.
func Open(ctx context.Context, driver, dsn, link string) (*CallLog, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		db, err = openPostgres(dsn)
		d = postgresDialect
	case "sqlite":
		db, err = openSQLite(dsn)
		d = sqliteDialect
	default:
		return nil, fmt.Errorf("unsupported log sink driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	c := &CallLog{db: db, d: d, link: link}
	if err := c.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *CallLog) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.db.ExecContext(ctx, c.d.schema); err != nil {
		return fmt.Errorf("create call_log table: %w", err)
	}
	return nil
}

func (c *CallLog) Name() string { return c.d.name }

func (c *CallLog) Link() string { return c.link }

func (c *CallLog) Append(ctx context.Context, at, callerID, label string) error {
	res, err := c.db.ExecContext(ctx, c.d.insert, at, callerID, label)
	if err != nil {
		return fmt.Errorf("insert call_log row: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return errors.New("insert call_log row: no row written")
	}
	return nil
}

func (c *CallLog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
