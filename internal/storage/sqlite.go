package storage

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

const defaultSQLiteDSN = "file:call_log.db?_pragma=busy_timeout(5000)"

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS call_log (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		time_of_call   TEXT NOT NULL,
		caller_id      TEXT NOT NULL,
		classification TEXT NOT NULL,
		created_at     TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	insert: `INSERT INTO call_log (time_of_call, caller_id, classification) VALUES (?, ?, ?)`,
}

func openSQLite(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = defaultSQLiteDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: writes serialize anyway and :memory: databases are per connection
	db.SetMaxOpenConns(1)
	return db, nil
}
