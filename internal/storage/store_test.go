package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLog(t *testing.T, d dialect) (*CallLog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &CallLog{db: db, d: d, link: "https://calls.example"}, mock
}

func TestCallLog_AppendByDialect(t *testing.T) {
	tests := []struct {
		name  string
		d     dialect
		query string
	}{
		{"postgres", postgresDialect, "VALUES ($1, $2, $3)"},
		{"sqlite", sqliteDialect, "VALUES (?, ?, ?)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newMockLog(t, tt.d)
			mock.ExpectExec(regexp.QuoteMeta(tt.query)).
				WithArgs("2025-01-29 14:05:09 UTC", "C1", "No Value").
				WillReturnResult(sqlmock.NewResult(1, 1))

			require.NoError(t, c.Append(context.Background(), "2025-01-29 14:05:09 UTC", "C1", "No Value"))
			assert.NoError(t, mock.ExpectationsWereMet())
			assert.Equal(t, tt.name, c.Name())
		})
	}
}

func TestCallLog_AppendError(t *testing.T) {
	c, mock := newMockLog(t, postgresDialect)
	mock.ExpectExec("INSERT INTO call_log").WillReturnError(errors.New("connection reset"))

	err := c.Append(context.Background(), "t", "C1", "No Value")
	assert.ErrorContains(t, err, "connection reset")
}

func TestCallLog_Init(t *testing.T) {
	c, mock := newMockLog(t, postgresDialect)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS call_log").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, c.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "https://calls.example", c.Link())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "", "")
	assert.ErrorContains(t, err, "unsupported")
}

func TestOpen_BadPostgresDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "postgres://user@host:notaport/db", "")
	assert.Error(t, err)
}

func TestOpen_SQLiteInMemory(t *testing.T) {
	c, err := Open(context.Background(), "sqlite", "file::memory:", "")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Append(context.Background(), "t1", "C1", "No Value"))
	require.NoError(t, c.Append(context.Background(), "t2", "C2", "Matched Target"))

	var n int
	require.NoError(t, c.db.QueryRow(`SELECT COUNT(*) FROM call_log`).Scan(&n))
	assert.Equal(t, 2, n)
}
