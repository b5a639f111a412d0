package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"expensetracker/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL database flavour behind a SQLStore.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

func (d Dialect) insertStatement() string {
	if d == Postgres {
		return `INSERT INTO expenses (position, date, category, amount) VALUES ($1, $2, $3, $4)`
	}
	return `INSERT INTO expenses (position, date, category, amount) VALUES (?, ?, ?, ?)`
}

// SQLStore keeps the ledger in an "expenses" table. Save rewrites the whole
// table inside one transaction; position preserves record order.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (or creates) a SQLite database file and migrates it.
func OpenSQLite(dbPath string) (*SQLStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	return openSQL(SQLite, dbPath)
}

// OpenPostgres connects to a Postgres database and migrates it.
func OpenPostgres(dsn string) (*SQLStore, error) {
	return openSQL(Postgres, dsn)
}

func openSQL(d Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns every stored record ordered by position. An empty table
// yields an empty slice.
func (s *SQLStore) Load(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, category, amount FROM expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.Date, &e.Category, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// Save replaces the table content with records.
func (s *SQLStore) Save(ctx context.Context, records []core.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.insertStatement())
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range records {
		if _, err := stmt.ExecContext(ctx, i, e.Date, e.Category, e.Amount); err != nil {
			return fmt.Errorf("insert expense %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
