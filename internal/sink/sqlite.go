package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/ndconvert/internal/column"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added UNIQUE index on ndconvert_columns(table_name, name)
const currentSchemaVersion = 1

// SQLite is a Sink backed by a SQLite file. Scalar columns are stored as
// INTEGER or REAL, list columns as JSON arrays in TEXT columns.
type SQLite struct {
	db  *sql.DB
	seq int64
}

// OpenSQLite creates or opens a SQLite sink at path.
//
// The database is configured with:
//   - WAL mode
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - Foreign key enforcement
//
// Opening an existing output file is allowed; tables already in it must then
// be appended to with the same column set.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLite{db: db}
	if err := db.QueryRow("SELECT COALESCE(MAX(created_seq), 0) FROM ndconvert_tables").Scan(&s.seq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read table sequence: %w", err)
	}
	return s, nil
}

// DB returns the underlying sql.DB for direct queries.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 forbids a column name from appearing twice in one table.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_columns_table_name
		ON ndconvert_columns(table_name, name)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// CreateTable creates the data table and records its column set. If the
// table was created by an earlier run, its recorded column set must match.
func (s *SQLite) CreateTable(ctx context.Context, name string, defs []column.Def) error {
	if s.db == nil {
		return ErrClosed
	}

	existing, err := s.columns(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		if !column.SameDefs(existing, defs) {
			return &SchemaMismatchError{Table: name, Want: existing, Got: defs}
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	defer tx.Rollback()

	colSQL := make([]string, 0, len(defs)+1)
	colSQL = append(colSQL, "row_id INTEGER PRIMARY KEY")
	for _, d := range defs {
		colSQL = append(colSQL, quote(d.Name)+" "+sqlType(d))
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(colSQL, ", "))); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	s.seq++
	if _, err := tx.ExecContext(ctx, `INSERT INTO ndconvert_tables (name, created_seq) VALUES (?, ?)`, name, s.seq); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	for i, d := range defs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ndconvert_columns (table_name, ord, name, type, shape)
			VALUES (?, ?, ?, ?, ?)
		`, name, i, d.Name, string(d.Type), d.Shape.String()); err != nil {
			return fmt.Errorf("create table %s: column %s: %w", name, d.Name, err)
		}
	}

	return tx.Commit()
}

// columns returns the recorded column set of table, or nil if the table
// has not been created.
func (s *SQLite) columns(ctx context.Context, table string) ([]column.Def, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, shape FROM ndconvert_columns
		WHERE table_name = ?
		ORDER BY ord ASC
	`, table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var defs []column.Def
	for rows.Next() {
		var name, typ, shape string
		if err := rows.Scan(&name, &typ, &shape); err != nil {
			return nil, fmt.Errorf("read columns of %s: %w", table, err)
		}
		d := column.Def{Name: name, Type: column.Type(typ), Shape: column.ShapeScalar}
		if shape == column.ShapeList.String() {
			d.Shape = column.ShapeList
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// Append inserts every row of b in one transaction.
func (s *SQLite) Append(ctx context.Context, b *column.Batch) error {
	if s.db == nil {
		return ErrClosed
	}

	names := make([]string, len(b.Cols))
	marks := make([]string, len(b.Cols))
	for i, c := range b.Cols {
		names[i] = quote(c.Name)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(b.Table), strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append %s: %w", b.Table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("append %s: %w", b.Table, err)
	}
	defer stmt.Close()

	args := make([]any, len(b.Cols))
	for r := 0; r < b.Rows(); r++ {
		for i, c := range b.Cols {
			v, err := sqlValue(c.At(r))
			if err != nil {
				return fmt.Errorf("append %s: column %s row %d: %w", b.Table, c.Name, r, err)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("append %s: row %d: %w", b.Table, r, err)
		}
	}

	return tx.Commit()
}

// RecordRun stores a run summary. Inputs and skip counts are stored as JSON.
func (s *SQLite) RecordRun(ctx context.Context, run RunInfo) error {
	if s.db == nil {
		return ErrClosed
	}
	inputs, err := json.Marshal(nonNilStrings(run.Inputs))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	skipped := run.Skipped
	if skipped == nil {
		skipped = map[string]int{}
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ndconvert_runs
		(run_id, inputs, mode, is_data, events, written, skipped, batches)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(inputs),
		run.Mode,
		run.IsData,
		run.Events,
		run.Written,
		string(skippedJSON),
		run.Batches,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func sqlType(d column.Def) string {
	if d.Shape == column.ShapeList {
		return "TEXT"
	}
	if d.Type == column.Float32 {
		return "REAL"
	}
	return "INTEGER"
}

// sqlValue converts one row of a column to a driver value. Lists become
// JSON arrays; an empty list is "[]", never null.
func sqlValue(v any) (any, error) {
	switch x := v.(type) {
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint16:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case []int32:
		return listJSON(x)
	case []int64:
		return listJSON(x)
	case []uint16:
		return listJSON(x)
	case []float32:
		return listJSON(x)
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

func listJSON[T column.Elem](xs []T) (string, error) {
	if len(xs) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(xs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
