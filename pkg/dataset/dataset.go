// Package dataset is the retrieval/query collaborator: a read-mostly SQLite
// database loaded from CSV, queried with the moderator's structured SQL.
// Query failures are reported inside the payload, never as Go errors, so the
// pipeline can reason over state alone.
package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mvarela/armada/pkg/domain"
)

// Store holds the queryable dataset.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the dataset database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadCSV (re)creates table from the CSV file at csvPath. The first record
// is the header; every column is stored as TEXT.
func (s *Store) LoadCSV(ctx context.Context, csvPath, table string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) == 0 {
		return fmt.Errorf("csv %s has no columns", csvPath)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = quoteIdent(strings.TrimSpace(h)) + " TEXT"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning load tx: %w", err)
	}
	defer tx.Rollback()

	qTable := quoteIdent(table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+qTable); err != nil {
		return fmt.Errorf("dropping old table: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("CREATE TABLE %s (%s)", qTable, strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(header)), ",")
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s VALUES (%s)", qTable, placeholders))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading csv row: %w", err)
		}
		args := make([]any, len(header))
		for i := range header {
			if i < len(record) {
				args[i] = record[i]
			} else {
				args[i] = ""
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting csv row: %w", err)
		}
	}

	return tx.Commit()
}

// Schema describes the loaded tables and their columns, for inclusion in
// moderator prompts.
func (s *Store) Schema(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, table := range tables {
		cols, err := s.columns(ctx, table)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s(%s)\n", table, strings.Join(cols, ", "))
	}
	return b.String(), nil
}

func (s *Store) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("describing table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// Query runs a structured query and classifies the outcome into a payload.
// Only single SELECT statements are allowed; anything else, and any SQL
// error, comes back as a PayloadError — the collaborator reports failures
// in-band.
func (s *Store) Query(ctx context.Context, query string) domain.Payload {
	query = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if query == "" {
		return errPayload("empty query")
	}
	lower := strings.ToLower(query)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return errPayload("only SELECT queries are allowed")
	}
	if strings.Contains(query, ";") {
		return errPayload("multiple statements are not allowed")
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return errPayload(fmt.Sprintf("query failed: %v", err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return errPayload(fmt.Sprintf("reading columns: %v", err))
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return errPayload(fmt.Sprintf("scanning row: %v", err))
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return errPayload(fmt.Sprintf("iterating rows: %v", err))
	}

	// A single cell is a scalar answer; everything else is tabular.
	if len(result) == 1 && len(cols) == 1 {
		return domain.Payload{
			Kind:   domain.PayloadScalar,
			Scalar: fmt.Sprint(result[0][cols[0]]),
		}
	}
	if result == nil {
		result = []map[string]any{}
	}
	return domain.Payload{Kind: domain.PayloadRows, Rows: result}
}

func errPayload(msg string) domain.Payload {
	return domain.Payload{Kind: domain.PayloadError, Err: msg}
}

// quoteIdent quotes a SQL identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
