package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/store"
)

// Store implements HistoryStore using SQLite.
type Store struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ store.HistoryStore = (*Store)(nil)

// New opens (or creates) a SQLite database at the given path and runs
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL DEFAULT '',
		intent TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Record(ctx context.Context, rec *domain.RequestRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (id, query, intent, text, image, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, string(rec.Intent), rec.Text, rec.Image, rec.Error,
		rec.Duration.Milliseconds(), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting request record: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.RequestRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, intent, text, image, error, duration_ms, created_at
		 FROM requests WHERE id = ?`, id)
	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("request %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting request record: %w", err)
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]domain.RequestRecord, error) {
	q := `SELECT id, query, intent, text, image, error, duration_ms, created_at
	      FROM requests ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing request records: %w", err)
	}
	defer rows.Close()

	var recs []domain.RequestRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func scanRecord(scan func(...any) error) (*domain.RequestRecord, error) {
	var (
		rec        domain.RequestRecord
		intent     string
		durationMS int64
	)
	if err := scan(&rec.ID, &rec.Query, &intent, &rec.Text, &rec.Image, &rec.Error,
		&durationMS, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Intent = domain.Intent(intent)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}
