package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvarela/armada/pkg/domain"
)

const fleetCSV = `name,type,year,tonnage
Santa Maria,carrack,1492,108
Nina,caravel,1492,60
Pinta,caravel,1492,70
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "fleet.csv")
	if err := os.WriteFile(csvPath, []byte(fleetCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Open(filepath.Join(dir, "dataset.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.LoadCSV(context.Background(), csvPath, "fleet"); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadCSVAndSchema(t *testing.T) {
	s := newTestStore(t)

	schema, err := s.Schema(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := "fleet(name, type, year, tonnage)\n"
	if schema != want {
		t.Errorf("Schema() = %q, want %q", schema, want)
	}
}

func TestLoadCSVReplacesTable(t *testing.T) {
	s := newTestStore(t)

	// Reload a differently shaped CSV under the same table name.
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "fleet2.csv")
	if err := os.WriteFile(csvPath, []byte("name,captain\nSanta Maria,Columbus\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadCSV(context.Background(), csvPath, "fleet"); err != nil {
		t.Fatal(err)
	}

	schema, err := s.Schema(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if schema != "fleet(name, captain)\n" {
		t.Errorf("Schema() after reload = %q", schema)
	}
}

func TestQueryRows(t *testing.T) {
	s := newTestStore(t)

	p := s.Query(context.Background(), "SELECT name, type FROM fleet ORDER BY name")
	if p.Kind != domain.PayloadRows {
		t.Fatalf("Kind = %q (%s)", p.Kind, p.Err)
	}
	if len(p.Rows) != 3 {
		t.Fatalf("got %d rows", len(p.Rows))
	}
	if p.Rows[0]["name"] != "Nina" || p.Rows[0]["type"] != "caravel" {
		t.Errorf("first row = %v", p.Rows[0])
	}
}

func TestQueryScalar(t *testing.T) {
	s := newTestStore(t)

	p := s.Query(context.Background(), "SELECT count(*) FROM fleet")
	if p.Kind != domain.PayloadScalar {
		t.Fatalf("Kind = %q (%s)", p.Kind, p.Err)
	}
	if p.Scalar != "3" {
		t.Errorf("Scalar = %q, want 3", p.Scalar)
	}
}

func TestQueryEmptyResultIsRows(t *testing.T) {
	s := newTestStore(t)

	p := s.Query(context.Background(), "SELECT name FROM fleet WHERE year = '1800'")
	if p.Kind != domain.PayloadRows {
		t.Fatalf("Kind = %q (%s)", p.Kind, p.Err)
	}
	if p.Rows == nil || len(p.Rows) != 0 {
		t.Errorf("Rows = %v, want empty non-nil slice", p.Rows)
	}
}

func TestQueryTrailingSemicolonAllowed(t *testing.T) {
	s := newTestStore(t)

	p := s.Query(context.Background(), "SELECT count(*) FROM fleet;  ")
	if p.Kind != domain.PayloadScalar {
		t.Errorf("Kind = %q (%s)", p.Kind, p.Err)
	}
}

func TestQueryRejections(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		name, query, wantErr string
	}{
		{"empty", "   ", "empty query"},
		{"mutation", "DROP TABLE fleet", "only SELECT"},
		{"insert", "INSERT INTO fleet VALUES ('x','y','1','1')", "only SELECT"},
		{"multi statement", "SELECT 1; SELECT 2", "multiple statements"},
		{"bad column", "SELECT nope FROM fleet", "no such column"},
		{"bad table", "SELECT * FROM armada", "no such table"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := s.Query(context.Background(), tc.query)
			if p.Kind != domain.PayloadError {
				t.Fatalf("Kind = %q, want error payload", p.Kind)
			}
			if !strings.Contains(p.Err, tc.wantErr) {
				t.Errorf("Err = %q, want substring %q", p.Err, tc.wantErr)
			}
		})
	}

	// Rejections must not have damaged the table.
	if p := s.Query(context.Background(), "SELECT count(*) FROM fleet"); p.Scalar != "3" {
		t.Errorf("table damaged: %+v", p)
	}
}

func TestQueryCTEAllowed(t *testing.T) {
	s := newTestStore(t)

	p := s.Query(context.Background(), "WITH c AS (SELECT count(*) AS n FROM fleet) SELECT n FROM c")
	if p.Kind != domain.PayloadScalar || p.Scalar != "3" {
		t.Errorf("payload = %+v", p)
	}
}
