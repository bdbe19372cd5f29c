package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mvarela/armada/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &domain.RequestRecord{
		ID:       "req-1",
		Query:    "how many ships?",
		Intent:   domain.IntentText,
		Text:     "3 ships found.",
		Duration: 1250 * time.Millisecond,
	}
	if err := s.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Record did not stamp CreatedAt")
	}

	got, err := s.Get(ctx, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Query != rec.Query || got.Intent != rec.Intent || got.Text != rec.Text {
		t.Errorf("Get() = %+v", got)
	}
	if got.Duration != 1250*time.Millisecond {
		t.Errorf("Duration = %v", got.Duration)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for missing record")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestListOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := &domain.RequestRecord{
			ID:        id,
			Query:     "q-" + id,
			Intent:    domain.IntentText,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].ID != "c" || recs[2].ID != "a" {
		t.Errorf("order = %s, %s, %s, want newest first", recs[0].ID, recs[1].ID, recs[2].ID)
	}

	recs, err = s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "c" {
		t.Errorf("limited list = %+v", recs)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &domain.RequestRecord{ID: "dup", Intent: domain.IntentText}
	if err := s.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, &domain.RequestRecord{ID: "dup", Intent: domain.IntentText}); err == nil {
		t.Error("duplicate ID accepted")
	}
}
