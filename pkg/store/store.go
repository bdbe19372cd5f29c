// Package store persists completed requests and their answers.
package store

import (
	"context"

	"github.com/mvarela/armada/pkg/domain"
)

// HistoryStore records completed requests for later inspection.
type HistoryStore interface {
	// Record persists a completed request. The ID field must be set by the
	// caller.
	Record(ctx context.Context, rec *domain.RequestRecord) error

	// Get retrieves a record by its unique ID.
	// Returns an error if the record does not exist.
	Get(ctx context.Context, id string) (*domain.RequestRecord, error)

	// List returns records ordered by creation time descending. If limit > 0,
	// returns at most that many.
	List(ctx context.Context, limit int) ([]domain.RequestRecord, error)
}
