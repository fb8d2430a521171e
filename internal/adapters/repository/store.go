// Package repository holds evaluation sessions in memory.
package repository

import (
	"context"

	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/okian/evalmatrix/internal/domain/types"
)

// Store provides read/write access to sessions. Sessions handed out are
// copies; changes only take effect through Update or Replace.
type Store interface {
	// Create stores s, assigning an id when s.ID is empty.
	// Returns ErrCapacity when the store is full.
	Create(ctx context.Context, s *model.Session) (*model.Session, error)

	// Get returns a copy of the session. Returns ErrNotFound if unknown.
	Get(ctx context.Context, id string) (*model.Session, error)

	// Update applies fn to a copy and commits it only when fn succeeds.
	Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)

	// Replace commits the session returned by fn, which receives a copy of
	// the current one. The stored id is preserved.
	Replace(ctx context.Context, id string, fn func(*model.Session) (*model.Session, error)) (*model.Session, error)

	// Delete removes the session and its analysis.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored sessions.
	Count(ctx context.Context) int

	// BeginAnalysis marks the analysis view pending and returns a generation
	// token that FinishAnalysis must present.
	BeginAnalysis(ctx context.Context, id string) (uint64, error)

	// FinishAnalysis stores view if gen is still current. Returns
	// ErrStaleResult when a newer analysis has started since.
	FinishAnalysis(ctx context.Context, id string, gen uint64, view types.AnalysisView) error

	// Analysis returns the analysis view kept beside the session.
	Analysis(ctx context.Context, id string) (types.AnalysisView, error)
}
