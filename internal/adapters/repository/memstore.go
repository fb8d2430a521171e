package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/okian/evalmatrix/internal/domain/types"
	"github.com/okian/evalmatrix/pkg/metrics"
)

type entry struct {
	session  *model.Session
	analysis types.AnalysisView
	gen      uint64
}

// MemoryStore is a mutex-guarded map of sessions.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	maxSessions int
	newID       func() string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*entry),
		newID:    defaultID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements Store.
func (m *MemoryStore) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	if s == nil {
		return nil, ErrNilSession
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("%w: limit %d", ErrCapacity, m.maxSessions)
	}
	stored := s.Clone()
	if stored.ID == "" {
		stored.ID = m.newID()
	}
	if _, exists := m.sessions[stored.ID]; exists {
		return nil, fmt.Errorf("session %s already exists", stored.ID)
	}
	m.sessions[stored.ID] = &entry{
		session:  stored,
		analysis: types.AnalysisView{Status: types.AnalysisIdle},
	}
	metrics.RecordSessionCreated()
	return stored.Clone(), nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.session.Clone(), nil
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	return m.Replace(ctx, id, func(cur *model.Session) (*model.Session, error) {
		if err := fn(cur); err != nil {
			return nil, err
		}
		return cur, nil
	})
}

// Replace implements Store.
func (m *MemoryStore) Replace(ctx context.Context, id string, fn func(*model.Session) (*model.Session, error)) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next, err := fn(e.session.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, ErrNilSession
	}
	next.ID = id
	e.session = next
	return next.Clone(), nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.sessions, id)
	metrics.RecordSessionDeleted()
	return nil
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// BeginAnalysis implements Store.
func (m *MemoryStore) BeginAnalysis(_ context.Context, id string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.gen++
	e.analysis = types.AnalysisView{
		Status:    types.AnalysisPending,
		Result:    e.analysis.Result,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return e.gen, nil
}

// FinishAnalysis implements Store.
func (m *MemoryStore) FinishAnalysis(_ context.Context, id string, gen uint64, view types.AnalysisView) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.gen != gen {
		return ErrStaleResult
	}
	if view.UpdatedAt == "" {
		view.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	e.analysis = view
	return nil
}

// Analysis implements Store.
func (m *MemoryStore) Analysis(_ context.Context, id string) (types.AnalysisView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return types.AnalysisView{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.analysis, nil
}
