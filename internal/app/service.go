// Package service wires the evaluation domain to its stores and to the
// background analysis workers. It implements the dependencies required by
// the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/evalmatrix/internal/adapters/mq/queue"
	"github.com/okian/evalmatrix/internal/adapters/mq/worker"
	"github.com/okian/evalmatrix/internal/adapters/repository"
	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/okian/evalmatrix/internal/domain/types"
	"github.com/okian/evalmatrix/internal/report"
	"github.com/okian/evalmatrix/pkg/logger"
	"github.com/okian/evalmatrix/pkg/metrics"
)

// Summarizer is the in-process LLM proxy behind POST /api/analyze.
type Summarizer interface {
	Summarize(ctx context.Context, evaluation []byte) (string, error)
	Model() string
}

// Service owns sessions and schedules their analyses.
type Service struct {
	mu sync.RWMutex

	catalog    *catalog.Catalog
	store      repository.Store
	codec      *codec.Codec
	analyzer   worker.Analyzer
	summarizer Summarizer
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	maxSessions   int
	workerCount   int
	queueCapacity int
	version       string
	proxyModel    string
	proxyTimeout  time.Duration

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCatalog replaces the built-in criteria catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithStore sets the session store. A memory store is built otherwise.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithAnalyzer enables background analyses.
func WithAnalyzer(a worker.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithSummarizer enables the analyze proxy.
func WithSummarizer(sm Summarizer) Option {
	return func(s *Service) {
		if sm != nil {
			s.summarizer = sm
		}
	}
}

// WithProxyModel sets the model name reported by the proxy when the
// summarizer does not name one, including when no key is configured.
func WithProxyModel(name string) Option {
	return func(s *Service) {
		s.proxyModel = name
	}
}

// WithProxyTimeout bounds each proxied summarization call.
func WithProxyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.proxyTimeout = d
		}
	}
}

// WithMaxSessions caps the default memory store.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxSessions = n
		}
	}
}

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize bounds pending analysis jobs.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueCapacity = n
		}
	}
}

// WithVersion sets the version stamped on exports.
func WithVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.version = v
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		catalog:       catalog.Default(),
		maxSessions:   1000,
		workerCount:   4,
		queueCapacity: 64,
		version:       codec.DefaultVersion,
		proxyTimeout:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store, the codec and, when an analyzer is configured,
// the analysis workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Default().Named("service")
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithMaxSessions(s.maxSessions))
	}
	s.codec = codec.New(s.catalog, codec.WithVersion(s.version))

	if s.analyzer != nil {
		s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueCapacity))
		s.pool = worker.NewPool(s.workerCount, s.queue, s.analyzer, s.store,
			worker.WithLogger(s.logger))
		s.pool.Start(context.WithoutCancel(ctx))
	}

	s.started = true
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("criteria", s.catalog.Len()),
		logger.Int("maxSessions", s.maxSessions),
		logger.Bool("analysis", s.analyzer != nil),
		logger.Bool("proxy", s.summarizer != nil),
	)
	return nil
}

// Stop drains queued analyses and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping evaluation service...")

	var err error
	if s.pool != nil {
		err = s.pool.Shutdown(ctx)
	}
	s.started = false
	s.logger.Info(ctx, "evaluation service stopped")
	return err
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Catalog returns the criteria catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Version returns the version stamped on exports.
func (s *Service) Version() string { return s.version }

// CreateSession starts a fresh evaluation.
func (s *Service) CreateSession(ctx context.Context) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.Create(ctx, model.NewSession(s.catalog))
	if err != nil {
		return types.SessionView{}, err
	}
	s.logger.Debug(ctx, "session created", logger.String("session", sess.ID))
	return codec.ToView(sess), nil
}

// Session returns the current view of a session.
func (s *Service) Session(ctx context.Context, id string) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return types.SessionView{}, err
	}
	return codec.ToView(sess), nil
}

// DeleteSession drops a session and its analysis.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// MetaPatch holds optional metadata and narrative changes.
type MetaPatch struct {
	EvaluateeName *string `json:"evaluateeName,omitempty"`
	Role          *string `json:"role,omitempty"`
	Project       *string `json:"project,omitempty"`
	Period        *string `json:"period,omitempty"`
	Evaluator     *string `json:"evaluator,omitempty"`
	CoEvaluator   *string `json:"coEvaluator,omitempty"`
	CreatedAt     *string `json:"createdAt,omitempty"`
	Strengths     *string `json:"strengths,omitempty"`
	FocusAreas    *string `json:"focusAreas,omitempty"`
}

func (p MetaPatch) apply(sess *model.Session) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&sess.Meta.EvaluateeName, p.EvaluateeName)
	set(&sess.Meta.Role, p.Role)
	set(&sess.Meta.Project, p.Project)
	set(&sess.Meta.Period, p.Period)
	set(&sess.Meta.Evaluator, p.Evaluator)
	set(&sess.Meta.CoEvaluator, p.CoEvaluator)
	set(&sess.Meta.CreatedAt, p.CreatedAt)
	set(&sess.Strengths, p.Strengths)
	set(&sess.FocusAreas, p.FocusAreas)
}

// UpdateMeta applies the non-nil fields of patch.
func (s *Service) UpdateMeta(ctx context.Context, id string, patch MetaPatch) (types.SessionView, error) {
	return s.mutate(ctx, id, metrics.KindMeta, func(sess *model.Session) error {
		patch.apply(sess)
		return nil
	})
}

// CriterionPatch holds optional changes to one criterion.
type CriterionPatch struct {
	Score    *int     `json:"score,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Evidence *string  `json:"evidence,omitempty"`
}

// UpdateCriterion applies the non-nil fields of patch to criterion cid.
// The whole patch is rejected if any field is invalid.
func (s *Service) UpdateCriterion(ctx context.Context, id, cid string, patch CriterionPatch) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.Update(ctx, id, func(sess *model.Session) error {
		if _, ok := sess.Criterion(cid); !ok {
			return fmt.Errorf("%w: %s", model.ErrUnknownCriterion, cid)
		}
		if patch.Score != nil {
			sc, err := model.ScoreFrom(*patch.Score)
			if err != nil {
				return err
			}
			if err := sess.SetScore(cid, sc); err != nil {
				return err
			}
		}
		if patch.Weight != nil {
			if _, err := sess.SetWeight(cid, *patch.Weight); err != nil {
				return err
			}
		}
		if patch.Evidence != nil {
			if err := sess.SetEvidence(cid, *patch.Evidence); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return types.SessionView{}, err
	}
	if patch.Score != nil {
		metrics.RecordMutation(metrics.KindScore)
	}
	if patch.Weight != nil {
		metrics.RecordMutation(metrics.KindWeight)
	}
	if patch.Evidence != nil {
		metrics.RecordMutation(metrics.KindEvidence)
	}
	return codec.ToView(sess), nil
}

// ClearScore returns criterion cid to unscored.
func (s *Service) ClearScore(ctx context.Context, id, cid string) (types.SessionView, error) {
	return s.mutate(ctx, id, metrics.KindScore, func(sess *model.Session) error {
		return sess.ClearScore(cid)
	})
}

// PolicyPatch holds optional weighting policy changes.
type PolicyPatch struct {
	UseWeights          *bool `json:"useWeights,omitempty"`
	AllowExtremeWeights *bool `json:"allowExtremeWeights,omitempty"`
}

// SetPolicy toggles weighting and the extended range. Leaving the extended
// range re-clamps every weight.
func (s *Service) SetPolicy(ctx context.Context, id string, patch PolicyPatch) (types.SessionView, error) {
	return s.mutate(ctx, id, metrics.KindPolicy, func(sess *model.Session) error {
		if patch.UseWeights != nil {
			sess.UseWeights = *patch.UseWeights
		}
		if patch.AllowExtremeWeights != nil {
			sess.SetExtendedWeights(*patch.AllowExtremeWeights)
		}
		return nil
	})
}

// ApplyPreset applies a tier's recommended weights, or records "custom".
func (s *Service) ApplyPreset(ctx context.Context, id, preset string) (types.SessionView, error) {
	return s.mutate(ctx, id, metrics.KindPreset, func(sess *model.Session) error {
		return sess.ApplyPreset(preset)
	})
}

// Reset clears scores, evidence and narrative; weights and metadata stay.
func (s *Service) Reset(ctx context.Context, id string) (types.SessionView, error) {
	return s.mutate(ctx, id, metrics.KindReset, func(sess *model.Session) error {
		sess.Reset()
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id, kind string, fn func(*model.Session) error) (types.SessionView, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, err
	}
	sess, err := s.store.Update(ctx, id, fn)
	if err != nil {
		return types.SessionView{}, err
	}
	metrics.RecordMutation(kind)
	return codec.ToView(sess), nil
}

// Snapshot returns the exchange document of a session.
func (s *Service) Snapshot(ctx context.Context, id string) (types.Snapshot, error) {
	if err := s.ready(); err != nil {
		return types.Snapshot{}, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return types.Snapshot{}, err
	}
	return s.codec.ToSnapshot(sess), nil
}

// Export returns the indented JSON exchange document of a session.
func (s *Service) Export(ctx context.Context, id string) ([]byte, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.codec.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("export session %s: %w", id, err)
	}
	metrics.RecordExport()
	return out, nil
}

// Import merges an exchange document into the session. A malformed document
// leaves the session untouched.
func (s *Service) Import(ctx context.Context, id string, data []byte) (types.SessionView, codec.ImportStats, error) {
	if err := s.ready(); err != nil {
		return types.SessionView{}, codec.ImportStats{}, err
	}

	var stats codec.ImportStats
	sess, err := s.store.Replace(ctx, id, func(cur *model.Session) (*model.Session, error) {
		next, st, err := s.codec.FromSnapshot(data, cur)
		stats = st
		return next, err
	})
	if err != nil {
		if errors.Is(err, codec.ErrMalformedDocument) {
			metrics.RecordImport(metrics.ResultMalformed, 0, 0)
			s.logger.Warn(ctx, "import rejected", logger.String("session", id), logger.Error(err))
		}
		return types.SessionView{}, stats, err
	}

	metrics.RecordImport(metrics.ResultOK, stats.Dropped, stats.Coerced)
	s.logger.Debug(ctx, "import merged",
		logger.String("session", id),
		logger.Int("matched", stats.Matched),
		logger.Int("dropped", stats.Dropped),
		logger.Int("coerced", stats.Coerced),
	)
	return codec.ToView(sess), stats, nil
}

// RequestAnalysis queues a summarization of the session's current snapshot
// and returns the pending view. Any earlier result still in flight is
// discarded when it lands.
func (s *Service) RequestAnalysis(ctx context.Context, id string) (types.AnalysisView, error) {
	if err := s.ready(); err != nil {
		return types.AnalysisView{}, err
	}
	if s.queue == nil {
		return types.AnalysisView{}, ErrAnalysisDisabled
	}

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return types.AnalysisView{}, err
	}
	snap := s.codec.ToSnapshot(sess)

	gen, err := s.store.BeginAnalysis(ctx, id)
	if err != nil {
		return types.AnalysisView{}, err
	}
	if !s.queue.Enqueue(ctx, queue.Job{SessionID: id, Gen: gen, Snapshot: snap}) {
		failed := types.AnalysisView{
			Status:    types.AnalysisFailed,
			Error:     ErrAnalysisBusy.Error(),
			Retryable: true,
		}
		_ = s.store.FinishAnalysis(ctx, id, gen, failed)
		return types.AnalysisView{}, ErrAnalysisBusy
	}
	return s.store.Analysis(ctx, id)
}

// Analysis returns the analysis view of a session.
func (s *Service) Analysis(ctx context.Context, id string) (types.AnalysisView, error) {
	if err := s.ready(); err != nil {
		return types.AnalysisView{}, err
	}
	return s.store.Analysis(ctx, id)
}

// Report renders the session, with its analysis when ready, as HTML.
func (s *Service) Report(ctx context.Context, id string, w io.Writer) error {
	if err := s.ready(); err != nil {
		return err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	view, err := s.store.Analysis(ctx, id)
	if err != nil {
		return err
	}
	var result *types.Analysis
	if view.Status == types.AnalysisReady {
		result = view.Result
	}
	return report.Render(w, codec.ToView(sess), result)
}

// ProxyEnabled reports whether a summarization key is configured.
func (s *Service) ProxyEnabled() bool { return s.summarizer != nil }

// ProxyModel names the model used by the proxy. The configured name is
// reported even when no key is set.
func (s *Service) ProxyModel() string {
	if s.summarizer != nil {
		if m := s.summarizer.Model(); m != "" {
			return m
		}
	}
	return s.proxyModel
}

// Summarize forwards an evaluation document to the LLM and returns its
// raw reply. The call is bounded by the proxy timeout.
func (s *Service) Summarize(ctx context.Context, evaluation []byte) (string, error) {
	if s.summarizer == nil {
		return "", ErrSummarizerDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, s.proxyTimeout)
	defer cancel()
	return s.summarizer.Summarize(ctx, evaluation)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"version":         s.version,
		"criteria":        s.catalog.Len(),
		"layers":          s.catalog.Layers(),
		"maxSessions":     s.maxSessions,
		"analysisEnabled": s.analyzer != nil,
		"proxyEnabled":    s.summarizer != nil,
	}

	if s.started {
		stats["sessions"] = s.store.Count(ctx)
		if s.queue != nil {
			stats["analysisQueueLength"] = s.queue.Len(ctx)
			stats["analysisWorkers"] = s.pool.Size()
		}
		metrics.RefreshSystemMetrics()
	}
	return stats
}
