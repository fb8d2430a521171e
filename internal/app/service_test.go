package service_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/evalmatrix/internal/adapters/repository"
	service "github.com/okian/evalmatrix/internal/app"
	"github.com/okian/evalmatrix/internal/domain/analysis"
	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/okian/evalmatrix/internal/domain/types"
	"github.com/okian/evalmatrix/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	err     error
	summary string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, snap types.Snapshot) (types.Analysis, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return types.Analysis{}, ctx.Err()
		}
	}
	if f.err != nil {
		return types.Analysis{}, f.err
	}
	return types.Analysis{Summary: f.summary + snap.Meta.EvaluateeName}, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, evaluation []byte) (string, error) {
	return `{"summary":"` + string(bytes.TrimSpace(evaluation))[:1] + `"}`, nil
}

func (fakeSummarizer) Model() string { return "fake-1" }

func ptr[T any](v T) *T { return &v }

func started(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func waitAnalysis(svc *service.Service, id, status string) types.AnalysisView {
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, err := svc.Analysis(context.Background(), id)
		So(err, ShouldBeNil)
		if v.Status == status || time.Now().After(deadline) {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that is not started", t, func() {
		svc := service.New()

		Convey("Then session calls are refused", func() {
			_, err := svc.CreateSession(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a started service", t, func() {
		svc := started(service.WithVersion("v9.9.9"))

		Convey("Then stats reflect it", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["sessions"], ShouldEqual, 0)
			So(stats["criteria"], ShouldEqual, catalog.Default().Len())
			So(stats["version"], ShouldEqual, "v9.9.9")
		})

		Convey("And starting twice is harmless", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		So(svc.Stop(ctx), ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)
	})
}

func TestService_Sessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a session", t, func() {
		svc := started()
		defer func() { _ = svc.Stop(ctx) }()

		v, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)
		id := v.ID
		So(id, ShouldNotBeEmpty)
		So(v.Meta.Role, ShouldEqual, model.DefaultRole)
		So(v.Summary.OverallLabel, ShouldEqual, "Unscored")

		Convey("When two criteria are scored with a lossy policy switch", func() {
			_, err := svc.SetPolicy(ctx, id, service.PolicyPatch{AllowExtremeWeights: ptr(true)})
			So(err, ShouldBeNil)
			_, err = svc.UpdateCriterion(ctx, id, "deliverables_quality", service.CriterionPatch{Score: ptr(4), Weight: ptr(1.0)})
			So(err, ShouldBeNil)
			_, err = svc.UpdateCriterion(ctx, id, "delivery_ownership", service.CriterionPatch{Score: ptr(2), Weight: ptr(3.0)})
			So(err, ShouldBeNil)
			v, err := svc.SetPolicy(ctx, id, service.PolicyPatch{AllowExtremeWeights: ptr(false)})
			So(err, ShouldBeNil)

			Convey("Then the weight is re-clamped and the mean is 8/3", func() {
				So(v.Criteria[1].Weight, ShouldEqual, 2.0)
				So(v.Summary.Overall.Score, ShouldAlmostEqual, 8.0/3.0, 1e-9)
				So(v.Summary.Overall.Count, ShouldEqual, 2)
			})

			Convey("And switching weights off gives the plain mean", func() {
				v, err := svc.SetPolicy(ctx, id, service.PolicyPatch{UseWeights: ptr(false)})
				So(err, ShouldBeNil)
				So(v.Summary.Overall.Score, ShouldEqual, 3)
			})

			Convey("And clearing a score removes it from the aggregate", func() {
				v, err := svc.ClearScore(ctx, id, "delivery_ownership")
				So(err, ShouldBeNil)
				So(v.Summary.Overall.Score, ShouldEqual, 4)
				So(v.Summary.Filled, ShouldEqual, 1)
			})

			Convey("And reset keeps weights but drops scores", func() {
				v, err := svc.Reset(ctx, id)
				So(err, ShouldBeNil)
				So(v.Summary.Overall.Count, ShouldEqual, 0)
				So(v.Criteria[1].Weight, ShouldEqual, 2.0)
				So(v.WeightPreset, ShouldEqual, catalog.PresetCustom)
			})
		})

		Convey("When an invalid score is sent", func() {
			_, err := svc.UpdateCriterion(ctx, id, "deliverables_quality", service.CriterionPatch{Score: ptr(7), Evidence: ptr("x")})

			Convey("Then nothing changes", func() {
				So(errors.Is(err, model.ErrInvalidScore), ShouldBeTrue)
				v, _ := svc.Session(ctx, id)
				So(v.Criteria[0].Evidence, ShouldBeEmpty)
			})
		})

		Convey("When an unknown criterion is addressed", func() {
			_, err := svc.UpdateCriterion(ctx, id, "nope", service.CriterionPatch{})
			So(errors.Is(err, model.ErrUnknownCriterion), ShouldBeTrue)
		})

		Convey("When the senior preset is applied", func() {
			v, err := svc.ApplyPreset(ctx, id, "senior")
			So(err, ShouldBeNil)
			So(v.WeightPreset, ShouldEqual, "senior")
			So(v.Criteria[4].Weight, ShouldEqual, 1.6)

			_, err = svc.ApplyPreset(ctx, id, "principal")
			So(errors.Is(err, model.ErrUnknownTier), ShouldBeTrue)
		})

		Convey("When metadata is patched", func() {
			v, err := svc.UpdateMeta(ctx, id, service.MetaPatch{EvaluateeName: ptr("Ana"), Strengths: ptr("clarity")})
			So(err, ShouldBeNil)
			So(v.Meta.EvaluateeName, ShouldEqual, "Ana")
			So(v.Meta.Role, ShouldEqual, model.DefaultRole)
			So(v.Strengths, ShouldEqual, "clarity")
		})

		Convey("When the session is deleted", func() {
			So(svc.DeleteSession(ctx, id), ShouldBeNil)
			_, err := svc.Session(ctx, id)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a store that is full", t, func() {
		svc := started(service.WithMaxSessions(1))
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)
		_, err = svc.CreateSession(ctx)
		So(errors.Is(err, repository.ErrCapacity), ShouldBeTrue)
	})
}

func TestService_Exchange(t *testing.T) {
	ctx := context.Background()

	Convey("Given a scored session", t, func() {
		svc := started()
		defer func() { _ = svc.Stop(ctx) }()

		v, _ := svc.CreateSession(ctx)
		id := v.ID
		_, _ = svc.UpdateMeta(ctx, id, service.MetaPatch{EvaluateeName: ptr("Ana")})
		_, _ = svc.UpdateCriterion(ctx, id, "deliverables_quality", service.CriterionPatch{Score: ptr(5), Evidence: ptr("great")})

		doc, err := svc.Export(ctx, id)
		So(err, ShouldBeNil)

		Convey("When the export is imported into another session", func() {
			other, _ := svc.CreateSession(ctx)
			got, stats, err := svc.Import(ctx, other.ID, doc)

			Convey("Then state carries over and the id is kept", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, other.ID)
				So(got.Meta.EvaluateeName, ShouldEqual, "Ana")
				So(got.Criteria[0].Score, ShouldEqual, 5)
				So(got.Criteria[0].Evidence, ShouldEqual, "great")
				So(stats.Matched, ShouldEqual, catalog.Default().Len())
				So(stats.Dropped, ShouldEqual, 0)
			})
		})

		Convey("When a malformed document is imported", func() {
			_, _, err := svc.Import(ctx, id, []byte(`{"meta":{}}`))

			Convey("Then the session is untouched", func() {
				So(errors.Is(err, codec.ErrMalformedDocument), ShouldBeTrue)
				cur, _ := svc.Session(ctx, id)
				So(cur.Criteria[0].Score, ShouldEqual, 5)
			})
		})

		Convey("When the report is rendered", func() {
			var buf bytes.Buffer
			So(svc.Report(ctx, id, &buf), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "5 – Reference")
		})
	})
}

func TestService_Analysis(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service without an analyzer", t, func() {
		svc := started()
		defer func() { _ = svc.Stop(ctx) }()
		v, _ := svc.CreateSession(ctx)

		_, err := svc.RequestAnalysis(ctx, v.ID)
		So(errors.Is(err, service.ErrAnalysisDisabled), ShouldBeTrue)

		_, err = svc.Summarize(ctx, []byte(`{}`))
		So(errors.Is(err, service.ErrSummarizerDisabled), ShouldBeTrue)
		So(svc.ProxyEnabled(), ShouldBeFalse)
	})

	Convey("Given a service with a working analyzer", t, func() {
		a := &fakeAnalyzer{summary: "about "}
		svc := started(service.WithAnalyzer(a), service.WithSummarizer(fakeSummarizer{}))
		defer func() { _ = svc.Stop(ctx) }()

		v, _ := svc.CreateSession(ctx)
		_, _ = svc.UpdateMeta(ctx, v.ID, service.MetaPatch{EvaluateeName: ptr("Ana")})

		Convey("When an analysis is requested", func() {
			pending, err := svc.RequestAnalysis(ctx, v.ID)
			So(err, ShouldBeNil)
			So(pending.Status, ShouldBeIn, []string{types.AnalysisPending, types.AnalysisReady})

			Convey("Then it becomes ready without touching scores", func() {
				got := waitAnalysis(svc, v.ID, types.AnalysisReady)
				So(got.Status, ShouldEqual, types.AnalysisReady)
				So(got.Result.Summary, ShouldEqual, "about Ana")
				cur, _ := svc.Session(ctx, v.ID)
				So(cur.Summary.Overall.Count, ShouldEqual, 0)
			})
		})

		Convey("When the proxy is used", func() {
			out, err := svc.Summarize(ctx, []byte(` {"criteria":[]}`))
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"summary":"{"}`)
			So(svc.ProxyModel(), ShouldEqual, "fake-1")
		})
	})

	Convey("Given a failing analyzer", t, func() {
		a := &fakeAnalyzer{err: analysis.NewServiceError(503, "overloaded")}
		svc := started(service.WithAnalyzer(a))
		defer func() { _ = svc.Stop(ctx) }()
		v, _ := svc.CreateSession(ctx)

		_, err := svc.RequestAnalysis(ctx, v.ID)
		So(err, ShouldBeNil)

		got := waitAnalysis(svc, v.ID, types.AnalysisFailed)
		So(got.Status, ShouldEqual, types.AnalysisFailed)
		So(got.Error, ShouldEqual, "overloaded")
		So(got.Retryable, ShouldBeTrue)
	})

	Convey("Given a saturated analysis queue", t, func() {
		a := &fakeAnalyzer{gate: make(chan struct{})}
		svc := started(service.WithAnalyzer(a), service.WithWorkerCount(1), service.WithQueueSize(1))
		v, _ := svc.CreateSession(ctx)

		var busy error
		for i := 0; i < 10 && busy == nil; i++ {
			_, busy = svc.RequestAnalysis(ctx, v.ID)
		}

		Convey("Then requests are refused as busy and marked retryable", func() {
			So(errors.Is(busy, service.ErrAnalysisBusy), ShouldBeTrue)
			cur, err := svc.Analysis(ctx, v.ID)
			So(err, ShouldBeNil)
			So(cur.Status, ShouldEqual, types.AnalysisFailed)
			So(cur.Retryable, ShouldBeTrue)
		})

		close(a.gate)
		So(svc.Stop(ctx), ShouldBeNil)
	})
}
