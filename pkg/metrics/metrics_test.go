package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("test"),
			WithConstLabels(map[string]string{"env": "test"}),
		)

		Convey("When sessions come and go", func() {
			m.SessionCreated()
			m.SessionCreated()
			m.SessionDeleted()

			So(testutil.ToFloat64(m.sessionsCreated), ShouldEqual, 2)
			So(testutil.ToFloat64(m.sessionsActive), ShouldEqual, 1)
		})

		Convey("When imports are recorded", func() {
			m.Import(ResultOK, 2, 3)
			m.Import(ResultMalformed, 0, 0)

			So(testutil.ToFloat64(m.imports.WithLabelValues(ResultOK)), ShouldEqual, 1)
			So(testutil.ToFloat64(m.imports.WithLabelValues(ResultMalformed)), ShouldEqual, 1)
			So(testutil.ToFloat64(m.importDropped), ShouldEqual, 2)
			So(testutil.ToFloat64(m.importCoerced), ShouldEqual, 3)
		})

		Convey("When analysis and HTTP traffic is recorded", func() {
			m.Analysis(OutcomeTimeout, 60000)
			m.HTTPRequest("/catalog", "GET", "200", 1.5)
			m.ErrorByEndpoint("/sessions", "POST", "capacity")
			m.RefreshSystem()

			So(testutil.ToFloat64(m.analysisRequests.WithLabelValues(OutcomeTimeout)), ShouldEqual, 1)
			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/catalog", "GET", "200")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.systemGoroutineCount), ShouldBeGreaterThan, 0)

			count, err := testutil.GatherAndCount(reg, "test_engine_analysis_latency_milliseconds")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		})
	})

	Convey("A disabled manager records nothing", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
		m.Export()
		m.Mutation(KindScore)
		So(testutil.ToFloat64(m.exports), ShouldEqual, 0)
	})

	Convey("The global registry exposes the service metrics", t, func() {
		RecordExport()
		count, err := testutil.GatherAndCount(GetRegistry(), "evalmatrix_engine_exports_total")
		So(err, ShouldBeNil)
		So(count, ShouldEqual, 1)
	})
}
