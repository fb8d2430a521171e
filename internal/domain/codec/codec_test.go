package codec_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/okian/evalmatrix/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"
)

func fixedClock() time.Time {
	return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
}

func populated(cat *catalog.Catalog) *model.Session {
	s := model.NewSession(cat, model.WithID("abc"))
	s.Meta.EvaluateeName = "Ana"
	s.Meta.Project = "Checkout"
	s.Meta.Period = "2026 H1"
	s.Meta.Evaluator = "Luis"
	s.Meta.CoEvaluator = "Marta"
	s.Strengths = "clear specs"
	s.FocusAreas = "stakeholder comms"
	s.SetExtendedWeights(true)
	_ = s.SetScore("deliverables_quality", 4)
	_, _ = s.SetWeight("deliverables_quality", 2.8)
	_ = s.SetEvidence("deliverables_quality", `said "ok" <b>`)
	_ = s.SetScore("proactivity_initiative", 2)
	_, _ = s.SetWeight("proactivity_initiative", 0)
	_ = s.ApplyPreset(catalog.PresetCustom)
	return s
}

func TestExport(t *testing.T) {
	Convey("Given a populated session", t, func() {
		cat := catalog.Default()
		c := codec.New(cat, codec.WithVersion("v1.2.3+abc"), codec.WithClock(fixedClock))
		s := populated(cat)

		Convey("When exported", func() {
			raw, err := c.Marshal(s)
			So(err, ShouldBeNil)
			doc := string(raw)

			Convey("Then the document carries state and a fresh aggregate", func() {
				So(gjson.Get(doc, "version").String(), ShouldEqual, "v1.2.3+abc")
				So(gjson.Get(doc, "allowExtremeWeights").Bool(), ShouldBeTrue)
				So(gjson.Get(doc, "criteria.#").Int(), ShouldEqual, cat.Len())
				So(gjson.Get(doc, "computed.createdAtISO").String(), ShouldEqual, "2026-05-01T09:30:00.000Z")
				// proactivity has weight 0 so only deliverables contributes
				So(gjson.Get(doc, "computed.overall").Float(), ShouldEqual, 4)
				So(gjson.Get(doc, `computed.perLayer.Delivery.count`).Int(), ShouldEqual, 1)
				So(gjson.Get(doc, `computed.perLayer.Ways of working.count`).Int(), ShouldEqual, 0)
			})

			Convey("And it is indented with two spaces", func() {
				So(doc[:4], ShouldEqual, "{\n  ")
			})
		})
	})
}

func TestRoundTrip(t *testing.T) {
	Convey("Given an exported session", t, func() {
		cat := catalog.Default()
		c := codec.New(cat)
		s := populated(cat)
		raw, err := c.Marshal(s)
		So(err, ShouldBeNil)

		Convey("When imported onto a fresh standard-range session", func() {
			fresh := model.NewSession(cat, model.WithID("abc"))
			got, stats, err := c.FromSnapshot(raw, fresh)
			So(err, ShouldBeNil)

			Convey("Then all scorable state is reproduced", func() {
				So(stats.Matched, ShouldEqual, cat.Len())
				So(stats.Dropped, ShouldEqual, 0)
				So(stats.Coerced, ShouldEqual, 0)
				So(got.Criteria(), ShouldResemble, s.Criteria())
				So(got.Meta, ShouldResemble, s.Meta)
				So(got.Strengths, ShouldEqual, s.Strengths)
				So(got.FocusAreas, ShouldEqual, s.FocusAreas)
				So(got.UseWeights, ShouldEqual, s.UseWeights)
				So(got.Preset, ShouldEqual, s.Preset)
			})

			Convey("And the document's extended range is adopted", func() {
				So(got.ExtendedWeights(), ShouldBeTrue)
				cr, _ := got.Criterion("deliverables_quality")
				So(cr.Weight, ShouldEqual, 2.8)
			})

			Convey("And the base session is left untouched", func() {
				So(fresh.ExtendedWeights(), ShouldBeFalse)
				cr, _ := fresh.Criterion("deliverables_quality")
				So(cr.Score, ShouldEqual, model.Unscored)
			})
		})
	})
}

func TestImportMerge(t *testing.T) {
	cat := catalog.Default()
	c := codec.New(cat)

	Convey("Given a document with an unknown criterion id", t, func() {
		doc := `{"meta":{},"criteria":[
			{"id":"legacy_metric","score":5,"weight":1},
			{"id":"delivery_ownership","score":3,"weight":1.1,"evidence":"on time"}
		]}`
		got, stats, err := c.FromSnapshot([]byte(doc), nil)
		So(err, ShouldBeNil)

		Convey("Then the unknown entry is dropped and the catalog size holds", func() {
			So(got.Criteria(), ShouldHaveLength, cat.Len())
			_, ok := got.Criterion("legacy_metric")
			So(ok, ShouldBeFalse)
			So(stats.Dropped, ShouldEqual, 1)
			So(stats.Matched, ShouldEqual, 1)
			cr, _ := got.Criterion("delivery_ownership")
			So(cr.Score, ShouldEqual, model.Score(3))
			So(cr.Evidence, ShouldEqual, "on time")
		})
	})

	Convey("Given a base session with prior scores", t, func() {
		base := model.NewSession(cat, model.WithID("keep"))
		base.Meta.EvaluateeName = "Prior"
		base.Meta.Project = "Old project"
		_ = base.SetScore("feedback_adaptability", 5)
		_ = base.SetEvidence("feedback_adaptability", "live evidence")
		base.Strengths = "old strengths"

		Convey("When importing a document that omits that criterion", func() {
			doc := `{"meta":{"project":"New project","unknownKey":"x"},"criteria":[]}`
			got, _, err := c.FromSnapshot([]byte(doc), base)
			So(err, ShouldBeNil)

			Convey("Then the omitted criterion keeps its live score and evidence", func() {
				cr, _ := got.Criterion("feedback_adaptability")
				So(cr.Score, ShouldEqual, model.Score(5))
				So(cr.Evidence, ShouldEqual, "live evidence")
			})

			Convey("And the base session is left untouched", func() {
				So(base.Meta.Project, ShouldEqual, "Old project")
				So(base.Strengths, ShouldEqual, "old strengths")
			})

			Convey("And narrative fields come from the document", func() {
				So(got.Strengths, ShouldBeEmpty)
			})

			Convey("And metadata is shallow-merged", func() {
				So(got.ID, ShouldEqual, "keep")
				So(got.Meta.EvaluateeName, ShouldEqual, "Prior")
				So(got.Meta.Project, ShouldEqual, "New project")
			})

			Convey("And absent flags fall back to defaults", func() {
				So(got.UseWeights, ShouldBeFalse)
				So(got.ExtendedWeights(), ShouldBeFalse)
				So(got.Preset, ShouldEqual, catalog.PresetCustom)
			})
		})
	})

	Convey("Given a base session on extended weights", t, func() {
		base := model.NewSession(cat)
		base.SetExtendedWeights(true)
		_, _ = base.SetWeight("feedback_adaptability", 2.8)
		_ = base.SetScore("feedback_adaptability", 4)

		Convey("When importing a document on the standard range that omits the criterion", func() {
			doc := `{"criteria":[{"id":"deliverables_quality","score":3,"weight":1.2}]}`
			got, stats, err := c.FromSnapshot([]byte(doc), base)
			So(err, ShouldBeNil)
			So(stats.Matched, ShouldEqual, 1)

			Convey("Then the kept weight is clamped into the standard range", func() {
				So(got.ExtendedWeights(), ShouldBeFalse)
				cr, _ := got.Criterion("feedback_adaptability")
				So(cr.Weight, ShouldEqual, 2.0)
				So(cr.Score, ShouldEqual, model.Score(4))
			})

			Convey("And the matched criterion takes the imported values", func() {
				cr, _ := got.Criterion("deliverables_quality")
				So(cr.Score, ShouldEqual, model.Score(3))
				So(cr.Weight, ShouldEqual, 1.2)
			})

			Convey("And the base keeps its extended weight", func() {
				cr, _ := base.Criterion("feedback_adaptability")
				So(cr.Weight, ShouldEqual, 2.8)
			})
		})
	})

	Convey("Given malformed field values", t, func() {
		doc := `{
			"meta":{"evaluateeName":42,"period":null,"project":{"x":1}},
			"useWeights":1,
			"weightPreset":7,
			"strengths":["a"],
			"focusAreas":"grow",
			"criteria":[
				{"id":"deliverables_quality","score":"4","weight":"heavy","evidence":12},
				{"id":"delivery_ownership","score":2.5,"weight":9},
				{"id":"communication_participation","score":7},
				{"id":"delivery_ownership","score":5},
				"junk"
			]}`
		base := model.NewSession(cat)
		base.Meta.Period = "Q1"
		base.Meta.Project = "Kept"
		got, stats, err := c.FromSnapshot([]byte(doc), base)
		So(err, ShouldBeNil)

		Convey("Then each field falls back independently", func() {
			cr, _ := got.Criterion("deliverables_quality")
			So(cr.Score, ShouldEqual, model.Unscored)
			So(cr.Weight, ShouldEqual, cr.DefaultWeight)
			So(cr.Evidence, ShouldEqual, "")

			cr, _ = got.Criterion("delivery_ownership")
			So(cr.Score, ShouldEqual, model.Unscored)
			So(cr.Weight, ShouldEqual, 2.0)

			cr, _ = got.Criterion("communication_participation")
			So(cr.Score, ShouldEqual, model.Unscored)
		})

		Convey("And the first entry for an id wins", func() {
			cr, _ := got.Criterion("delivery_ownership")
			So(cr.Score, ShouldNotEqual, model.Score(5))
		})

		Convey("And narrative and meta are coerced", func() {
			So(got.Strengths, ShouldEqual, "")
			So(got.FocusAreas, ShouldEqual, "grow")
			So(got.Meta.EvaluateeName, ShouldEqual, "42")
			So(got.Meta.Period, ShouldEqual, "")
			So(got.Meta.Project, ShouldEqual, "Kept")
			So(got.UseWeights, ShouldBeTrue)
			So(got.Preset, ShouldEqual, catalog.PresetCustom)
		})

		Convey("And the coercions are counted", func() {
			So(stats.Dropped, ShouldEqual, 1)
			So(stats.Coerced, ShouldBeGreaterThan, 0)
		})
	})

	Convey("Computed aggregates in the document are ignored", t, func() {
		doc := `{"meta":{},"useWeights":true,"criteria":[{"id":"delivery_ownership","score":2,"weight":1}],
			"computed":{"overall":5,"perLayer":{"Delivery":{"count":9,"score":5}}}}`
		got, _, err := c.FromSnapshot([]byte(doc), nil)
		So(err, ShouldBeNil)
		snap := c.ToSnapshot(got)
		So(snap.Computed.Overall, ShouldEqual, 2)
		So(snap.Computed.PerLayer["Delivery"].Count, ShouldEqual, 1)
	})
}

func TestImportMalformed(t *testing.T) {
	cat := catalog.Default()
	c := codec.New(cat)

	Convey("Documents without the required envelope are rejected", t, func() {
		base := model.NewSession(cat)
		_ = base.SetScore("delivery_ownership", 3)

		for _, doc := range []string{
			`not json`,
			`[]`,
			`{"criteria":[]}`,
			`{"meta":{}}`,
			`{"meta":"x","criteria":[]}`,
			`{"meta":{},"criteria":{}}`,
		} {
			got, _, err := c.FromSnapshot([]byte(doc), base)
			So(errors.Is(err, codec.ErrMalformedDocument), ShouldBeTrue)
			So(got, ShouldBeNil)
		}

		cr, _ := base.Criterion("delivery_ownership")
		So(cr.Score, ShouldEqual, model.Score(3))
	})
}
