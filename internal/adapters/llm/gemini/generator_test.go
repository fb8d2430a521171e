package gemini_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"google.golang.org/genai"

	"github.com/okian/evalmatrix/internal/adapters/llm/gemini"
	"github.com/okian/evalmatrix/internal/domain/analysis"
	"github.com/okian/evalmatrix/internal/domain/types"
)

type fakeModels struct {
	reply  string
	err    error
	block  bool
	model  string
	prompt string
	cfg    *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.cfg = cfg
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompt += p.Text
		}
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestNewGenerator(t *testing.T) {
	Convey("A blank api key is rejected", t, func() {
		_, err := gemini.NewGenerator(context.Background(), "  ", "")
		So(errors.Is(err, gemini.ErrMissingAPIKey), ShouldBeTrue)
	})

	Convey("The default model is used when none is given", t, func() {
		g := gemini.NewWithModels(&fakeModels{}, " ")
		So(g.Model(), ShouldEqual, gemini.DefaultModel)
	})
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	Convey("Given a model that answers with JSON", t, func() {
		fake := &fakeModels{reply: `{"summary":"ok"}`}
		g := gemini.NewWithModels(fake, "m1", gemini.WithSystemPrompt("coach"))

		out, err := g.Summarize(ctx, []byte(`{"criteria":[]}`))

		Convey("Then the reply text is returned", func() {
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"summary":"ok"}`)
		})

		Convey("And the request carries the prompt and generation settings", func() {
			So(fake.model, ShouldEqual, "m1")
			So(strings.HasPrefix(fake.prompt, "Evaluation (JSON):\n"), ShouldBeTrue)
			So(fake.prompt, ShouldContainSubstring, `"criteria": []`)
			So(fake.cfg.ResponseMIMEType, ShouldEqual, "application/json")
			So(*fake.cfg.Temperature, ShouldAlmostEqual, 0.2, 0.0001)
			So(fake.cfg.SystemInstruction.Parts[0].Text, ShouldEqual, "coach")
		})
	})

	Convey("An empty reply becomes an empty document", t, func() {
		g := gemini.NewWithModels(&fakeModels{reply: "  "}, "m1")
		out, err := g.Summarize(ctx, []byte(`{}`))
		So(err, ShouldBeNil)
		So(out, ShouldEqual, "{}")
	})

	Convey("Given a model that never answers", t, func() {
		g := gemini.NewWithModels(&fakeModels{block: true}, "m1", gemini.WithTimeout(20*time.Millisecond))

		done := make(chan error, 1)
		go func() {
			_, err := g.Summarize(ctx, []byte(`{"criteria":[]}`))
			done <- err
		}()

		Convey("Then the call gives up after the configured timeout", func() {
			var err error
			select {
			case err = <-done:
			case <-time.After(2 * time.Second):
				So("summarize did not return", ShouldBeEmpty)
			}
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(gemini.ServiceStatus(err), ShouldEqual, http.StatusGatewayTimeout)
		})
	})
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	snap := types.Snapshot{Meta: types.SnapshotMeta{EvaluateeName: "Ana"}}

	Convey("Given a model that answers with plain text", t, func() {
		g := gemini.NewWithModels(&fakeModels{reply: "Solid quarter."}, "m1")
		res, err := g.Analyze(ctx, snap)

		Convey("Then the text becomes the summary", func() {
			So(err, ShouldBeNil)
			So(res.Summary, ShouldEqual, "Solid quarter.")
			So(res.Model, ShouldEqual, "m1")
		})
	})

	Convey("Given a model that never answers", t, func() {
		g := gemini.NewWithModels(&fakeModels{block: true}, "m1", gemini.WithTimeout(20*time.Millisecond))
		_, err := g.Analyze(ctx, snap)

		Convey("Then the call times out", func() {
			So(errors.Is(err, analysis.ErrTimeout), ShouldBeTrue)
		})
	})

	Convey("Given a model that fails", t, func() {
		g := gemini.NewWithModels(&fakeModels{err: errors.New("quota exceeded")}, "m1")
		_, err := g.Analyze(ctx, snap)

		Convey("Then a service error carries the message", func() {
			So(errors.Is(err, analysis.ErrService), ShouldBeTrue)
			var se *analysis.ServiceError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Message, ShouldContainSubstring, "quota exceeded")
		})

		Convey("And the proxy status defaults to 500", func() {
			So(gemini.ServiceStatus(errors.New("x")), ShouldEqual, http.StatusInternalServerError)
		})
	})
}
