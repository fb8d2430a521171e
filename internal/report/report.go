// Package report renders a session as a standalone HTML page. All
// user-supplied text goes through html/template's contextual escaping.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/okian/evalmatrix/internal/domain/scoring"
	"github.com/okian/evalmatrix/internal/domain/types"
)

//go:embed templates/report.html.tmpl
var templatesFS embed.FS

var page = template.Must(template.New("report.html.tmpl").
	Funcs(template.FuncMap{"label": scoring.Label}).
	ParseFS(templatesFS, "templates/report.html.tmpl"))

// DefaultTitle is used when the evaluatee has no name.
const DefaultTitle = "Evaluation"

type layerRow struct {
	Name  string
	Score float64
	Count int
}

type pageData struct {
	Name     string
	View     types.SessionView
	Layers   []layerRow
	Analysis *types.Analysis
}

// Render writes the HTML report for view. analysis may be nil.
func Render(w io.Writer, view types.SessionView, analysis *types.Analysis) error {
	data := pageData{
		Name:     strings.TrimSpace(view.Meta.EvaluateeName),
		View:     view,
		Analysis: analysis,
	}
	if data.Name == "" {
		data.Name = DefaultTitle
	}
	for _, name := range view.Summary.Layers {
		sc := view.Summary.PerLayer[name]
		data.Layers = append(data.Layers, layerRow{Name: name, Score: sc.Score, Count: sc.Count})
	}

	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
