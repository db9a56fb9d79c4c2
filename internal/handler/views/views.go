// Package views renders the browser UI. Pages are html/template files
// embedded in the binary and exposed as templ components, so handlers render
// them the same way whatever the markup source.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"

	appI18n "github.com/matheusmoura0/vestibular-tutor/internal/i18n"
	"github.com/matheusmoura0/vestibular-tutor/internal/model"
	"github.com/matheusmoura0/vestibular-tutor/internal/study"
)

//go:embed templates/*.html
var templateFS embed.FS

// stubFuncs only declare the names; render replaces them with
// request-bound implementations.
var stubFuncs = template.FuncMap{
	"t":    func(string) string { return "" },
	"td":   func(string, ...any) string { return "" },
	"tp":   func(string, int) string { return "" },
	"path": func(string) string { return "" },
	"csrf": func() string { return "" },
	"lang": func() string { return "" },
}

var base = template.Must(template.New("").Funcs(stubFuncs).Funcs(template.FuncMap{
	"letters": func() []model.Letter { return model.Letters },
	"percent": func(f float64) int { return int(f*100 + 0.5) },
}).ParseFS(templateFS, "templates/*.html"))

func requestFuncs(ctx context.Context) template.FuncMap {
	basePath := model.BasePathFromContext(ctx)
	return template.FuncMap{
		"t": func(id string) string { return appI18n.T(ctx, id) },
		"td": func(id string, kv ...any) string {
			data := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				data[fmt.Sprint(kv[i])] = kv[i+1]
			}
			return appI18n.Td(ctx, id, data)
		},
		"tp":   func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"path": func(p string) string { return basePath + p },
		"csrf": func() string { return model.CSRFTokenFromContext(ctx) },
		"lang": func() string { return appI18n.LangFromContext(ctx) },
	}
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tmpl, err := base.Clone()
		if err != nil {
			return err
		}
		return tmpl.Funcs(requestFuncs(ctx)).ExecuteTemplate(w, name, data)
	})
}

// IndexData feeds the upload page.
type IndexData struct {
	Sessions     []model.SessionSummary
	Error        string
	ServerAPIKey bool
	MaxUploadMB  int64
}

// StudyData feeds the study page and its swappable panel.
type StudyData struct {
	ID           string
	Name         string
	AnswerSource model.AnswerSource
	HasAnswerKey bool
	HasAPIKey    bool
	View         study.View
	Score        study.Score
}

// SourceLabelID is the message ID describing where the answer key came from.
func (d StudyData) SourceLabelID() string {
	return "AnswerSource_" + string(d.AnswerSource)
}

// QuestionLines splits the question body for display; an empty body yields nil.
func (d StudyData) QuestionLines() []string {
	text := strings.TrimSpace(d.View.Text)
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// IndexPage renders the upload form and the recent sessions table.
func IndexPage(data IndexData) templ.Component {
	return render("index", data)
}

// StudyPage renders the full study page around the panel.
func StudyPage(data StudyData) templ.Component {
	return render("study", data)
}

// StudyPanel is the part of the study page replaced by htmx after each action.
func StudyPanel(data StudyData) templ.Component {
	return render("panel", data)
}

// ExplanationData feeds the explanation fragment. Exactly one of Text and Error is set.
type ExplanationData struct {
	Text  string
	Error string
}

// Paragraphs splits the explanation on blank lines.
func (d ExplanationData) Paragraphs() []string {
	var out []string
	for _, p := range strings.Split(d.Text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Explanation renders the explanation fragment, or its error text.
func Explanation(data ExplanationData) templ.Component {
	return render("explanation", data)
}

// ErrorPage renders a minimal page with a single message.
func ErrorPage(message string) templ.Component {
	return render("error", message)
}
