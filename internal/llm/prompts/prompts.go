package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/matheusmoura0/vestibular-tutor/internal/model"
)

//go:embed templates/*.txt
var embedded embed.FS

// maxQuestionRunes bounds the question text sent to the model.
const maxQuestionRunes = 10000

var questionTagRegex = regexp.MustCompile(`(?i)</?\s*question\b[^>]*>`)

var (
	loadOnce        sync.Once
	loadErr         error
	explainTemplate *template.Template
)

// ExplainData holds template data for explanation prompts.
type ExplainData struct {
	QuestionText string
	Correct      model.Letter // empty when the answer key has no entry
	Choice       model.Letter
	Language     string
}

// Load parses the prompt templates. A nil fsys uses the embedded templates.
// It uses sync.Once to ensure templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		if fsys == nil {
			fsys = embedded
		}
		const file = "templates/explain.txt"
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
			return
		}
		tmpl, err := template.New("explain").Parse(string(content))
		if err != nil {
			loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
			return
		}
		explainTemplate = tmpl
	})
	return loadErr
}

// BuildExplainPrompt renders the tutor prompt for one question.
func BuildExplainPrompt(data ExplainData) (string, error) {
	if err := Load(nil); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	data.QuestionText = sanitizeQuestion(data.QuestionText)
	if data.Language == "" {
		data.Language = "português"
	}

	var buf bytes.Buffer
	if err := explainTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeQuestion(text string) string {
	text = questionTagRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return "[Questão sem texto]"
	}

	if utf8.RuneCountInString(text) > maxQuestionRunes {
		runes := []rune(text)
		text = string(runes[:maxQuestionRunes]) + "\n\n[Texto truncado]"
	}
	return text
}
