// Package extract turns exam booklets and answer keys into numbered maps.
//
// Both extractors convert failures at the boundary: the returned map is
// always non-nil (possibly empty) and the error, when present, wraps one of
// the sentinels below so callers can pick a message with errors.Is.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/matheusmoura0/vestibular-tutor/internal/model"
	"github.com/matheusmoura0/vestibular-tutor/internal/pdftext"
)

var (
	// ErrDocumentUnreadable reports a PDF that could not be opened or read.
	ErrDocumentUnreadable = pdftext.ErrDocumentUnreadable
	// ErrNoQuestionsRecognized reports readable text without any question marker.
	ErrNoQuestionsRecognized = errors.New("no questions recognized")
	// ErrAnswerKeyUnavailable reports a missing, unreadable or empty answer key.
	ErrAnswerKeyUnavailable = errors.New("answer key unavailable")
)

// Options configures a Pipeline.
type Options struct {
	Layout      pdftext.Layout
	Marker      MarkerStyle
	Boilerplate []string
}

// DefaultOptions returns the settings for two-column booklets with "QUESTÃO" markers.
func DefaultOptions() Options {
	return Options{
		Layout:      pdftext.TwoColumn,
		Marker:      MarkerWord,
		Boilerplate: DefaultBoilerplate,
	}
}

// Pipeline runs page reading, sanitization and segmentation for exams, and
// answer-key parsing for keys.
type Pipeline struct {
	layout    pdftext.Layout
	sanitizer *Sanitizer
	segmenter *Segmenter
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		layout:    opts.Layout,
		sanitizer: NewSanitizer(opts.Boilerplate),
		segmenter: NewSegmenter(opts.Marker),
	}
}

// Questions extracts the question map from exam PDF bytes.
func (p *Pipeline) Questions(data []byte) (model.QuestionMap, error) {
	text, err := pdftext.ReadText(data, p.layout)
	if err != nil {
		slog.Warn("exam PDF unreadable", "error", err)
		return model.QuestionMap{}, fmt.Errorf("read exam: %w", err)
	}
	return p.QuestionsFromText(text)
}

// QuestionsFromText sanitizes and segments already extracted document text.
func (p *Pipeline) QuestionsFromText(text string) (model.QuestionMap, error) {
	questions := p.segmenter.Segment(p.sanitizer.Clean(text))
	if len(questions) == 0 {
		slog.Warn("no question markers found", "marker", p.segmenter.Style().String(), "chars", len(text))
		return questions, ErrNoQuestionsRecognized
	}
	if empty := EmptyBodies(questions); len(empty) > 0 {
		slog.Warn("questions with empty body", "numbers", empty)
	}
	slog.Info("segmented exam", "questions", len(questions), "marker", p.segmenter.Style().String())
	return questions, nil
}

// AnswerKey parses the answer key from an optional PDF and optional pasted
// text. Pasted pairs override PDF pairs for the same question. An unreadable
// PDF is not fatal: pasted text is still used.
func (p *Pipeline) AnswerKey(pdfData []byte, pasted string) (model.AnswerMap, model.AnswerSource, error) {
	answers := make(model.AnswerMap)
	var fromPDF, fromText bool
	var readErr error

	if len(pdfData) > 0 {
		text, err := pdftext.ReadText(pdfData, pdftext.FullPage)
		if err != nil {
			slog.Warn("answer key PDF unreadable", "error", err)
			readErr = err
		} else {
			for n, l := range ParseAnswerKey(text) {
				answers[n] = l
				fromPDF = true
			}
		}
	}

	if strings.TrimSpace(pasted) != "" {
		for n, l := range ParseAnswerKey(pasted) {
			answers[n] = l
			fromText = true
		}
	}

	source := model.AnswerSourceNone
	switch {
	case fromPDF && fromText:
		source = model.AnswerSourceMerged
	case fromPDF:
		source = model.AnswerSourcePDF
	case fromText:
		source = model.AnswerSourceText
	}

	if len(answers) == 0 {
		if readErr != nil {
			return answers, source, fmt.Errorf("%w: %w", ErrAnswerKeyUnavailable, readErr)
		}
		return answers, source, ErrAnswerKeyUnavailable
	}
	slog.Info("parsed answer key", "answers", len(answers), "source", string(source))
	return answers, source, nil
}

// Exam runs both extractors for one upload. The question error is returned
// as is; an answer-key error is only logged because the key is optional.
func (p *Pipeline) Exam(name string, examPDF, keyPDF []byte, pastedKey string) (model.Exam, error) {
	exam := model.Exam{Name: name}
	questions, err := p.Questions(examPDF)
	exam.Questions = questions
	if err != nil {
		exam.Answers = model.AnswerMap{}
		exam.AnswerSource = model.AnswerSourceNone
		return exam, err
	}
	answers, source, keyErr := p.AnswerKey(keyPDF, pastedKey)
	if keyErr != nil {
		slog.Info("continuing without answer key", "error", keyErr)
	}
	exam.Answers = answers
	exam.AnswerSource = source
	return exam, nil
}
