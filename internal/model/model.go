package model

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"
)

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Letter is a multiple-choice answer letter.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
	LetterE Letter = "E"
)

// Letters lists the valid answer letters in display order.
var Letters = []Letter{LetterA, LetterB, LetterC, LetterD, LetterE}

// ParseLetter normalizes s to an uppercase Letter. ok is false unless s is a single letter A-E.
func ParseLetter(s string) (Letter, bool) {
	l := Letter(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range Letters {
		if l == v {
			return l, true
		}
	}
	return "", false
}

// ParseQuestionNumber turns a numeral token into a question number, dropping
// leading zeros so that "01", "1" and "001" are the same key. Only positive
// numbers are accepted.
func ParseQuestionNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// QuestionMap maps a question number to its trimmed body text.
type QuestionMap map[int]string

// Numbers returns the question numbers in ascending numeric order.
func (m QuestionMap) Numbers() []int {
	return sortedKeys(m)
}

// AnswerMap maps a question number to the official answer letter.
type AnswerMap map[int]Letter

// Lookup returns the official letter for n. ok is false when the key has no entry.
func (m AnswerMap) Lookup(n int) (Letter, bool) {
	l, ok := m[n]
	return l, ok
}

// Numbers returns the answered question numbers in ascending numeric order.
func (m AnswerMap) Numbers() []int {
	return sortedKeys(m)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// AnswerSource records where a session's answer key came from.
type AnswerSource string

const (
	AnswerSourceNone   AnswerSource = "none"
	AnswerSourcePDF    AnswerSource = "pdf"
	AnswerSourceText   AnswerSource = "text"
	AnswerSourceMerged AnswerSource = "pdf+text"
)

// Exam is the output of one upload: the extracted questions and answer key.
type Exam struct {
	Name         string
	Questions    QuestionMap
	Answers      AnswerMap
	AnswerSource AnswerSource
}

// StudySession is an uploaded exam together with the user's navigation state.
type StudySession struct {
	ID           string
	Name         string
	Questions    QuestionMap
	Answers      AnswerMap
	AnswerSource AnswerSource
	Index        int
	Choices      map[int]Letter
	APIKey       string
	CreatedAt    time.Time
}

// SessionSummary is a lightweight listing entry for the index page.
type SessionSummary struct {
	ID            string
	Name          string
	QuestionCount int
	AnswerCount   int
	ChoiceCount   int
	CreatedAt     time.Time
}

// StudyConfig holds runtime parameters set via CLI flags.
type StudyConfig struct {
	MaxUploadBytes int64
	BasePath       string // URL prefix for sub-path deployments (e.g. "/pt")
	SecureCookies  bool   // Set Secure flag on cookies (disable for local dev)
	DefaultAPIKey  bool   // An LLM key is configured server-side
}
