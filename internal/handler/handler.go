package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/matheusmoura0/vestibular-tutor/internal/extract"
	"github.com/matheusmoura0/vestibular-tutor/internal/handler/views"
	appI18n "github.com/matheusmoura0/vestibular-tutor/internal/i18n"
	"github.com/matheusmoura0/vestibular-tutor/internal/llm"
	"github.com/matheusmoura0/vestibular-tutor/internal/model"
	"github.com/matheusmoura0/vestibular-tutor/internal/store"
	"github.com/matheusmoura0/vestibular-tutor/internal/study"
)

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 8 << 20

// Extractor turns uploaded PDFs into an exam.
type Extractor interface {
	Exam(name string, examPDF, keyPDF []byte, pastedKey string) (model.Exam, error)
}

// Explainer produces a tutor explanation for one question.
type Explainer interface {
	Explain(ctx context.Context, apiKey, question string, correct, choice model.Letter) (string, error)
}

// SessionStore holds study sessions.
type SessionStore interface {
	CreateSession(exam model.Exam, apiKey string) (string, error)
	GetSession(id string) (model.StudySession, error)
	SaveState(id string, index int, choices map[int]model.Letter) error
	SetAPIKey(id, apiKey string) error
	ListSessions() ([]model.SessionSummary, error)
	DeleteSession(id string) error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     SessionStore
	extractor Extractor
	explainer Explainer
	config    model.StudyConfig
}

// New creates a new Handler.
func New(s SessionStore, e Extractor, x Explainer, cfg model.StudyConfig) (*Handler, error) {
	if s == nil || e == nil || x == nil {
		return nil, errors.New("handler: store, extractor and explainer are required")
	}
	return &Handler{store: s, extractor: e, explainer: x, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.limitBody)
		r.Use(h.csrfMiddleware)

		r.Get("/", h.handleIndex)
		r.Post("/upload", h.handleUpload)
		r.Get("/study/{sessionID}", h.handleStudyPage)
		r.Post("/study/{sessionID}/next", h.handleMove(study.Next))
		r.Post("/study/{sessionID}/prev", h.handleMove(study.Prev))
		r.Post("/study/{sessionID}/choose/{letter}", h.handleChoose)
		r.Post("/study/{sessionID}/clear", h.handleClear)
		r.Post("/study/{sessionID}/explain", h.handleExplain)
		r.Post("/study/{sessionID}/key", h.handleSetKey)
		r.Post("/study/{sessionID}/delete", h.handleDelete)
	})
}

// BasePathMiddleware stores the configured URL prefix in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && h.config.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// path prefixes p with the configured base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) studyPath(id string) string {
	return h.path("/study/" + id)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, status int, msg string) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	renderHTML(w, r, status, views.IndexPage(views.IndexData{
		Sessions:     sessions,
		Error:        msg,
		ServerAPIKey: h.config.DefaultAPIKey,
		MaxUploadMB:  h.config.MaxUploadBytes >> 20,
	}))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, "")
}

func (h *Handler) uploadTooLarge(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusRequestEntityTooLarge, appI18n.T(r.Context(), "ErrUploadTooLarge"))
}

// readUpload returns the named file's contents. ok is false when the field is absent or empty.
func readUpload(r *http.Request, field string) (data []byte, name string, ok bool, err error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	defer f.Close()
	data, err = io.ReadAll(f)
	if err != nil {
		return nil, "", false, err
	}
	return data, filepath.Base(hdr.Filename), len(data) > 0, nil
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	examData, examName, ok, err := readUpload(r, "exam")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.uploadTooLarge(w, r)
		return
	case err != nil:
		slog.Warn("failed to read exam upload", "error", err)
		h.renderIndex(w, r, http.StatusBadRequest, appI18n.T(r.Context(), "ErrGeneric"))
		return
	case !ok:
		h.renderIndex(w, r, http.StatusBadRequest, appI18n.T(r.Context(), "ErrNoExam"))
		return
	}

	keyData, _, _, err := readUpload(r, "answer_key")
	if err != nil {
		// Optional; extraction still uses the pasted text.
		slog.Warn("failed to read answer key upload", "error", err)
	}

	exam, err := h.extractor.Exam(examName, examData, keyData, r.PostFormValue("answer_text"))
	switch {
	case errors.Is(err, extract.ErrDocumentUnreadable):
		slog.Warn("exam upload unreadable", "name", examName, "error", err)
		h.renderIndex(w, r, http.StatusUnprocessableEntity, appI18n.T(r.Context(), "ErrUnreadable"))
		return
	case errors.Is(err, extract.ErrNoQuestionsRecognized):
		slog.Warn("no questions recognized", "name", examName)
		h.renderIndex(w, r, http.StatusUnprocessableEntity, appI18n.T(r.Context(), "ErrNoQuestions"))
		return
	case err != nil:
		slog.Error("extraction failed", "name", examName, "error", err)
		h.renderIndex(w, r, http.StatusInternalServerError, appI18n.T(r.Context(), "ErrGeneric"))
		return
	}

	id, err := h.store.CreateSession(exam, strings.TrimSpace(r.PostFormValue("api_key")))
	if err != nil {
		slog.Error("failed to create session", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("study session created",
		"id", id,
		"name", exam.Name,
		"questions", len(exam.Questions),
		"answers", len(exam.Answers),
		"answer_source", exam.AnswerSource,
	)
	http.Redirect(w, r, h.studyPath(id), http.StatusSeeOther)
}

// loadSession fetches the session named in the URL, writing the error response itself.
func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (model.StudySession, bool) {
	sess, err := h.store.GetSession(chi.URLParam(r, "sessionID"))
	if errors.Is(err, store.ErrSessionNotFound) {
		renderHTML(w, r, http.StatusNotFound, views.ErrorPage(appI18n.T(r.Context(), "ErrSessionNotFound")))
		return sess, false
	}
	if err != nil {
		slog.Error("failed to load session", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return sess, false
	}
	return sess, true
}

func (h *Handler) studyData(sess model.StudySession) (views.StudyData, bool) {
	state := study.State{Index: sess.Index, Choices: sess.Choices}
	v, ok := study.Current(state, sess.Questions, sess.Answers)
	return views.StudyData{
		ID:           sess.ID,
		Name:         sess.Name,
		AnswerSource: sess.AnswerSource,
		HasAnswerKey: len(sess.Answers) > 0,
		HasAPIKey:    sess.APIKey != "" || h.config.DefaultAPIKey,
		View:         v,
		Score:        study.Tally(sess.Choices, sess.Answers),
	}, ok
}

func (h *Handler) handleStudyPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	data, ok := h.studyData(sess)
	if !ok {
		renderHTML(w, r, http.StatusUnprocessableEntity, views.ErrorPage(appI18n.T(r.Context(), "ErrNoQuestions")))
		return
	}
	renderHTML(w, r, http.StatusOK, views.StudyPage(data))
}

// update applies fn to the session's state, saves it and responds with the
// refreshed panel (htmx) or a redirect to the study page.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, fn func(study.State, model.StudySession) (study.State, error)) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	state := study.Normalize(study.State{Index: sess.Index, Choices: sess.Choices}, len(sess.Questions))
	next, err := fn(state, sess)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.SaveState(sess.ID, next.Index, next.Choices); err != nil {
		slog.Error("failed to save state", "id", sess.ID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sess.Index, sess.Choices = next.Index, next.Choices

	if !isHTMX(r) {
		http.Redirect(w, r, h.studyPath(sess.ID), http.StatusSeeOther)
		return
	}
	data, ok := h.studyData(sess)
	if !ok {
		http.Error(w, "no questions", http.StatusUnprocessableEntity)
		return
	}
	renderHTML(w, r, http.StatusOK, views.StudyPanel(data))
}

func (h *Handler) handleMove(move func(study.State, int) study.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.update(w, r, func(s study.State, sess model.StudySession) (study.State, error) {
			return move(s, len(sess.Questions)), nil
		})
	}
}

func (h *Handler) handleChoose(w http.ResponseWriter, r *http.Request) {
	letter, ok := model.ParseLetter(chi.URLParam(r, "letter"))
	if !ok {
		http.Error(w, "invalid answer letter", http.StatusBadRequest)
		return
	}
	h.update(w, r, func(s study.State, sess model.StudySession) (study.State, error) {
		numbers := sess.Questions.Numbers()
		if len(numbers) == 0 {
			return s, fmt.Errorf("session has no questions")
		}
		return study.Select(s, numbers[s.Index], letter), nil
	})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s study.State, _ model.StudySession) (study.State, error) {
		return study.ClearChoices(s), nil
	})
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	v, ok := study.Current(study.State{Index: sess.Index, Choices: sess.Choices}, sess.Questions, sess.Answers)
	if !ok {
		http.Error(w, "no questions", http.StatusUnprocessableEntity)
		return
	}
	correct, _ := sess.Answers.Lookup(v.Number)

	var data views.ExplanationData
	text, err := h.explainer.Explain(r.Context(), sess.APIKey, v.Text, correct, v.Choice)
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		data.Error = appI18n.T(r.Context(), "MissingAPIKey")
	case err != nil:
		slog.Warn("explanation failed", "id", sess.ID, "question", v.Number, "error", err)
		data.Error = appI18n.Td(r.Context(), "ExplanationError", map[string]any{"Error": err.Error()})
	default:
		data.Text = text
	}
	// Rendered inline with 200 so htmx swaps the error text in.
	renderHTML(w, r, http.StatusOK, views.Explanation(data))
}

func (h *Handler) handleSetKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	err := h.store.SetAPIKey(id, strings.TrimSpace(r.PostFormValue("api_key")))
	if errors.Is(err, store.ErrSessionNotFound) {
		renderHTML(w, r, http.StatusNotFound, views.ErrorPage(appI18n.T(r.Context(), "ErrSessionNotFound")))
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.studyPath(id), http.StatusSeeOther)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.store.DeleteSession(id); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}
