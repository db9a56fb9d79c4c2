package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matheusmoura0/vestibular-tutor/internal/model"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when no study session has the requested ID.
var ErrSessionNotFound = errors.New("study session not found")

type Store struct {
	db *sql.DB
}

// New opens the session database. Pass ":memory:" for a process-local
// database that is discarded on Close.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS study_sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		answer_source TEXT NOT NULL DEFAULT 'none',
		current_index INTEGER NOT NULL DEFAULT 0,
		api_key TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		session_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (session_id, number),
		FOREIGN KEY (session_id) REFERENCES study_sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS answer_key (
		session_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		letter TEXT NOT NULL,
		PRIMARY KEY (session_id, number),
		FOREIGN KEY (session_id) REFERENCES study_sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS choices (
		session_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		letter TEXT NOT NULL,
		PRIMARY KEY (session_id, number),
		FOREIGN KEY (session_id) REFERENCES study_sessions(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession stores an extracted exam as a new study session positioned
// on the first question and returns its ID.
func (s *Store) CreateSession(exam model.Exam, apiKey string) (string, error) {
	id := uuid.NewString()
	source := exam.AnswerSource
	if source == "" {
		source = model.AnswerSourceNone
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO study_sessions (id, name, answer_source, current_index, api_key, created_at) VALUES (?, ?, ?, 0, ?, ?)`,
		id, exam.Name, source, apiKey, time.Now(),
	); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	for n, body := range exam.Questions {
		if _, err := tx.Exec(`INSERT INTO questions (session_id, number, body) VALUES (?, ?, ?)`, id, n, body); err != nil {
			return "", fmt.Errorf("insert question %d: %w", n, err)
		}
	}
	for n, letter := range exam.Answers {
		if _, err := tx.Exec(`INSERT INTO answer_key (session_id, number, letter) VALUES (?, ?, ?)`, id, n, letter); err != nil {
			return "", fmt.Errorf("insert answer %d: %w", n, err)
		}
	}
	return id, tx.Commit()
}

// GetSession loads a session with its questions, answer key and choices.
func (s *Store) GetSession(id string) (model.StudySession, error) {
	sess := model.StudySession{
		Questions: model.QuestionMap{},
		Answers:   model.AnswerMap{},
		Choices:   map[int]model.Letter{},
	}
	err := s.db.QueryRow(
		`SELECT id, name, answer_source, current_index, api_key, created_at FROM study_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Name, &sess.AnswerSource, &sess.Index, &sess.APIKey, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StudySession{}, ErrSessionNotFound
	}
	if err != nil {
		return model.StudySession{}, err
	}

	rows, err := s.db.Query(`SELECT number, body FROM questions WHERE session_id = ?`, id)
	if err != nil {
		return model.StudySession{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var n int
		var body string
		if err := rows.Scan(&n, &body); err != nil {
			return model.StudySession{}, err
		}
		sess.Questions[n] = body
	}
	if err := rows.Err(); err != nil {
		return model.StudySession{}, err
	}

	if err := s.loadLetters(`SELECT number, letter FROM answer_key WHERE session_id = ?`, id, sess.Answers); err != nil {
		return model.StudySession{}, err
	}
	if err := s.loadLetters(`SELECT number, letter FROM choices WHERE session_id = ?`, id, sess.Choices); err != nil {
		return model.StudySession{}, err
	}
	return sess, nil
}

func (s *Store) loadLetters(query, id string, into map[int]model.Letter) error {
	rows, err := s.db.Query(query, id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var n int
		var l model.Letter
		if err := rows.Scan(&n, &l); err != nil {
			return err
		}
		into[n] = l
	}
	return rows.Err()
}

// SaveState replaces the session's position and recorded choices.
func (s *Store) SaveState(id string, index int, choices map[int]model.Letter) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE study_sessions SET current_index = ? WHERE id = ?`, index, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	if _, err := tx.Exec(`DELETE FROM choices WHERE session_id = ?`, id); err != nil {
		return err
	}
	for n, l := range choices {
		if _, err := tx.Exec(`INSERT INTO choices (session_id, number, letter) VALUES (?, ?, ?)`, id, n, l); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetAPIKey updates the credential used for explanations in this session.
func (s *Store) SetAPIKey(id, apiKey string) error {
	res, err := s.db.Exec(`UPDATE study_sessions SET api_key = ? WHERE id = ?`, apiKey, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.SessionSummary, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.name, s.created_at,
			(SELECT COUNT(*) FROM questions q WHERE q.session_id = s.id),
			(SELECT COUNT(*) FROM answer_key a WHERE a.session_id = s.id),
			(SELECT COUNT(*) FROM choices c WHERE c.session_id = s.id)
		FROM study_sessions s
		ORDER BY s.created_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.SessionSummary
	for rows.Next() {
		var ss model.SessionSummary
		if err := rows.Scan(&ss.ID, &ss.Name, &ss.CreatedAt, &ss.QuestionCount, &ss.AnswerCount, &ss.ChoiceCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and everything attached to it.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM study_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// SessionCount returns the number of sessions held.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM study_sessions`).Scan(&count)
	return count, err
}
