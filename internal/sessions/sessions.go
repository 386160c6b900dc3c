// Package sessions persists wizard sessions: the answers given so far and
// the question the user is on.
package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kartoza/match-odds/internal/funnel"
)

var (
	// ErrNotFound is returned for an unknown session ID.
	ErrNotFound = errors.New("session not found")
	// ErrUnanswered is returned when moving past a question with no answer.
	ErrUnanswered = errors.New("question not answered")
)

// UnansweredError names the question blocking forward navigation.
type UnansweredError struct {
	Question funnel.Question
}

func (e *UnansweredError) Error() string {
	return e.Question.Required
}

func (e *UnansweredError) Is(target error) bool {
	return target == ErrUnanswered
}

// Session is one pass through the wizard. Current is the index of the
// question on screen; every question before it has been answered, and
// Current == funnel.QuestionCount() means the results are showing.
type Session struct {
	ID           string         `json:"id"`
	Answers      funnel.Answers `json:"answers"`
	Current      int            `json:"current"`
	LastProgress float64        `json:"lastProgress"`
	CreatedAt    string         `json:"createdAt"`
	UpdatedAt    string         `json:"updatedAt"`
}

// Completed reports whether every question has been passed.
func (s *Session) Completed() bool {
	return s.Current >= funnel.QuestionCount()
}

// Next moves past the current question if it is answered.
func (s *Session) Next() error {
	if s.Completed() {
		return nil
	}
	if !funnel.IsAnswered(s.Answers, s.Current) {
		return &UnansweredError{Question: funnel.Questions()[s.Current]}
	}
	s.Current++
	return nil
}

// SetAnswers replaces the answers. If one before the current question was
// cleared, the session moves back to it.
func (s *Session) SetAnswers(a funnel.Answers) {
	s.Answers = a
	if first := funnel.FirstUnanswered(a); first < s.Current {
		s.Current = first
	}
}

// Back returns to the previous question; answers are kept.
func (s *Session) Back() {
	if s.Current > 0 {
		s.Current--
	}
}

// Reset clears every answer and returns to the first question.
func (s *Session) Reset() {
	s.Answers = funnel.Answers{}
	s.Current = 0
	s.LastProgress = 100
}

// Render records p as the displayed progress if it differs enough from the
// last one, and reports whether it did.
func (s *Session) Render(p float64) bool {
	if !funnel.Changed(s.LastProgress, p) {
		return false
	}
	s.LastProgress = p
	return true
}

// Store handles session persistence as one JSON file per session.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a session store under dataDir.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// List returns all sessions, newest first.
func (s *Store) List() ([]*Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	sessions := []*Session{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		sess, err := s.load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt != sessions[j].CreatedAt {
			return sessions[i].CreatedAt > sessions[j].CreatedAt
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// Get retrieves a session by ID.
func (s *Store) Get(id string) (*Session, error) {
	return s.load(id)
}

// Create starts a session at the first question with everything unanswered.
func (s *Store) Create() (*Session, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	sess := &Session{
		ID:           uuid.New().String(),
		LastProgress: 100,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Update applies fn to the stored session and saves the result.
func (s *Store) Update(id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// path rejects anything that is not a UUID, so IDs cannot escape the directory.
func (s *Store) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *Store) load(id string) (*Session, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &sess, nil
}

func (s *Store) save(sess *Session) error {
	path, err := s.path(sess.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
