// Package session owns the conversation list, the active-conversation pointer,
// and the running eco totals.
//
// A Store is not safe for concurrent mutation. One control loop (the TUI
// update loop, or a single CLI command) is expected to drive it.
package session

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/greenstudio/greenstudio/internal/model"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const titleMaxChars = 30

// ErrCorruptState is returned by Open when the persisted blob cannot be decoded.
var ErrCorruptState = errors.New("session: persisted state is corrupt")

// Store is the single owner of all sessions.
type Store struct {
	port     Port
	sessions []model.ChatSession // most recent first
	activeID string

	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDFunc overrides ID generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open restores state from port. When nothing is stored (or the stored list
// is empty) a fresh session is created. A blob that fails to decode yields
// ErrCorruptState and no Store; Clear the port to recover.
func Open(port Port, opts ...Option) (*Store, error) {
	s := &Store{
		port:   port,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, found, err := port.Load()
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	if found {
		var sessions []model.ChatSession
		if err := sonic.Unmarshal(data, &sessions); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		s.sessions = sessions
	}

	if len(s.sessions) == 0 {
		if _, err := s.CreateSession(); err != nil {
			return nil, err
		}
		return s, nil
	}

	s.activeID = s.sessions[0].ID
	s.logger.Debug("sessions restored", zap.Int("count", len(s.sessions)))
	return s, nil
}

// CreateSession inserts an empty session at the head of the list and makes it active.
func (s *Store) CreateSession() (string, error) {
	sess := model.ChatSession{
		ID:        s.newID(),
		CreatedAt: s.now(),
		Messages:  []model.Message{},
	}
	s.sessions = append([]model.ChatSession{sess}, s.sessions...)
	s.activeID = sess.ID
	s.logger.Debug("session created", zap.String("session", sess.ID))
	return sess.ID, s.persist()
}

// SelectSession makes id the active session. It reports false, leaving the
// pointer unchanged, when id is unknown.
func (s *Store) SelectSession(id string) bool {
	if s.indexOf(id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// AppendMessage adds msg to the end of session id. It reports false, with no
// effect, when the session does not exist. The first user message sets the
// title; metrics, when present, are added into the session totals.
// A missing ID or timestamp is filled in.
func (s *Store) AppendMessage(id string, msg model.Message) (bool, error) {
	i := s.indexOf(id)
	if i < 0 {
		s.logger.Warn("append to unknown session", zap.String("session", id))
		return false, nil
	}

	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	if msg.Metrics != nil {
		m := *msg.Metrics
		msg.Metrics = &m
	}

	sess := &s.sessions[i]
	if msg.Role == model.SpeakerUser && !sess.HasUserMessage() {
		sess.Title = Title(msg.Text)
	}
	if msg.Metrics != nil {
		sess.SessionTotals = sess.SessionTotals.Add(*msg.Metrics)
	}
	sess.Messages = append(sess.Messages, msg)

	return true, s.persist()
}

// DeleteSession removes session id. Deleting the active session creates a
// replacement so an active session always exists.
func (s *Store) DeleteSession(id string) (bool, error) {
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
	s.logger.Debug("session deleted", zap.String("session", id))

	if id == s.activeID {
		_, err := s.CreateSession()
		return true, err
	}
	return true, s.persist()
}

// Reset discards every session and starts over with one fresh session.
func (s *Store) Reset() error {
	s.sessions = nil
	s.activeID = ""
	_, err := s.CreateSession()
	return err
}

// GlobalStats folds the totals of every held session.
func (s *Store) GlobalStats() model.GlobalStats {
	var g model.GlobalStats
	for _, sess := range s.sessions {
		g.TotalCarbonSaved += sess.SessionTotals.CarbonSavedGrams
		g.TotalEnergySaved += sess.SessionTotals.EnergySavedKWh
		g.TotalWaterSaved += sess.SessionTotals.WaterSavedLitres
		g.TotalTokensSaved += sess.SessionTotals.TokensSaved
	}
	return g
}

// ActiveID returns the active session ID.
func (s *Store) ActiveID() string {
	return s.activeID
}

// Active returns a copy of the active session.
func (s *Store) Active() model.ChatSession {
	sess, _ := s.Session(s.activeID)
	return sess
}

// Session returns a copy of session id.
func (s *Store) Session(id string) (model.ChatSession, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return model.ChatSession{}, false
	}
	return cloneSession(s.sessions[i]), true
}

// Sessions returns copies of all sessions, most recent first.
func (s *Store) Sessions() []model.ChatSession {
	out := make([]model.ChatSession, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = cloneSession(sess)
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	return len(s.sessions)
}

func (s *Store) indexOf(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persist() error {
	data, err := sonic.Marshal(s.sessions)
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	if err := s.port.Save(data); err != nil {
		return fmt.Errorf("persisting sessions: %w", err)
	}
	return nil
}

func cloneSession(s model.ChatSession) model.ChatSession {
	msgs := make([]model.Message, len(s.Messages))
	copy(msgs, s.Messages)
	s.Messages = msgs
	return s
}

// Title derives a session title from the first user message: the first 30
// characters, with "..." appended when the text was longer.
func Title(text string) string {
	if utf8.RuneCountInString(text) <= titleMaxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleMaxChars]) + "..."
}
