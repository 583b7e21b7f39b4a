// Package chat drives one conversation turn: validate the prompt, record it,
// run the orchestrator, and record the reply or the failure.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/greenstudio/greenstudio/internal/builder"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/orchestrator"
	"github.com/greenstudio/greenstudio/internal/provider"
	"github.com/greenstudio/greenstudio/internal/session"

	"go.uber.org/zap"
)

// FailureText is recorded as a system message when generation fails.
const FailureText = "Error connecting to GreenGemini. Please check if backend is running."

var (
	// ErrEmptyPrompt rejects a missing or whitespace-only prompt.
	ErrEmptyPrompt = errors.New("chat: prompt is empty")
	// ErrSessionNotFound is returned when the target session does not exist.
	ErrSessionNotFound = errors.New("chat: session not found")
)

// Runner is the pipeline the service drives.
type Runner interface {
	Run(ctx context.Context, prompt string, role builder.Role, history []model.Turn) (orchestrator.Result, error)
}

// Service couples a session store with the orchestration pipeline.
// Like the store, it expects one caller at a time.
type Service struct {
	store  *session.Store
	runner Runner
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(store *session.Store, runner Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, runner: runner, logger: logger}
}

// Store returns the underlying session store.
func (s *Service) Store() *session.Store {
	return s.store
}

// Reply is what a submitted prompt produced.
type Reply struct {
	SessionID string
	Message   model.Message
	Audit     []model.AuditEntry
}

// Validate checks a prompt before anything is recorded or sent.
func Validate(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// Pending is a prompt that has been recorded and is waiting for its reply.
type Pending struct {
	SessionID string
	Prompt    string
	Role      builder.Role
	History   []model.Turn
}

// Submit sends prompt within session sessionID (the active session when empty).
//
// On a provider failure a system message is appended to the session and the
// provider error is returned; the caller decides whether to retry.
func (s *Service) Submit(ctx context.Context, sessionID, prompt string, role builder.Role) (Reply, error) {
	p, err := s.Begin(sessionID, prompt, role)
	if err != nil {
		return Reply{}, err
	}
	res, runErr := s.Generate(ctx, p)
	return s.Finish(p, res, runErr)
}

// Begin validates prompt, snapshots the prior history, and records the user
// message. History excludes the new prompt and any system messages.
func (s *Service) Begin(sessionID, prompt string, role builder.Role) (Pending, error) {
	if err := Validate(prompt); err != nil {
		return Pending{}, err
	}
	if sessionID == "" {
		sessionID = s.store.ActiveID()
	}

	sess, ok := s.store.Session(sessionID)
	if !ok {
		return Pending{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	history := model.History(sess.Messages)

	if _, err := s.store.AppendMessage(sessionID, model.Message{Role: model.SpeakerUser, Text: prompt}); err != nil {
		return Pending{}, err
	}
	return Pending{SessionID: sessionID, Prompt: prompt, Role: role, History: history}, nil
}

// Generate runs the pipeline for p. It does not touch the store, so it may
// run off the goroutine that owns it.
func (s *Service) Generate(ctx context.Context, p Pending) (orchestrator.Result, error) {
	return s.runner.Run(ctx, p.Prompt, p.Role, p.History)
}

// Finish records the outcome of Generate: the assistant reply with its
// metrics, or a system message describing the failure. runErr is returned
// unchanged.
func (s *Service) Finish(p Pending, res orchestrator.Result, runErr error) (Reply, error) {
	if runErr != nil {
		s.logger.Warn("prompt failed",
			zap.String("session", p.SessionID),
			zap.String("role", string(p.Role)),
			zap.Error(runErr))

		msg := model.Message{Role: model.SpeakerSystem, Text: FailureMessage(runErr)}
		if _, err := s.store.AppendMessage(p.SessionID, msg); err != nil {
			return Reply{}, errors.Join(runErr, err)
		}
		return Reply{SessionID: p.SessionID, Message: s.lastMessage(p.SessionID)}, runErr
	}

	metrics := res.Metrics
	msg := model.Message{Role: model.SpeakerAssistant, Text: res.Text, Metrics: &metrics}
	if _, err := s.store.AppendMessage(p.SessionID, msg); err != nil {
		return Reply{}, err
	}

	s.logger.Debug("prompt answered",
		zap.String("session", p.SessionID),
		zap.String("role", string(p.Role)),
		zap.Int64("tokens_saved", metrics.TokensSaved))
	return Reply{SessionID: p.SessionID, Message: s.lastMessage(p.SessionID), Audit: res.Audit}, nil
}

// FailureMessage is the system message text recorded for err.
func FailureMessage(err error) string {
	text := FailureText
	var pe *provider.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		text += " (" + pe.Message + ")"
	}
	return text
}

func (s *Service) lastMessage(sessionID string) model.Message {
	sess, ok := s.store.Session(sessionID)
	if !ok || len(sess.Messages) == 0 {
		return model.Message{}
	}
	return sess.Messages[len(sess.Messages)-1]
}
