// Package server exposes the generation boundary and the orchestration
// pipeline over HTTP, with a live feed of served generations.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/greenstudio/greenstudio/internal/builder"
	"github.com/greenstudio/greenstudio/internal/eco"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/orchestrator"
	"github.com/greenstudio/greenstudio/internal/provider"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxRequestBody = 1 << 20 // 1 MB

// Event types.
const (
	EventGeneration = "generation"
	EventFailure    = "failure"
	EventSnapshot   = "snapshot"
)

// Config controls the server runtime behavior.
type Config struct {
	Addr         string
	EventsBuffer int
	Model        string
}

// Event is emitted whenever a request is served.
type Event struct {
	ID        int64            `json:"id"`
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Endpoint  string           `json:"endpoint,omitempty"`
	Role      string           `json:"role,omitempty"`
	Metrics   model.EcoMetrics `json:"metrics"`
	Totals    model.EcoMetrics `json:"totals"`
	Error     string           `json:"error,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time        `json:"started_at"`
	Addr            string           `json:"addr"`
	Model           string           `json:"model,omitempty"`
	Requests        int64            `json:"requests"`
	Failures        int64            `json:"failures"`
	Totals          model.EcoMetrics `json:"totals"`
	LastError       string           `json:"last_error,omitempty"`
	EventCount      int              `json:"event_count"`
	SubscriberCount int              `json:"subscriber_count"`
}

// Service provides the HTTP API. It holds no conversation state; callers
// send the history they want considered.
type Service struct {
	cfg    Config
	gen    provider.Generator
	orch   *orchestrator.Orchestrator
	logger *zap.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	requests    int64
	failures    int64
	lastError   string
	totals      model.EcoMetrics
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a server backed by gen.
func New(cfg Config, gen provider.Generator, logger *zap.Logger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:5174"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cfg:       cfg,
		gen:       gen,
		orch:      orchestrator.New(gen, orchestrator.WithLogger(logger)),
		logger:    logger,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the routed HTTP handler.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/orchestrate", s.handleOrchestrate)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	return mux
}

// Run serves HTTP until ctx is canceled or the listener fails.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("greenstudio http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type generateRequest struct {
	Prompt            string       `json:"prompt"`
	SystemInstruction string       `json:"systemInstruction"`
	History           []model.Turn `json:"history"`
}

type orchestrateRequest struct {
	Prompt  string       `json:"prompt"`
	Role    string       `json:"role"`
	History []model.Turn `json:"history"`
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

// acceptPost applies CORS and method checks. It reports whether the
// handler should continue.
func acceptPost(w http.ResponseWriter, r *http.Request) bool {
	setCORS(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return false
	case http.MethodPost:
		return true
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return false
	}
}

func decodeBody(r *http.Request, v any) error {
	return sonic.ConfigDefault.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
}

func (s *Service) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !acceptPost(w, r) {
		return
	}

	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing prompt"})
		return
	}

	text, err := s.gen.Generate(r.Context(), req.Prompt, req.SystemInstruction, req.History)
	if err != nil {
		s.recordFailure("/api/generate", "", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	s.recordGeneration("/api/generate", "", eco.Estimate(text))
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Service) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	if !acceptPost(w, r) {
		return
	}

	var req orchestrateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing prompt"})
		return
	}

	role, _ := builder.ParseRole(req.Role)
	res, err := s.orch.Run(r.Context(), req.Prompt, role, req.History)
	if err != nil {
		s.recordFailure("/api/orchestrate", string(role), err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	s.recordGeneration("/api/orchestrate", string(role), res.Metrics)
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) recordGeneration(endpoint, role string, m model.EcoMetrics) {
	s.mu.Lock()
	s.requests++
	s.totals = s.totals.Add(m)
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      EventGeneration,
		Timestamp: time.Now(),
		Endpoint:  endpoint,
		Role:      role,
		Metrics:   m,
		Totals:    s.totals,
	}
	s.publishLocked(ev)
	s.mu.Unlock()

	s.logger.Info("generation served",
		zap.Int64("event", ev.ID),
		zap.String("endpoint", endpoint),
		zap.String("role", role),
		zap.Int64("tokens_saved", m.TokensSaved),
	)
}

func (s *Service) recordFailure(endpoint, role string, err error) {
	s.mu.Lock()
	s.requests++
	s.failures++
	s.lastError = err.Error()
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      EventFailure,
		Timestamp: time.Now(),
		Endpoint:  endpoint,
		Role:      role,
		Totals:    s.totals,
		Error:     err.Error(),
	}
	s.publishLocked(ev)
	s.mu.Unlock()

	s.logger.Warn("generation failed",
		zap.Int64("event", ev.ID),
		zap.String("endpoint", endpoint),
		zap.String("role", role),
		zap.Error(err),
	)
}

// publishLocked appends ev to the ring buffer and fans it out. Callers hold
// mu, so buffer and subscriber order follow event IDs.
func (s *Service) publishLocked(ev Event) {
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		Addr:            s.cfg.Addr,
		Model:           s.cfg.Model,
		Requests:        s.requests,
		Failures:        s.failures,
		Totals:          s.totals,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Current totals first, so a new subscriber has a baseline.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Totals:    s.snapshotStatus().Totals,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
