// Package orchestrator runs the generation and eco-accounting pipeline for one prompt.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/greenstudio/greenstudio/internal/builder"
	"github.com/greenstudio/greenstudio/internal/eco"
	"github.com/greenstudio/greenstudio/internal/model"
	"github.com/greenstudio/greenstudio/internal/provider"

	"go.uber.org/zap"
)

// Agent names recorded in the audit log.
const (
	AgentOrchestrator = "orchestrator"
	AgentEnergy       = "energy"
	AgentCarbon       = "carbon"
	AgentWater        = "water"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Text    string             `json:"text"`
	Metrics model.EcoMetrics   `json:"metrics"`
	Audit   []model.AuditEntry `json:"audit"`
}

// Orchestrator sequences instruction resolution, generation, and metric
// calculation. It keeps no state between runs, so one value may serve
// concurrent requests.
type Orchestrator struct {
	gen    provider.Generator
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the audit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an Orchestrator backed by gen.
func New(gen provider.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:    gen,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// audit accumulates step markers in pipeline order.
type audit struct {
	entries []model.AuditEntry
	now     func() time.Time
	logger  *zap.Logger
}

func (a *audit) add(agent, status string) {
	a.entries = append(a.entries, model.AuditEntry{Agent: agent, Status: status, Timestamp: a.now()})
	a.logger.Debug(status, zap.String("agent", agent))
}

// Run routes prompt through role and returns the generated text with its
// metrics and audit log. A generation failure is returned unchanged and no
// metrics are computed. Validation of prompt is the caller's job.
func (o *Orchestrator) Run(ctx context.Context, prompt string, role builder.Role, history []model.Turn) (Result, error) {
	log := &audit{now: o.now, logger: o.logger.With(zap.String("role", string(role)))}

	log.add(AgentOrchestrator, fmt.Sprintf("Routing to %s...", role))

	instruction := builder.Instruction(role)
	log.add(string(role), "Generating optimized output...")

	text, err := o.gen.Generate(ctx, prompt, instruction, history)
	if err != nil {
		o.logger.Warn("generation failed", zap.String("role", string(role)), zap.Error(err))
		return Result{}, err
	}

	used := eco.TokensUsed(text)
	baseline := eco.BaselineTokens(used)
	saved := baseline - used

	log.add(AgentEnergy, "Calculating energy savings...")
	energy := eco.EnergyFromTokensSaved(saved)

	log.add(AgentCarbon, "Evaluating CO2 displacement...")
	carbon := eco.CarbonFromEnergy(energy)

	log.add(AgentWater, "Auditing water footprint...")
	water := eco.WaterFromTokensSaved(saved)

	log.add(AgentOrchestrator, "Consolidating eco-audit report.")

	metrics := model.EcoMetrics{
		TokensUsed:              used,
		EstimatedBaselineTokens: baseline,
		TokensSaved:             saved,
		EnergySavedKWh:          energy,
		WaterSavedLitres:        water,
		CarbonSavedGrams:        carbon,
	}

	o.logger.Info("generation complete",
		zap.String("role", string(role)),
		zap.Int64("tokens_used", used),
		zap.Int64("tokens_saved", saved))

	return Result{Text: text, Metrics: metrics, Audit: log.entries}, nil
}
