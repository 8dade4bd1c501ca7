// Package generator runs one round of card generation: it resolves the
// phase for the caller's position in the session, renders the prompt, calls
// the backend and turns the reply into a numbered card batch.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/swipetherapy/swipe-therapy/pkg/audit"
	"github.com/swipetherapy/swipe-therapy/pkg/backend"
	"github.com/swipetherapy/swipe-therapy/pkg/cards"
	"github.com/swipetherapy/swipe-therapy/pkg/phase"
	"github.com/swipetherapy/swipe-therapy/pkg/prompt"
)

const slogKeyError = "error"

// Input is one generation request.
type Input struct {
	History      []cards.AnswerRecord `json:"history"`
	CurrentCount int                  `json:"current_count"`

	// RequestID correlates the attempt in logs and the audit trail.
	// A random id is used when empty.
	RequestID string `json:"-"`
}

// Batch is the successful result of one round.
type Batch struct {
	Cards []cards.Card `json:"cards"`
	Phase phase.Phase  `json:"-"`
}

// Config configures a Service.
type Config struct {
	// Table defaults to phase.DefaultTable.
	Table *phase.Table

	// Builder defaults to a builder over Table.
	Builder *prompt.Builder

	// Backend may be nil when no credential is configured; every call then
	// fails with a ConfigurationError.
	Backend backend.Generator

	// Variant is recorded in the audit trail.
	Variant string

	// Audit defaults to a slog-backed audit logger.
	Audit audit.Logger

	// StoreRawOutput keeps raw backend text on failed audit events.
	StoreRawOutput bool

	Logger *slog.Logger
}

// Service generates card batches.
type Service struct {
	table    *phase.Table
	builder  *prompt.Builder
	backend  backend.Generator
	variant  string
	audit    audit.Logger
	storeRaw bool
	logger   *slog.Logger
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Table == nil {
		cfg.Table = phase.DefaultTable()
	}
	if cfg.Builder == nil {
		b, err := prompt.NewBuilder(cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("creating prompt builder: %w", err)
		}
		cfg.Builder = b
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewSlogLogger(cfg.Logger)
	}
	return &Service{
		table:    cfg.Table,
		builder:  cfg.Builder,
		backend:  cfg.Backend,
		variant:  cfg.Variant,
		audit:    cfg.Audit,
		storeRaw: cfg.StoreRawOutput,
		logger:   cfg.Logger,
	}, nil
}

// Generate produces the next card batch. Failures are returned as *Error.
// The attempt is recorded in the audit log whatever the outcome.
func (s *Service) Generate(ctx context.Context, in Input) (Batch, error) {
	start := time.Now()
	if in.RequestID == "" {
		in.RequestID = uuid.NewString()
	}
	event := audit.NewEvent(in.RequestID).WithBackend(s.variant)

	if in.CurrentCount < 0 {
		err := newError(ErrorTypeValidation, fmt.Errorf("current_count must be non-negative, got %d", in.CurrentCount), backend.Result{})
		s.record(ctx, event.WithFailure(string(err.Type), err.Err.Error(), "", false, time.Since(start)))
		return Batch{}, err
	}

	p := s.table.Resolve(in.CurrentCount)
	event.WithPhase(string(p.Name), in.CurrentCount, len(in.History))
	logger := s.logger.With("request_id", in.RequestID, "phase", p.Name, "current_count", in.CurrentCount)

	batch, raw, err := s.run(ctx, p, in)
	if err != nil {
		var gerr *Error
		if !errors.As(err, &gerr) {
			gerr = newError(ErrorTypeBackendCallFailed, err, backend.Result{})
		}
		logger.Warn("card generation failed", "error_type", gerr.Type, slogKeyError, gerr.Err)
		s.record(ctx, event.WithFailure(string(gerr.Type), gerr.Err.Error(), raw, s.storeRaw, time.Since(start)))
		return Batch{}, gerr
	}

	if want := p.TotalBudget(); len(batch.Cards) != want {
		logger.Warn("card batch size differs from budget", "cards", len(batch.Cards), "budget", want)
	}
	logger.Info("card batch generated", "cards", len(batch.Cards), "duration", time.Since(start))
	s.record(ctx, event.WithSuccess(len(batch.Cards), time.Since(start)))
	return batch, nil
}

// run executes the pipeline. The raw backend text is returned alongside
// errors so it can be kept for triage.
func (s *Service) run(ctx context.Context, p phase.Phase, in Input) (Batch, string, error) {
	if s.backend == nil {
		return Batch{}, "", newError(ErrorTypeConfiguration, ErrNoBackend, backend.Result{})
	}

	req, err := s.builder.Build(p, in.CurrentCount, in.History)
	if err != nil {
		return Batch{}, "", newError(ErrorTypeConfiguration, err, backend.Result{})
	}

	res, err := s.backend.Generate(ctx, req)
	if err != nil {
		return Batch{}, res.Text, newError(classifyBackendError(err), err, res)
	}

	parsed, err := cards.Parse(res.Text, in.CurrentCount)
	if err != nil {
		return Batch{}, res.Text, newError(ErrorTypeMalformedOutput, err, res)
	}
	return Batch{Cards: parsed, Phase: p}, "", nil
}

// record writes an audit event. Audit failures never fail the request, and
// the write outlives a cancelled request so aborted calls are still recorded.
func (s *Service) record(ctx context.Context, event *audit.Event) {
	if err := s.audit.Log(context.WithoutCancel(ctx), *event); err != nil {
		s.logger.Error("failed to record generation audit event", "request_id", event.RequestID, slogKeyError, err)
	}
}
