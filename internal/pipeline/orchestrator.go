// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pipeline runs one screen-time sample through window update,
// encoding, scoring, classification and the intervention decision.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/riskwatch/internal/features"
	"github.com/ManuGH/riskwatch/internal/intervention"
	"github.com/ManuGH/riskwatch/internal/log"
	"github.com/ManuGH/riskwatch/internal/pipeline/fsm"
	"github.com/ManuGH/riskwatch/internal/risk"
	"github.com/ManuGH/riskwatch/internal/riskmodel"
	"github.com/ManuGH/riskwatch/internal/screentime"
	"github.com/ManuGH/riskwatch/internal/telemetry"
	"github.com/ManuGH/riskwatch/internal/window"
)

// Scorer is the risk model as seen by the pipeline.
type Scorer interface {
	Infer(ctx context.Context, w features.Window) (float64, riskmodel.Mode, error)
}

// Deps are the collaborators of an Orchestrator. All are required.
type Deps struct {
	Store      window.Store
	Model      Scorer
	Classifier *risk.Classifier
	Publisher  intervention.Publisher
	Logger     zerolog.Logger
}

// Orchestrator is built once at startup and shared by every worker.
type Orchestrator struct {
	store      window.Store
	model      Scorer
	classifier *risk.Classifier
	publisher  intervention.Publisher
	logger     zerolog.Logger
	tracer     trace.Tracer
}

func New(d Deps) (*Orchestrator, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("pipeline: window store is required")
	case d.Model == nil:
		return nil, errors.New("pipeline: risk model is required")
	case d.Classifier == nil:
		return nil, errors.New("pipeline: classifier is required")
	case d.Publisher == nil:
		return nil, errors.New("pipeline: publisher is required")
	}
	return &Orchestrator{
		store:      d.Store,
		model:      d.Model,
		classifier: d.Classifier,
		publisher:  d.Publisher,
		logger:     d.Logger,
		tracer:     telemetry.Tracer("riskwatch/pipeline"),
	}, nil
}

// Run is the record of one pipeline execution.
type Run struct {
	UserID string
	States []State
	// WindowLen is the number of real sessions scored.
	WindowLen    int
	Mode         riskmodel.Mode
	Assessment   risk.Assessment
	Intervention *screentime.InterventionEvent
	// PublishErr is set when the intervention could not be delivered. The run
	// still completes.
	PublishErr error
}

// Final is the last state reached.
func (r Run) Final() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

// RunError reports a run that ended in FAILED.
type RunError struct {
	State State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pipeline run failed in %s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

type runner struct {
	m   *fsm.Machine[State, trigger]
	run *Run
	log zerolog.Logger
}

func (r *runner) advance(ctx context.Context, t trigger) error {
	from := r.m.State()
	to, err := r.m.Fire(ctx, t)
	if err != nil {
		return err
	}
	recordTransition(from, to)
	r.run.States = r.m.History()
	r.log.Debug().
		Str(log.FieldEvent, "pipeline.transition").
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Msg("run state changed")
	return nil
}

func (r *runner) fail(ctx context.Context, cause error) error {
	at := r.m.State()
	if err := r.advance(ctx, trFailed); err != nil {
		return errors.Join(cause, err)
	}
	return &RunError{State: at, Err: cause}
}

// Process runs evt through the pipeline. A non-nil error means the run ended
// in FAILED and the inbound message must not be acknowledged.
func (o *Orchestrator) Process(ctx context.Context, evt screentime.Event) (run Run, err error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(telemetry.RunAttributes(evt.UserID)...))
	ctx = log.ContextWithUserID(ctx, evt.UserID)

	r := &runner{
		m:   runDefinition.Start(),
		run: &run,
		log: log.WithContext(ctx, o.logger),
	}
	run.UserID = evt.UserID
	run.States = r.m.History()

	defer func() {
		final := run.Final()
		runsTotal.WithLabelValues(string(final), string(run.Mode)).Inc()
		runDuration.WithLabelValues(string(final)).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String(telemetry.PipelineStateKey, string(final)))
		if err != nil {
			span.RecordError(err, trace.WithAttributes(telemetry.ErrorAttributes(err, errorType(err))...))
			span.SetStatus(codes.Error, err.Error())
			r.log.Error().
				Err(err).
				Str(log.FieldEvent, "pipeline.run_failed").
				Str(log.FieldNewState, string(final)).
				Msg("pipeline run failed")
		}
		span.End()
	}()

	records, err := o.store.AppendRead(ctx, evt.UserID, evt)
	if err != nil {
		err = r.fail(ctx, err)
		return run, err
	}
	if err := r.advance(ctx, trAppended); err != nil {
		return run, err
	}

	w := features.EncodeWindow(records)
	run.WindowLen = w.Len
	if err := r.advance(ctx, trEncoded); err != nil {
		return run, err
	}

	inferStart := time.Now()
	p, mode, err := o.model.Infer(ctx, w)
	run.Mode = mode
	if err != nil {
		err = r.fail(ctx, fmt.Errorf("score window: %w", err))
		return run, err
	}
	inferenceDuration.WithLabelValues(string(mode)).Observe(time.Since(inferStart).Seconds())
	if err := r.advance(ctx, trScored); err != nil {
		return run, err
	}

	a := o.classifier.Classify(p)
	run.Assessment = a
	riskLevelsTotal.WithLabelValues(string(a.Level), string(mode)).Inc()
	span.SetAttributes(telemetry.ScoreAttributes(string(a.Level), string(mode), a.Probability)...)
	if err := r.advance(ctx, trClassified); err != nil {
		return run, err
	}

	if a.RequiresIntervention() {
		ev := screentime.NewIntervention(evt, a.Probability, string(a.Level))
		run.Intervention = &ev
		if perr := o.publisher.Publish(ctx, ev); perr != nil {
			run.PublishErr = perr
			r.log.Warn().
				Err(perr).
				Str(log.FieldEvent, "pipeline.publish_failed").
				Str(log.FieldRiskLevel, string(a.Level)).
				Float64(log.FieldProbability, a.Probability).
				Msg("intervention publish failed; completing run")
		}
		if err := r.advance(ctx, trPublished); err != nil {
			return run, err
		}
	} else if err := r.advance(ctx, trSkipped); err != nil {
		return run, err
	}
	recordDecision(ctx, a.Level, string(mode), a.RequiresIntervention())

	if err := r.advance(ctx, trCompleted); err != nil {
		return run, err
	}

	r.log.Info().
		Str(log.FieldEvent, "pipeline.run_completed").
		Str(log.FieldRiskLevel, string(a.Level)).
		Float64(log.FieldProbability, a.Probability).
		Str(log.FieldModelMode, string(mode)).
		Int("window_len", w.Len).
		Bool("intervention", run.Intervention != nil).
		Msg("pipeline run completed")
	return run, nil
}

// errorType buckets run failures for span attributes.
func errorType(err error) string {
	switch {
	case errors.Is(err, window.ErrUnavailable):
		return "window_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, riskmodel.ErrEmptyWindow), errors.Is(err, riskmodel.ErrInference):
		return "model"
	default:
		return "internal"
	}
}
