// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ManuGH/riskwatch/internal/log"
	"github.com/ManuGH/riskwatch/internal/screentime"
	"github.com/ManuGH/riskwatch/internal/stream"
)

// Processor runs one decoded sample; *Orchestrator implements it.
type Processor interface {
	Process(ctx context.Context, evt screentime.Event) (Run, error)
}

// Dispatcher filters inbound envelopes and routes screen-time samples to the
// pipeline. Only failed runs are reported as errors; everything that cannot
// ever succeed is dropped so the transport acknowledges it.
type Dispatcher struct {
	proc   Processor
	logger zerolog.Logger
}

func NewDispatcher(proc Processor, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{proc: proc, logger: logger}
}

var _ stream.Handler = (*Dispatcher)(nil)

// Handle implements stream.Handler. Every log line of the run carries the
// inbound entry as correlation id, since entry ids are only unique per stream.
func (d *Dispatcher) Handle(ctx context.Context, msg stream.Message) error {
	ctx = log.ContextWithMessageID(ctx, msg.ID)
	ctx = log.ContextWithCorrelationID(ctx, msg.Stream+"/"+msg.ID)
	logger := log.WithContext(ctx, d.logger).With().
		Str(log.FieldStream, msg.Stream).
		Logger()

	env, err := screentime.DecodeEnvelope(msg.Payload)
	if err != nil {
		dispatchTotal.WithLabelValues("malformed").Inc()
		logger.Warn().Err(err).Str(log.FieldEvent, "dispatch.malformed").Msg("dropping malformed envelope")
		return nil
	}
	if env.Type != screentime.TypeScreenTimeCaptured {
		dispatchTotal.WithLabelValues("ignored").Inc()
		logger.Debug().Str(log.FieldEvent, "dispatch.ignored").Str(log.FieldEnvelope, env.Type).Msg("ignoring envelope")
		return nil
	}

	evt, err := screentime.DecodeEvent(env.Data)
	if err != nil {
		outcome := "malformed"
		if errors.Is(err, screentime.ErrMissingUserID) {
			outcome = "missing_user_id"
		}
		dispatchTotal.WithLabelValues(outcome).Inc()
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "dispatch.dropped").
			Str("reason", outcome).
			Msg("dropping screen time event")
		return nil
	}

	dispatchTotal.WithLabelValues("routed").Inc()
	_, err = d.proc.Process(ctx, evt)
	return err
}
