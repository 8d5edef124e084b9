// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import "github.com/ManuGH/riskwatch/internal/pipeline/fsm"

// State is a step of one pipeline run.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateWindowed   State = "WINDOWED"
	StateEncoded    State = "ENCODED"
	StateScored     State = "SCORED"
	StateClassified State = "CLASSIFIED"
	StatePublished  State = "PUBLISHED"
	StateSkipped    State = "SKIPPED"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

type trigger string

const (
	trAppended   trigger = "window_appended"
	trEncoded    trigger = "window_encoded"
	trScored     trigger = "scored"
	trClassified trigger = "classified"
	trPublished  trigger = "intervention_published"
	trSkipped    trigger = "intervention_skipped"
	trCompleted  trigger = "completed"
	trFailed     trigger = "failed"
)

// runDefinition is shared by every run. FAILED is only reachable before a
// score exists; once classified a run always completes.
var runDefinition = fsm.MustDefinition(StateReceived, []fsm.Transition[State, trigger]{
	{From: StateReceived, Event: trAppended, To: StateWindowed},
	{From: StateWindowed, Event: trEncoded, To: StateEncoded},
	{From: StateEncoded, Event: trScored, To: StateScored},
	{From: StateScored, Event: trClassified, To: StateClassified},
	{From: StateClassified, Event: trPublished, To: StatePublished},
	{From: StateClassified, Event: trSkipped, To: StateSkipped},
	{From: StatePublished, Event: trCompleted, To: StateDone},
	{From: StateSkipped, Event: trCompleted, To: StateDone},

	{From: StateReceived, Event: trFailed, To: StateFailed},
	{From: StateWindowed, Event: trFailed, To: StateFailed},
	{From: StateEncoded, Event: trFailed, To: StateFailed},
}, StateDone, StateFailed)
