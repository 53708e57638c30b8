// Package saga is the Saga Engine of spec.md §4.2: it drives a fixed
// sequence of Steps forward, and — on the first failure or an
// external abort — walks the steps eligible for compensation in
// reverse, undoing each one.
//
// Grounded on the teacher's pkg/saga/saga.go: the same two-phase
// Execute/compensate shape, the same "keep going past a compensation
// failure" rule, and the same ctx-cancellation check between (not
// during) steps. Where the teacher's Saga is a standalone,
// self-contained type, this Engine is a separate value so it can hold
// shared dependencies (logger, metrics) without the Saga itself
// needing to know about them — spec.md §9's anti-singleton note
// applies here too: Engine is constructed with its dependencies, never
// reached for as a package-level default.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiebiao/saga-coordinator/internal/communicator"
	"github.com/xiebiao/saga-coordinator/internal/obsmetrics"
)

// Journal is the durability extension point of spec.md §9, declared
// here (rather than imported from internal/journal) so that package
// can depend on saga's types without saga depending back on it.
// internal/journal.NoOp and internal/journal.GORMJournal both satisfy
// this interface structurally.
type Journal interface {
	RecordEntry(ctx context.Context, sagaID string, entry ExecutionLogEntry) error
	RecordStatus(ctx context.Context, sagaID string, status Status) error
}

// Engine executes sagas built from a fixed step sequence.
type Engine struct {
	log     *slog.Logger
	metrics *obsmetrics.Metrics
	journal Journal
}

// NewEngine builds an Engine. metrics and journal may both be nil —
// a nil journal simply means nothing is recorded (see
// internal/journal.NoOp for the explicit equivalent).
func NewEngine(log *slog.Logger, metrics *obsmetrics.Metrics, journal Journal) *Engine {
	return &Engine{log: log, metrics: metrics, journal: journal}
}

func (e *Engine) recordEntry(ctx context.Context, sagaID string, entry ExecutionLogEntry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordEntry(ctx, sagaID, entry); err != nil {
		e.log.Warn("journal write failed", "saga_id", sagaID, "index", entry.Index, "error", err)
	}
}

func (e *Engine) recordStatus(ctx context.Context, sagaID string, status Status) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordStatus(ctx, sagaID, status); err != nil {
		e.log.Warn("journal status write failed", "saga_id", sagaID, "error", err)
	}
}

// Execute runs s's steps in order. Cancellation (ctx.Done) is checked
// between steps, never inside one — a step already in flight against
// a participant always runs to completion or its own timeout before
// the saga notices cancellation (spec.md §5 "Cancellation is checked
// between steps, not within one"). An abort delivered before step 0
// ever begins terminates ABORTED with an empty execution log
// (spec.md §8's boundary behavior); an abort noticed once at least one
// step has run instead compensates everything eligible and terminates
// ABORTED.
//
// On a step's own failure, Execute compensates every step eligible
// for compensation, in reverse order, and terminates FAILED
// regardless of whether the compensation calls themselves succeeded
// (spec.md §4.2 "overall saga remains FAILED irrespective of
// compensation outcomes") — per-step compensation failures are
// recorded only in the execution log.
func (e *Engine) Execute(ctx context.Context, s *Saga) (*ExecutionResult, error) {
	start := time.Now()
	s.setStatus(StatusStarted)

	for i, step := range s.Steps {
		select {
		case <-ctx.Done():
			if i == 0 {
				s.setStatus(StatusAborted)
				e.recordStatus(ctx, s.ID, StatusAborted)
				duration := time.Since(start)
				e.metrics.ObserveSagaExecution(string(StatusAborted), duration)
				return s.result(duration), fmt.Errorf("saga %s aborted before it began", s.ID)
			}
			return e.finishAfterCompensation(ctx, s, start, StatusAborted)
		default:
		}

		s.setRuntimeStatus(i, StepInFlight)
		stepStart := time.Now()
		// A step already dispatched must run to completion or its own
		// timeout even if the task is cancelled mid-flight (spec.md §5
		// "Cancellation is checked between steps, not within one") —
		// context.WithoutCancel keeps the step's own per-call timeout
		// (applied inside communicator.Send) without inheriting ctx's
		// cancellation.
		outcome := step.Run(context.WithoutCancel(ctx), s.Context)
		finishedAt := time.Now()
		e.metrics.ObserveStep(step.Participant, outcomeLabel(outcome.Err), finishedAt.Sub(stepStart))

		if outcome.Err != nil {
			kind, detail := classifyError(outcome.Err)
			s.recordStepFailure(i, outcome, detail)
			entry := ExecutionLogEntry{
				Index: i, Participant: step.Participant, Phase: PhaseForward, Outcome: OutcomeFailure,
				ElapsedDuration: finishedAt.Sub(stepStart), ErrorKind: kind, ErrorDetail: detail,
				StartedAt: stepStart, FinishedAt: finishedAt,
			}
			s.appendLogEntry(entry)
			e.recordEntry(ctx, s.ID, entry)
			e.log.Error("saga step failed", "saga_id", s.ID, "step", step.Name, "error", outcome.Err)
			return e.finishAfterCompensation(ctx, s, start, StatusFailed)
		}

		s.recordStepSuccess(i, outcome)
		entry := ExecutionLogEntry{
			Index: i, Participant: step.Participant, Phase: PhaseForward, Outcome: OutcomeSuccess,
			ElapsedDuration: finishedAt.Sub(stepStart), StartedAt: stepStart, FinishedAt: finishedAt,
		}
		s.appendLogEntry(entry)
		e.recordEntry(ctx, s.ID, entry)
	}

	s.setStatus(StatusCompleted)
	e.recordStatus(ctx, s.ID, StatusCompleted)
	duration := time.Since(start)
	e.metrics.ObserveSagaExecution(string(StatusCompleted), duration)
	return s.result(duration), nil
}

// finishAfterCompensation compensates everything eligible and forces
// s's terminal status to terminal no matter how compensation went.
func (e *Engine) finishAfterCompensation(ctx context.Context, s *Saga, start time.Time, terminal Status) (*ExecutionResult, error) {
	e.compensate(ctx, s)
	s.setStatus(terminal)
	e.recordStatus(ctx, s.ID, terminal)

	duration := time.Since(start)
	e.metrics.ObserveSagaExecution(string(terminal), duration)
	return s.result(duration), fmt.Errorf("saga %s terminated %s", s.ID, terminal)
}

// compensate walks every index eligible for compensation in reverse,
// calling each step's Undo with that step's own original
// request/response (spec.md §4.2 step 2). A compensation failure is
// logged and counted but never stops the walk — every eligible step
// must get a chance to undo itself.
func (e *Engine) compensate(ctx context.Context, s *Saga) {
	for _, idx := range s.compensationIndices() {
		step := s.Steps[idx]
		if step.Undo == nil {
			continue
		}
		request, response := s.runtimeFor(idx)

		compStart := time.Now()
		err := step.Undo(context.WithoutCancel(ctx), s.Context, request, response)
		finishedAt := time.Now()

		if err != nil {
			kind, detail := classifyError(err)
			s.recordCompensationResult(idx, false)
			entry := ExecutionLogEntry{
				Index: idx, Participant: step.Participant, Phase: PhaseCompensation, Outcome: OutcomeFailure,
				ElapsedDuration: finishedAt.Sub(compStart), ErrorKind: kind, ErrorDetail: detail,
				StartedAt: compStart, FinishedAt: finishedAt,
			}
			s.appendLogEntry(entry)
			e.recordEntry(ctx, s.ID, entry)
			e.log.Error("saga compensation failed", "saga_id", s.ID, "step", step.Name, "error", err)
			e.metrics.ObserveCompensation(step.Participant, "failed")
			continue
		}

		s.recordCompensationResult(idx, true)
		entry := ExecutionLogEntry{
			Index: idx, Participant: step.Participant, Phase: PhaseCompensation, Outcome: OutcomeSuccess,
			ElapsedDuration: finishedAt.Sub(compStart), StartedAt: compStart, FinishedAt: finishedAt,
		}
		s.appendLogEntry(entry)
		e.recordEntry(ctx, s.ID, entry)
		e.metrics.ObserveCompensation(step.Participant, "succeeded")
	}
}

// classifyError splits an error into the execution log's error_kind
// (a coarse, machine-checkable category) and error_detail (the full
// message), recognizing the two error shapes a step's Run can
// produce: a communicator.CommError (transport-level) or a
// BusinessRefusalError (a participant's own ok=false).
func classifyError(err error) (kind, detail string) {
	if err == nil {
		return "", ""
	}
	var commErr *communicator.CommError
	if errors.As(err, &commErr) {
		return string(commErr.Kind), commErr.Error()
	}
	var refusal *BusinessRefusalError
	if errors.As(err, &refusal) {
		return "BusinessRefusal", refusal.Error()
	}
	return "Unknown", err.Error()
}

func outcomeLabel(err error) string {
	if err == nil {
		return "succeeded"
	}
	return "failed"
}
