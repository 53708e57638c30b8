package saga

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSaga(id string, steps []Step) *Saga {
	sc := NewContext(NewOrderContext(id))
	return NewSaga(id, steps, sc)
}

func okOutcome() StepOutcome {
	return StepOutcome{Response: map[string]interface{}{"ok": true}}
}

func TestEngine_Execute_Success(t *testing.T) {
	var ran []string
	steps := []Step{
		{Name: "order", Participant: "order", Run: func(ctx context.Context, sc *SagaContext) StepOutcome {
			ran = append(ran, "order")
			return okOutcome()
		}},
		{Name: "inventory", Participant: "inventory", Run: func(ctx context.Context, sc *SagaContext) StepOutcome {
			ran = append(ran, "inventory")
			return okOutcome()
		}},
	}
	s := newTestSaga("s1", steps)
	engine := NewEngine(discardLogger(), nil, nil)

	result, err := engine.Execute(context.Background(), s)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected StatusCompleted, got %s", result.Status)
	}
	if len(ran) != 2 || ran[0] != "order" || ran[1] != "inventory" {
		t.Fatalf("expected steps to run in order, got %v", ran)
	}
	snap := s.Snapshot()
	if len(snap.Log) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(snap.Log))
	}
}

func TestEngine_Execute_FailureAndCompensate(t *testing.T) {
	var undone []string
	steps := []Step{
		{Name: "order", Participant: "order",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome { return okOutcome() },
			Undo: func(ctx context.Context, sc *SagaContext, request, response map[string]interface{}) error {
				undone = append(undone, "order")
				return nil
			},
		},
		{Name: "inventory", Participant: "inventory",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome { return okOutcome() },
			Undo: func(ctx context.Context, sc *SagaContext, request, response map[string]interface{}) error {
				undone = append(undone, "inventory")
				return nil
			},
		},
		{Name: "payment", Participant: "payment",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome {
				return StepOutcome{Err: errors.New("payment declined")}
			},
		},
	}
	s := newTestSaga("s2", steps)
	engine := NewEngine(discardLogger(), nil, nil)

	result, err := engine.Execute(context.Background(), s)
	if err == nil {
		t.Fatalf("expected a terminal error for a failed saga")
	}
	if result.Status != StatusFailed {
		t.Fatalf("expected StatusFailed, got %s", result.Status)
	}
	if len(undone) != 2 || undone[0] != "inventory" || undone[1] != "order" {
		t.Fatalf("expected reverse-order compensation [inventory order], got %v", undone)
	}
}

func TestEngine_Execute_CompensationContinuesPastFailure(t *testing.T) {
	var undone []string
	steps := []Step{
		{Name: "order", Participant: "order",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome { return okOutcome() },
			Undo: func(ctx context.Context, sc *SagaContext, request, response map[string]interface{}) error {
				undone = append(undone, "order")
				return nil
			},
		},
		{Name: "inventory", Participant: "inventory",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome { return okOutcome() },
			Undo: func(ctx context.Context, sc *SagaContext, request, response map[string]interface{}) error {
				undone = append(undone, "inventory")
				return errors.New("inventory release failed")
			},
		},
		{Name: "payment", Participant: "payment",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome {
				return StepOutcome{Err: errors.New("payment declined")}
			},
		},
	}
	s := newTestSaga("s3", steps)
	engine := NewEngine(discardLogger(), nil, nil)

	result, _ := engine.Execute(context.Background(), s)
	// Per spec.md §4.2, the saga remains FAILED regardless of how
	// compensation itself went; only the log records the failed Undo.
	if result.Status != StatusFailed {
		t.Fatalf("expected StatusFailed, got %s", result.Status)
	}
	if len(undone) != 2 || undone[0] != "inventory" || undone[1] != "order" {
		t.Fatalf("expected compensation to continue past a failure, got %v", undone)
	}

	foundFailedCompensation := false
	for _, entry := range result.Log {
		if entry.Phase == PhaseCompensation && entry.Participant == "inventory" && entry.Outcome == OutcomeFailure {
			foundFailedCompensation = true
		}
	}
	if !foundFailedCompensation {
		t.Fatalf("expected a failed compensation log entry for inventory, got %+v", result.Log)
	}
}

func TestEngine_Execute_CancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var secondStepRan bool
	steps := []Step{
		{Name: "order", Participant: "order",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome {
				cancel()
				return okOutcome()
			},
			Undo: func(ctx context.Context, sc *SagaContext, request, response map[string]interface{}) error { return nil },
		},
		{Name: "inventory", Participant: "inventory",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome {
				secondStepRan = true
				return okOutcome()
			},
		},
	}
	s := newTestSaga("s4", steps)
	engine := NewEngine(discardLogger(), nil, nil)

	result, err := engine.Execute(ctx, s)
	if err == nil {
		t.Fatalf("expected cancellation to produce a terminal error")
	}
	if secondStepRan {
		t.Fatalf("expected cancellation between steps to stop the saga before step 2")
	}
	if result.Status != StatusAborted {
		t.Fatalf("expected the cancelled saga to be ABORTED after compensating step 1, got %s", result.Status)
	}
}

func TestEngine_Execute_AbortBeforeFirstStepYieldsEmptyLog(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran bool
	steps := []Step{
		{Name: "order", Participant: "order", Run: func(ctx context.Context, sc *SagaContext) StepOutcome {
			ran = true
			return okOutcome()
		}},
	}
	s := newTestSaga("s5", steps)
	engine := NewEngine(discardLogger(), nil, nil)

	result, err := engine.Execute(ctx, s)
	if err == nil {
		t.Fatalf("expected cancellation before step 0 to produce a terminal error")
	}
	if ran {
		t.Fatalf("expected step 0 never to run once already cancelled")
	}
	if result.Status != StatusAborted {
		t.Fatalf("expected StatusAborted, got %s", result.Status)
	}
	if len(result.Log) != 0 {
		t.Fatalf("expected an empty execution log, got %+v", result.Log)
	}
}

func TestEngine_Execute_PartialInventoryReservationStillCompensated(t *testing.T) {
	var undone []string
	steps := []Step{
		{Name: "order", Participant: "order",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome { return okOutcome() },
			Undo: func(ctx context.Context, sc *SagaContext, request, response map[string]interface{}) error {
				undone = append(undone, "order")
				return nil
			},
		},
		{Name: "inventory", Participant: "inventory",
			Run: func(ctx context.Context, sc *SagaContext) StepOutcome {
				return StepOutcome{
					Response:         map[string]interface{}{"ok": true, "partial": true},
					Err:              NewBusinessRefusalError("partial reservation"),
					CompensateAnyway: true,
				}
			},
			Undo: func(ctx context.Context, sc *SagaContext, request, response map[string]interface{}) error {
				undone = append(undone, "inventory")
				return nil
			},
		},
	}
	s := newTestSaga("s6", steps)
	engine := NewEngine(discardLogger(), nil, nil)

	result, err := engine.Execute(context.Background(), s)
	if err == nil {
		t.Fatalf("expected a terminal error")
	}
	if result.Status != StatusFailed {
		t.Fatalf("expected StatusFailed, got %s", result.Status)
	}
	if len(undone) != 2 || undone[0] != "inventory" || undone[1] != "order" {
		t.Fatalf("expected the partially-reserved inventory step to be compensated too, got %v", undone)
	}
}
