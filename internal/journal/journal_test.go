package journal

import (
	"context"
	"testing"
	"time"

	"github.com/xiebiao/saga-coordinator/internal/saga"
)

func TestNoOp_DiscardsEverything(t *testing.T) {
	var j Journal = NoOp{}

	entry := saga.ExecutionLogEntry{
		Index: 1, Participant: "inventory", Phase: saga.PhaseForward, Outcome: saga.OutcomeSuccess,
		StartedAt: time.Now(), FinishedAt: time.Now(),
	}
	if err := j.RecordEntry(context.Background(), "saga-1", entry); err != nil {
		t.Fatalf("expected NoOp.RecordEntry to never fail, got %v", err)
	}
	if err := j.RecordStatus(context.Background(), "saga-1", saga.StatusCompleted); err != nil {
		t.Fatalf("expected NoOp.RecordStatus to never fail, got %v", err)
	}
}

func TestEntryRow_TableName(t *testing.T) {
	if got := (entryRow{}).TableName(); got != "saga_journal_entries" {
		t.Fatalf("unexpected table name %q", got)
	}
}

func TestStatusRow_TableName(t *testing.T) {
	if got := (statusRow{}).TableName(); got != "saga_journal_status" {
		t.Fatalf("unexpected table name %q", got)
	}
}
