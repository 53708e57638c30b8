// Package journal resolves spec.md §9's open question — "should the
// core persist a saga journal for crash recovery? Left as a
// configurable extension point, not mandated" — by defining a small
// interface the engine can write execution-log entries into, with a
// no-op default and an optional GORM-backed implementation.
//
// This is deliberately a durability extension point and nothing more:
// the engine never reads a journal back, there is no recovery/replay
// path, and a saga still lives and dies with the process that ran it
// unless an operator wires a real Journal in. Guessing at a recovery
// protocol the spec never describes would be inventing requirements,
// not following them.
package journal

import (
	"context"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/saga-coordinator/internal/saga"
)

// Journal records saga execution history somewhere durable. Every
// method must tolerate being called from Engine.Execute's hot path —
// implementations that can't keep up should buffer or drop, not block
// the saga.
type Journal interface {
	RecordEntry(ctx context.Context, sagaID string, entry saga.ExecutionLogEntry) error
	RecordStatus(ctx context.Context, sagaID string, status saga.Status) error
}

// NoOp is the default Journal: it discards everything. Used when
// journal.enabled is false (the common case — spec.md §9 is explicit
// this is not mandated).
type NoOp struct{}

func (NoOp) RecordEntry(context.Context, string, saga.ExecutionLogEntry) error { return nil }
func (NoOp) RecordStatus(context.Context, string, saga.Status) error          { return nil }

// entryRow and statusRow are the GORM-mapped tables backing
// GORMJournal. Kept intentionally narrow — this is a journal, not a
// saga's system of record; the registry remains authoritative for a
// running process.
type entryRow struct {
	ID              uint   `gorm:"primaryKey"`
	SagaID          string `gorm:"index"`
	Index           int
	Participant     string
	Phase           string
	Outcome         string
	ElapsedDuration time.Duration
	ErrorKind       string
	ErrorDetail     string
	StartedAt       time.Time
	FinishedAt      time.Time
}

func (entryRow) TableName() string { return "saga_journal_entries" }

type statusRow struct {
	SagaID    string `gorm:"primaryKey"`
	Status    string
	UpdatedAt time.Time
}

func (statusRow) TableName() string { return "saga_journal_status" }

// GORMJournal persists the same information durably via GORM's MySQL
// driver, adapted from the teacher's repository pattern (each of its
// services/*/internal/infrastructure/repository files opens a
// *gorm.DB once at startup and passes it into narrow, single-purpose
// repository types).
type GORMJournal struct {
	db *gorm.DB
}

// OpenGORMJournal opens dsn and auto-migrates the journal tables.
func OpenGORMJournal(dsn string) (*GORMJournal, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entryRow{}, &statusRow{}); err != nil {
		return nil, err
	}
	return &GORMJournal{db: db}, nil
}

func (j *GORMJournal) RecordEntry(ctx context.Context, sagaID string, entry saga.ExecutionLogEntry) error {
	row := entryRow{
		SagaID:          sagaID,
		Index:           entry.Index,
		Participant:     entry.Participant,
		Phase:           string(entry.Phase),
		Outcome:         string(entry.Outcome),
		ElapsedDuration: entry.ElapsedDuration,
		ErrorKind:       entry.ErrorKind,
		ErrorDetail:     entry.ErrorDetail,
		StartedAt:       entry.StartedAt,
		FinishedAt:      entry.FinishedAt,
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

func (j *GORMJournal) RecordStatus(ctx context.Context, sagaID string, status saga.Status) error {
	row := statusRow{SagaID: sagaID, Status: string(status), UpdatedAt: time.Now()}
	return j.db.WithContext(ctx).Save(&row).Error
}
