// Package dto holds the operator API's request/response shapes
// (spec.md §6), kept separate from internal/saga's domain types the
// same way the teacher's internal/interface/http/dto package keeps
// bookstore DTOs apart from its domain entities.
package dto

import (
	"time"

	"github.com/xiebiao/saga-coordinator/internal/registry"
	"github.com/xiebiao/saga-coordinator/internal/saga"
)

// OrderItemRequest is one line item of CreateOrderRequest.
type OrderItemRequest struct {
	SKU      string  `json:"sku" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"required,gt=0"`
}

// CreateOrderRequest starts a new order fulfillment saga (spec.md §6
// "POST /api/coordinator/orders"). order_id is not part of the
// request: spec.md §4.3's order-create step assigns it from the
// order participant's response.
type CreateOrderRequest struct {
	CustomerID           string             `json:"customer_id" binding:"required"`
	Items                []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount          float64            `json:"total_amount" binding:"required,gt=0"`
	PaymentMethod        string             `json:"payment_method" binding:"required"`
	ShippingAddress      string             `json:"shipping_address" binding:"required"`
	ShippingMethod       string             `json:"shipping_method" binding:"required"`
	NotificationChannels []string           `json:"notification_channels" binding:"required,min=1"`
}

// SagaResponse is the detail view of one saga, returned by the
// create-order response and GET /api/coordinator/sagas/{id}.
type SagaResponse struct {
	SagaID          string                  `json:"saga_id"`
	OrderID         string                  `json:"order_id"`
	Status          string                  `json:"status"`
	FailedStepIndex *int                    `json:"failed_step_index,omitempty"`
	ErrorSummary    string                  `json:"error_summary,omitempty"`
	Log             []ExecutionLogEntryView `json:"log"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// ExecutionLogEntryView mirrors saga.ExecutionLogEntry for the wire.
type ExecutionLogEntryView struct {
	Index           int       `json:"index"`
	Participant     string    `json:"participant"`
	Phase           string    `json:"phase"`
	Outcome         string    `json:"outcome"`
	ElapsedDuration string    `json:"elapsed_duration"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ErrorDetail     string    `json:"error_detail,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// FromSaga renders a saga.Snapshot as the wire-level SagaResponse
// (spec.md §7 "User-visible failure behavior": a FAILED saga's
// response includes failed_step_index and a short error summary).
func FromSaga(snap saga.Snapshot) SagaResponse {
	log := make([]ExecutionLogEntryView, 0, len(snap.Log))
	for _, entry := range snap.Log {
		log = append(log, ExecutionLogEntryView{
			Index:           entry.Index,
			Participant:     entry.Participant,
			Phase:           string(entry.Phase),
			Outcome:         string(entry.Outcome),
			ElapsedDuration: entry.ElapsedDuration.String(),
			ErrorKind:       entry.ErrorKind,
			ErrorDetail:     entry.ErrorDetail,
			StartedAt:       entry.StartedAt,
			FinishedAt:      entry.FinishedAt,
		})
	}

	resp := SagaResponse{
		SagaID:          snap.SagaID,
		OrderID:         snap.Context.OrderID,
		Status:          string(snap.Status),
		FailedStepIndex: snap.FailedStepIndex,
		Log:             log,
	}
	if n := len(snap.Log); n > 0 {
		resp.UpdatedAt = snap.Log[n-1].FinishedAt
	}
	if snap.Status == saga.StatusFailed || snap.Status == saga.StatusAborted {
		resp.ErrorSummary = forwardFailureSummary(snap.Log)
	}
	return resp
}

// forwardFailureSummary returns the forward-call failure that put the
// saga into its terminal state, as a short, human-readable message.
func forwardFailureSummary(log []saga.ExecutionLogEntry) string {
	for _, entry := range log {
		if entry.Phase == saga.PhaseForward && entry.Outcome == saga.OutcomeFailure {
			return entry.ErrorDetail
		}
	}
	return ""
}

// SagaListResponse is GET /api/coordinator/sagas.
type SagaListResponse struct {
	Sagas []SagaResponse `json:"sagas"`
}

// StatisticsResponse is GET /api/coordinator/statistics.
type StatisticsResponse struct {
	TotalActive         int            `json:"total_active"`
	StatusBreakdown     map[string]int `json:"status_breakdown"`
	TotalSteps          int            `json:"total_steps"`
	CompletedSteps      int            `json:"completed_steps"`
	StepCompletionRate  float64        `json:"step_completion_rate"`
	AverageStepsPerSaga float64        `json:"average_steps_per_saga"`
}

// FromStatistics renders a registry.Statistics as the wire shape.
func FromStatistics(s registry.Statistics) StatisticsResponse {
	breakdown := make(map[string]int, len(s.StatusBreakdown))
	for status, count := range s.StatusBreakdown {
		breakdown[string(status)] = count
	}
	return StatisticsResponse{
		TotalActive:         s.TotalActive,
		StatusBreakdown:     breakdown,
		TotalSteps:          s.TotalSteps,
		CompletedSteps:      s.CompletedSteps,
		StepCompletionRate:  s.StepCompletionRate,
		AverageStepsPerSaga: s.AverageStepsPerSaga,
	}
}

// HealthResponse is GET /api/coordinator/health.
type HealthResponse struct {
	Status       string          `json:"status"`
	Participants map[string]bool `json:"participants,omitempty"`
}
