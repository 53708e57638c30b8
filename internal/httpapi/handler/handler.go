// Package handler wires the operator-facing HTTP surface of
// spec.md §6 onto gin, grounded on the teacher's
// internal/interface/http/handler package (constructor-injected
// dependencies, ShouldBindJSON + httpresponse envelope, no
// package-level router).
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xiebiao/saga-coordinator/internal/apperrors"
	"github.com/xiebiao/saga-coordinator/internal/communicator"
	"github.com/xiebiao/saga-coordinator/internal/httpapi/dto"
	"github.com/xiebiao/saga-coordinator/internal/httpresponse"
	"github.com/xiebiao/saga-coordinator/internal/ordersaga"
	"github.com/xiebiao/saga-coordinator/internal/registry"
	"github.com/xiebiao/saga-coordinator/internal/saga"
)

// Prober is satisfied by both *communicator.Communicator and
// *healthcache.Cache; Health doesn't care which it was given.
type Prober interface {
	ProbeAll(ctx context.Context) map[string]bool
}

// Handler holds every dependency the operator API needs. Built once
// in cmd/coordinator and never reached for via package state
// (spec.md §9's anti-singleton note).
type Handler struct {
	engine *saga.Engine
	comm   *communicator.Communicator
	prober Prober
	reg    *registry.Registry
	log    *slog.Logger
}

// New builds a Handler. prober drives GET /health's participant
// snapshot; pass comm itself when no health cache is configured.
func New(engine *saga.Engine, comm *communicator.Communicator, prober Prober, reg *registry.Registry, log *slog.Logger) *Handler {
	return &Handler{engine: engine, comm: comm, prober: prober, reg: reg, log: log}
}

// Health answers GET /api/coordinator/health with a liveness check
// plus a best-effort snapshot of participant reachability (spec.md §6).
func (h *Handler) Health(c *gin.Context) {
	participants := h.prober.ProbeAll(c.Request.Context())
	httpresponse.Success(c, dto.HealthResponse{Status: "ok", Participants: participants})
}

// CreateOrder answers POST /api/coordinator/orders (spec.md §6). It
// registers the new saga and launches its execution as an independent
// task (spec.md §5 "one logical task per saga") before returning,
// rather than blocking the request until the saga reaches a terminal
// status — the task's own context.CancelFunc is what a later
// DELETE .../sagas/{id} uses to abort it mid-flight (spec.md §8). The
// task deliberately runs against its own background context, not
// c.Request.Context(): the HTTP response returns long before the saga
// does, and the saga must not be canceled merely because the client's
// connection closed.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresponse.Error(c, &apperrors.AppError{Code: apperrors.ErrCodeBindError, Message: apperrors.ErrBindError.Message, Err: err})
		return
	}

	sagaID := uuid.NewString()
	oc := saga.NewOrderContext(sagaID)
	oc.CustomerID = req.CustomerID
	oc.TotalAmount = req.TotalAmount
	oc.PaymentMethod = req.PaymentMethod
	oc.ShippingAddress = req.ShippingAddress
	oc.ShippingMethod = req.ShippingMethod
	oc.NotificationChannels = req.NotificationChannels
	oc.Items = make([]saga.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		oc.Items = append(oc.Items, saga.OrderItem{SKU: item.SKU, Quantity: item.Quantity, Price: item.Price})
	}

	s := ordersaga.Build(h.comm, oc)
	taskCtx, cancel := context.WithCancel(context.Background())
	h.reg.Register(s, cancel)

	go func() {
		if _, err := h.engine.Execute(taskCtx, s); err != nil {
			h.log.Warn("saga did not complete", "saga_id", sagaID, "status", s.Snapshot().Status, "error", err)
		}
		h.reg.Register(s, nil)
	}()

	httpresponse.Accepted(c, dto.FromSaga(s.Snapshot()))
}

// ListSagas answers GET /api/coordinator/sagas (spec.md §6).
func (h *Handler) ListSagas(c *gin.Context) {
	snaps := h.reg.List()
	views := make([]dto.SagaResponse, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, dto.FromSaga(snap))
	}
	httpresponse.Success(c, dto.SagaListResponse{Sagas: views})
}

// GetSaga answers GET /api/coordinator/sagas/{id} (spec.md §6):
// returns a read-only snapshot of the saga's current state.
func (h *Handler) GetSaga(c *gin.Context) {
	id := c.Param("id")
	snap, ok := h.reg.Get(id)
	if !ok {
		httpresponse.Error(c, apperrors.ErrSagaNotFound)
		return
	}
	httpresponse.Success(c, dto.FromSaga(snap))
}

// Statistics answers GET /api/coordinator/statistics (spec.md §6).
func (h *Handler) Statistics(c *gin.Context) {
	httpresponse.Success(c, dto.FromStatistics(h.reg.Statistics()))
}

// AbortSaga answers DELETE /api/coordinator/sagas/{id}: requests
// cancellation of a running saga's task (spec.md §6 "requests abort
// of a running saga"). A saga that has already reached a terminal
// status, or is unknown, reports not-found — there is nothing left to
// abort.
func (h *Handler) AbortSaga(c *gin.Context) {
	id := c.Param("id")
	if !h.reg.Abort(id) {
		httpresponse.Error(c, apperrors.ErrSagaNotFound)
		return
	}
	c.Status(http.StatusAccepted)
}
