// Package ordersaga is the Order Saga Definition of spec.md §4.3: it
// builds the fixed five-step saga.Saga (order, inventory, payment,
// shipping, notification) around a communicator.Communicator, wiring
// each step's mandated endpoint, payload and response-merger exactly
// as spec.md §4.3's table specifies.
//
// Endpoint paths are spec.md §4.3's literal contract, not a local
// convention — "the sequence and mapping rules are part of the
// contract" (spec.md §4.3). Participants are external black boxes
// (spec.md §1); this package only ever calls them through
// internal/participant's envelope builders and internal/communicator.
package ordersaga

import (
	"context"
	"fmt"

	"github.com/xiebiao/saga-coordinator/internal/communicator"
	"github.com/xiebiao/saga-coordinator/internal/config"
	"github.com/xiebiao/saga-coordinator/internal/participant"
	"github.com/xiebiao/saga-coordinator/internal/saga"
)

// Build assembles the fixed step sequence for one order into a
// saga.Saga ready for Engine.Execute. oc must already carry SagaID
// and the order's business fields; Build does not mutate its
// caller's copy — it seeds a fresh saga.Context from it.
func Build(comm *communicator.Communicator, oc saga.OrderContext) *saga.Saga {
	sc := saga.NewContext(oc)

	steps := []saga.Step{
		orderStep(comm),
		inventoryStep(comm),
		paymentStep(comm),
		shippingStep(comm),
		notificationStep(comm),
	}

	return saga.NewSaga(oc.SagaID, steps, sc)
}

// orderStep is spec.md §4.3's step 0: creates the order, assigning
// order_id from the participant's response rather than accepting it
// as caller input.
func orderStep(comm *communicator.Communicator) saga.Step {
	return saga.Step{
		Name:        "create_order",
		Participant: config.ParticipantOrder,
		Run: func(ctx context.Context, sc *saga.SagaContext) saga.StepOutcome {
			oc := sc.Get()
			req := participant.NewActionRequest(oc.SagaID, "", map[string]interface{}{
				"customer_id":      oc.CustomerID,
				"items":            oc.Items,
				"total_amount":     oc.TotalAmount,
				"shipping_address": oc.ShippingAddress,
				"payment_method":   oc.PaymentMethod,
				"shipping_method":  oc.ShippingMethod,
			})
			resp, err := comm.Send(ctx, config.ParticipantOrder, "/api/orders", "POST", req, 0)
			if err != nil {
				return saga.StepOutcome{Request: req, Err: err}
			}
			if !participant.IsOK(resp) {
				return saga.StepOutcome{Request: req, Response: resp, Err: saga.NewBusinessRefusalError(participant.RefusalReason(resp))}
			}

			orderID, _ := resp["order_id"].(string)
			sc.MergeFrom(func(oc *saga.OrderContext) { oc.OrderID = orderID })
			return saga.StepOutcome{Request: req, Response: resp}
		},
		Undo: func(ctx context.Context, sc *saga.SagaContext, request, response map[string]interface{}) error {
			oc := sc.Get()
			req := participant.NewCompensationRequest(oc.SagaID, oc.OrderID, request, response, nil)
			_, err := comm.Send(ctx, config.ParticipantOrder, fmt.Sprintf("/api/orders/%s/cancel", oc.OrderID), "POST", req, 0)
			return err
		},
	}
}

// inventoryStep is spec.md §4.3's step 1. A partial reservation —
// either "partial": true, or ok=false alongside a non-empty
// reservations list — is still a failure for saga-continuation
// purposes (the order as placed cannot be fulfilled), but the
// tie-break policy requires the partial reservation list to survive
// into context and still be released: CompensateAnyway marks the step
// eligible for Undo despite being FAILED.
func inventoryStep(comm *communicator.Communicator) saga.Step {
	return saga.Step{
		Name:        "reserve_inventory",
		Participant: config.ParticipantInventory,
		Run: func(ctx context.Context, sc *saga.SagaContext) saga.StepOutcome {
			oc := sc.Get()
			req := participant.NewActionRequest(oc.SagaID, oc.OrderID, map[string]interface{}{
				"items": oc.Items,
			})
			resp, err := comm.Send(ctx, config.ParticipantInventory, "/api/inventory/reserve", "POST", req, 0)
			if err != nil {
				return saga.StepOutcome{Request: req, Err: err}
			}

			reservations := decodeReservations(resp)
			sc.MergeFrom(func(oc *saga.OrderContext) { oc.InventoryReservations = reservations })

			if !participant.IsOK(resp) {
				return saga.StepOutcome{
					Request: req, Response: resp,
					Err:              saga.NewBusinessRefusalError(participant.RefusalReason(resp)),
					CompensateAnyway: len(reservations) > 0,
				}
			}

			partial, _ := resp["partial"].(bool)
			if partial {
				return saga.StepOutcome{
					Request: req, Response: resp,
					Err:              saga.NewBusinessRefusalError("inventory service returned a partial reservation, treating as failure"),
					CompensateAnyway: true,
				}
			}

			return saga.StepOutcome{Request: req, Response: resp}
		},
		Undo: func(ctx context.Context, sc *saga.SagaContext, request, response map[string]interface{}) error {
			oc := sc.Get()
			req := participant.NewCompensationRequest(oc.SagaID, oc.OrderID, request, response, map[string]interface{}{
				"reservations": oc.InventoryReservations,
			})
			_, err := comm.Send(ctx, config.ParticipantInventory, "/api/inventory/release", "POST", req, 0)
			return err
		},
	}
}

func decodeReservations(resp map[string]interface{}) []saga.InventoryReservation {
	raw, ok := resp["reservations"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]saga.InventoryReservation, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		sku, _ := m["product_id"].(string)
		qty, _ := m["quantity"].(float64)
		out = append(out, saga.InventoryReservation{SKU: sku, Quantity: int(qty)})
	}
	return out
}

// paymentStep is spec.md §4.3's step 2.
func paymentStep(comm *communicator.Communicator) saga.Step {
	return saga.Step{
		Name:        "charge_payment",
		Participant: config.ParticipantPayment,
		Run: func(ctx context.Context, sc *saga.SagaContext) saga.StepOutcome {
			oc := sc.Get()
			req := participant.NewActionRequest(oc.SagaID, oc.OrderID, map[string]interface{}{
				"customer_id":    oc.CustomerID,
				"total_amount":   oc.TotalAmount,
				"payment_method": oc.PaymentMethod,
			})
			resp, err := comm.Send(ctx, config.ParticipantPayment, "/api/payments/process", "POST", req, 0)
			if err != nil {
				// Transient failures (connect/timeout/5xx) are already
				// exhausted by the communicator's own retry budget by the
				// time they surface here; a decline (4xx, or 2xx ok=false
				// below) is a business refusal, not a transport problem —
				// both end up failing this step identically.
				return saga.StepOutcome{Request: req, Err: err}
			}
			if !participant.IsOK(resp) {
				return saga.StepOutcome{Request: req, Response: resp, Err: saga.NewBusinessRefusalError(participant.RefusalReason(resp))}
			}

			paymentID, _ := resp["payment_id"].(string)
			sc.MergeFrom(func(oc *saga.OrderContext) { oc.PaymentID = paymentID })
			return saga.StepOutcome{Request: req, Response: resp}
		},
		Undo: func(ctx context.Context, sc *saga.SagaContext, request, response map[string]interface{}) error {
			oc := sc.Get()
			req := participant.NewCompensationRequest(oc.SagaID, oc.OrderID, request, response, map[string]interface{}{
				"payment_id": oc.PaymentID,
			})
			_, err := comm.Send(ctx, config.ParticipantPayment, "/api/payments/refund", "POST", req, 0)
			return err
		},
	}
}

// shippingStep is spec.md §4.3's step 3.
func shippingStep(comm *communicator.Communicator) saga.Step {
	return saga.Step{
		Name:        "schedule_shipping",
		Participant: config.ParticipantShipping,
		Run: func(ctx context.Context, sc *saga.SagaContext) saga.StepOutcome {
			oc := sc.Get()
			req := participant.NewActionRequest(oc.SagaID, oc.OrderID, map[string]interface{}{
				"shipping_address": oc.ShippingAddress,
				"shipping_method":  oc.ShippingMethod,
				"items":            oc.Items,
			})
			resp, err := comm.Send(ctx, config.ParticipantShipping, "/api/shipping/schedule", "POST", req, 0)
			if err != nil {
				return saga.StepOutcome{Request: req, Err: err}
			}
			if !participant.IsOK(resp) {
				return saga.StepOutcome{Request: req, Response: resp, Err: saga.NewBusinessRefusalError(participant.RefusalReason(resp))}
			}

			shippingID, _ := resp["shipping_id"].(string)
			// A missing tracking number does not fail the step: carriers
			// commonly assign it after pickup, not at scheduling time.
			tracking, _ := resp["tracking_number"].(string)
			sc.MergeFrom(func(oc *saga.OrderContext) {
				oc.ShippingID = shippingID
				oc.ShippingTrackingNumber = tracking
			})
			return saga.StepOutcome{Request: req, Response: resp}
		},
		Undo: func(ctx context.Context, sc *saga.SagaContext, request, response map[string]interface{}) error {
			oc := sc.Get()
			req := participant.NewCompensationRequest(oc.SagaID, oc.OrderID, request, response, map[string]interface{}{
				"shipping_id": oc.ShippingID,
			})
			_, err := comm.Send(ctx, config.ParticipantShipping, "/api/shipping/cancel", "POST", req, 0)
			return err
		},
	}
}

// notificationStep is spec.md §4.3's step 4: best-effort, but still a
// full contract participant — failing here still runs the full
// compensation of steps 0-3, and /api/notifications/cancel exists for
// the (structurally unreachable in this fixed five-step sequence, but
// contractually required) case of a later compensation needing to
// undo a notification that already went out.
func notificationStep(comm *communicator.Communicator) saga.Step {
	return saga.Step{
		Name:        "send_notification",
		Participant: config.ParticipantNotification,
		Run: func(ctx context.Context, sc *saga.SagaContext) saga.StepOutcome {
			oc := sc.Get()
			req := participant.NewActionRequest(oc.SagaID, oc.OrderID, map[string]interface{}{
				"customer_id":       oc.CustomerID,
				"notification_type": "order_confirmation",
				"channels":          oc.NotificationChannels,
			})
			resp, err := comm.Send(ctx, config.ParticipantNotification, "/api/notifications/send", "POST", req, 0)
			if err != nil {
				return saga.StepOutcome{Request: req, Err: err}
			}
			if !participant.IsOK(resp) {
				return saga.StepOutcome{Request: req, Response: resp, Err: saga.NewBusinessRefusalError(participant.RefusalReason(resp))}
			}

			notificationID, _ := resp["notification_id"].(string)
			sc.MergeFrom(func(oc *saga.OrderContext) { oc.NotificationID = notificationID })
			return saga.StepOutcome{Request: req, Response: resp}
		},
		Undo: func(ctx context.Context, sc *saga.SagaContext, request, response map[string]interface{}) error {
			oc := sc.Get()
			req := participant.NewCompensationRequest(oc.SagaID, oc.OrderID, request, response, map[string]interface{}{
				"notification_id": oc.NotificationID,
			})
			_, err := comm.Send(ctx, config.ParticipantNotification, "/api/notifications/cancel", "POST", req, 0)
			return err
		},
	}
}
