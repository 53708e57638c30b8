// Package participant defines the wire contract spec.md §4.5/§6
// describes for the external, black-box participant services. The
// core never implements these endpoints — order/inventory/payment/
// shipping/notification are out of scope (spec.md §1) — it only
// consumes them.
package participant

import "time"

// Descriptor is a resolved, immutable ParticipantDescriptor
// (spec.md §3). Constructed once at communicator startup; never
// mutated afterward (spec.md §5 "Participant descriptors are
// immutable after startup").
type Descriptor struct {
	Name       string
	BaseAddr   string
	HealthPath string
	Timeout    time.Duration
}

// NewActionRequest builds the wire body for a forward step call
// (spec.md §6 "Request envelope (action)"): saga_id, order_id, plus
// the participant-specific fields a step's action_payload_builder
// supplies. fields is merged into the top-level object rather than
// nested under a sub-key, so every participant sees one flat JSON
// object regardless of which step is calling it.
func NewActionRequest(sagaID, orderID string, fields map[string]interface{}) map[string]interface{} {
	req := make(map[string]interface{}, len(fields)+2)
	req["saga_id"] = sagaID
	if orderID != "" {
		req["order_id"] = orderID
	}
	for k, v := range fields {
		req[k] = v
	}
	return req
}

// NewCompensationRequest builds the augmented context a compensation
// endpoint receives (spec.md §4.2 step 2, §6 "Request envelope
// (compensation)"): the shared context plus the two well-known keys
// that let a participant correlate by whatever identifier it issued
// on the forward call, plus any extra step-specific fields.
func NewCompensationRequest(sagaID, orderID string, originalRequest, originalResponse, fields map[string]interface{}) map[string]interface{} {
	req := make(map[string]interface{}, len(fields)+4)
	req["saga_id"] = sagaID
	req["order_id"] = orderID
	req["original_request"] = originalRequest
	req["original_response"] = originalResponse
	for k, v := range fields {
		req[k] = v
	}
	return req
}

// IsOK reports whether a decoded participant response represents
// success (spec.md §4.5 "{ok: bool, ...domain fields}").
func IsOK(resp map[string]interface{}) bool {
	ok, _ := resp["ok"].(bool)
	return ok
}

// RefusalReason extracts the business-refusal message a participant
// returns alongside ok=false, falling back to a generic reason when
// the participant didn't supply one.
func RefusalReason(resp map[string]interface{}) string {
	if reason, ok := resp["error"].(string); ok && reason != "" {
		return reason
	}
	return "participant declined the request"
}
