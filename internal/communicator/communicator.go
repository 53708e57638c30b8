// Package communicator implements the Service Communicator of
// spec.md §4.1: a resilient request/response channel to participant
// services, with retries, timeouts, service discovery and bulk health
// probes.
//
// Retry policy is delegated to github.com/cenkalti/backoff/v4 rather
// than a hand-rolled loop (see SPEC_FULL.md §2) — the teacher's own
// go.mod already pulls this library in transitively; promoting it to
// a direct dependency gives the engine the exact "≤ N attempts,
// exponential, capped" policy spec.md §4.1 asks for without
// reinventing it.
package communicator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/xiebiao/saga-coordinator/internal/circuitbreaker"
	"github.com/xiebiao/saga-coordinator/internal/config"
	"github.com/xiebiao/saga-coordinator/internal/participant"
)

// ErrorKind enumerates the CommError taxonomy of spec.md §4.1.
type ErrorKind string

const (
	KindUnknownParticipant ErrorKind = "UnknownParticipant"
	KindConnectFailed      ErrorKind = "ConnectFailed"
	KindTimeout            ErrorKind = "Timeout"
	KindBadStatus          ErrorKind = "BadStatus"
	KindDecodeError        ErrorKind = "DecodeError"
	KindRetriesExhausted   ErrorKind = "RetriesExhausted"
)

// CommError is every error the communicator can return. StatusCode is
// only meaningful when Kind == KindBadStatus.
type CommError struct {
	Kind       ErrorKind
	StatusCode int
	Participant string
	Endpoint    string
	Err         error
}

func (e *CommError) Error() string {
	if e.Kind == KindBadStatus {
		return fmt.Sprintf("%s %s: bad status %d", e.Participant, e.Endpoint, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Participant, e.Endpoint, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Participant, e.Endpoint, e.Kind)
}

func (e *CommError) Unwrap() error { return e.Err }

// Retryable reports whether the retry loop should attempt this error
// again: network connect failures, timeouts and 5xx statuses are
// retryable; 4xx, decode errors and unknown participants are not
// (spec.md §4.1 "Algorithm — retry policy").
func (e *CommError) Retryable() bool {
	switch e.Kind {
	case KindConnectFailed, KindTimeout:
		return true
	case KindBadStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// Communicator sends typed action/compensation requests to named
// participants. Discovery is resolved once, at construction
// (spec.md §4.1 "Discovery is resolved once at communicator
// construction").
type Communicator struct {
	descriptors map[string]participant.Descriptor
	breakers    map[string]*circuitbreaker.CircuitBreaker
	client      *http.Client
	retry       config.RetryConfig
	log         *slog.Logger

	onAttempt func(participantName string, attempt int, outcome string)
}

// New resolves every participant in cfg.Participants into an
// immutable Descriptor and builds the shared connection pool
// (spec.md §5 "The communicator holds a shared connection pool per
// participant; the pool must be reusable across tasks").
func New(cfg *config.Config, log *slog.Logger) *Communicator {
	descriptors := make(map[string]participant.Descriptor, len(cfg.Participants))
	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(cfg.Participants))
	for name, pc := range cfg.Participants {
		descriptors[name] = participant.Descriptor{
			Name:       name,
			BaseAddr:   pc.Addr,
			HealthPath: pc.HealthPath,
			Timeout:    pc.Timeout(),
		}
		breakers[name] = circuitbreaker.New(name, circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c circuitbreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		})
	}

	return &Communicator{
		descriptors: descriptors,
		breakers:    breakers,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry:     cfg.Retry,
		log:       log,
		onAttempt: func(string, int, string) {},
	}
}

// OnAttempt installs a callback fired after every send attempt
// (success, retryable failure, or terminal failure), used to feed
// internal/obsmetrics' retry counters.
func (c *Communicator) OnAttempt(fn func(participantName string, attempt int, outcome string)) {
	c.onAttempt = fn
}

// Descriptor returns the resolved descriptor for a participant, or
// false if unknown.
func (c *Communicator) Descriptor(name string) (participant.Descriptor, bool) {
	d, ok := c.descriptors[name]
	return d, ok
}

// Breaker returns the circuit breaker guarding a participant, or nil
// if unknown.
func (c *Communicator) Breaker(name string) *circuitbreaker.CircuitBreaker {
	return c.breakers[name]
}

// Send issues a single request/response exchange to participantName,
// retrying per spec.md §4.1's backoff schedule. body may be nil for
// GET. The decoded JSON response body is returned as a generic map so
// callers (the saga engine) can apply their own response_merger.
func (c *Communicator) Send(ctx context.Context, participantName, endpoint, method string, body interface{}, timeout time.Duration) (map[string]interface{}, error) {
	desc, ok := c.descriptors[participantName]
	if !ok {
		return nil, &CommError{Kind: KindUnknownParticipant, Participant: participantName, Endpoint: endpoint}
	}
	if timeout <= 0 {
		timeout = desc.Timeout
	}

	breaker := c.breakers[participantName]

	var payload []byte
	var err error
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &CommError{Kind: KindDecodeError, Participant: participantName, Endpoint: endpoint, Err: err}
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.BaseDelay()
	bo.MaxInterval = c.retry.MaxDelay()
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	retrier := backoff.WithMaxRetries(bo, uint64(maxAttemptsFloor(c.retry.MaxAttempts)-1))

	var result map[string]interface{}
	attempt := 0
	operation := func() error {
		attempt++
		sendErr := breaker.Execute(func() error {
			resp, doErr := c.doOnce(ctx, desc, endpoint, method, payload, timeout)
			if doErr != nil {
				return doErr
			}
			result = resp
			return nil
		})

		if sendErr == nil {
			c.onAttempt(participantName, attempt, "success")
			return nil
		}
		if sendErr == circuitbreaker.ErrOpenState {
			c.onAttempt(participantName, attempt, "circuit_open")
			return backoff.Permanent(&CommError{Kind: KindConnectFailed, Participant: participantName, Endpoint: endpoint, Err: sendErr})
		}

		var commErr *CommError
		if asCommError(sendErr, &commErr) && !commErr.Retryable() {
			c.onAttempt(participantName, attempt, "non_retryable_failure")
			return backoff.Permanent(commErr)
		}

		c.onAttempt(participantName, attempt, "retryable_failure")
		c.log.Warn("communicator attempt failed, retrying",
			"participant", participantName, "endpoint", endpoint, "attempt", attempt, "error", sendErr)
		return sendErr
	}

	if err := backoff.Retry(operation, retrier); err != nil {
		var commErr *CommError
		if asCommError(err, &commErr) {
			if commErr.Retryable() {
				return nil, &CommError{Kind: KindRetriesExhausted, Participant: participantName, Endpoint: endpoint, Err: commErr}
			}
			return nil, commErr
		}
		return nil, &CommError{Kind: KindRetriesExhausted, Participant: participantName, Endpoint: endpoint, Err: err}
	}

	return result, nil
}

func maxAttemptsFloor(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func asCommError(err error, target **CommError) bool {
	ce, ok := err.(*CommError)
	if ok {
		*target = ce
	}
	return ok
}

func (c *Communicator) doOnce(ctx context.Context, desc participant.Descriptor, endpoint, method string, payload []byte, timeout time.Duration) (map[string]interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := desc.BaseAddr + endpoint
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		return nil, &CommError{Kind: KindConnectFailed, Participant: desc.Name, Endpoint: endpoint, Err: err}
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return nil, &CommError{Kind: KindTimeout, Participant: desc.Name, Endpoint: endpoint, Err: err}
		}
		return nil, &CommError{Kind: KindConnectFailed, Participant: desc.Name, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CommError{Kind: KindDecodeError, Participant: desc.Name, Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &CommError{Kind: KindBadStatus, StatusCode: resp.StatusCode, Participant: desc.Name, Endpoint: endpoint}
	}

	if len(raw) == 0 {
		return nil, &CommError{Kind: KindDecodeError, Participant: desc.Name, Endpoint: endpoint, Err: fmt.Errorf("empty response body")}
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &CommError{Kind: KindDecodeError, Participant: desc.Name, Endpoint: endpoint, Err: err}
	}
	return decoded, nil
}

// ProbeHealth sends GET to participantName's health endpoint with a
// short timeout (spec.md §4.1 "probe_health").
func (c *Communicator) ProbeHealth(ctx context.Context, participantName string) bool {
	desc, ok := c.descriptors[participantName]
	if !ok {
		return false
	}
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, desc.BaseAddr+desc.HealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ProbeAll probes every known participant concurrently and returns a
// name -> reachable map (spec.md §4.1 "probe_all").
func (c *Communicator) ProbeAll(ctx context.Context) map[string]bool {
	type result struct {
		name string
		ok   bool
	}
	results := make(chan result, len(c.descriptors))
	for name := range c.descriptors {
		name := name
		go func() {
			results <- result{name: name, ok: c.ProbeHealth(ctx, name)}
		}()
	}

	out := make(map[string]bool, len(c.descriptors))
	for range c.descriptors {
		r := <-results
		out[r.name] = r.ok
	}
	return out
}
