package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"webhook-dispatcher/internal/core/domain"
	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/pkg/logger"

	"github.com/rs/zerolog"
)

var (
	// ErrDeliveryExhausted is returned when every attempt of a delivery failed.
	ErrDeliveryExhausted = errors.New("webhook delivery exhausted")
	// ErrInvalidEndpoint is returned when an endpoint cannot be delivered to at all.
	ErrInvalidEndpoint = errors.New("webhook endpoint invalid")
)

// maxResponseDrain bounds how much of a receiver's response body is read before closing.
const maxResponseDrain = 64 << 10

// maxBackoffShift keeps 2^n multiplication of the backoff base from overflowing.
const maxBackoffShift = 20

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-2xx response when the worker requires 2xx for success.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("receiver responded with status %d", e.StatusCode)
}

// DeliveryOptions are the wire-level settings shared by every delivery.
type DeliveryOptions struct {
	UserAgent        string
	SignatureHeader  string
	BackoffBase      time.Duration // delay before retry i (1-based) is BackoffBase * 2^i
	RequireStatus2xx bool          // false: any completed HTTP exchange counts as delivered
}

// DeliveryWorker implements ports.DeliveryWorker: one payload to one endpoint,
// with sequential attempts and exponential backoff between them.
type DeliveryWorker struct {
	registry   ports.EndpointRegistry
	logs       ports.DeliveryLogger
	encSvc     ports.EncryptionService
	sigSvc     ports.SignatureService
	metrics    ports.DeliveryMetrics
	httpClient HTTPClient
	opts       DeliveryOptions
	log        zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDeliveryWorker creates a delivery worker. metrics may be nil.
func NewDeliveryWorker(
	registry ports.EndpointRegistry,
	logs ports.DeliveryLogger,
	encSvc ports.EncryptionService,
	sigSvc ports.SignatureService,
	metrics ports.DeliveryMetrics,
	httpClient HTTPClient,
	opts DeliveryOptions,
	log zerolog.Logger,
) *DeliveryWorker {
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	return &DeliveryWorker{
		registry:   registry,
		logs:       logs,
		encSvc:     encSvc,
		sigSvc:     sigSvc,
		metrics:    metrics,
		httpClient: httpClient,
		opts:       opts,
		log:        logger.Component(log, "delivery_worker"),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Backoff returns the wait after the failed attempt with 0-based index attempt:
// 2s, 4s, 8s, ... for the default 1s base.
func (w *DeliveryWorker) Backoff(attempt int) time.Duration {
	shift := attempt + 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return w.opts.BackoffBase * time.Duration(1<<shift)
}

// Deliver sends payload to endpoint, retrying failed attempts until the endpoint's
// attempt budget is spent. Exactly one delivery log is recorded per call.
func (w *DeliveryWorker) Deliver(ctx context.Context, endpoint domain.Endpoint, payload domain.WebhookPayload) error {
	start := w.now()
	log := w.log.With().
		Str("endpoint_id", endpoint.ID.String()).
		Str("event", payload.Event).
		Logger()

	body, err := json.Marshal(payload)
	if err != nil {
		return w.reject(ctx, endpoint, payload, nil, start, fmt.Errorf("marshaling payload: %w", err), log)
	}
	if err := validateTarget(endpoint); err != nil {
		return w.reject(ctx, endpoint, payload, body, start, err, log)
	}
	headers, err := w.buildHeaders(endpoint, body)
	if err != nil {
		return w.reject(ctx, endpoint, payload, body, start, err, log)
	}

	var (
		lastErr    error
		lastStatus *int
		trail      []string
		attempts   int
	)
	budget := endpoint.AttemptBudget()

	for attempt := 0; attempt < budget; attempt++ {
		attempts++
		status, err := w.send(ctx, endpoint, headers, body)
		if status != 0 {
			s := status
			lastStatus = &s
		}
		if err == nil {
			return w.succeed(ctx, endpoint, payload, body, attempts, lastStatus, start, log)
		}

		lastErr = err
		trail = append(trail, fmt.Sprintf("attempt %d: %v", attempts, err))
		log.Warn().Err(err).Int("attempt", attempts).Int("max_attempts", budget).Msg("webhook: delivery attempt failed")

		if attempt == budget-1 {
			break
		}
		if err := w.wait(ctx, w.Backoff(attempt)); err != nil {
			lastErr = fmt.Errorf("waiting to retry: %w", err)
			trail = append(trail, lastErr.Error())
			break
		}
	}

	return w.exhaust(ctx, endpoint, payload, body, attempts, lastStatus, start, lastErr, trail, log)
}

// send performs one HTTP attempt bounded by the endpoint timeout.
// It returns the response status when one was received.
func (w *DeliveryWorker) send(ctx context.Context, endpoint domain.Endpoint, headers http.Header, body []byte) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, endpoint.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, string(endpoint.HTTPMethod), endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header = headers.Clone()

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseDrain))
		resp.Body.Close()
	}

	if w.opts.RequireStatus2xx && !isSuccessStatus(resp.StatusCode) {
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

// buildHeaders merges defaults, endpoint headers and the signature.
// Endpoint headers may override the defaults but an empty value never removes them.
func (w *DeliveryWorker) buildHeaders(endpoint domain.Endpoint, body []byte) (http.Header, error) {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", w.opts.UserAgent)

	for name, value := range endpoint.Headers {
		if strings.TrimSpace(value) == "" && h.Get(name) != "" {
			continue
		}
		h.Set(name, value)
	}

	if endpoint.HasSecret() {
		secret, err := w.encSvc.Decrypt(endpoint.SecretEnc)
		if err != nil {
			return nil, fmt.Errorf("%w: decrypting secret: %v", ErrInvalidEndpoint, err)
		}
		h.Set(w.opts.SignatureHeader, w.sigSvc.Sign(secret, body))
	}
	return h, nil
}

func (w *DeliveryWorker) succeed(
	ctx context.Context,
	endpoint domain.Endpoint,
	payload domain.WebhookPayload,
	body []byte,
	attempts int,
	status *int,
	start time.Time,
	log zerolog.Logger,
) error {
	bookkeeping := context.WithoutCancel(ctx)
	if err := w.registry.IncrementSuccess(bookkeeping, endpoint.ID); err != nil {
		log.Error().Err(err).Msg("webhook: failed to increment success counter")
	}

	elapsed := w.now().Sub(start)
	outcome := domain.DeliveryOutcomeSuccess
	message := fmt.Sprintf("delivered %s after %d attempt(s)", payload.Event, attempts)
	if status != nil && !isSuccessStatus(*status) {
		outcome = domain.DeliveryOutcomeWarning
		message = fmt.Sprintf("delivered %s after %d attempt(s), receiver responded %d", payload.Event, attempts, *status)
	}

	w.logs.Record(bookkeeping, &domain.DeliveryAttemptLog{
		EndpointID:     endpoint.ID,
		EventName:      payload.Event,
		Outcome:        outcome,
		Message:        message,
		RequestPayload: string(body),
		Attempts:       attempts,
		HTTPStatus:     status,
		DurationMs:     elapsed.Milliseconds(),
	})
	w.observe(outcome, attempts, elapsed)

	event := log.Info()
	if outcome == domain.DeliveryOutcomeWarning {
		event = log.Warn()
	}
	event.Int("attempts", attempts).Int64("duration_ms", elapsed.Milliseconds()).Msg("webhook: delivered")
	return nil
}

func (w *DeliveryWorker) exhaust(
	ctx context.Context,
	endpoint domain.Endpoint,
	payload domain.WebhookPayload,
	body []byte,
	attempts int,
	status *int,
	start time.Time,
	lastErr error,
	trail []string,
	log zerolog.Logger,
) error {
	bookkeeping := context.WithoutCancel(ctx)
	if err := w.registry.IncrementFailure(bookkeeping, endpoint.ID); err != nil {
		log.Error().Err(err).Msg("webhook: failed to increment failure counter")
	}

	elapsed := w.now().Sub(start)
	w.logs.Record(bookkeeping, &domain.DeliveryAttemptLog{
		EndpointID:     endpoint.ID,
		EventName:      payload.Event,
		Outcome:        domain.DeliveryOutcomeError,
		Message:        fmt.Sprintf("delivery of %s failed after %d attempt(s)", payload.Event, attempts),
		RequestPayload: string(body),
		ErrorDetail: &domain.ErrorDetail{
			Message: lastErr.Error(),
			Trace:   strings.Join(trail, "\n"),
		},
		Attempts:   attempts,
		HTTPStatus: status,
		DurationMs: elapsed.Milliseconds(),
	})
	w.observe(domain.DeliveryOutcomeError, attempts, elapsed)

	log.Error().Err(lastErr).Int("attempts", attempts).Int64("duration_ms", elapsed.Milliseconds()).Msg("webhook: all retry attempts exhausted")
	return fmt.Errorf("%w after %d attempt(s): %w", ErrDeliveryExhausted, attempts, lastErr)
}

// reject records a delivery that could not be attempted because the endpoint or
// payload is unusable. Such failures are never retried.
func (w *DeliveryWorker) reject(
	ctx context.Context,
	endpoint domain.Endpoint,
	payload domain.WebhookPayload,
	body []byte,
	start time.Time,
	cause error,
	log zerolog.Logger,
) error {
	if !errors.Is(cause, ErrInvalidEndpoint) {
		cause = fmt.Errorf("%w: %w", ErrInvalidEndpoint, cause)
	}

	bookkeeping := context.WithoutCancel(ctx)
	if err := w.registry.IncrementFailure(bookkeeping, endpoint.ID); err != nil {
		log.Error().Err(err).Msg("webhook: failed to increment failure counter")
	}

	elapsed := w.now().Sub(start)
	w.logs.Record(bookkeeping, &domain.DeliveryAttemptLog{
		EndpointID:     endpoint.ID,
		EventName:      payload.Event,
		Outcome:        domain.DeliveryOutcomeError,
		Message:        fmt.Sprintf("delivery of %s rejected before sending", payload.Event),
		RequestPayload: string(body),
		ErrorDetail:    &domain.ErrorDetail{Message: cause.Error()},
		DurationMs:     elapsed.Milliseconds(),
	})
	w.observe(domain.DeliveryOutcomeError, 0, elapsed)

	log.Error().Err(cause).Msg("webhook: endpoint rejected")
	return cause
}

func (w *DeliveryWorker) observe(outcome domain.DeliveryOutcome, attempts int, elapsed time.Duration) {
	if w.metrics != nil {
		w.metrics.ObserveDelivery(outcome, attempts, elapsed)
	}
}

func validateTarget(endpoint domain.Endpoint) error {
	if !endpoint.HTTPMethod.IsValid() {
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidEndpoint, endpoint.HTTPMethod)
	}
	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return fmt.Errorf("%w: parsing url: %v", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be absolute http(s), got %q", ErrInvalidEndpoint, endpoint.URL)
	}
	return nil
}

func isSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

// wait sleeps between attempts. A pool slot carried by ctx is handed to other
// deliveries for the duration of the sleep.
func (w *DeliveryWorker) wait(ctx context.Context, d time.Duration) error {
	slot := slotFrom(ctx)
	slot.Release()
	defer slot.Acquire()
	return w.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
