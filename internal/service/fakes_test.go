package service

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"webhook-dispatcher/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// mockHTTPClient implements HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func statusResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: http.NoBody}
}

// memRegistry is an in-memory EndpointRegistry with atomic counters.
type memRegistry struct {
	mu        sync.Mutex
	endpoints map[uuid.UUID]*domain.Endpoint
	findErr   error
	incErr    error
}

func newMemRegistry(endpoints ...domain.Endpoint) *memRegistry {
	r := &memRegistry{endpoints: make(map[uuid.UUID]*domain.Endpoint)}
	for i := range endpoints {
		ep := endpoints[i]
		r.endpoints[ep.ID] = &ep
	}
	return r
}

func (r *memRegistry) FindActiveSubscribers(_ context.Context, event string) ([]domain.Endpoint, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Endpoint
	for _, ep := range r.endpoints {
		if ep.Receives(event) {
			out = append(out, *ep)
		}
	}
	return out, nil
}

func (r *memRegistry) GetByID(_ context.Context, id uuid.UUID) (*domain.Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.endpoints[id]
	if !ok {
		return nil, nil
	}
	cp := *ep
	return &cp, nil
}

func (r *memRegistry) IncrementSuccess(_ context.Context, id uuid.UUID) error {
	return r.bump(id, func(ep *domain.Endpoint) { ep.SuccessCount++ })
}

func (r *memRegistry) IncrementFailure(_ context.Context, id uuid.UUID) error {
	return r.bump(id, func(ep *domain.Endpoint) { ep.FailureCount++ })
}

func (r *memRegistry) bump(id uuid.UUID, fn func(*domain.Endpoint)) error {
	if r.incErr != nil {
		return r.incErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ep, ok := r.endpoints[id]; ok {
		fn(ep)
		now := time.Now()
		ep.LastTriggeredAt = &now
	}
	return nil
}

func (r *memRegistry) counts(id uuid.UUID) (success, failure int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep := r.endpoints[id]
	return ep.SuccessCount, ep.FailureCount
}

// recordingLogger captures delivery logs in memory.
type recordingLogger struct {
	mu      sync.Mutex
	entries []domain.DeliveryAttemptLog
}

func (l *recordingLogger) Record(_ context.Context, entry *domain.DeliveryAttemptLog) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *entry)
}

func (l *recordingLogger) ListByEndpoint(_ context.Context, endpointID uuid.UUID, _ int) ([]domain.DeliveryAttemptLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.DeliveryAttemptLog
	for _, e := range l.entries {
		if e.EndpointID == endpointID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *recordingLogger) all() []domain.DeliveryAttemptLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.DeliveryAttemptLog(nil), l.entries...)
}

// fakeClock advances only when the worker sleeps.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

func testEndpoint(url string) domain.Endpoint {
	return domain.Endpoint{
		ID:               uuid.New(),
		URL:              url,
		HTTPMethod:       domain.HTTPMethodPost,
		SubscribedEvents: []string{"user.created"},
		IsActive:         true,
		MaxRetries:       2,
		TimeoutSeconds:   5,
	}
}
