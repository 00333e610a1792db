package service

import (
	"context"
	"sync"
	"time"

	"webhook-dispatcher/internal/core/domain"
	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/pkg/logger"

	"github.com/rs/zerolog"
)

// TaskRunner executes delivery tasks without blocking the submitter.
type TaskRunner interface {
	SubmitTask(task Task) bool
}

// Dispatcher implements ports.EventDispatcher.
type Dispatcher struct {
	registry ports.EndpointRegistry
	worker   ports.DeliveryWorker
	runner   TaskRunner
	source   string
	now      func() time.Time
	log      zerolog.Logger
}

// NewDispatcher creates a dispatcher stamping payloads with source.
func NewDispatcher(registry ports.EndpointRegistry, worker ports.DeliveryWorker, runner TaskRunner, source string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		worker:   worker,
		runner:   runner,
		source:   source,
		now:      time.Now,
		log:      logger.Component(log, "dispatcher"),
	}
}

// Trigger looks up the active subscribers of event and schedules one independent
// delivery per endpoint. It returns as soon as the deliveries are scheduled.
// Lookup failures are logged and produce a dispatch with no matches.
func (d *Dispatcher) Trigger(ctx context.Context, event string, data any) *domain.Dispatch {
	log := d.log.With().Str("event", event).Logger()

	endpoints, err := d.registry.FindActiveSubscribers(ctx, event)
	if err != nil {
		log.Error().Err(err).Msg("webhook: subscriber lookup failed, event dropped")
		return finished(domain.NewDispatch(event, 0))
	}

	matched := endpoints[:0:0]
	for _, ep := range endpoints {
		if ep.Receives(event) {
			matched = append(matched, ep)
		}
	}

	dispatch := domain.NewDispatch(event, len(matched))
	log = log.With().Str("dispatch_id", dispatch.ID.String()).Logger()
	if len(matched) == 0 {
		log.Debug().Msg("webhook: no subscribers")
		return finished(dispatch)
	}

	payload := domain.NewWebhookPayload(event, data, d.source, d.now())
	// Deliveries outlive the triggering request.
	detached := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(len(matched))
	for _, ep := range matched {
		ok := d.runner.SubmitTask(Task{
			Run: func(slot *Slot) {
				defer wg.Done()
				d.deliver(withSlot(detached, slot), ep, payload, log)
			},
			Drop: func() {
				defer wg.Done()
				log.Warn().Str("endpoint_id", ep.ID.String()).Msg("webhook: delivery dropped at shutdown")
			},
		})
		if !ok {
			wg.Done()
			log.Warn().Str("endpoint_id", ep.ID.String()).Msg("webhook: dispatcher stopped, delivery not scheduled")
		}
	}

	go func() {
		wg.Wait()
		dispatch.Finish()
	}()

	log.Info().Int("matched", len(matched)).Msg("webhook: event dispatched")
	return dispatch
}

// deliver isolates one delivery; its error or panic never reaches sibling deliveries.
func (d *Dispatcher) deliver(ctx context.Context, ep domain.Endpoint, payload domain.WebhookPayload, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("endpoint_id", ep.ID.String()).Msg("webhook: delivery panicked")
		}
	}()
	if err := d.worker.Deliver(ctx, ep, payload); err != nil {
		log.Debug().Err(err).Str("endpoint_id", ep.ID.String()).Msg("webhook: delivery finished with error")
	}
}

func finished(d *domain.Dispatch) *domain.Dispatch {
	d.Finish()
	return d
}
