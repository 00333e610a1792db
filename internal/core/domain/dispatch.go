package domain

import "github.com/google/uuid"

// Dispatch is the handle returned when an event is triggered.
// It carries a completion signal only; per-endpoint results are observable
// through delivery logs and endpoint counters.
type Dispatch struct {
	ID      uuid.UUID `json:"dispatch_id"`
	Event   string    `json:"event"`
	Matched int       `json:"matched"`

	done chan struct{}
}

// NewDispatch creates a handle whose Done channel closes after Finish is called.
func NewDispatch(event string, matched int) *Dispatch {
	return &Dispatch{
		ID:      uuid.New(),
		Event:   event,
		Matched: matched,
		done:    make(chan struct{}),
	}
}

// Done is closed once every delivery of the dispatch has reached a terminal outcome.
func (d *Dispatch) Done() <-chan struct{} {
	return d.done
}

// Finish closes the Done channel. It must be called exactly once.
func (d *Dispatch) Finish() {
	close(d.done)
}
