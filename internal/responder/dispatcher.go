package responder

import (
	"context"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// Envelope is a single outbound delivery for the transport to drain.
// Group is zero for point-to-point responses.
type Envelope struct {
	Session schema.SessionID
	Group   schema.GroupID
	Payload schema.Outbound
}

// Dispatcher implements the session responder contract over a bounded
// outbound queue. Enqueueing never blocks the apply path; per-session
// ordering follows enqueue order because a single consumer drains the
// queue. Deliveries to unbound users are dropped, clients reconcile via
// correlation.
type Dispatcher struct {
	sessions *Sessions
	out      chan Envelope
	done     chan struct{}
	closed   uint32
	dropped  uint64
}

// NewDispatcher creates a dispatcher over the given session registry.
func NewDispatcher(sessions *Sessions, capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = 1
	}
	return &Dispatcher{
		sessions: sessions,
		out:      make(chan Envelope, capacity),
		done:     make(chan struct{}),
	}
}

// Respond delivers a point-to-point payload to the originating session.
func (d *Dispatcher) Respond(session schema.SessionID, payload schema.Outbound) {
	if session == 0 {
		return
	}
	d.enqueue(Envelope{Session: session, Payload: payload})
}

// RespondUser delivers a point-to-point payload to the user's current
// session, dropping it when the user is not connected.
func (d *Dispatcher) RespondUser(user schema.UserID, payload schema.Outbound) {
	session, ok := d.sessions.SessionFor(user)
	if !ok {
		return
	}
	d.enqueue(Envelope{Session: session, Payload: payload})
}

// Broadcast delivers a payload to every session currently in the group.
func (d *Dispatcher) Broadcast(group schema.GroupID, payload schema.Outbound) {
	for _, session := range d.sessions.Members(group) {
		d.enqueue(Envelope{Session: session, Group: group, Payload: payload})
	}
}

// Drain consumes envelopes until the context is done or Close is called.
// Envelopes already buffered at Close time are still handed over.
func (d *Dispatcher) Drain(ctx context.Context, handler func(Envelope)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			d.flush(handler)
			return
		case envelope := <-d.out:
			handler(envelope)
		}
	}
}

func (d *Dispatcher) flush(handler func(Envelope)) {
	for {
		select {
		case envelope := <-d.out:
			handler(envelope)
		default:
			return
		}
	}
}

// Close stops the dispatcher from accepting new envelopes. The outbound
// channel itself is never closed: a producer racing Close must not be
// able to panic the process, it just loses the delivery.
func (d *Dispatcher) Close() {
	if atomic.CompareAndSwapUint32(&d.closed, 0, 1) {
		close(d.done)
	}
}

// Dropped returns the number of envelopes lost to back-pressure.
func (d *Dispatcher) Dropped() uint64 {
	return atomic.LoadUint64(&d.dropped)
}

func (d *Dispatcher) enqueue(envelope Envelope) {
	if atomic.LoadUint32(&d.closed) != 0 {
		return
	}
	select {
	case d.out <- envelope:
	default:
		atomic.AddUint64(&d.dropped, 1)
		logs.Errorf("outbound queue full, dropped delivery to session %d", envelope.Session)
	}
}
