package responder

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func drain(d *Dispatcher) []Envelope {
	d.Close()
	var out []Envelope
	d.Drain(context.Background(), func(envelope Envelope) {
		out = append(out, envelope)
	})
	return out
}

func TestSessions(t *testing.T) {
	sessions := NewSessions()
	sessions.Bind(1, 100)

	session, ok := sessions.SessionFor(1)
	require.True(t, ok)
	assert.Equal(t, schema.SessionID(100), session)

	// Rebinding replaces the previous session.
	sessions.Bind(1, 200)
	session, _ = sessions.SessionFor(1)
	assert.Equal(t, schema.SessionID(200), session)

	sessions.Unbind(1)
	_, ok = sessions.SessionFor(1)
	assert.False(t, ok)

	sessions.Join(schema.GroupDealers, 300)
	sessions.Join(schema.GroupDealers, 100)
	sessions.Join(schema.GroupDealers, 200)
	assert.Equal(t, []schema.SessionID{100, 200, 300}, sessions.Members(schema.GroupDealers))

	sessions.Leave(schema.GroupDealers, 200)
	assert.Equal(t, []schema.SessionID{100, 300}, sessions.Members(schema.GroupDealers))
	assert.Nil(t, sessions.Members(schema.GroupID(9)))
}

func TestDispatcherRespond(t *testing.T) {
	sessions := NewSessions()
	d := NewDispatcher(sessions, 8)

	d.Respond(100, schema.RfqExpired{RfqID: 1})
	d.Respond(0, schema.RfqExpired{RfqID: 2})

	out := drain(d)
	require.Len(t, out, 1)
	assert.Equal(t, schema.SessionID(100), out[0].Session)
}

func TestDispatcherRespondUser(t *testing.T) {
	sessions := NewSessions()
	sessions.Bind(7, 100)
	d := NewDispatcher(sessions, 8)

	d.RespondUser(7, schema.RfqExpired{RfqID: 1})
	// Unbound user: dropped, client reconciles via correlation on
	// reconnect.
	d.RespondUser(8, schema.RfqExpired{RfqID: 2})

	out := drain(d)
	require.Len(t, out, 1)
	assert.Equal(t, schema.SessionID(100), out[0].Session)
	expired, ok := out[0].Payload.(schema.RfqExpired)
	require.True(t, ok)
	assert.Equal(t, schema.RfqID(1), expired.RfqID)
}

func TestDispatcherBroadcast(t *testing.T) {
	sessions := NewSessions()
	sessions.Join(schema.GroupDealers, 100)
	sessions.Join(schema.GroupDealers, 200)
	d := NewDispatcher(sessions, 8)

	d.Broadcast(schema.GroupDealers, schema.RfqCanceled{RfqID: 3})

	out := drain(d)
	require.Len(t, out, 2)
	assert.Equal(t, schema.SessionID(100), out[0].Session)
	assert.Equal(t, schema.SessionID(200), out[1].Session)
	assert.Equal(t, schema.GroupDealers, out[0].Group)
}

func TestDispatcherCloseDuringRespond(t *testing.T) {
	// A response in flight while the dispatcher shuts down must be
	// dropped, never panic.
	for i := 0; i < 500; i++ {
		d := NewDispatcher(NewSessions(), 4)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				d.Respond(100, schema.RfqExpired{RfqID: 1})
			}
		}()
		d.Close()
		wg.Wait()
	}
}

func TestDispatcherRespondAfterClose(t *testing.T) {
	sessions := NewSessions()
	d := NewDispatcher(sessions, 8)

	d.Respond(100, schema.RfqExpired{RfqID: 1})
	d.Close()
	d.Respond(100, schema.RfqExpired{RfqID: 2})

	// The pre-close envelope is still drained; the late one is dropped.
	out := drain(d)
	require.Len(t, out, 1)
	expired, ok := out[0].Payload.(schema.RfqExpired)
	require.True(t, ok)
	assert.Equal(t, schema.RfqID(1), expired.RfqID)
}

func TestDispatcherBackPressure(t *testing.T) {
	sessions := NewSessions()
	d := NewDispatcher(sessions, 1)

	d.Respond(100, schema.RfqExpired{RfqID: 1})
	d.Respond(100, schema.RfqExpired{RfqID: 2})

	assert.Equal(t, uint64(1), d.Dropped())
	out := drain(d)
	require.Len(t, out, 1)
}
