package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/codec"
	"main/internal/recorder"
	"main/internal/refdata"
	"main/internal/rfq"
	"main/internal/schema"
	"main/internal/timer"
)

func newTestRefData(t *testing.T) refdata.View {
	t.Helper()
	users := refdata.NewUsers()
	require.NoError(t, users.Add(refdata.User{ID: 1, Name: "trader"}))
	require.NoError(t, users.Add(refdata.User{ID: 2, Name: "dealer"}))

	instruments := refdata.NewInstruments()
	require.NoError(t, instruments.Add(refdata.Instrument{
		Cusip:      "912828U40",
		SecurityID: 1,
		Name:       "UST 2Y",
		Enabled:    true,
		MinSize:    100,
	}))
	return refdata.NewView(users, instruments)
}

type emitted struct {
	session schema.SessionID
	user    schema.UserID
	group   schema.GroupID
	payload schema.Outbound
}

// recordingResponder captures the full output sequence so two replicas
// can be compared delivery for delivery.
type recordingResponder struct {
	outputs []emitted
}

func (r *recordingResponder) Respond(session schema.SessionID, payload schema.Outbound) {
	r.outputs = append(r.outputs, emitted{session: session, payload: payload})
}

func (r *recordingResponder) RespondUser(user schema.UserID, payload schema.Outbound) {
	r.outputs = append(r.outputs, emitted{user: user, payload: payload})
}

func (r *recordingResponder) Broadcast(group schema.GroupID, payload schema.Outbound) {
	r.outputs = append(r.outputs, emitted{group: group, payload: payload})
}

// driveScenario applies a fixed command script: two creates, a quote, an
// accept and a timer-driven expiry of the second RFQ.
func driveScenario(t *testing.T, book *rfq.Book, record func(schema.CommandHeader, []byte)) {
	t.Helper()
	apply := func(now schema.ClusterTime, session schema.SessionID, command any) {
		for _, fired := range book.Advance(now) {
			if record != nil {
				_, payload, ok := codec.Encode(nil, fired.Command)
				require.True(t, ok)
				record(fired.Header, payload)
			}
		}
		commandType, payload, ok := codec.Encode(nil, command)
		require.True(t, ok)
		header := schema.NewHeader(commandType, book.LastSeq()+1, now, session)
		if record != nil {
			record(header, payload)
		}
		book.Apply(header, command)
	}

	apply(1_000, 11, schema.CreateRfq{
		Correlation: "C-1",
		ExpireAt:    5_000,
		Quantity:    250,
		Side:        schema.SideBuy,
		Cusip:       "912828U40",
		UserID:      1,
	})
	apply(1_100, 11, schema.CreateRfq{
		Correlation: "C-2",
		ExpireAt:    3_000,
		Quantity:    500,
		Side:        schema.SideSell,
		Cusip:       "912828U40",
		UserID:      1,
	})
	apply(1_500, 22, schema.SubmitQuote{
		Correlation:  "Q-1",
		RfqID:        1,
		DealerUserID: 2,
		Price:        99_875,
		Quantity:     250,
	})
	apply(2_000, 11, schema.AcceptQuote{
		Correlation: "A-1",
		RfqID:       1,
		QuoteID:     1,
		UserID:      1,
	})
	// Carries cluster time past rfq 2's deadline, so the expiry fires
	// first and is recorded ahead of this command.
	apply(3_500, 11, schema.CancelRfq{
		Correlation: "X-1",
		RfqID:       99,
		UserID:      1,
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	timers := timer.NewManager()
	book := rfq.NewBook(newTestRefData(t), timers, rfq.NopResponder{})
	driveScenario(t, book, nil)

	snapshot := Capture(book, timers)
	path := filepath.Join(t.TempDir(), "rfqs.json")
	require.NoError(t, WriteSnapshot(path, snapshot))

	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.NoError(t, CompareSnapshots(snapshot, loaded))

	restoredTimers := timer.NewManager()
	restoredBook := rfq.NewBook(newTestRefData(t), restoredTimers, rfq.NopResponder{})
	loaded.RestoreInto(restoredBook, restoredTimers)

	require.NoError(t, CompareSnapshots(snapshot, Capture(restoredBook, restoredTimers)))
	assert.Equal(t, book.LastSeq(), restoredBook.LastSeq())
	assert.Equal(t, book.NextID(), restoredBook.NextID())
}

func TestRecoverFromLogMatchesLive(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer, err := recorder.NewWriter(recorder.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, writer.Start(ctx))

	timers := timer.NewManager()
	book := rfq.NewBook(newTestRefData(t), timers, rfq.NopResponder{})
	driveScenario(t, book, func(header schema.CommandHeader, payload []byte) {
		require.NoError(t, writer.TryAppend(header, payload))
	})
	require.NoError(t, writer.Close())
	expected := Capture(book, timers)

	recoveredTimers := timer.NewManager()
	recoveredBook := rfq.NewBook(newTestRefData(t), recoveredTimers, rfq.NopResponder{})
	result, err := Recover(ctx, RecoverConfig{LogDir: dir}, recoveredBook, recoveredTimers)
	require.NoError(t, err)

	assert.Equal(t, expected.LastSeq, result.LastSeq)
	require.NoError(t, CompareSnapshots(expected, Capture(recoveredBook, recoveredTimers)))

	// Resuming the stream after recovery must also emit the exact output
	// sequence the uninterrupted replica emits, including the deliveries
	// triggered by a timer firing.
	liveOut := &recordingResponder{}
	recoveredOut := &recordingResponder{}
	book.SetResponder(liveOut)
	recoveredBook.SetResponder(recoveredOut)

	for _, b := range []*rfq.Book{book, recoveredBook} {
		applyTail := func(now schema.ClusterTime, session schema.SessionID, command any) {
			commandType, _, ok := codec.Encode(nil, command)
			require.True(t, ok)
			b.Advance(now)
			b.Apply(schema.NewHeader(commandType, b.LastSeq()+1, now, session), command)
		}
		applyTail(4_000, 11, schema.CreateRfq{
			Correlation: "C-3",
			ExpireAt:    6_000,
			Quantity:    200,
			Side:        schema.SideBuy,
			Cusip:       "912828U40",
			UserID:      1,
		})
		applyTail(4_500, 22, schema.SubmitQuote{
			Correlation:  "Q-2",
			RfqID:        3,
			DealerUserID: 2,
			Price:        101_250,
			Quantity:     200,
		})
		// Carries cluster time past rfq 3's deadline so the expiry outputs
		// land in the compared sequence too.
		applyTail(6_500, 11, schema.CancelRfq{
			Correlation: "X-2",
			RfqID:       99,
			UserID:      1,
		})
	}

	require.NotEmpty(t, liveOut.outputs)
	assert.Equal(t, liveOut.outputs, recoveredOut.outputs)
	require.NoError(t, CompareSnapshots(Capture(book, timers), Capture(recoveredBook, recoveredTimers)))
}

func TestRecoverSkipsSnapshottedPrefix(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer, err := recorder.NewWriter(recorder.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, writer.Start(ctx))

	timers := timer.NewManager()
	book := rfq.NewBook(newTestRefData(t), timers, rfq.NopResponder{})

	driveScenario(t, book, func(header schema.CommandHeader, payload []byte) {
		require.NoError(t, writer.TryAppend(header, payload))
	})

	// Snapshot mid-stream: capture now, then apply one more command that
	// only the log carries.
	snapshot := Capture(book, timers)
	snapshotPath := filepath.Join(dir, "rfqs.json")
	require.NoError(t, WriteSnapshot(snapshotPath, snapshot))

	tail := schema.CreateRfq{
		Correlation: "C-3",
		ExpireAt:    9_000,
		Quantity:    300,
		Side:        schema.SideBuy,
		Cusip:       "912828U40",
		UserID:      1,
	}
	commandType, payload, ok := codec.Encode(nil, tail)
	require.True(t, ok)
	header := schema.NewHeader(commandType, book.LastSeq()+1, 4_000, 11)
	require.NoError(t, writer.TryAppend(header, payload))
	book.Apply(header, tail)
	require.NoError(t, writer.Close())
	expected := Capture(book, timers)

	recoveredTimers := timer.NewManager()
	recoveredBook := rfq.NewBook(newTestRefData(t), recoveredTimers, rfq.NopResponder{})
	result, err := Recover(ctx, RecoverConfig{
		LogDir:       dir,
		SnapshotPath: snapshotPath,
	}, recoveredBook, recoveredTimers)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Replayed)
	require.NoError(t, CompareSnapshots(expected, Capture(recoveredBook, recoveredTimers)))
}

func TestCompareSnapshotsDetectsDrift(t *testing.T) {
	timers := timer.NewManager()
	book := rfq.NewBook(newTestRefData(t), timers, rfq.NopResponder{})
	driveScenario(t, book, nil)

	base := Capture(book, timers)
	drifted := Capture(book, timers)
	drifted.LastSeq++
	assert.Error(t, CompareSnapshots(base, drifted))

	reordered := Capture(book, timers)
	if len(reordered.Rfqs) >= 2 {
		reordered.Rfqs[0], reordered.Rfqs[1] = reordered.Rfqs[1], reordered.Rfqs[0]
		assert.Error(t, CompareSnapshots(base, reordered))
	}
}
