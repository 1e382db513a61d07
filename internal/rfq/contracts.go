package rfq

import "main/internal/schema"

// ReferenceData answers validity and eligibility questions. Must be
// available synchronously and deterministically at apply time; never
// backed by unreplicated mutable state.
type ReferenceData interface {
	IsValidUser(id schema.UserID) bool
	IsValidCusip(cusip string) bool
	IsEnabled(cusip string) bool
	MinSize(cusip string) schema.Quantity
}

// TimerScheduler registers and cancels deterministic expiry timers.
// Cancel is advisory only; the book's terminal-state guard is the
// authoritative protection against a firing that raced a cancellation.
type TimerScheduler interface {
	Register(deadline schema.ClusterTime, key schema.RfqID) schema.TimerID
	Cancel(id schema.TimerID) bool
	Due(now schema.ClusterTime) []schema.TimerEntry
}

// Responder delivers outputs to client sessions. Respond targets the
// originating session, RespondUser resolves a user to its current session
// (dropped when disconnected), Broadcast fans out to a session group.
// None of the methods may block the apply path.
type Responder interface {
	Respond(session schema.SessionID, payload schema.Outbound)
	RespondUser(user schema.UserID, payload schema.Outbound)
	Broadcast(group schema.GroupID, payload schema.Outbound)
}

// NopResponder discards every output. Used while re-applying a recorded
// stream, where clients already received the originals.
type NopResponder struct{}

func (NopResponder) Respond(schema.SessionID, schema.Outbound)  {}
func (NopResponder) RespondUser(schema.UserID, schema.Outbound) {}
func (NopResponder) Broadcast(schema.GroupID, schema.Outbound)  {}
