package timer

import (
	"sort"

	"main/internal/schema"
)

// Manager schedules deterministic expiry timers keyed to cluster time.
// Timer ids are strictly increasing; timers with equal deadlines fire in
// registration order. The manager never touches the wall clock: the host
// drains due registrations against the cluster time carried by the command
// stream, so every replica observes identical firing order.
type Manager struct {
	pending []schema.TimerEntry
	nextID  schema.TimerID
}

// NewManager creates an empty timer manager.
func NewManager() *Manager {
	return &Manager{nextID: 1}
}

// Register schedules a firing at or after deadline and returns its id.
func (m *Manager) Register(deadline schema.ClusterTime, key schema.RfqID) schema.TimerID {
	id := m.nextID
	m.nextID++
	entry := schema.TimerEntry{ID: id, Deadline: deadline, RfqID: key}
	pos := sort.Search(len(m.pending), func(i int) bool {
		p := m.pending[i]
		if p.Deadline != entry.Deadline {
			return p.Deadline > entry.Deadline
		}
		return p.ID > entry.ID
	})
	m.pending = append(m.pending, schema.TimerEntry{})
	copy(m.pending[pos+1:], m.pending[pos:])
	m.pending[pos] = entry
	return id
}

// Cancel removes a pending registration. Best effort: a registration that
// has already been drained is gone, and the caller's terminal-state guard
// is the authoritative protection against late deliveries.
func (m *Manager) Cancel(id schema.TimerID) bool {
	for i, p := range m.pending {
		if p.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Due pops every registration with deadline <= now, in (deadline, id)
// order. The returned slice is owned by the caller.
func (m *Manager) Due(now schema.ClusterTime) []schema.TimerEntry {
	cut := sort.Search(len(m.pending), func(i int) bool {
		return m.pending[i].Deadline > now
	})
	if cut == 0 {
		return nil
	}
	due := make([]schema.TimerEntry, cut)
	copy(due, m.pending[:cut])
	m.pending = m.pending[:copy(m.pending, m.pending[cut:])]
	return due
}

// PendingCount returns the number of undelivered registrations.
func (m *Manager) PendingCount() int {
	return len(m.pending)
}

// Pending returns a copy of the undelivered registrations in firing order.
func (m *Manager) Pending() []schema.TimerEntry {
	out := make([]schema.TimerEntry, len(m.pending))
	copy(out, m.pending)
	return out
}

// NextID returns the id the next registration will receive.
func (m *Manager) NextID() schema.TimerID {
	return m.nextID
}

// Restore replaces the manager state from a snapshot. Pending entries are
// re-sorted so a restored replica fires in the identical order.
func (m *Manager) Restore(nextID schema.TimerID, pending []schema.TimerEntry) {
	if nextID == 0 {
		nextID = 1
	}
	m.nextID = nextID
	m.pending = make([]schema.TimerEntry, len(pending))
	copy(m.pending, pending)
	sort.Slice(m.pending, func(i, j int) bool {
		if m.pending[i].Deadline != m.pending[j].Deadline {
			return m.pending[i].Deadline < m.pending[j].Deadline
		}
		return m.pending[i].ID < m.pending[j].ID
	})
}
