package timer

import (
	"testing"

	"main/internal/schema"
)

func TestDueOrder(t *testing.T) {
	m := NewManager()
	m.Register(3_000, 1)
	m.Register(1_000, 2)
	m.Register(2_000, 3)
	m.Register(1_000, 4)

	due := m.Due(2_500)
	if len(due) != 3 {
		t.Fatalf("due count mismatch: got %d want 3", len(due))
	}

	// Equal deadlines fire in registration order.
	expected := []schema.RfqID{2, 4, 3}
	for i, entry := range due {
		if entry.RfqID != expected[i] {
			t.Fatalf("firing order mismatch at %d: got rfq %d want %d", i, entry.RfqID, expected[i])
		}
	}

	if m.PendingCount() != 1 {
		t.Fatalf("pending mismatch: got %d want 1", m.PendingCount())
	}
	if due := m.Due(2_500); due != nil {
		t.Fatalf("second drain should be empty, got %v", due)
	}
}

func TestDueInclusiveDeadline(t *testing.T) {
	m := NewManager()
	m.Register(1_000, 1)

	if due := m.Due(999); due != nil {
		t.Fatalf("fired before deadline: %v", due)
	}
	if due := m.Due(1_000); len(due) != 1 {
		t.Fatalf("deadline is inclusive, got %v", due)
	}
}

func TestCancel(t *testing.T) {
	m := NewManager()
	first := m.Register(1_000, 1)
	m.Register(2_000, 2)

	if !m.Cancel(first) {
		t.Fatal("cancel of pending registration should succeed")
	}
	if m.Cancel(first) {
		t.Fatal("second cancel should report missing")
	}

	due := m.Due(5_000)
	if len(due) != 1 || due[0].RfqID != 2 {
		t.Fatalf("cancelled registration fired: %v", due)
	}
}

func TestIDsNeverReused(t *testing.T) {
	m := NewManager()
	a := m.Register(1_000, 1)
	m.Due(5_000)
	b := m.Register(1_000, 2)
	if b <= a {
		t.Fatalf("ids must be strictly increasing: %d then %d", a, b)
	}
}

func TestRestore(t *testing.T) {
	m := NewManager()
	m.Register(2_000, 1)
	m.Register(1_000, 2)
	pending := m.Pending()

	restored := NewManager()
	// Snapshot order is already sorted, but a restore must tolerate any
	// input order.
	restored.Restore(m.NextID(), []schema.TimerEntry{pending[1], pending[0]})

	if restored.NextID() != m.NextID() {
		t.Fatalf("next id mismatch: got %d want %d", restored.NextID(), m.NextID())
	}
	due := restored.Due(5_000)
	if len(due) != 2 || due[0].RfqID != 2 || due[1].RfqID != 1 {
		t.Fatalf("restored firing order mismatch: %v", due)
	}
}
