package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"main/internal/rfq"
	"main/internal/schema"
	"main/internal/timer"
)

// Snapshot captures the full core state at a point in the command stream:
// every aggregate in creation order, the id counters and the pending timer
// registrations. Restoring it and resuming the stream must behave exactly
// like an uninterrupted replica.
type Snapshot struct {
	Timestamp       int64               `json:"timestamp"`
	LastSeq         uint64              `json:"lastSeq"`
	LastClusterTime schema.ClusterTime  `json:"lastClusterTime"`
	NextRfqID       schema.RfqID        `json:"nextRfqId"`
	NextTimerID     schema.TimerID      `json:"nextTimerId"`
	Rfqs            []schema.RfqInfo    `json:"rfqs"`
	Timers          []schema.TimerEntry `json:"timers"`
}

// Capture builds a snapshot from the book and timer manager.
func Capture(book *rfq.Book, timers *timer.Manager) Snapshot {
	return Snapshot{
		Timestamp:       time.Now().UTC().UnixNano(),
		LastSeq:         book.LastSeq(),
		LastClusterTime: book.LastClusterTime(),
		NextRfqID:       book.NextID(),
		NextTimerID:     timers.NextID(),
		Rfqs:            book.Infos(),
		Timers:          timers.Pending(),
	}
}

// RestoreInto loads the snapshot into a book and timer manager.
func (s Snapshot) RestoreInto(book *rfq.Book, timers *timer.Manager) {
	timers.Restore(s.NextTimerID, s.Timers)
	book.Restore(s.Rfqs, s.NextRfqID, s.LastSeq, s.LastClusterTime, s.Timers)
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// CompareSnapshots checks whether two snapshots describe the same core
// state. The capture timestamp is ignored.
func CompareSnapshots(expected, actual Snapshot) error {
	if expected.LastSeq != actual.LastSeq {
		return fmt.Errorf("snapshot seq mismatch: expected=%d actual=%d", expected.LastSeq, actual.LastSeq)
	}
	if expected.LastClusterTime != actual.LastClusterTime {
		return fmt.Errorf("snapshot cluster time mismatch: expected=%d actual=%d", expected.LastClusterTime, actual.LastClusterTime)
	}
	if expected.NextRfqID != actual.NextRfqID {
		return fmt.Errorf("snapshot next rfq id mismatch: expected=%d actual=%d", expected.NextRfqID, actual.NextRfqID)
	}
	if expected.NextTimerID != actual.NextTimerID {
		return fmt.Errorf("snapshot next timer id mismatch: expected=%d actual=%d", expected.NextTimerID, actual.NextTimerID)
	}
	if len(expected.Rfqs) != len(actual.Rfqs) {
		return fmt.Errorf("snapshot rfq count mismatch: expected=%d actual=%d", len(expected.Rfqs), len(actual.Rfqs))
	}
	for i := range expected.Rfqs {
		if !reflect.DeepEqual(expected.Rfqs[i], actual.Rfqs[i]) {
			return fmt.Errorf("snapshot rfq mismatch at %d: expected=%+v actual=%+v", i, expected.Rfqs[i], actual.Rfqs[i])
		}
	}
	if len(expected.Timers) != len(actual.Timers) {
		return fmt.Errorf("snapshot timer count mismatch: expected=%d actual=%d", len(expected.Timers), len(actual.Timers))
	}
	for i := range expected.Timers {
		if expected.Timers[i] != actual.Timers[i] {
			return fmt.Errorf("snapshot timer mismatch at %d: expected=%+v actual=%+v", i, expected.Timers[i], actual.Timers[i])
		}
	}
	return nil
}
