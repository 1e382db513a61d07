package rfq

import "main/internal/schema"

// Len returns the number of aggregates held, including terminal ones.
func (b *Book) Len() int {
	return len(b.rfqs)
}

// Rfq returns an immutable view of the aggregate with the given id.
func (b *Book) Rfq(id schema.RfqID) (schema.RfqInfo, bool) {
	rfq, ok := b.lookup(id)
	if !ok {
		return schema.RfqInfo{}, false
	}
	return rfq.Info(), true
}

// Infos returns views of every aggregate in creation order.
func (b *Book) Infos() []schema.RfqInfo {
	infos := make([]schema.RfqInfo, len(b.rfqs))
	for i, rfq := range b.rfqs {
		infos[i] = rfq.Info()
	}
	return infos
}

// NextID returns the id the next successful create will receive.
func (b *Book) NextID() schema.RfqID {
	return b.nextID
}

// LastSeq returns the sequence of the last applied command.
func (b *Book) LastSeq() uint64 {
	return b.lastSeq
}

// LastClusterTime returns the cluster time of the last applied command.
func (b *Book) LastClusterTime() schema.ClusterTime {
	return b.lastTime
}

// Restore replaces the book contents from snapshot data. The timer-by-rfq
// mapping is rebuilt from the pending registrations so advisory cancels
// keep working after a restore.
func (b *Book) Restore(infos []schema.RfqInfo, nextID schema.RfqID, lastSeq uint64, lastTime schema.ClusterTime, pending []schema.TimerEntry) {
	if nextID == 0 {
		nextID = 1
	}
	b.rfqs = make([]*Rfq, 0, len(infos))
	b.index = make(map[schema.RfqID]int, len(infos))
	b.timerByRfq = make(map[schema.RfqID]schema.TimerID, len(pending))
	for _, info := range infos {
		b.index[info.ID] = len(b.rfqs)
		b.rfqs = append(b.rfqs, rfqFromInfo(info))
	}
	for _, entry := range pending {
		b.timerByRfq[entry.RfqID] = entry.ID
	}
	b.nextID = nextID
	b.lastSeq = lastSeq
	b.lastTime = lastTime
}

// Compact drops terminal aggregates whose last transition is older than
// cutoff and returns how many were removed. Never called from the apply
// path; hosts archive terminal aggregates before compacting.
func (b *Book) Compact(cutoff schema.ClusterTime) int {
	kept := b.rfqs[:0]
	for _, rfq := range b.rfqs {
		if rfq.State.IsTerminal() && rfq.ClosedAt < cutoff {
			delete(b.index, rfq.ID)
			continue
		}
		kept = append(kept, rfq)
	}
	removed := len(b.rfqs) - len(kept)
	if removed == 0 {
		return 0
	}
	b.rfqs = kept
	for i, rfq := range b.rfqs {
		b.index[rfq.ID] = i
	}
	return removed
}
