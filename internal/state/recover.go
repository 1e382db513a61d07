package state

import (
	"context"
	"fmt"

	"main/internal/codec"
	"main/internal/recorder"
	"main/internal/rfq"
	"main/internal/schema"
	"main/internal/timer"
)

// RecoverConfig controls snapshot + command log recovery.
type RecoverConfig struct {
	LogDir          string
	SnapshotPath    string
	FilePrefix      string
	DisableChecksum bool
	MaxPayloadSize  int
}

// RecoverResult contains metadata about the recovered stream position.
type RecoverResult struct {
	LastSeq         uint64
	LastClusterTime schema.ClusterTime
	Replayed        int
}

// Recover loads a snapshot (when present) into the book and timer manager,
// then re-applies the command log tail through the same apply path used
// live. Records at or before the snapshot's sequence are skipped; timer
// firings were recorded as first-class commands so nothing is regenerated.
func Recover(ctx context.Context, cfg RecoverConfig, book *rfq.Book, timers *timer.Manager) (RecoverResult, error) {
	if cfg.LogDir == "" {
		return RecoverResult{}, fmt.Errorf("command log dir is empty")
	}

	var lastSeq uint64
	var lastTime schema.ClusterTime
	if cfg.SnapshotPath != "" {
		snapshot, err := ReadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return RecoverResult{}, err
		}
		snapshot.RestoreInto(book, timers)
		lastSeq = snapshot.LastSeq
		lastTime = snapshot.LastClusterTime
	}

	playback, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             cfg.LogDir,
		FilePrefix:      cfg.FilePrefix,
		Speed:           0,
		DisableChecksum: cfg.DisableChecksum,
		MaxPayloadSize:  cfg.MaxPayloadSize,
	})
	if err != nil {
		return RecoverResult{}, err
	}

	replayed := 0
	err = playback.Run(ctx, func(header schema.CommandHeader, payload []byte) error {
		if lastSeq > 0 && header.Seq <= lastSeq {
			return nil
		}
		command, ok := codec.Decode(header.Type, payload)
		if !ok {
			return fmt.Errorf("decode command seq %d type %d failed", header.Seq, header.Type)
		}
		book.Apply(header, command)
		if header.Seq > lastSeq {
			lastSeq = header.Seq
		}
		if header.ClusterTime > lastTime {
			lastTime = header.ClusterTime
		}
		replayed++
		return nil
	})
	if err != nil {
		return RecoverResult{}, err
	}

	return RecoverResult{
		LastSeq:         lastSeq,
		LastClusterTime: lastTime,
		Replayed:        replayed,
	}, nil
}
