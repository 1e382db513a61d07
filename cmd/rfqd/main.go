package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/archive"
	"main/internal/bus"
	"main/internal/codec"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/refdata"
	"main/internal/responder"
	"main/internal/rfq"
	"main/internal/schema"
	"main/internal/state"
	"main/internal/timer"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	logDir := flag.String("log-dir", "testdata/cmdlog", "Command log directory")
	snapshotPath := flag.String("snapshot-path", "", "Snapshot output (default: <log-dir>/rfqs.json)")
	recoverEnabled := flag.Bool("recover", false, "Recover state from snapshot + command log before serving")
	recoverSnapshot := flag.String("recover-snapshot", "", "Snapshot path for recovery (default: <log-dir>/rfqs.json)")
	recoverPrefix := flag.String("recover-prefix", "", "Command log file prefix for recovery (default: cmdlog)")
	recoverNoChecksum := flag.Bool("recover-no-checksum", false, "Disable checksum validation for recovery")
	recoverMaxPayload := flag.Int("recover-max-payload", 0, "Max payload size in bytes for recovery (0=unlimited)")
	metricsInterval := flag.Duration("metrics-interval", 30*time.Second, "Metrics log interval (0=disable)")

	replayDir := flag.String("replay-dir", "", "Command log directory for replay mode")
	replayPrefix := flag.String("replay-prefix", "", "Command log file prefix (default: cmdlog)")
	replayNoChecksum := flag.Bool("replay-no-checksum", false, "Disable checksum validation")
	replayMaxPayload := flag.Int("replay-max-payload", 0, "Max payload size in bytes (0=unlimited)")
	replaySnapshot := flag.String("replay-snapshot", "", "Snapshot path for replay verification (default: <replay-dir>/rfqs.json)")
	replayVerifySnapshot := flag.Bool("replay-verify-snapshot", true, "Verify state against snapshot after replay")
	flag.Parse()

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
	if *replayDir != "" {
		cfg := state.RecoverConfig{
			LogDir:          *replayDir,
			FilePrefix:      *replayPrefix,
			DisableChecksum: *replayNoChecksum,
			MaxPayloadSize:  *replayMaxPayload,
		}
		snapshotIn := resolveSnapshotPath(*replayDir, *replaySnapshot)
		if err := runReplay(ctx, cfg, loaded, snapshotIn, *replayVerifySnapshot); err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		return
	}

	var recoverCfg *state.RecoverConfig
	if *recoverEnabled {
		recoverCfg = &state.RecoverConfig{
			LogDir:          *logDir,
			SnapshotPath:    resolveSnapshotPath(*logDir, *recoverSnapshot),
			FilePrefix:      *recoverPrefix,
			DisableChecksum: *recoverNoChecksum,
			MaxPayloadSize:  *recoverMaxPayload,
		}
	}
	snapshotOut := resolveSnapshotPath(*logDir, *snapshotPath)
	if err := runServe(ctx, loaded, *logDir, snapshotOut, recoverCfg, *metricsInterval); err != nil {
		log.Fatalf("serve failed: %v", err)
	}
}

func runServe(ctx context.Context, loaded ops.Loaded, logDir, snapshotPath string, recoverCfg *state.RecoverConfig, metricsInterval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			cancel()
		case <-ctx.Done():
		}
	}()

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "rfqd",
			ServerAddress:   loaded.Profiling.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return fmt.Errorf("start profiler: %w", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	timers := timer.NewManager()
	sessions := responder.NewSessions()
	dispatcher := responder.NewDispatcher(sessions, loaded.Queue.OutboundCapacity)
	book := rfq.NewBook(loaded.RefData(), timers, dispatcher)
	metrics := obs.NewMetrics()

	var store *archive.Store
	var archiveWG sync.WaitGroup
	if loaded.Archive.Enabled {
		opened, err := archive.Open(archive.Option{
			Host:     loaded.Archive.Host,
			Port:     loaded.Archive.Port,
			User:     loaded.Archive.User,
			Password: loaded.Archive.Password,
			Database: loaded.Archive.Database,
			SSLMode:  loaded.Archive.SSLMode,
		})
		if err != nil {
			return err
		}
		store = opened
		defer func() {
			if err := store.Close(); err != nil {
				logs.Errorf("close archive failed: %+v", err)
			}
		}()

		outbox := make(chan schema.RfqInfo, 256)
		book.SetTerminalObserver(func(info schema.RfqInfo) {
			select {
			case outbox <- info:
			default:
				logs.Errorf("archive outbox full, dropped rfq %d", info.ID)
			}
		})
		archiveWG.Add(1)
		go func() {
			defer archiveWG.Done()
			for info := range outbox {
				if err := store.Save(info); err != nil {
					logs.Errorf("archive save failed: %+v", err)
				}
			}
		}()
		defer func() {
			book.SetTerminalObserver(nil)
			close(outbox)
			archiveWG.Wait()
		}()
	}

	if recoverCfg != nil {
		book.SetResponder(rfq.NopResponder{})
		result, err := state.Recover(ctx, *recoverCfg, book, timers)
		if err != nil {
			return fmt.Errorf("recover state: %w", err)
		}
		book.SetResponder(dispatcher)
		logs.Infof("recovered rfqs=%d last_seq=%d replayed=%d", book.Len(), result.LastSeq, result.Replayed)
	}

	recorderCfg := recorder.DefaultConfig(logDir)
	if loaded.Log.Dir != "" {
		recorderCfg.Dir = loaded.Log.Dir
	}
	if loaded.Log.FilePrefix != "" {
		recorderCfg.FilePrefix = loaded.Log.FilePrefix
	}
	recorderCfg.FlushInterval = loaded.Log.FlushInterval()
	recorderCfg.SyncInterval = loaded.Log.SyncInterval()
	writer, err := recorder.NewWriter(recorderCfg)
	if err != nil {
		return err
	}
	if err := writer.Start(ctx); err != nil {
		return err
	}

	queue := bus.NewQueue(loaded.Queue.CommandCapacity)
	var applyWG, outWG sync.WaitGroup

	outWG.Add(1)
	go func() {
		defer outWG.Done()
		dispatcher.Drain(ctx, func(envelope responder.Envelope) {
			if result, ok := resultOf(envelope.Payload); ok {
				metrics.IncResult(result)
			}
			if err := writeEnvelope(os.Stdout, envelope); err != nil {
				logs.Errorf("write outbound failed: %+v", err)
			}
		})
	}()

	applyWG.Add(1)
	go func() {
		defer applyWG.Done()
		queue.Run(ctx, func(c bus.Command) {
			applyStart := time.Now()
			command, ok := codec.Decode(c.Header.Type, c.Payload)
			if !ok {
				metrics.IncIgnored()
				logs.Errorf("decode command type %d failed, skipped", c.Header.Type)
				return
			}

			for _, fired := range book.Advance(c.Header.ClusterTime) {
				appendFired(writer, fired, metrics)
			}

			c.Header.Seq = book.LastSeq() + 1
			if err := writer.TryAppend(c.Header, c.Payload); err != nil {
				logs.Errorf("append command log failed: %+v", err)
			}
			book.Apply(c.Header, command)
			metrics.ObserveCommand(c.Header.Type)
			metrics.ObserveApply(time.Since(applyStart))

			// Terminal aggregates were handed to the archive outbox when
			// they closed; the retention window only governs how long they
			// stay queryable in memory.
			if window := loaded.Retention.TerminalAfter(); window > 0 && c.Header.ClusterTime > window {
				book.Compact(c.Header.ClusterTime - window)
			}
		})
	}()

	if metricsInterval > 0 {
		outWG.Add(1)
		go func() {
			defer outWG.Done()
			ticker := time.NewTicker(metricsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					logMetrics(metrics, dispatcher)
				}
			}
		}()
	}

	readErr := readCommands(ctx, os.Stdin, loaded, sessions, queue, metrics)

	// The apply loop must be fully stopped before the dispatcher stops
	// accepting; responses for the commands still queued would be lost
	// otherwise.
	queue.Close()
	applyWG.Wait()
	dispatcher.Close()
	cancel()
	outWG.Wait()

	if err := writer.Close(); err != nil {
		return fmt.Errorf("close command log: %w", err)
	}
	if snapshotPath != "" {
		snapshot := state.Capture(book, timers)
		if err := state.WriteSnapshot(snapshotPath, snapshot); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		logs.Infof("snapshot written: %s rfqs=%d last_seq=%d", snapshotPath, len(snapshot.Rfqs), snapshot.LastSeq)
	}
	logMetrics(metrics, dispatcher)
	return readErr
}

func runReplay(ctx context.Context, cfg state.RecoverConfig, loaded ops.Loaded, snapshotPath string, verifySnapshot bool) error {
	timers := timer.NewManager()
	book := rfq.NewBook(loaded.RefData(), timers, rfq.NopResponder{})

	result, err := state.Recover(ctx, cfg, book, timers)
	if err != nil {
		return err
	}
	if verifySnapshot {
		if snapshotPath == "" {
			return fmt.Errorf("snapshot path is empty")
		}
		expected, err := state.ReadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		actual := state.Capture(book, timers)
		if err := state.CompareSnapshots(expected, actual); err != nil {
			return err
		}
		logs.Infof("snapshot verified: rfqs=%d", len(actual.Rfqs))
	}
	logs.Infof("replay completed: replayed=%d rfqs=%d last_seq=%d", result.Replayed, book.Len(), result.LastSeq)
	return nil
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return defaultLoaded()
	}
	return ops.Load(path)
}

func defaultLoaded() (ops.Loaded, error) {
	users := refdata.NewUsers()
	for _, user := range []refdata.User{
		{ID: 1, Name: "trader"},
		{ID: 2, Name: "dealer-one"},
		{ID: 3, Name: "dealer-two"},
	} {
		if err := users.Add(user); err != nil {
			return ops.Loaded{}, err
		}
	}
	instruments := refdata.NewInstruments()
	err := instruments.Add(refdata.Instrument{
		Cusip:      "912828U40",
		SecurityID: 1,
		Name:       "UST 2Y",
		Enabled:    true,
		MinSize:    100,
	})
	if err != nil {
		return ops.Loaded{}, err
	}
	return ops.Loaded{
		Users:       users,
		Instruments: instruments,
		Queue: ops.QueueConfig{
			CommandCapacity:  1024,
			OutboundCapacity: 4096,
		},
	}, nil
}

// inboundLine is one JSON line on stdin. Session control lines (bind,
// unbind, join, leave) act on the local session registry; everything else
// becomes a replicated command stamped with the receive time.
type inboundLine struct {
	Type        string `json:"type"`
	Session     uint64 `json:"session"`
	User        uint32 `json:"user"`
	Group       uint16 `json:"group"`
	Correlation string `json:"correlation"`
	Cusip       string `json:"cusip"`
	Side        string `json:"side"`
	ExpireAt    int64  `json:"expireAt"`
	RfqID       uint64 `json:"rfqId"`
	QuoteID     uint32 `json:"quoteId"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
}

func readCommands(ctx context.Context, in *os.File, loaded ops.Loaded, sessions *responder.Sessions, queue *bus.Queue, metrics *obs.Metrics) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var line inboundLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			logs.Errorf("parse command line failed: %+v", err)
			continue
		}
		if handleSessionLine(sessions, line) {
			continue
		}
		command, err := buildCommand(loaded, line)
		if err != nil {
			logs.Errorf("build command failed: %+v", err)
			continue
		}
		commandType, payload, ok := codec.Encode(nil, command)
		if !ok {
			logs.Errorf("encode %q command failed, rejected", line.Type)
			continue
		}
		now := schema.ClusterTime(time.Now().UTC().UnixMilli())
		header := schema.NewHeader(commandType, 0, now, schema.SessionID(line.Session))
		err = queue.TryPublish(bus.Command{Header: header, Payload: payload})
		if err != nil {
			if errors.Is(err, bus.ErrQueueFull) {
				metrics.IncQueueDrop()
			} else if errors.Is(err, bus.ErrQueueClosed) {
				metrics.IncQueueClosed()
				return nil
			}
			logs.Errorf("publish command failed: %+v", err)
		}
	}
	return scanner.Err()
}

func handleSessionLine(sessions *responder.Sessions, line inboundLine) bool {
	switch line.Type {
	case "bind":
		sessions.Bind(schema.UserID(line.User), schema.SessionID(line.Session))
	case "unbind":
		sessions.Unbind(schema.UserID(line.User))
	case "join":
		sessions.Join(schema.GroupID(line.Group), schema.SessionID(line.Session))
	case "leave":
		sessions.Leave(schema.GroupID(line.Group), schema.SessionID(line.Session))
	default:
		return false
	}
	return true
}

func buildCommand(loaded ops.Loaded, line inboundLine) (any, error) {
	switch line.Type {
	case "createRfq":
		quantity, err := ops.ParseQuantity(line.Quantity, loaded.QuantityScale)
		if err != nil {
			return nil, err
		}
		side, err := parseSide(line.Side)
		if err != nil {
			return nil, err
		}
		return schema.CreateRfq{
			Correlation: line.Correlation,
			ExpireAt:    schema.ClusterTime(line.ExpireAt),
			Quantity:    quantity,
			Side:        side,
			Cusip:       line.Cusip,
			UserID:      schema.UserID(line.User),
		}, nil
	case "submitQuote":
		price, err := ops.ParsePrice(line.Price, loaded.PriceScale)
		if err != nil {
			return nil, err
		}
		quantity, err := ops.ParseQuantity(line.Quantity, loaded.QuantityScale)
		if err != nil {
			return nil, err
		}
		return schema.SubmitQuote{
			Correlation:  line.Correlation,
			RfqID:        schema.RfqID(line.RfqID),
			DealerUserID: schema.UserID(line.User),
			Price:        price,
			Quantity:     quantity,
		}, nil
	case "acceptQuote":
		return schema.AcceptQuote{
			Correlation: line.Correlation,
			RfqID:       schema.RfqID(line.RfqID),
			QuoteID:     schema.QuoteID(line.QuoteID),
			UserID:      schema.UserID(line.User),
		}, nil
	case "rejectQuote":
		return schema.RejectQuote{
			Correlation: line.Correlation,
			RfqID:       schema.RfqID(line.RfqID),
			QuoteID:     schema.QuoteID(line.QuoteID),
			UserID:      schema.UserID(line.User),
		}, nil
	case "cancelRfq":
		return schema.CancelRfq{
			Correlation: line.Correlation,
			RfqID:       schema.RfqID(line.RfqID),
			UserID:      schema.UserID(line.User),
		}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", line.Type)
	}
}

func parseSide(value string) (schema.Side, error) {
	switch strings.ToLower(value) {
	case "buy":
		return schema.SideBuy, nil
	case "sell":
		return schema.SideSell, nil
	default:
		return schema.SideUnknown, fmt.Errorf("unknown side %q", value)
	}
}

// outboundLine is one JSON line on stdout: an outbound payload addressed
// to a session.
type outboundLine struct {
	Session uint64          `json:"session"`
	Group   uint16          `json:"group,omitempty"`
	Type    string          `json:"type"`
	Body    schema.Outbound `json:"body"`
}

func writeEnvelope(out *os.File, envelope responder.Envelope) error {
	data, err := json.Marshal(outboundLine{
		Session: uint64(envelope.Session),
		Group:   uint16(envelope.Group),
		Type:    outboundName(envelope.Payload),
		Body:    envelope.Payload,
	})
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = out.Write(data)
	return err
}

// resultOf extracts the result code from primary responses. Broadcasts and
// notices carry none.
func resultOf(payload schema.Outbound) (schema.ResultCode, bool) {
	switch p := payload.(type) {
	case schema.CreateRfqConfirm:
		return p.Result, true
	case schema.QuoteConfirm:
		return p.Result, true
	case schema.AcceptConfirm:
		return p.Result, true
	case schema.RejectConfirm:
		return p.Result, true
	case schema.CancelConfirm:
		return p.Result, true
	default:
		return 0, false
	}
}

func outboundName(payload schema.Outbound) string {
	switch payload.(type) {
	case schema.CreateRfqConfirm:
		return "createRfqConfirm"
	case schema.QuoteConfirm:
		return "quoteConfirm"
	case schema.AcceptConfirm:
		return "acceptConfirm"
	case schema.RejectConfirm:
		return "rejectConfirm"
	case schema.CancelConfirm:
		return "cancelConfirm"
	case schema.QuoteNotice:
		return "quoteNotice"
	case schema.NewRfq:
		return "newRfq"
	case schema.TradeDone:
		return "tradeDone"
	case schema.RfqExpired:
		return "rfqExpired"
	case schema.RfqRejected:
		return "rfqRejected"
	case schema.RfqCanceled:
		return "rfqCanceled"
	default:
		return "unknown"
	}
}

func appendFired(writer *recorder.Writer, fired rfq.TimerCommand, metrics *obs.Metrics) {
	_, payload, ok := codec.Encode(nil, fired.Command)
	if !ok {
		return
	}
	if err := writer.TryAppend(fired.Header, payload); err != nil {
		logs.Errorf("append timer command failed: %+v", err)
	}
	metrics.ObserveCommand(fired.Header.Type)
}

func logMetrics(metrics *obs.Metrics, dispatcher *responder.Dispatcher) {
	snapshot := metrics.Snapshot()
	logs.Infof("metrics: commands=%v results=%v drops=%d closed=%d ignored=%d outbound_dropped=%d apply=%+v",
		snapshot.CommandCounts, snapshot.ResultCounts, snapshot.QueueDrops, snapshot.QueueClosed,
		snapshot.Ignored, dispatcher.Dropped(), snapshot.ApplyLatency)
}

func resolveSnapshotPath(dir string, path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(dir, "rfqs.json")
}
