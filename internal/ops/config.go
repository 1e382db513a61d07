package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"main/internal/refdata"
	"main/internal/schema"
)

// FileConfig mirrors the config file layout. JSON is the native format;
// YAML is accepted by file extension.
type FileConfig struct {
	QuantityScale int32              `json:"quantityScale" yaml:"quantityScale"`
	PriceScale    int32              `json:"priceScale" yaml:"priceScale"`
	Users         []UserConfig       `json:"users" yaml:"users"`
	Instruments   []InstrumentConfig `json:"instruments" yaml:"instruments"`
	Queue         QueueConfig        `json:"queue" yaml:"queue"`
	Log           LogConfig          `json:"log" yaml:"log"`
	Retention     RetentionConfig    `json:"retention" yaml:"retention"`
	Archive       ArchiveConfig      `json:"archive" yaml:"archive"`
	Profiling     ProfilingConfig    `json:"profiling" yaml:"profiling"`
}

// UserConfig describes a user entry.
type UserConfig struct {
	ID   uint32 `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// InstrumentConfig describes an instrument entry. MinSize is a decimal
// string scaled by quantityScale at load time.
type InstrumentConfig struct {
	Cusip      string `json:"cusip" yaml:"cusip"`
	SecurityID uint32 `json:"securityId" yaml:"securityId"`
	Name       string `json:"name" yaml:"name"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	MinSize    string `json:"minSize" yaml:"minSize"`
}

// QueueConfig sizes the inbound and outbound queues.
type QueueConfig struct {
	CommandCapacity  int `json:"commandCapacity" yaml:"commandCapacity"`
	OutboundCapacity int `json:"outboundCapacity" yaml:"outboundCapacity"`
}

// LogConfig controls the command log location.
type LogConfig struct {
	Dir             string `json:"dir" yaml:"dir"`
	FilePrefix      string `json:"filePrefix" yaml:"filePrefix"`
	FlushIntervalMs int64  `json:"flushIntervalMs" yaml:"flushIntervalMs"`
	SyncIntervalMs  int64  `json:"syncIntervalMs" yaml:"syncIntervalMs"`
}

// RetentionConfig controls terminal aggregate compaction. Zero keeps
// everything forever.
type RetentionConfig struct {
	TerminalAfterMs int64 `json:"terminalAfterMs" yaml:"terminalAfterMs"`
}

// ArchiveConfig describes the Postgres sink for terminal RFQs.
type ArchiveConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"sslMode" yaml:"sslMode"`
}

// ProfilingConfig controls the optional continuous profiler.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	ServerAddress string `json:"serverAddress" yaml:"serverAddress"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Users         *refdata.Users
	Instruments   *refdata.Instruments
	QuantityScale int32
	PriceScale    int32
	Queue         QueueConfig
	Log           LogConfig
	Retention     RetentionConfig
	Archive       ArchiveConfig
	Profiling     ProfilingConfig
}

// RefData returns the combined lookup view for the book.
func (l Loaded) RefData() refdata.View {
	return refdata.NewView(l.Users, l.Instruments)
}

// FlushInterval converts the configured flush interval.
func (c LogConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// SyncInterval converts the configured sync interval.
func (c LogConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMs) * time.Millisecond
}

// TerminalAfter converts the retention window to cluster time units.
func (c RetentionConfig) TerminalAfter() schema.ClusterTime {
	return schema.ClusterTime(c.TerminalAfterMs)
}

// Load reads a config file and builds the reference data stores.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Loaded{}, err
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if cfg.QuantityScale < 0 || cfg.PriceScale < 0 {
		return Loaded{}, fmt.Errorf("scale must be >= 0")
	}

	users := refdata.NewUsers()
	for _, user := range cfg.Users {
		if err := users.Add(refdata.User{ID: schema.UserID(user.ID), Name: user.Name}); err != nil {
			return Loaded{}, err
		}
	}

	instruments := refdata.NewInstruments()
	for _, instrument := range cfg.Instruments {
		minSize, err := ParseQuantity(instrument.MinSize, cfg.QuantityScale)
		if err != nil {
			return Loaded{}, fmt.Errorf("invalid min size for %s: %w", instrument.Cusip, err)
		}
		err = instruments.Add(refdata.Instrument{
			Cusip:      instrument.Cusip,
			SecurityID: instrument.SecurityID,
			Name:       instrument.Name,
			Enabled:    instrument.Enabled,
			MinSize:    minSize,
		})
		if err != nil {
			return Loaded{}, err
		}
	}

	if cfg.Queue.CommandCapacity <= 0 {
		cfg.Queue.CommandCapacity = 1024
	}
	if cfg.Queue.OutboundCapacity <= 0 {
		cfg.Queue.OutboundCapacity = 4096
	}
	if cfg.Retention.TerminalAfterMs < 0 {
		return Loaded{}, fmt.Errorf("retention terminalAfterMs must be >= 0")
	}

	return Loaded{
		Users:         users,
		Instruments:   instruments,
		QuantityScale: cfg.QuantityScale,
		PriceScale:    cfg.PriceScale,
		Queue:         cfg.Queue,
		Log:           cfg.Log,
		Retention:     cfg.Retention,
		Archive:       cfg.Archive,
		Profiling:     cfg.Profiling,
	}, nil
}

// ParseQuantity converts a decimal string into a scaled integer quantity.
func ParseQuantity(value string, scale int32) (schema.Quantity, error) {
	if value == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	shifted := d.Shift(scale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("value %s has more precision than scale %d", value, scale)
	}
	return schema.Quantity(shifted.IntPart()), nil
}

// ParsePrice converts a decimal string into a scaled integer price.
func ParsePrice(value string, scale int32) (schema.Price, error) {
	if value == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	shifted := d.Shift(scale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("value %s has more precision than scale %d", value, scale)
	}
	return schema.Price(shifted.IntPart()), nil
}
