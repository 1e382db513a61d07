package refdata

import (
	"fmt"

	"main/internal/schema"
)

// Instrument describes a tradable security keyed by cusip.
type Instrument struct {
	Cusip      string
	SecurityID uint32
	Name       string
	Enabled    bool
	MinSize    schema.Quantity
}

// Instruments stores instrument reference data with cusip lookup.
// Read-only during command application.
type Instruments struct {
	instruments []Instrument
	byCusip     map[string]int
}

// NewInstruments creates an empty instrument store.
func NewInstruments() *Instruments {
	return &Instruments{byCusip: make(map[string]int)}
}

// Add registers a new instrument.
func (i *Instruments) Add(instrument Instrument) error {
	if instrument.Cusip == "" {
		return fmt.Errorf("instrument cusip is empty")
	}
	if instrument.MinSize < 0 {
		return fmt.Errorf("instrument min size must be >= 0: %s", instrument.Cusip)
	}
	if _, ok := i.byCusip[instrument.Cusip]; ok {
		return fmt.Errorf("instrument already exists: %s", instrument.Cusip)
	}
	i.byCusip[instrument.Cusip] = len(i.instruments)
	i.instruments = append(i.instruments, instrument)
	return nil
}

// IsValidCusip reports whether the cusip is known.
func (i *Instruments) IsValidCusip(cusip string) bool {
	_, ok := i.byCusip[cusip]
	return ok
}

// IsEnabled reports whether the instrument is enabled for trading.
// Unknown cusips are not enabled.
func (i *Instruments) IsEnabled(cusip string) bool {
	idx, ok := i.byCusip[cusip]
	if !ok {
		return false
	}
	return i.instruments[idx].Enabled
}

// MinSize returns the minimum RFQ quantity for the instrument.
// Unknown cusips return 0.
func (i *Instruments) MinSize(cusip string) schema.Quantity {
	idx, ok := i.byCusip[cusip]
	if !ok {
		return 0
	}
	return i.instruments[idx].MinSize
}

// SetEnabled flips the trading flag. Bootstrap and operations use only;
// never invoked from the apply path.
func (i *Instruments) SetEnabled(cusip string, enabled bool) bool {
	idx, ok := i.byCusip[cusip]
	if !ok {
		return false
	}
	i.instruments[idx].Enabled = enabled
	return true
}

// Instrument returns the instrument by cusip.
func (i *Instruments) Instrument(cusip string) (Instrument, bool) {
	idx, ok := i.byCusip[cusip]
	if !ok {
		return Instrument{}, false
	}
	return i.instruments[idx], true
}

// Count returns the number of instruments in the store.
func (i *Instruments) Count() int {
	return len(i.instruments)
}

// At returns the instrument by zero-based insertion index.
func (i *Instruments) At(index int) (Instrument, bool) {
	if index < 0 || index >= len(i.instruments) {
		return Instrument{}, false
	}
	return i.instruments[index], true
}
