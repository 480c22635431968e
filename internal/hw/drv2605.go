package hw

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// DRV2605 register map (subset).
const (
	DRV2605Addr uint16 = 0x5A

	regMode    = 0x01
	regLibrary = 0x03
	regWaveSeq = 0x04 // slots 0..7 at 0x04..0x0B
	regGo      = 0x0C

	modeInternalTrigger = 0x00
	libraryERM          = 0x01
	waveSlots           = 8
)

// txer is the subset of *i2c.Dev the driver needs.
type txer interface {
	Tx(w, r []byte) error
}

// Haptic plays library waveforms on a DRV2605.
type Haptic struct {
	dev   txer
	close func() error
}

// NewHaptic opens bus (empty = first registered) and leaves the chip in internal-trigger
// mode with the ERM library selected.
func NewHaptic(bus string, addr uint16) (*Haptic, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("drv2605 open i2c %q: %w", bus, err)
	}
	if addr == 0 {
		addr = DRV2605Addr
	}
	h, err := newHaptic(&i2c.Dev{Bus: b, Addr: addr})
	if err != nil {
		b.Close()
		return nil, err
	}
	h.close = b.Close
	return h, nil
}

func newHaptic(dev txer) (*Haptic, error) {
	h := &Haptic{dev: dev}
	if err := h.write(regMode, modeInternalTrigger); err != nil {
		return nil, fmt.Errorf("drv2605 init: %w", err)
	}
	if err := h.write(regLibrary, libraryERM); err != nil {
		return nil, fmt.Errorf("drv2605 init: %w", err)
	}
	return h, nil
}

func (h *Haptic) write(reg, val byte) error {
	return h.dev.Tx([]byte{reg, val}, nil)
}

func (h *Haptic) SetWaveform(slot, effect uint8) error {
	if slot >= waveSlots {
		return fmt.Errorf("drv2605: slot %d out of range", slot)
	}
	if err := h.write(regWaveSeq+slot, effect); err != nil {
		return fmt.Errorf("drv2605 waveform slot %d: %w", slot, err)
	}
	return nil
}

func (h *Haptic) Go() error {
	if err := h.write(regGo, 1); err != nil {
		return fmt.Errorf("drv2605 go: %w", err)
	}
	return nil
}

func (h *Haptic) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}
