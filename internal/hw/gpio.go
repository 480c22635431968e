package hw

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// PinOutput drives one GPIO line.
type PinOutput struct {
	pin gpio.PinOut
}

// NewPinOutput resolves name through the periph registry and drives it low.
func NewPinOutput(name string) (*PinOutput, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	o := &PinOutput{pin: p}
	if err := o.Set(false); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *PinOutput) Set(high bool) error {
	if err := o.pin.Out(gpio.Level(high)); err != nil {
		return fmt.Errorf("gpio %s: %w", o.pin, err)
	}
	return nil
}
