package hw

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// coilWriter is the subset of modbus.Client used by coil outputs.
type coilWriter interface {
	WriteSingleCoil(address, value uint16) ([]byte, error)
}

// Endpoint is one TCP connection to a remote IO module.
// It serializes requests because it mutates SlaveId per write.
type Endpoint struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  coilWriter
	setUnit func(uint8)
}

type EndpointConfig struct {
	Address string
	Timeout time.Duration
}

func NewEndpoint(cfg EndpointConfig) (*Endpoint, error) {
	if cfg.Address == "" {
		return nil, errors.New("modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Address)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus connect %s: %w", cfg.Address, err)
	}

	return &Endpoint{
		handler: h,
		client:  modbus.NewClient(h),
		setUnit: func(id uint8) { h.SlaveId = id },
	}, nil
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handler == nil {
		return nil
	}
	return e.handler.Close()
}

func (e *Endpoint) writeCoil(unitID uint8, addr uint16, on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.setUnit != nil {
		e.setUnit(unitID)
	}
	v := coilOff
	if on {
		v = coilOn
	}
	_, err := e.client.WriteSingleCoil(addr, v)
	return err
}

// CoilOutput is one coil on a shared endpoint.
type CoilOutput struct {
	ep     *Endpoint
	unitID uint8
	addr   uint16
}

func (e *Endpoint) Coil(unitID uint8, addr uint16) *CoilOutput {
	return &CoilOutput{ep: e, unitID: unitID, addr: addr}
}

func (c *CoilOutput) Set(high bool) error {
	if err := c.ep.writeCoil(c.unitID, c.addr, high); err != nil {
		return fmt.Errorf("modbus unit %d coil %d: %w", c.unitID, c.addr, err)
	}
	return nil
}
