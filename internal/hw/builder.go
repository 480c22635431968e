package hw

import (
	"errors"
	"fmt"
	"time"

	"github.com/xmidt-org/talaria/boardlink"
	"github.com/xmidt-org/talaria/boardlink/actuation"
	"github.com/xmidt-org/talaria/boardlink/channelmap"
	"github.com/xmidt-org/talaria/boardlink/fusion"
	cfg "github.com/xmidt-org/talaria/boardlink/internal/config"
)

// BuildChannelMap constructs every configured output and the immutable map over them.
// Modbus channels on the same endpoint share one connection.
// The returned closer releases every endpoint.
func BuildChannelMap(chs []cfg.ChannelConfig, log boardlink.Logger) (*channelmap.Map, func() error, error) {
	endpoints := make(map[string]*Endpoint)
	closeAll := func() error {
		var errs []error
		for _, ep := range endpoints {
			errs = append(errs, ep.Close())
		}
		return errors.Join(errs...)
	}

	outputs := make(map[int]channelmap.Output, len(chs))
	for _, c := range chs {
		switch c.Driver {
		case cfg.DriverGPIO:
			o, err := NewPinOutput(c.Pin)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("channel %d: %w", c.ID, err)
			}
			outputs[c.ID] = o
		case cfg.DriverModbus:
			ep, ok := endpoints[c.Endpoint]
			if !ok {
				var err error
				ep, err = NewEndpoint(EndpointConfig{
					Address: c.Endpoint,
					Timeout: time.Duration(c.TimeoutMs) * time.Millisecond,
				})
				if err != nil {
					closeAll()
					return nil, nil, fmt.Errorf("channel %d: %w", c.ID, err)
				}
				endpoints[c.Endpoint] = ep
			}
			outputs[c.ID] = ep.Coil(c.UnitID, c.Coil)
		case cfg.DriverSim:
			outputs[c.ID] = &SimOutput{ID: c.ID, Log: log}
		default:
			closeAll()
			return nil, nil, fmt.Errorf("channel %d: unknown driver %q", c.ID, c.Driver)
		}
	}

	m, err := channelmap.New(outputs)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return m, closeAll, nil
}

// BuildFusion constructs both sensors and the engine with their mount matrices applied.
func BuildFusion(sc cfg.SensorsConfig) (*fusion.Engine, error) {
	upper, err := buildSensor("upper", sc.Driver, sc.Upper)
	if err != nil {
		return nil, err
	}
	lower, err := buildSensor("lower", sc.Driver, sc.Lower)
	if err != nil {
		return nil, err
	}
	e, err := fusion.NewEngine(upper, lower)
	if err != nil {
		return nil, err
	}
	return e.WithMount(sc.Upper.MountMatrix(), sc.Lower.MountMatrix()), nil
}

func buildSensor(name, driver string, s cfg.SensorConfig) (fusion.Sensor, error) {
	switch driver {
	case cfg.DriverMPU9250:
		return NewIMU(IMUConfig{Name: name, SPI: s.SPI, CS: s.CS, Calibrate: s.Calib})
	case cfg.DriverSim:
		// both segments along +X by default: a straight joint
		v := boardlink.Vec3{X: 1}
		if len(s.Sim) == 3 {
			v = boardlink.Vec3{X: s.Sim[0], Y: s.Sim[1], Z: s.Sim[2]}
		}
		return NewSimSensor(v), nil
	default:
		return nil, fmt.Errorf("%s sensor: unknown driver %q", name, driver)
	}
}

// BuildPolicy constructs the haptic actuator and the threshold policy around it.
func BuildPolicy(c *cfg.Config, log boardlink.Logger) (*actuation.Policy, func() error, error) {
	var (
		act    actuation.Actuator
		closer = func() error { return nil }
	)
	switch c.Actuator.Driver {
	case cfg.DriverDRV2605:
		h, err := NewHaptic(c.Actuator.Bus, c.Actuator.Addr)
		if err != nil {
			return nil, nil, err
		}
		act, closer = h, h.Close
	case cfg.DriverSim:
		act = &SimActuator{Log: log}
	default:
		return nil, nil, fmt.Errorf("actuator: unknown driver %q", c.Actuator.Driver)
	}
	p, err := actuation.NewPolicy(act, c.Thresholds(), c.Effects())
	if err != nil {
		closer()
		return nil, nil, err
	}
	return p, closer, nil
}
