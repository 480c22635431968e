package hw

import (
	"fmt"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"

	"github.com/xmidt-org/talaria/boardlink"
)

// IMU reads the accelerometer of an MPU9250 on SPI with a GPIO chip select.
type IMU struct {
	name string
	dev  *mpu9250.MPU9250
}

type IMUConfig struct {
	Name      string // upper | lower, used in errors
	SPI       string // e.g. /dev/spidev0.0
	CS        string // GPIO name
	Calibrate bool
}

func NewIMU(cfg IMUConfig) (*IMU, error) {
	if err := initHost(); err != nil {
		return nil, err
	}

	cs := gpioreg.ByName(cfg.CS)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU CS pin %q not found", cfg.Name, cfg.CS)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.SPI, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU SPI transport: %w", cfg.Name, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU new device: %w", cfg.Name, err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU init: %w", cfg.Name, err)
	}
	if cfg.Calibrate {
		if err := dev.Calibrate(); err != nil {
			return nil, fmt.Errorf("%s IMU calibrate: %w", cfg.Name, err)
		}
	}
	return &IMU{name: cfg.Name, dev: dev}, nil
}

// ReadAcceleration returns raw counts; only the direction matters to fusion.
func (m *IMU) ReadAcceleration() (boardlink.Vec3, error) {
	ax, err := m.dev.GetAccelerationX()
	if err != nil {
		return boardlink.Vec3{}, fmt.Errorf("%s IMU acc X: %w", m.name, err)
	}
	ay, err := m.dev.GetAccelerationY()
	if err != nil {
		return boardlink.Vec3{}, fmt.Errorf("%s IMU acc Y: %w", m.name, err)
	}
	az, err := m.dev.GetAccelerationZ()
	if err != nil {
		return boardlink.Vec3{}, fmt.Errorf("%s IMU acc Z: %w", m.name, err)
	}
	return boardlink.Vec3{X: float64(ax), Y: float64(ay), Z: float64(az)}, nil
}
