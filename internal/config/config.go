package config

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/xmidt-org/talaria/boardlink"
	"github.com/xmidt-org/talaria/boardlink/actuation"
	"github.com/xmidt-org/talaria/boardlink/fusion"
)

type Config struct {
	Board     BoardConfig     `yaml:"board"`
	Peer      PeerConfig      `yaml:"peer"`
	Timing    TimingConfig    `yaml:"timing"`
	Envelope  EnvelopeConfig  `yaml:"envelope"`
	Log       LogConfig       `yaml:"log"`
	Status    StatusConfig    `yaml:"status"`
	Channels  []ChannelConfig `yaml:"channels"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Actuator  ActuatorConfig  `yaml:"actuator"`
	Actuation ActuationConfig `yaml:"actuation"`
}

// ---- BOARD ----

type BoardConfig struct {
	Role     string `yaml:"role"`     // channel_dispatch | sensor_fusion
	Identity string `yaml:"identity"` // defaults per role
}

// ---- PEER ----

// PeerConfig selects the transport mode: mode "client" dials URL (or Host:Port/Path),
// mode "hosted" listens on Listen and lets the peer dial in.
type PeerConfig struct {
	Mode   string `yaml:"mode"`
	URL    string `yaml:"url"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Path   string `yaml:"path"`
	Listen string `yaml:"listen"`

	Heartbeat    string `yaml:"heartbeat"`
	InboundQueue int    `yaml:"inbound_queue"`
}

// ---- TIMING ----

type TimingConfig struct {
	ReconnectMs int  `yaml:"reconnect_ms"`
	HandshakeMs int  `yaml:"handshake_ms"`
	WriteMs     int  `yaml:"write_ms"`
	LoopMs      int  `yaml:"loop_ms"`
	TelemetryMs int  `yaml:"telemetry_ms"`
	HeartbeatMs *int `yaml:"heartbeat_ms"` // nil = role default, 0 = off
}

// ---- ENVELOPE ----

type EnvelopeConfig struct {
	Type        string `yaml:"type"` // plain | wrp
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
}

// ---- LOGGING ----

type LogConfig struct {
	Debug      bool   `yaml:"debug"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type StatusConfig struct {
	Addr string `yaml:"addr"`
}

// ---- CHANNEL MAP ----

// ChannelConfig maps one logical led_id to a physical output.
type ChannelConfig struct {
	ID     int    `yaml:"id"`
	Driver string `yaml:"driver"` // gpio | modbus | sim

	// gpio
	Pin string `yaml:"pin"`

	// modbus
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	Coil      uint16 `yaml:"coil"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- SENSORS ----

type SensorsConfig struct {
	Driver string       `yaml:"driver"` // mpu9250 | sim
	Upper  SensorConfig `yaml:"upper"`
	Lower  SensorConfig `yaml:"lower"`
}

type SensorConfig struct {
	SPI   string    `yaml:"spi"`    // /dev/spidev0.0
	CS    string    `yaml:"cs"`     // GPIO name for chip select
	Sim   []float64 `yaml:"sim"`    // fixed x,y,z for the sim driver
	Mount *Mount    `yaml:"mount"`  // optional mount matrix rows
	Calib bool      `yaml:"calibrate"`
}

type Mount struct {
	X []float64 `yaml:"x"`
	Y []float64 `yaml:"y"`
	Z []float64 `yaml:"z"`
}

// ---- ACTUATOR ----

type ActuatorConfig struct {
	Driver string `yaml:"driver"` // drv2605 | sim
	Bus    string `yaml:"bus"`    // I2C bus name, "" = first
	Addr   uint16 `yaml:"addr"`   // default 0x5A
}

type ActuationConfig struct {
	MediumAboveDeg *float64 `yaml:"medium_above_deg"`
	StrongAboveDeg *float64 `yaml:"strong_above_deg"`
	MediumEffect   uint8    `yaml:"medium_effect"`
	StrongEffect   uint8    `yaml:"strong_effect"`
}

const (
	ModeClient = "client"
	ModeHosted = "hosted"

	EnvelopePlain = "plain"
	EnvelopeWRP   = "wrp"

	DriverGPIO    = "gpio"
	DriverModbus  = "modbus"
	DriverSim     = "sim"
	DriverMPU9250 = "mpu9250"
	DriverDRV2605 = "drv2605"
)

// PeerURL returns the websocket URL dialed in client mode.
func (c *Config) PeerURL() string {
	if c.Peer.URL != "" {
		return c.Peer.URL
	}
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(c.Peer.Host, strconv.Itoa(c.Peer.Port)), Path: c.Peer.Path}
	return u.String()
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Options converts a validated, normalized Config to runtime options.
func (c *Config) Options() boardlink.Options {
	role := boardlink.Role(c.Board.Role)
	opts := boardlink.DefaultOptions(role)
	opts.Identity = c.Board.Identity
	opts.Debug = c.Log.Debug
	opts.StatusAddr = c.Status.Addr
	if c.Peer.Mode == ModeHosted {
		opts.ListenAddr = c.Peer.Listen
	} else {
		opts.PeerURL = c.PeerURL()
	}
	if c.Peer.Heartbeat != "" {
		opts.HeartbeatText = c.Peer.Heartbeat
	}
	if c.Peer.InboundQueue > 0 {
		opts.InboundQueue = c.Peer.InboundQueue
	}
	opts.Timing.ReconnectBackoff = ms(c.Timing.ReconnectMs)
	opts.Timing.HandshakeTimeout = ms(c.Timing.HandshakeMs)
	opts.Timing.WriteTimeout = ms(c.Timing.WriteMs)
	opts.Timing.LoopInterval = ms(c.Timing.LoopMs)
	opts.Timing.TelemetryInterval = ms(c.Timing.TelemetryMs)
	if c.Timing.HeartbeatMs != nil {
		opts.Timing.HeartbeatInterval = ms(*c.Timing.HeartbeatMs)
	}
	return opts
}

// Thresholds returns the actuation thresholds with unset bounds taken from the defaults.
func (c *Config) Thresholds() actuation.Thresholds {
	t := actuation.DefaultThresholds()
	if c.Actuation.MediumAboveDeg != nil {
		t.Medium = *c.Actuation.MediumAboveDeg
	}
	if c.Actuation.StrongAboveDeg != nil {
		t.Strong = *c.Actuation.StrongAboveDeg
	}
	return t
}

func (c *Config) Effects() actuation.Effects {
	return actuation.Effects{Medium: c.Actuation.MediumEffect, Strong: c.Actuation.StrongEffect}
}

// MountMatrix returns the configured rotation or the identity when none is set.
func (s SensorConfig) MountMatrix() fusion.MountMatrix {
	if s.Mount == nil {
		return fusion.Identity
	}
	row := func(v []float64) boardlink.Vec3 { return boardlink.Vec3{X: v[0], Y: v[1], Z: v[2]} }
	return fusion.MountMatrix{X: row(s.Mount.X), Y: row(s.Mount.Y), Z: row(s.Mount.Z)}
}
