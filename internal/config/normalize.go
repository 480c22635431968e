package config

import "github.com/xmidt-org/talaria/boardlink"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	role := boardlink.Role(cfg.Board.Role)
	if cfg.Board.Identity == "" {
		cfg.Board.Identity = role.DefaultIdentity()
	}
	if cfg.Envelope.Type == "" {
		cfg.Envelope.Type = EnvelopePlain
	}
	if cfg.Peer.Path == "" {
		cfg.Peer.Path = "/"
	}
	if cfg.Actuator.Addr == 0 {
		cfg.Actuator.Addr = 0x5A
	}
	if cfg.Actuation.MediumEffect == 0 {
		cfg.Actuation.MediumEffect = 2
	}
	if cfg.Actuation.StrongEffect == 0 {
		cfg.Actuation.StrongEffect = 1
	}
	for i := range cfg.Channels {
		if cfg.Channels[i].Driver == DriverModbus && cfg.Channels[i].TimeoutMs <= 0 {
			cfg.Channels[i].TimeoutMs = 1000
		}
	}
}
