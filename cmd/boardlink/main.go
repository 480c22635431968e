package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xmidt-org/talaria/boardlink"
	"github.com/xmidt-org/talaria/boardlink/control"
	"github.com/xmidt-org/talaria/boardlink/internal/config"
	"github.com/xmidt-org/talaria/boardlink/internal/hw"
	"github.com/xmidt-org/talaria/boardlink/internal/server"
	"github.com/xmidt-org/talaria/boardlink/protocol"
	"github.com/xmidt-org/talaria/boardlink/runtime"
)

// channel is what main needs from either transport mode.
type channel interface {
	control.Channel
	Close() error
}

// boardlink: board agent. Loads configuration (first argument or BOARDLINK_CONFIG), builds
// the hardware for its role, keeps the peer channel alive and runs the control loop until
// SIGINT/SIGTERM.
func main() {
	path := os.Getenv("BOARDLINK_CONFIG")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	opts := cfg.Options()

	if cfg.Log.File != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		}))
	}
	logger := boardlink.Logger{L: log.Default(), Debug: opts.Debug}

	var env protocol.Envelope = protocol.Plain{}
	if cfg.Envelope.Type == config.EnvelopeWRP {
		env = protocol.WRP{Source: cfg.Envelope.Source, Destination: cfg.Envelope.Destination}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- channel ----
	var ch channel
	if opts.ListenAddr != "" {
		hosted, err := runtime.NewHosted(runtime.HostedOptions{
			Identity:     opts.Identity,
			WriteTimeout: opts.Timing.WriteTimeout,
			InboundQueue: opts.InboundQueue,
			Logger:       logger,
		})
		if err != nil {
			log.Fatalf("hosted channel: %v", err)
		}
		ch = hosted
	} else {
		client, err := runtime.NewClient(runtime.ClientOptions{
			URL:              opts.PeerURL,
			Identity:         opts.Identity,
			Backoff:          opts.Timing.ReconnectBackoff,
			HandshakeTimeout: opts.Timing.HandshakeTimeout,
			WriteTimeout:     opts.Timing.WriteTimeout,
			InboundQueue:     opts.InboundQueue,
			Logger:           logger,
		})
		if err != nil {
			log.Fatalf("client channel: %v", err)
		}
		ch = client
	}

	// ---- role ----
	closers := []func() error{}
	lc := control.LoopConfig{
		Role:              opts.Role,
		Identity:          opts.Identity,
		Channel:           ch,
		Envelope:          env,
		Interval:          opts.Timing.LoopInterval,
		HeartbeatInterval: opts.Timing.HeartbeatInterval,
		HeartbeatText:     opts.HeartbeatText,
		Logger:            logger,
	}
	switch opts.Role {
	case boardlink.RoleChannelDispatch:
		m, closer, err := hw.BuildChannelMap(cfg.Channels, logger)
		if err != nil {
			log.Fatalf("channel map: %v", err)
		}
		closers = append(closers, closer)
		lc.Outputs = m
		log.Printf("channel map: ids %v", m.IDs())
	case boardlink.RoleSensorFusion:
		engine, err := hw.BuildFusion(cfg.Sensors)
		if err != nil {
			log.Fatalf("sensors: %v", err)
		}
		policy, closer, err := hw.BuildPolicy(cfg, logger)
		if err != nil {
			log.Fatalf("actuator: %v", err)
		}
		closers = append(closers, closer)
		lc.Engine, lc.Policy = engine, policy
	}
	loop, err := control.NewLoop(lc)
	if err != nil {
		log.Fatalf("control loop: %v", err)
	}

	// ---- servers ----
	startServer := func(addr string, h *runtime.Hosted) {
		sc := server.Config{ListenAddr: addr, Source: loop, Logger: log.Default()}
		if h != nil {
			sc.Channel = h
		}
		_, errCh, err := server.Start(ctx, sc)
		if err != nil {
			log.Fatalf("failed to start server on %s: %v", addr, err)
		}
		go func() {
			if err := <-errCh; err != nil {
				log.Printf("server %s error: %v", addr, err)
			}
		}()
	}
	if hosted, ok := ch.(*runtime.Hosted); ok {
		startServer(opts.ListenAddr, hosted)
	} else {
		go ch.(*runtime.Client).Run(ctx)
	}
	if opts.StatusAddr != "" && opts.StatusAddr != opts.ListenAddr {
		startServer(opts.StatusAddr, nil)
	}

	// ---- tasks ----
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	if opts.Role == boardlink.RoleSensorFusion {
		tel, err := control.NewTelemetry(control.TelemetryConfig{
			Channel:  ch,
			State:    loop.State(),
			Envelope: env,
			Interval: opts.Timing.TelemetryInterval,
			Logger:   logger,
		})
		if err != nil {
			log.Fatalf("telemetry: %v", err)
		}
		go tel.Run(ctx)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("boardlink %s running as %s (%s)", opts.Role, opts.Identity, cfg.Peer.Mode)
	<-sigCh
	log.Printf("shutdown signal received; stopping")
	cancel()
	<-done
	ch.Close()
	for _, c := range closers {
		if err := c(); err != nil {
			log.Printf("close: %v", err)
		}
	}
}
