package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	api "github.com/xmidt-org/talaria/boardlink/internal/http"
)

// Config configures the board HTTP server: the status API and, in hosted mode, the
// websocket endpoint the peer dials.
type Config struct {
	ListenAddr   string             // address to bind (e.g. :81)
	Source       api.SnapshotSource // required
	Channel      http.Handler       // optional; mounted at "/" when set
	Logger       *log.Logger        // optional; defaults to log.Default()
	ReadTimeout  time.Duration      // optional
	WriteTimeout time.Duration      // optional
	IdleTimeout  time.Duration      // optional
}

var ErrNilSource = errors.New("board server: snapshot source is nil")

// Start starts an HTTP server exposing /api/state and, when configured, the channel endpoint.
// It returns the *http.Server, a channel that will receive a terminal error (if any), and an error for immediate startup issues.
// The server stops when the supplied context is canceled.
func Start(ctx context.Context, cfg Config) (*http.Server, <-chan error, error) {
	if cfg.Source == nil {
		return nil, nil, ErrNilSource
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8090"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewMux(cfg.Source, cfg.Channel),
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 10*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}

	errCh := make(chan error, 1)

	go func() {
		if cfg.Channel != nil {
			cfg.Logger.Printf("board server listening on %s (GET /api/state, websocket /)", cfg.ListenAddr)
		} else {
			cfg.Logger.Printf("status API listening on %s (GET /api/state)", cfg.ListenAddr)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Shutdown watcher
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv, errCh, nil
}

// NewMux routes /api/state to the snapshot handler and everything else to channel.
func NewMux(src api.SnapshotSource, channel http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", api.StateHandler(src))
	if channel != nil {
		mux.Handle("/", channel)
	}
	return mux
}

func durationOr(v time.Duration, d time.Duration) time.Duration {
	if v <= 0 {
		return d
	}
	return v
}
