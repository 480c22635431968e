package runtime

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xmidt-org/talaria/boardlink"
)

// Hosted accepts a single peer on the board's own listener. The peer is responsible for
// reconnecting; while one peer is attached further upgrades are refused with 409.
type Hosted struct {
	*link
	upgrader websocket.Upgrader
}

// HostedOptions configures a Hosted channel.
type HostedOptions struct {
	Identity     string
	WriteTimeout time.Duration
	InboundQueue int
	// CheckOrigin defaults to accepting any origin.
	CheckOrigin func(r *http.Request) bool
	Logger      boardlink.Logger
}

func NewHosted(opts HostedOptions) (*Hosted, error) {
	if opts.Identity == "" {
		return nil, errors.New("runtime: identity required")
	}
	check := opts.CheckOrigin
	if check == nil {
		check = func(*http.Request) bool { return true }
	}
	return &Hosted{
		link:     newLink("ws-hosted", opts.Identity, opts.InboundQueue, opts.WriteTimeout, opts.Logger),
		upgrader: websocket.Upgrader{CheckOrigin: check},
	}, nil
}

// ServeHTTP upgrades the request and blocks until the peer leaves.
func (h *Hosted) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.closed:
		http.Error(w, "channel closed", http.StatusServiceUnavailable)
		return
	default:
	}
	if !h.beginAttempt() {
		http.Error(w, boardlink.ErrPeerBusy.Error(), http.StatusConflict)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		h.reportError(err, "")
		h.setState(boardlink.Disconnected, "")
		return
	}
	s, err := h.attach(conn)
	if err != nil {
		h.log.Printf("ws-hosted: %v", err)
		return
	}
	h.log.Printf("ws-hosted: peer %s attached (session=%s)", r.RemoteAddr, s.id)
	<-s.done
}

// Close disconnects the peer and refuses new ones.
func (h *Hosted) Close() error {
	h.shutdown()
	return nil
}
