package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xmidt-org/talaria/boardlink"
)

// Client maintains a websocket channel to a fixed peer. Run dials, announces the device
// identity, and after any failure waits a fixed backoff before dialing again, forever.
// Frames are never queued for a later session.
type Client struct {
	*link

	url     string
	backoff time.Duration
	dialer  *websocket.Dialer
	header  http.Header
}

// ClientOptions configures a Client.
type ClientOptions struct {
	URL              string // ws://host:8765/
	Identity         string
	Backoff          time.Duration // default 5s
	HandshakeTimeout time.Duration // default 10s
	WriteTimeout     time.Duration // default 2s
	InboundQueue     int           // default 32
	Header           http.Header   // optional
	Logger           boardlink.Logger
}

// NewClient validates opts and returns a Client in the Disconnected state.
func NewClient(opts ClientOptions) (*Client, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.New("runtime: peer url must use ws or wss")
	}
	if opts.Identity == "" {
		return nil, errors.New("runtime: identity required")
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Client{
		link:    newLink("ws-client", opts.Identity, opts.InboundQueue, opts.WriteTimeout, opts.Logger),
		url:     u.String(),
		backoff: opts.Backoff,
		dialer:  &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
		header:  opts.Header,
	}, nil
}

// URL returns the peer address.
func (c *Client) URL() string { return c.url }

// Run supervises the connection until ctx is canceled.
func (c *Client) Run(ctx context.Context) {
	defer c.shutdown()
	for {
		if s, err := c.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Printf("ws-client: connect %s failed: %v (retry in %s)", c.url, err, c.backoff)
		} else {
			select {
			case <-s.done:
			case <-ctx.Done():
				return
			}
			c.log.Printf("ws-client: disconnected from %s (retry in %s)", c.url, c.backoff)
		}

		timer := time.NewTimer(c.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect performs one Connecting attempt.
func (c *Client) connect(ctx context.Context) (*session, error) {
	if !c.beginAttempt() {
		return nil, errors.New("runtime: attempt already in progress")
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		c.reportError(err, "")
		c.setState(boardlink.Disconnected, "")
		return nil, err
	}
	return c.attach(conn)
}

// Close ends the current session. Run keeps reconnecting until its context ends.
func (c *Client) Close() error {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s != nil {
		c.detach(s, nil)
	}
	return nil
}
