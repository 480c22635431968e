package runtime

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xmidt-org/talaria/boardlink"
)

// link holds what the dialing client and the hosted listener have in common: the state
// machine, the current session, the inbound queue and state subscribers.
//
// mu orders the handshake: a session is published and its identity frame written
// under mu before the state becomes Connected, and Send takes mu too, so no frame can
// precede the identity.
type link struct {
	source       string
	identity     string
	writeTimeout time.Duration
	log          boardlink.Logger

	state atomic.Int32

	mu   sync.Mutex
	sess *session

	inbound chan []byte

	listenersMu sync.RWMutex
	listeners   []*eventSub

	closeOnce sync.Once
	closed    chan struct{}
}

var errLinkClosed = errors.New("runtime: channel closed")

type session struct {
	id        string
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		close(s.done)
	})
}

// local eventSub keeps its channel sendable for broadcast
type eventSub struct {
	owner     *link
	ch        chan boardlink.Event
	closeOnce sync.Once
	mu        sync.RWMutex
	done      bool
}

func (e *eventSub) C() <-chan boardlink.Event { return e.ch }
func (e *eventSub) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.done = true
		close(e.ch)
		e.mu.Unlock()
		if e.owner != nil {
			e.owner.unsubscribe(e)
		}
	})
	return nil
}

func (e *eventSub) send(evt boardlink.Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.done {
		return
	}
	select {
	case e.ch <- evt:
	default: /* drop if slow */
	}
}

func newLink(source, identity string, queue int, writeTimeout time.Duration, log boardlink.Logger) *link {
	if queue <= 0 {
		queue = 32
	}
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &link{
		source:       source,
		identity:     identity,
		writeTimeout: writeTimeout,
		log:          log,
		inbound:      make(chan []byte, queue),
		closed:       make(chan struct{}),
	}
}

// State returns the current channel state.
func (l *link) State() boardlink.ChannelState {
	return boardlink.ChannelState(l.state.Load())
}

// SessionID returns the id of the connected session, or "" when not connected.
func (l *link) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess == nil {
		return ""
	}
	return l.sess.id
}

func (l *link) setState(s boardlink.ChannelState, sessionID string) {
	if boardlink.ChannelState(l.state.Swap(int32(s))) == s {
		return
	}
	l.log.Printf("%s: channel %s (session=%s)", l.source, s, sessionID)
	l.broadcast(boardlink.Event{Kind: boardlink.EventState, State: s, SessionID: sessionID, OccurredAt: time.Now(), Source: l.source})
}

func (l *link) reportError(err error, sessionID string) {
	l.broadcast(boardlink.Event{Kind: boardlink.EventError, State: l.State(), SessionID: sessionID, OccurredAt: time.Now(), Source: l.source, Payload: err.Error()})
}

// attach publishes conn as the current session: identity first, then Connected.
func (l *link) attach(conn *websocket.Conn) (*session, error) {
	s := &session{id: uuid.NewString(), conn: conn, done: make(chan struct{})}

	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.closed:
		s.close()
		l.setState(boardlink.Disconnected, s.id)
		return nil, errLinkClosed
	default:
	}
	if err := l.writeLocked(s, []byte(l.identity)); err != nil {
		s.close()
		l.setState(boardlink.Disconnected, s.id)
		return nil, fmt.Errorf("%w: handshake: %v", boardlink.ErrTransport, err)
	}
	l.sess = s
	l.setState(boardlink.Connected, s.id)
	go l.readLoop(s)
	return s, nil
}

// detach tears s down; a no-op if s is no longer current.
func (l *link) detach(s *session, cause error) {
	l.mu.Lock()
	l.detachLocked(s, cause)
	l.mu.Unlock()
}

// State is published before the session's done channel closes, so anyone woken by done
// already observes Disconnected.
func (l *link) detachLocked(s *session, cause error) {
	if l.sess == s {
		l.sess = nil
		if cause != nil {
			l.reportError(cause, s.id)
		}
		l.setState(boardlink.Disconnected, s.id)
	}
	s.close()
}

func (l *link) writeLocked(s *session, frame []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Send writes one text frame. It never queues: when the channel is not Connected it
// returns ErrNotConnected and the frame is dropped. A write failure tears the session down.
func (l *link) Send(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.sess
	if s == nil || l.State() != boardlink.Connected {
		return boardlink.ErrNotConnected
	}
	if err := l.writeLocked(s, frame); err != nil {
		l.log.Printf("%s: write failed (session=%s): %v", l.source, s.id, err)
		l.detachLocked(s, err)
		return fmt.Errorf("%w: %v", boardlink.ErrTransport, err)
	}
	return nil
}

// Service delivers every queued inbound text frame to handler on the caller's goroutine
// and returns how many were delivered. It never blocks.
func (l *link) Service(handler func([]byte)) int {
	n := 0
	for {
		select {
		case frame := <-l.inbound:
			n++
			if handler != nil {
				handler(frame)
			}
		default:
			return n
		}
	}
}

func (l *link) readLoop(s *session) {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// closed locally
				l.detach(s, nil)
			default:
				l.log.Printf("%s: read failed (session=%s): %v", l.source, s.id, err)
				l.detach(s, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			l.log.Debugf("%s: ignoring non-text frame type %d", l.source, mt)
			continue
		}
		select {
		case l.inbound <- data:
		default:
			l.log.Printf("%s: inbound queue full, dropping frame (session=%s)", l.source, s.id)
		}
	}
}

// Subscribe returns state transitions and transport errors as events.
func (l *link) Subscribe(buffer int) boardlink.EventSubscription {
	es := &eventSub{owner: l, ch: make(chan boardlink.Event, buffer)}
	l.listenersMu.Lock()
	l.listeners = append(l.listeners, es)
	l.listenersMu.Unlock()
	return es
}

func (l *link) unsubscribe(es *eventSub) {
	l.listenersMu.Lock()
	defer l.listenersMu.Unlock()
	for i, x := range l.listeners {
		if x == es {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			return
		}
	}
}

func (l *link) broadcast(evt boardlink.Event) {
	l.listenersMu.RLock()
	listeners := append([]*eventSub(nil), l.listeners...)
	l.listenersMu.RUnlock()
	for _, es := range listeners {
		es.send(evt)
	}
}

// shutdown closes the current session and marks the link closed.
func (l *link) shutdown() {
	l.closeOnce.Do(func() { close(l.closed) })
	l.mu.Lock()
	if s := l.sess; s != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		l.detachLocked(s, nil)
	}
	l.setState(boardlink.Disconnected, "")
	l.mu.Unlock()
}

// beginAttempt moves Disconnected to Connecting; false when another attempt or session owns the link.
func (l *link) beginAttempt() bool {
	if !l.state.CompareAndSwap(int32(boardlink.Disconnected), int32(boardlink.Connecting)) {
		return false
	}
	l.log.Printf("%s: channel %s", l.source, boardlink.Connecting)
	l.broadcast(boardlink.Event{Kind: boardlink.EventState, State: boardlink.Connecting, OccurredAt: time.Now(), Source: l.source})
	return true
}
