package control

import (
	"sync"

	"github.com/xmidt-org/talaria/boardlink"
)

type fakeChannel struct {
	mu      sync.Mutex
	state   boardlink.ChannelState
	inbound [][]byte
	sent    []string
}

func (f *fakeChannel) setState(s boardlink.ChannelState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeChannel) push(frames ...string) {
	f.mu.Lock()
	for _, fr := range frames {
		f.inbound = append(f.inbound, []byte(fr))
	}
	f.mu.Unlock()
}

func (f *fakeChannel) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != boardlink.Connected {
		return boardlink.ErrNotConnected
	}
	f.sent = append(f.sent, string(frame))
	return nil
}

func (f *fakeChannel) Service(handler func([]byte)) int {
	f.mu.Lock()
	frames := f.inbound
	f.inbound = nil
	f.mu.Unlock()
	for _, fr := range frames {
		handler(fr)
	}
	return len(frames)
}

func (f *fakeChannel) State() boardlink.ChannelState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) SessionID() string { return "session-1" }

func (f *fakeChannel) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}
