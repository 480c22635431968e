// Package channelmap translates logical channel ids used on the wire into physical outputs.
package channelmap

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xmidt-org/talaria/boardlink"
)

// Output is a single digital output.
type Output interface {
	Set(high bool) error
}

// Map is immutable after New.
type Map struct {
	outputs map[int]Output
}

// New copies entries into a new Map. Nil outputs are rejected.
func New(entries map[int]Output) (*Map, error) {
	m := &Map{outputs: make(map[int]Output, len(entries))}
	for id, out := range entries {
		if out == nil {
			return nil, fmt.Errorf("%w: channel %d has no output", boardlink.ErrInvalidParameter, id)
		}
		m.outputs[id] = out
	}
	return m, nil
}

// Lookup returns the output mapped to id.
func (m *Map) Lookup(id int) (Output, bool) {
	if m == nil {
		return nil, false
	}
	out, ok := m.outputs[id]
	return out, ok
}

// Drive sets the output mapped to id. Unknown ids touch nothing and return ErrUnknownChannel.
func (m *Map) Drive(id int, high bool) error {
	out, ok := m.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", boardlink.ErrUnknownChannel, id)
	}
	return out.Set(high)
}

// IDs returns the mapped channel ids in ascending order.
func (m *Map) IDs() []int {
	if m == nil {
		return nil
	}
	ids := make([]int, 0, len(m.outputs))
	for id := range m.outputs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MemoryOutput keeps its level in memory.
type MemoryOutput struct {
	mu     sync.Mutex
	high   bool
	writes int
}

func (o *MemoryOutput) Set(high bool) error {
	o.mu.Lock()
	o.high = high
	o.writes++
	o.mu.Unlock()
	return nil
}

// High reports the last level written.
func (o *MemoryOutput) High() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.high
}

// Writes counts Set calls.
func (o *MemoryOutput) Writes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writes
}
