package channelmap

import (
	"errors"
	"testing"

	"github.com/xmidt-org/talaria/boardlink"
)

func TestDriveMappedChannel(t *testing.T) {
	led := &MemoryOutput{}
	m, err := New(map[int]Output{2: led})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Drive(2, true); err != nil {
		t.Fatalf("drive on: %v", err)
	}
	if !led.High() {
		t.Fatalf("expected high after turn on")
	}
	if err := m.Drive(2, false); err != nil {
		t.Fatalf("drive off: %v", err)
	}
	if led.High() {
		t.Fatalf("expected low after turn off")
	}
}

func TestDriveUnknownChannel(t *testing.T) {
	led := &MemoryOutput{}
	m, _ := New(map[int]Output{0: led})
	err := m.Drive(7, true)
	if !errors.Is(err, boardlink.ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel got %v", err)
	}
	if led.Writes() != 0 {
		t.Fatalf("unknown channel must not touch other outputs")
	}
}

func TestNewRejectsNilOutput(t *testing.T) {
	if _, err := New(map[int]Output{1: nil}); !errors.Is(err, boardlink.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter got %v", err)
	}
}

func TestNewCopiesEntries(t *testing.T) {
	entries := map[int]Output{3: &MemoryOutput{}, 1: &MemoryOutput{}}
	m, _ := New(entries)
	delete(entries, 3)
	if _, ok := m.Lookup(3); !ok {
		t.Fatalf("map must not alias caller entries")
	}
	ids := m.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected ids %v", ids)
	}
}
