package control

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/xmidt-org/talaria/boardlink"
)

func newTelemetry(t *testing.T, ch *fakeChannel, st *State, interval time.Duration) *Telemetry {
	t.Helper()
	tel, err := NewTelemetry(TelemetryConfig{Channel: ch, State: st, Interval: interval})
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	return tel
}

func runFor(tel *Telemetry, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	tel.Run(ctx)
}

func TestTelemetrySuppressed(t *testing.T) {
	cases := []struct {
		name    string
		state   boardlink.ChannelState
		enabled bool
	}{
		{"disabled and connected", boardlink.Connected, false},
		{"enabled and disconnected", boardlink.Disconnected, true},
		{"enabled and connecting", boardlink.Connecting, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := &fakeChannel{state: tc.state}
			st := &State{}
			st.SetEnabled(tc.enabled)
			st.PublishAngle(42, time.Now())
			runFor(newTelemetry(t, ch, st, 20*time.Millisecond), time.Second)
			if got := ch.frames(); len(got) != 0 {
				t.Fatalf("expected no telemetry, got %v", got)
			}
		})
	}
}

func TestTelemetryEmitsLatestAngle(t *testing.T) {
	ch := &fakeChannel{state: boardlink.Connected}
	st := &State{}
	st.SetEnabled(true)
	st.PublishAngle(12.5, time.Now())
	tel := newTelemetry(t, ch, st, time.Hour)

	sent, err := tel.EmitOnce()
	if err != nil || !sent {
		t.Fatalf("emit: %v %v", sent, err)
	}
	got := ch.frames()
	if len(got) != 1 {
		t.Fatalf("expected one frame got %v", got)
	}
	var frame map[string]interface{}
	if err := json.Unmarshal([]byte(got[0]), &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frame) != 2 || frame["field"] != "angle" || frame["value"] != 12.5 {
		t.Fatalf("unexpected frame %s", got[0])
	}
}

func TestTelemetrySkipsStaleAngle(t *testing.T) {
	ch := &fakeChannel{state: boardlink.Connected}
	st := &State{}
	st.SetEnabled(true)
	st.PublishAngle(90, time.Now())
	st.MarkStale()
	tel := newTelemetry(t, ch, st, time.Hour)

	if sent, err := tel.EmitOnce(); err != nil || sent {
		t.Fatalf("emit on stale angle: sent=%v err=%v", sent, err)
	}
	if got := ch.frames(); len(got) != 0 {
		t.Fatalf("expected no telemetry, got %v", got)
	}

	st.PublishAngle(30, time.Now())
	if sent, err := tel.EmitOnce(); err != nil || !sent {
		t.Fatalf("emit after fresh sample: sent=%v err=%v", sent, err)
	}
}

func TestTelemetryRunsOnItsOwnCadence(t *testing.T) {
	ch := &fakeChannel{state: boardlink.Connected}
	st := &State{}
	st.SetEnabled(true)
	runFor(newTelemetry(t, ch, st, 50*time.Millisecond), 320*time.Millisecond)
	if n := len(ch.frames()); n < 3 || n > 7 {
		t.Fatalf("expected roughly 6 frames, got %d", n)
	}
}

func TestTelemetryReadsWhileLoopWrites(t *testing.T) {
	ch := &fakeChannel{state: boardlink.Connected}
	st := &State{}
	st.SetEnabled(true)
	tel := newTelemetry(t, ch, st, time.Millisecond)

	var wg sync.WaitGroup
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; ctx.Err() == nil; i++ {
			// alternate between two values; a torn read would produce something else
			if i%2 == 0 {
				st.PublishAngle(10, time.Now())
			} else {
				st.PublishAngle(170, time.Now())
			}
		}
	}()
	go func() {
		defer wg.Done()
		tel.Run(ctx)
	}()
	wg.Wait()

	for _, f := range ch.frames() {
		var frame struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal([]byte(f), &frame); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if frame.Value != 0 && frame.Value != 10 && frame.Value != 170 {
			t.Fatalf("torn angle %v", frame.Value)
		}
	}
}

func TestNewTelemetryValidation(t *testing.T) {
	if _, err := NewTelemetry(TelemetryConfig{State: &State{}}); err == nil {
		t.Fatalf("expected channel error")
	}
	if _, err := NewTelemetry(TelemetryConfig{Channel: &fakeChannel{}}); err == nil {
		t.Fatalf("expected state error")
	}
}
