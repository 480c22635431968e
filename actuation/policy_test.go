package actuation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
)

type recordingActuator struct {
	calls   []string
	failGo  bool
	failSet bool
}

func (r *recordingActuator) SetWaveform(slot, effect uint8) error {
	if r.failSet {
		return errors.New("bus")
	}
	r.calls = append(r.calls, fmt.Sprintf("slot%d=%d", slot, effect))
	return nil
}

func (r *recordingActuator) Go() error {
	if r.failGo {
		return errors.New("bus")
	}
	r.calls = append(r.calls, "go")
	return nil
}

func newPolicy(t *testing.T, a Actuator) *Policy {
	t.Helper()
	p, err := NewPolicy(a, DefaultThresholds(), DefaultEffects())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}

func TestDecideThresholds(t *testing.T) {
	p := newPolicy(t, &recordingActuator{})
	cases := []struct {
		angle   float64
		enabled bool
		want    Level
	}{
		{0, true, LevelNone},
		{5.0, true, LevelNone},
		{5.01, true, LevelMedium},
		{15.0, true, LevelMedium},
		{15.01, true, LevelStrong},
		{170, true, LevelStrong},
		{-20, true, LevelNone},
		{math.NaN(), true, LevelNone},
		{5.01, false, LevelNone},
		{90, false, LevelNone},
	}
	for _, tc := range cases {
		if got := p.Decide(tc.angle, tc.enabled); got != tc.want {
			t.Errorf("Decide(%v,%v)=%s want %s", tc.angle, tc.enabled, got, tc.want)
		}
	}
}

func TestApplySequence(t *testing.T) {
	a := &recordingActuator{}
	p := newPolicy(t, a)

	if lvl, err := p.Apply(10, true); err != nil || lvl != LevelMedium {
		t.Fatalf("apply medium: %v %v", lvl, err)
	}
	want := []string{"slot0=2", "slot1=0", "go"}
	if !reflect.DeepEqual(a.calls, want) {
		t.Fatalf("expected %v got %v", want, a.calls)
	}

	a.calls = nil
	if lvl, _ := p.Apply(40, true); lvl != LevelStrong {
		t.Fatalf("expected strong got %s", lvl)
	}
	want = []string{"slot0=1", "slot1=0", "go"}
	if !reflect.DeepEqual(a.calls, want) {
		t.Fatalf("expected %v got %v", want, a.calls)
	}
}

func TestApplyDisabledIssuesNothing(t *testing.T) {
	a := &recordingActuator{}
	p := newPolicy(t, a)
	for _, angle := range []float64{0, 5.01, 15.01, 120} {
		if _, err := p.Apply(angle, false); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if len(a.calls) != 0 {
		t.Fatalf("expected no actuator calls got %v", a.calls)
	}
}

func TestApplyPropagatesDriverError(t *testing.T) {
	p := newPolicy(t, &recordingActuator{failGo: true})
	if _, err := p.Apply(30, true); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewPolicyValidation(t *testing.T) {
	if _, err := NewPolicy(nil, DefaultThresholds(), DefaultEffects()); err == nil {
		t.Fatalf("expected nil actuator error")
	}
	if _, err := NewPolicy(&recordingActuator{}, Thresholds{Medium: 20, Strong: 10}, DefaultEffects()); err == nil {
		t.Fatalf("expected threshold order error")
	}
	if _, err := NewPolicy(&recordingActuator{}, DefaultThresholds(), Effects{Medium: 0, Strong: 1}); err == nil {
		t.Fatalf("expected reserved effect error")
	}
}
