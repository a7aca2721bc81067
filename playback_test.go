package main

import (
	"errors"
	"testing"
	"time"
)

func newTestPlayer(t *testing.T, r *Route) (*Player, *ManualClock) {
	t.Helper()
	clock := NewManualClock()
	c, err := NewCorrelator(r, DefaultCorrelation())
	if err != nil {
		t.Fatal(err)
	}
	return NewPlayer(r, c, clock, 100*time.Millisecond, nil), clock
}

func TestPlayerStartTicks(t *testing.T) {
	p, clock := newTestPlayer(t, straightRoute(t, 5))
	var states []PlaybackState
	p.OnChange = func(s PlaybackState) { states = append(states, s) }

	p.Start()
	if st := p.State(); !st.Playing() || st.Interval != 100*time.Millisecond || st.Speed != 1 {
		t.Fatalf("after Start: %+v", st)
	}
	clock.Advance(99 * time.Millisecond)
	if p.State().Index != 0 {
		t.Fatalf("ticked early")
	}
	clock.Advance(time.Millisecond)
	if p.State().Index != 1 {
		t.Errorf("index = %d after one interval", p.State().Index)
	}
	clock.Advance(200 * time.Millisecond)
	if p.State().Index != 3 {
		t.Errorf("index = %d after three intervals", p.State().Index)
	}
	if len(states) != 4 {
		t.Errorf("OnChange ran %d times, want 4", len(states))
	}
}

func TestPlayerSpeedDoubles(t *testing.T) {
	p, clock := newTestPlayer(t, straightRoute(t, 20))
	p.Start()
	p.Start()
	p.Start()
	st := p.State()
	if st.Interval != 25*time.Millisecond || st.Speed != 4 {
		t.Errorf("after three starts: interval %v speed %v", st.Interval, st.Speed)
	}
	if clock.Pending() != 1 {
		t.Errorf("pending ticks = %d, want 1", clock.Pending())
	}
	clock.Advance(100 * time.Millisecond)
	if p.State().Index != 4 {
		t.Errorf("index = %d after 100ms at 4x", p.State().Index)
	}
}

func TestPlayerIntervalFloor(t *testing.T) {
	p, _ := newTestPlayer(t, straightRoute(t, 3))
	for i := 0; i < 40; i++ {
		p.Start()
	}
	if got := p.State().Interval; got != 1 {
		t.Errorf("interval = %v, want the 1ns floor", got)
	}
	p.Close()
}

func TestPlayerWrapsToSecondWaypoint(t *testing.T) {
	p, clock := newTestPlayer(t, straightRoute(t, 3))
	p.Start()
	var seen []int
	p.OnChange = func(s PlaybackState) { seen = append(seen, s.Index) }
	clock.Advance(400 * time.Millisecond)
	want := []int{1, 2, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("indices = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("indices = %v, want %v", seen, want)
		}
	}
}

func TestPlayerSingleWaypointStays(t *testing.T) {
	p, clock := newTestPlayer(t, straightRoute(t, 1))
	p.Start()
	clock.Advance(time.Second)
	if st := p.State(); st.Index != 0 || !st.Playing() {
		t.Errorf("state = %+v", st)
	}
}

func TestPlayerResetCancelsPlayback(t *testing.T) {
	p, clock := newTestPlayer(t, straightRoute(t, 10))
	p.Start()
	clock.Advance(300 * time.Millisecond)
	p.Reset()
	if st := p.State(); st.Playing() || st.Index != 0 || st.Interval != 0 || st.Speed != 0 {
		t.Errorf("after Reset: %+v", st)
	}
	if clock.Pending() != 0 {
		t.Errorf("pending ticks = %d", clock.Pending())
	}
	clock.Advance(time.Second)
	if p.State().Index != 0 {
		t.Errorf("ticked after Reset to %d", p.State().Index)
	}
}

func TestPlayerPauseIdempotent(t *testing.T) {
	p, clock := newTestPlayer(t, straightRoute(t, 10))
	changes := 0
	p.OnChange = func(PlaybackState) { changes++ }
	p.Pause()
	if changes != 0 {
		t.Errorf("pausing a stopped player notified %d times", changes)
	}
	p.Start()
	clock.Advance(100 * time.Millisecond)
	p.Pause()
	p.Pause()
	if changes != 3 {
		t.Errorf("changes = %d, want start, tick and one pause", changes)
	}
	clock.Advance(time.Second)
	if p.State().Index != 1 {
		t.Errorf("index = %d after pause", p.State().Index)
	}
}

func TestPlayerStepClamps(t *testing.T) {
	p, _ := newTestPlayer(t, straightRoute(t, 3))
	p.StepBack()
	if p.State().Index != 0 {
		t.Errorf("StepBack from 0 = %d", p.State().Index)
	}
	for i := 0; i < 5; i++ {
		p.StepForward()
	}
	if p.State().Index != 2 {
		t.Errorf("StepForward past the end = %d", p.State().Index)
	}
	p.Seek(-10)
	if p.State().Index != 0 {
		t.Errorf("Seek(-10) = %d", p.State().Index)
	}
}

func TestPlayerStepPauses(t *testing.T) {
	p, clock := newTestPlayer(t, straightRoute(t, 10))
	p.Start()
	p.StepForward()
	if st := p.State(); st.Playing() || st.Index != 1 {
		t.Errorf("after StepForward while playing: %+v", st)
	}
	clock.Advance(time.Second)
	if p.State().Index != 1 {
		t.Errorf("kept ticking after a step")
	}
}

func TestPlayerEmptyRoute(t *testing.T) {
	p, clock := newTestPlayer(t, &Route{})
	p.Start()
	p.StepForward()
	if st := p.State(); st.Playing() || st.Index != 0 || clock.Pending() != 0 {
		t.Errorf("empty route state = %+v", st)
	}
}

// leakyScheduler hands out timers that cannot be stopped, like a timer whose
// callback was already queued when it was cancelled.
type leakyScheduler struct {
	fns []func()
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (s *leakyScheduler) After(d time.Duration, fn func()) Timer {
	s.fns = append(s.fns, fn)
	return leakyTimer{}
}

func (s *leakyScheduler) Post(fn func()) bool {
	fn()
	return true
}

func TestPlayerIgnoresStaleTick(t *testing.T) {
	sched := &leakyScheduler{}
	p := NewPlayer(straightRoute(t, 10), nil, sched, time.Millisecond, nil)
	p.Start()
	p.Start()
	if len(sched.fns) != 2 {
		t.Fatalf("scheduled %d ticks", len(sched.fns))
	}
	sched.fns[0]()
	if p.State().Index != 0 {
		t.Errorf("superseded tick moved the cursor to %d", p.State().Index)
	}
	sched.fns[1]()
	if p.State().Index != 1 {
		t.Errorf("current tick left the cursor at %d", p.State().Index)
	}

	p.Pause()
	sched.fns[2]()
	if p.State().Index != 1 {
		t.Errorf("tick after pause moved the cursor to %d", p.State().Index)
	}
}

func TestPlayerCorrelatesOnMove(t *testing.T) {
	r := outAndBack(t, 0, 180)
	p, _ := newTestPlayer(t, r)
	if c := p.State().Correlate; !c.HasOpposite || c.Opposite != 19 {
		t.Errorf("initial correlate = %+v", c)
	}
	p.Seek(4)
	if c := p.State().Correlate; c.Primary != 4 || c.Opposite != 15 {
		t.Errorf("correlate at 4 = %+v", c)
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key  string
		want Command
	}{
		{"ArrowRight", CmdForward},
		{"d", CmdForward},
		{"D", CmdForward},
		{"ArrowLeft", CmdBack},
		{"a", CmdBack},
		{"ArrowUp", CmdRide},
		{"r", CmdRide},
		{" ", CmdPause},
		{"Space", CmdPause},
		{"p", CmdPause},
		{"Home", CmdReset},
		{"0", CmdReset},
		{" reset ", CmdReset},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.key)
		if err != nil || got != tt.want {
			t.Errorf("ParseKey(%q) = %v, %v; want %v", tt.key, got, err, tt.want)
		}
	}
	if _, err := ParseKey("x"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("ParseKey(x) err = %v", err)
	}
	p, _ := newTestPlayer(t, straightRoute(t, 3))
	if err := p.Handle(Command(99)); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Handle(99) err = %v", err)
	}
}
