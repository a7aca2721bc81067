package main

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestManualClockOrder(t *testing.T) {
	c := NewManualClock()
	var got []string
	c.After(30*time.Millisecond, func() { got = append(got, "c") })
	c.After(10*time.Millisecond, func() { got = append(got, "a") })
	c.After(10*time.Millisecond, func() { got = append(got, "b") })
	stopped := c.After(20*time.Millisecond, func() { got = append(got, "stopped") })
	if !stopped.Stop() {
		t.Error("Stop on a pending timer returned false")
	}
	if stopped.Stop() {
		t.Error("second Stop returned true")
	}

	c.Advance(25 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("after 25ms fired %v", got)
	}
	if c.Now() != 25*time.Millisecond || c.Pending() != 1 {
		t.Errorf("now %v, pending %d", c.Now(), c.Pending())
	}
	c.Advance(5 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("after 30ms fired %v", got)
	}
}

func TestManualClockChainedCallbacks(t *testing.T) {
	c := NewManualClock()
	fired := 0
	var again func()
	again = func() {
		fired++
		c.After(10*time.Millisecond, again)
	}
	c.After(10*time.Millisecond, again)
	c.Advance(35 * time.Millisecond)
	if fired != 3 {
		t.Errorf("fired %d times in 35ms, want 3", fired)
	}
	if c.Pending() != 1 {
		t.Errorf("pending = %d", c.Pending())
	}
}

func TestManualClockPost(t *testing.T) {
	c := NewManualClock()
	ran := false
	c.Post(func() { ran = true })
	if ran {
		t.Fatal("Post ran synchronously")
	}
	c.Advance(0)
	if !ran {
		t.Error("posted callback did not run on Advance(0)")
	}
}

func TestEventLoop(t *testing.T) {
	l := NewEventLoop(4)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(stopped)
	}()

	count := 0
	for i := 0; i < 3; i++ {
		if !l.Do(func() { count++ }) {
			t.Fatal("Do on a running loop returned false")
		}
	}
	if count != 3 {
		t.Errorf("count = %d", count)
	}

	fired := make(chan struct{})
	l.After(5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("After callback never ran")
	}

	cancel()
	<-stopped
	if l.Post(func() {}) {
		t.Error("Post on a stopped loop returned true")
	}
	if l.Do(func() {}) {
		t.Error("Do on a stopped loop returned true")
	}
}
