package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

const defaultBaseInterval = 200 * time.Millisecond

var ErrUnknownKey = errors.New("unknown key")

// --- Structs ---

type PlayState int

const (
	Stopped PlayState = iota
	Playing
)

func (s PlayState) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// PlaybackState is a snapshot of the player for observers and panels.
type PlaybackState struct {
	Index     int
	State     PlayState
	Interval  time.Duration
	Speed     float64
	Correlate Correlate
}

func (s PlaybackState) Playing() bool { return s.State == Playing }

// Player walks the cursor along a route. It is not safe for concurrent use:
// drive it from the goroutine its Scheduler runs callbacks on.
type Player struct {
	route    *Route
	corr     *Correlator
	sched    Scheduler
	metrics  *Metrics
	base     time.Duration
	state    PlayState
	index    int
	interval time.Duration
	timer    Timer
	gen      uint64
	pair     Correlate

	// OnChange is called after every transition that changes the snapshot.
	OnChange func(PlaybackState)
}

func NewPlayer(route *Route, corr *Correlator, sched Scheduler, base time.Duration, metrics *Metrics) *Player {
	if base <= 0 {
		base = defaultBaseInterval
	}
	p := &Player{
		route:   route,
		corr:    corr,
		sched:   sched,
		metrics: metrics,
		base:    base,
	}
	p.recorrelate()
	return p
}

func (p *Player) State() PlaybackState {
	s := PlaybackState{
		Index:     p.index,
		State:     p.state,
		Interval:  p.interval,
		Correlate: p.pair,
	}
	if p.state == Playing && p.interval > 0 {
		s.Speed = float64(p.base) / float64(p.interval)
	}
	return s
}

// --- Transitions ---

// Start begins playback, or doubles its speed when already playing.
func (p *Player) Start() {
	if p.route.Len() == 0 {
		return
	}
	if p.state == Playing {
		if p.interval > 1 {
			p.interval /= 2
		}
	} else {
		p.state = Playing
		p.interval = p.base
	}
	p.arm()
	p.changed()
}

func (p *Player) tick(gen uint64) {
	if gen != p.gen || p.state != Playing {
		return
	}
	p.timer = nil
	p.metrics.tick()

	if n := p.route.Len(); p.index+1 < n {
		p.index++
	} else if n > 1 {
		// loop the ride instead of stopping at the finish
		p.index = 1
	}
	p.recorrelate()
	p.arm()
	p.changed()
}

// Pause stops playback. Pausing a stopped player does nothing.
func (p *Player) Pause() {
	if p.pause() {
		p.changed()
	}
}

func (p *Player) pause() bool {
	if p.state == Stopped {
		return false
	}
	p.cancel()
	p.state = Stopped
	p.interval = 0
	return true
}

func (p *Player) StepForward() { p.Seek(p.index + 1) }

func (p *Player) StepBack() { p.Seek(p.index - 1) }

func (p *Player) Reset() { p.Seek(0) }

// Seek pauses and moves the cursor to i, clamped into the route.
func (p *Player) Seek(i int) {
	paused := p.pause()
	n := p.route.Len()
	if i > n-1 {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	moved := i != p.index
	p.index = i
	if moved {
		p.recorrelate()
	}
	if moved || paused {
		p.changed()
	}
}

// Close cancels any pending tick. The player stays usable.
func (p *Player) Close() {
	p.cancel()
	p.state = Stopped
	p.interval = 0
}

// arm cancels the pending tick, if any, before scheduling the next one, so at
// most one tick is ever outstanding.
func (p *Player) arm() {
	p.cancel()
	gen := p.gen
	p.timer = p.sched.After(p.interval, func() { p.tick(gen) })
}

// cancel stops the armed timer and bumps the generation, so a tick that was
// already queued before the cancel is ignored when it runs.
func (p *Player) cancel() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
}

func (p *Player) recorrelate() {
	p.pair = Correlate{Primary: p.index, Opposite: -1}
	if p.corr == nil || p.route.Len() == 0 {
		return
	}
	pair, err := p.corr.Pair(p.index)
	if err != nil {
		log.Printf("Correlating waypoint %d: %v", p.index, err)
		return
	}
	p.pair = pair
}

func (p *Player) changed() {
	if p.OnChange != nil {
		p.OnChange(p.State())
	}
}

// --- Commands ---

type Command int

const (
	CmdForward Command = iota + 1
	CmdBack
	CmdRide
	CmdPause
	CmdReset
)

var commandNames = map[Command]string{
	CmdForward: "forward",
	CmdBack:    "back",
	CmdRide:    "ride",
	CmdPause:   "pause",
	CmdReset:   "reset",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

var keyBindings = map[string]Command{
	"ArrowRight": CmdForward,
	"d":          CmdForward,
	"forward":    CmdForward,
	"ArrowLeft":  CmdBack,
	"a":          CmdBack,
	"back":       CmdBack,
	"ArrowUp":    CmdRide,
	"r":          CmdRide,
	"ride":       CmdRide,
	"Space":      CmdPause,
	" ":          CmdPause,
	"p":          CmdPause,
	"pause":      CmdPause,
	"Home":       CmdReset,
	"0":          CmdReset,
	"reset":      CmdReset,
}

// ParseKey maps a key identifier or command word to its playback command.
func ParseKey(key string) (Command, error) {
	if cmd, ok := keyBindings[key]; ok {
		return cmd, nil
	}
	if cmd, ok := keyBindings[strings.ToLower(strings.TrimSpace(key))]; ok {
		return cmd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Handle is the single entry point for keyboard and control activations.
func (p *Player) Handle(cmd Command) error {
	switch cmd {
	case CmdForward:
		p.StepForward()
	case CmdBack:
		p.StepBack()
	case CmdRide:
		p.Start()
	case CmdPause:
		p.Pause()
	case CmdReset:
		p.Reset()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, cmd)
	}
	return nil
}
