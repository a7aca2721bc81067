package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// BasemapBuilder produces the ground image for a route.
type BasemapBuilder interface {
	BuildBasemap(ctx context.Context, route *Route) (*Basemap, error)
}

// Session ties one loaded route to its projection, basemap, correlator and
// player. Every method must be called from the goroutine the scheduler runs
// callbacks on.
type Session struct {
	cfg     AppConfig
	builder BasemapBuilder
	sched   Scheduler
	metrics *Metrics

	route     *Route
	token     uuid.UUID
	projector *Projector
	points    []ProjectedPoint
	basemap   *Basemap
	corr      *Correlator
	player    *Player
	dirty     bool
	cancel    context.CancelFunc

	// OnChange mirrors the player's state changes.
	OnChange func(PlaybackState)
	// OnBasemap runs when the composite for the current route settles, with
	// the error if it failed. Composites for replaced routes never reach it.
	OnBasemap func(*Basemap, error)
}

// NewSession validates cfg and starts with the empty route. builder may be
// nil, in which case the ground stays the placeholder color.
func NewSession(cfg AppConfig, builder BasemapBuilder, sched Scheduler, metrics *Metrics) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	projector, err := NewProjector(cfg.Projection)
	if err != nil {
		return nil, err
	}
	s := &Session{
		cfg:       cfg,
		builder:   builder,
		sched:     sched,
		metrics:   metrics,
		projector: projector,
	}
	if err := s.LoadRoute(context.Background(), &Route{}); err != nil {
		return nil, err
	}
	return s, nil
}

// --- Route Lifecycle ---

// LoadRoute swaps in a new route. The previous player is stopped and any
// composite still running for the previous route is cancelled; if it lands
// anyway it is discarded.
func (s *Session) LoadRoute(ctx context.Context, route *Route) error {
	if route == nil {
		route = &Route{}
	}
	corr, err := NewCorrelator(route, s.cfg.Correlation)
	if err != nil {
		return err
	}
	s.stop()

	s.route = route
	s.token = uuid.New()
	s.corr = corr
	s.points = s.projector.Project(route)
	s.basemap = PlaceholderBasemap()
	s.player = NewPlayer(route, corr, s.sched, s.cfg.Playback.BaseInterval, s.metrics)
	s.player.OnChange = s.playerChanged
	s.dirty = true

	if s.builder == nil || route.Len() == 0 {
		return nil
	}
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	token := s.token
	go func() {
		bm, err := s.builder.BuildBasemap(cctx, route)
		s.sched.Post(func() { s.applyBasemap(token, bm, err) })
	}()
	return nil
}

// applyBasemap installs a finished composite if it still belongs to the
// current route.
func (s *Session) applyBasemap(token uuid.UUID, bm *Basemap, err error) bool {
	if token != s.token {
		log.Printf("Discarding basemap for stale route %s", token)
		return false
	}
	ok := err == nil && bm != nil
	if err != nil {
		log.Printf("Basemap for route %s failed, keeping placeholder ground: %v", token, err)
	}
	if ok {
		s.basemap = bm
		s.dirty = true
	}
	if s.OnBasemap != nil {
		s.OnBasemap(bm, err)
	}
	return ok
}

func (s *Session) stop() {
	if s.player != nil {
		s.player.Close()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Close ends the session: playback stops and pending composites are dropped.
func (s *Session) Close() {
	s.stop()
	s.token = uuid.Nil
}

// --- Projection ---

// SetProjection replaces the projection and re-projects the route. A config
// that fails validation is rejected and the current one stays in effect.
func (s *Session) SetProjection(cfg ProjectionConfig) error {
	if err := s.projector.SetConfig(cfg); err != nil {
		return err
	}
	s.reproject()
	return nil
}

func (s *Session) UpdateProjection(edit func(*ProjectionConfig)) error {
	if err := s.projector.Update(edit); err != nil {
		return err
	}
	s.reproject()
	return nil
}

func (s *Session) reproject() {
	s.points = s.projector.Project(s.route)
	s.dirty = true
}

// --- Interaction ---

// Hover moves the cursor to the waypoint nearest q and returns its index.
func (s *Session) Hover(q orb.Point) (int, error) {
	i, err := s.corr.Nearest(q)
	if err != nil {
		return -1, err
	}
	s.player.Seek(i)
	return i, nil
}

func (s *Session) Select(i int) error {
	if s.route.Len() == 0 {
		return ErrNoData
	}
	if i < 0 || i >= s.route.Len() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, s.route.Len())
	}
	s.player.Seek(i)
	return nil
}

func (s *Session) Handle(cmd Command) error {
	return s.player.Handle(cmd)
}

func (s *Session) HandleKey(key string) error {
	cmd, err := ParseKey(key)
	if err != nil {
		return err
	}
	return s.Handle(cmd)
}

func (s *Session) playerChanged(st PlaybackState) {
	s.dirty = true
	if s.OnChange != nil {
		s.OnChange(st)
	}
}

// --- Accessors ---

func (s *Session) Config() AppConfig            { return s.cfg }
func (s *Session) State() PlaybackState         { return s.player.State() }
func (s *Session) Route() *Route                { return s.route }
func (s *Session) Token() uuid.UUID             { return s.token }
func (s *Session) Points() []ProjectedPoint     { return s.points }
func (s *Session) Basemap() *Basemap            { return s.basemap }
func (s *Session) Correlator() *Correlator      { return s.corr }
func (s *Session) Projection() ProjectionConfig { return s.projector.Config() }
func (s *Session) Dirty() bool                  { return s.dirty }

func (s *Session) WaypointPanel() (WaypointPanel, error) {
	return NewWaypointPanel(s.route, s.points, s.State(), s.cfg.Units)
}

func (s *Session) SummaryPanel() SummaryPanel {
	return NewSummaryPanel(s.route, s.cfg.Units)
}

// Render rebuilds the whole scene on r, highlighting the cursor and its
// correlate.
func (s *Session) Render(r Renderer) {
	hl := NoHighlight()
	if s.route.Len() > 0 {
		hl = HighlightFor(s.State().Correlate)
	}
	BuildScene(r, s.points, s.basemap, hl, s.cfg.Camera)
	s.metrics.frame()
	s.dirty = false
}
