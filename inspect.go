package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

const inspectHelp = `Commands:
  forward | d | ArrowRight     step to the next waypoint
  back | a | ArrowLeft         step to the previous waypoint
  ride | r | ArrowUp           start playback, again to double the speed
  pause | p | Space            pause playback
  reset | 0 | Home             back to the first waypoint
  select N                     jump to waypoint N (1-based)
  hover LAT,LON                jump to the waypoint nearest a point
  project key=value ...        edit the projection, e.g. project rotation=0.3 lat_scale=1
  summary                      print the workout summary
  snapshot FILE                write the current view as PNG
  quit
`

var errQuit = errors.New("quit")

// runInspect reads commands from in, one per line, and applies them to the
// session on its loop. State changes print the waypoint panel to out.
func runInspect(ctx context.Context, loop *EventLoop, s *Session, in io.Reader, out io.Writer, args *Arguments) error {
	loop.Do(func() {
		s.OnChange = func(PlaybackState) { printWaypoint(out, s) }
		fmt.Fprint(out, s.SummaryPanel())
		printWaypoint(out, s)
		fmt.Fprint(out, inspectHelp)
	})

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var err error
		if !loop.Do(func() { err = inspectCommand(s, line, out, args) }) {
			return ctx.Err()
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func inspectCommand(s *Session, line string, out io.Writer, args *Arguments) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprint(out, inspectHelp)
	case "summary":
		fmt.Fprint(out, s.SummaryPanel())
	case "select":
		if len(fields) != 2 {
			return errors.New("usage: select N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		return s.Select(n - 1)
	case "hover":
		if len(fields) != 2 {
			return errors.New("usage: hover LAT,LON")
		}
		var lat, lon float64
		if _, err := fmt.Sscanf(fields[1], "%g,%g", &lat, &lon); err != nil {
			return fmt.Errorf("bad point %q: %w", fields[1], err)
		}
		_, err := s.Hover(orb.Point{lon, lat})
		return err
	case "project":
		cfg, err := editProjection(s.Projection(), fields[1:])
		if err != nil {
			return err
		}
		if err := s.SetProjection(cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "projection updated, %d points re-projected\n", len(s.Points()))
		printWaypoint(out, s)
	case "snapshot":
		if len(fields) != 2 {
			return errors.New("usage: snapshot FILE")
		}
		r := NewCanvasRenderer(args.Width, args.Height)
		r.Background = args.SkyColor
		if err := gg.SavePNG(fields[1], Snapshot(s, r, true)); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", fields[1])
	default:
		return s.HandleKey(line)
	}
	return nil
}

// editProjection applies key=value pairs, named as in the config file, on
// top of cfg.
func editProjection(cfg ProjectionConfig, pairs []string) (ProjectionConfig, error) {
	if len(pairs) == 0 {
		return cfg, errors.New("usage: project key=value ...")
	}
	var doc strings.Builder
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return cfg, fmt.Errorf("bad projection edit %q, want key=value", kv)
		}
		fmt.Fprintf(&doc, "%s: %s\n", k, v)
	}
	dec := yaml.NewDecoder(strings.NewReader(doc.String()))
	dec.KnownFields(true)
	next := cfg
	if err := dec.Decode(&next); err != nil {
		return cfg, fmt.Errorf("bad projection edit: %w", err)
	}
	return next, nil
}

func printWaypoint(out io.Writer, s *Session) {
	wp, err := s.WaypointPanel()
	if err != nil {
		fmt.Fprintf(out, "no waypoint: %v\n", err)
		return
	}
	fmt.Fprint(out, wp)
	if st := s.State(); st.Playing() {
		fmt.Fprintf(out, "  Playback: %.0fx, every %s\n", st.Speed, formatDuration(st.Interval))
	}
}
