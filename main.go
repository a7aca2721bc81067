package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/fogleman/gg"
)

// --- Main Logic ---

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.Usage = func() { printUsage(os.Stderr, fs) }
	args, err := parseArguments(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Error parsing arguments: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, args, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, args *Arguments, in io.Reader, out io.Writer) error {
	cfg, err := LoadConfig(args.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	args.applyTo(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	route, err := loadRoute(args.inputPath())
	if err != nil {
		return fmt.Errorf("loading route: %w", err)
	}
	if args.Anonymize != "" {
		target, err := parseAnonymizeTarget(args.Anonymize)
		if err != nil {
			return err
		}
		if route, err = route.Anonymize(target); err != nil {
			return err
		}
	}
	if !args.Quiet {
		log.Printf("Loaded %d waypoints from %s", route.Len(), args.inputPath())
	}

	metrics := NewMetrics()
	defer func() {
		if err := metrics.WriteTextfile(args.MetricsFile); err != nil {
			log.Printf("Failed to write metrics: %v", err)
		}
	}()

	switch args.Mode {
	case modeStats:
		fmt.Fprint(out, NewSummaryPanel(route, cfg.Units))
		return nil
	case modeGeoJSON:
		return writeGeoJSONFile(args.OutputFile, out, route, cfg.Correlation)
	}

	// --- Session ---
	builder, err := newBasemapBuilder(cfg, args.Quiet, metrics)
	if err != nil {
		return err
	}
	loop := NewEventLoop(64)
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go loop.Run(loopCtx)

	var s *Session
	settled := make(chan struct{})
	loop.Do(func() {
		if s, err = NewSession(cfg, builder, loop, metrics); err != nil {
			return
		}
		s.OnBasemap = func(bm *Basemap, err error) {
			if err == nil && !args.Quiet {
				log.Printf("Basemap ready: %d tiles loaded, %d failed", bm.Loaded, bm.Failed)
			}
			close(settled)
		}
		err = s.LoadRoute(loopCtx, route)
	})
	if err != nil {
		return err
	}
	defer loop.Do(s.Close)

	if args.Mode == modeInspect {
		return runInspect(ctx, loop, s, in, out, args)
	}

	// render and ride want the finished basemap
	if builder != nil && route.Len() > 0 {
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	switch args.Mode {
	case modeRide:
		var rs *rideScene
		var corr *Correlator
		loop.Do(func() {
			rs = newRideScene(s, args)
			corr = s.Correlator()
		})
		states := RecordRide(route, corr, cfg.Playback.BaseInterval, cfg.Playback.RideTicks, cfg.Playback.RideSpeedups, metrics)
		if err := runRidePipeline(ctx, rs, states, args, metrics); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nVideo saved to %s\n", args.OutputFile)

	default:
		if args.Select >= 0 {
			loop.Do(func() { err = s.Select(args.Select) })
			if err != nil {
				return err
			}
		}
		r := NewCanvasRenderer(args.Width, args.Height)
		r.Background = args.SkyColor
		loop.Do(func() { err = gg.SavePNG(args.OutputFile, Snapshot(s, r, args.Select >= 0)) })
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %s\n", args.OutputFile)
	}
	return nil
}

// newBasemapBuilder returns nil when tiles are switched off.
func newBasemapBuilder(cfg AppConfig, quiet bool, metrics *Metrics) (BasemapBuilder, error) {
	if cfg.Tiles.Offline {
		return nil, nil
	}
	src, err := NewHTTPTileSource(cfg.Tiles.Style, cfg.Tiles.Is2x, cfg.Tiles.CacheDir, cfg.Tiles.Timeout)
	if err != nil {
		return nil, err
	}
	return &Compositor{
		Source:      src,
		TileSize:    src.TileSize(),
		Concurrency: cfg.Tiles.Concurrency,
		Quiet:       quiet,
		Metrics:     metrics,
		Brightness:  cfg.Tiles.Brightness,
		Contrast:    cfg.Tiles.Contrast,
	}, nil
}

func writeGeoJSONFile(path string, stdout io.Writer, route *Route, cc CorrelationConfig) error {
	corr, err := NewCorrelator(route, cc)
	if err != nil {
		return err
	}
	if path == "-" {
		return WriteGeoJSON(stdout, route, corr)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteGeoJSON(f, route, corr); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
