package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"runtime"
	"strings"
	"time"
)

const (
	modeRender  = "render"
	modeInspect = "inspect"
	modeRide    = "ride"
	modeGeoJSON = "geojson"
	modeStats   = "stats"
)

var modes = []string{modeRender, modeInspect, modeRide, modeGeoJSON, modeStats}

// --- Structs ---

type Arguments struct {
	Mode         string
	WorkoutFile  string
	GpxFile      string
	ConfigFile   string
	OutputFile   string
	Width        int
	Height       int
	Bitrate      string
	Workers      int
	Framerate    float64
	MapStyle     string
	Is2x         bool
	Offline      bool
	Brightness   float64
	Contrast     float64
	Units        string
	Anonymize    string
	MetricsFile  string
	Quiet        bool
	Select       int
	RideTicks    int
	RideSpeedups int
	SkyColor     color.RGBA

	// set records which flags were given explicitly.
	set map[string]bool
}

// --- Argument Parsing ---

func parseArguments(fs *flag.FlagSet, argv []string) (*Arguments, error) {
	args := &Arguments{}
	var skyColorStr string

	fs.StringVar(&args.Mode, "mode", modeRender, "One of "+strings.Join(modes, ", ")+".")
	fs.StringVar(&args.WorkoutFile, "workout", "", "Path to a workout JSON export.")
	fs.StringVar(&args.GpxFile, "gpx", "", "Path to a GPX file.")
	fs.StringVar(&args.ConfigFile, "config", "", "Path to a YAML config file.")
	fs.StringVar(&args.OutputFile, "o", "", "Output file (default depends on mode, - for stdout in geojson mode).")
	fs.IntVar(&args.Width, "width", defaultCanvasW, "Frame width in pixels.")
	fs.IntVar(&args.Height, "height", defaultCanvasH, "Frame height in pixels.")
	fs.StringVar(&args.Bitrate, "bitrate", "5M", "Video bitrate (e.g., 5M).")
	fs.IntVar(&args.Workers, "workers", runtime.NumCPU(), "Number of parallel workers for frame generation.")
	fs.Float64Var(&args.Framerate, "framerate", 30, "Video framerate.")
	fs.StringVar(&args.MapStyle, "style", "default", "Map style (default, cyclosm, positron, voyager, topo) or a {z}/{x}/{y} URL template.")
	fs.BoolVar(&args.Is2x, "2x", false, "Use 2x tiles.")
	fs.BoolVar(&args.Offline, "offline", false, "Skip tile downloads and use the flat ground.")
	fs.Float64Var(&args.Brightness, "map-brightness", 0, "Map brightness shift (-1 to 1).")
	fs.Float64Var(&args.Contrast, "map-contrast", 1, "Map contrast factor (1 leaves it unchanged).")
	fs.StringVar(&args.Units, "units", "imperial", "Display units: imperial or metric.")
	fs.StringVar(&args.Anonymize, "anonymize", "", "Move the route to outback, everest or lat,lon.")
	fs.StringVar(&args.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit.")
	fs.BoolVar(&args.Quiet, "quiet", false, "Hide progress bars.")
	fs.IntVar(&args.Select, "select", -1, "Waypoint to highlight in render mode.")
	fs.IntVar(&args.RideTicks, "ride-ticks", defaultRideTicks, "Number of playback ticks to record in ride mode.")
	fs.IntVar(&args.RideSpeedups, "ride-speedups", 0, "Extra ride presses before recording; each doubles the speed.")
	fs.StringVar(&skyColorStr, "sky-color", "#87CEEB", "Background color (hex).")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}

	args.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { args.set[f.Name] = true })

	if !validMode(args.Mode) {
		return nil, fmt.Errorf("unknown mode %q, want one of %s", args.Mode, strings.Join(modes, ", "))
	}
	if args.inputPath() == "" {
		return nil, errors.New("one of -workout or -gpx is required")
	}
	if args.Units != "imperial" && args.Units != "metric" {
		return nil, fmt.Errorf("unknown units %q, want imperial or metric", args.Units)
	}
	if args.Width <= 0 || args.Height <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %dx%d", args.Width, args.Height)
	}

	var err error
	if args.SkyColor, err = parseHexColor(skyColorStr); err != nil {
		return nil, fmt.Errorf("invalid -sky-color: %w", err)
	}

	if args.OutputFile == "" {
		switch args.Mode {
		case modeRide:
			args.OutputFile = "ride.mp4"
		case modeGeoJSON:
			args.OutputFile = "-"
		default:
			args.OutputFile = "route.png"
		}
	}
	return args, nil
}

func validMode(mode string) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (a *Arguments) inputPath() string {
	if a.GpxFile != "" {
		return a.GpxFile
	}
	return a.WorkoutFile
}

// applyTo lets explicitly given flags win over the config file.
func (a *Arguments) applyTo(cfg *AppConfig) {
	if a.set["style"] {
		cfg.Tiles.Style = a.MapStyle
	}
	if a.set["2x"] {
		cfg.Tiles.Is2x = a.Is2x
	}
	if a.set["offline"] {
		cfg.Tiles.Offline = a.Offline
	}
	if a.set["map-brightness"] {
		cfg.Tiles.Brightness = a.Brightness
	}
	if a.set["map-contrast"] {
		cfg.Tiles.Contrast = a.Contrast
	}
	if a.set["units"] {
		if a.Units == "metric" {
			cfg.Units = MetricUnits()
		} else {
			cfg.Units = ImperialUnits()
		}
	}
	if a.set["ride-ticks"] {
		cfg.Playback.RideTicks = a.RideTicks
	}
	if a.set["ride-speedups"] {
		cfg.Playback.RideSpeedups = a.RideSpeedups
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: workout_viewer -workout export.json [-mode %s] [flags]\n", strings.Join(modes, "|"))
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func parseHexColor(s string) (color.RGBA, error) {
	var r, g, b uint8
	_, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)
	if err != nil {
		return color.RGBA{A: 255}, err
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
