package main

import (
	"flag"
	"image/color"
	"io"
	"testing"
	"time"
)

func parseTestArgs(argv ...string) (*Arguments, error) {
	fs := flag.NewFlagSet("workout_viewer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return parseArguments(fs, argv)
}

func TestParseArgumentsDefaults(t *testing.T) {
	args, err := parseTestArgs("-workout", "export.json")
	if err != nil {
		t.Fatal(err)
	}
	if args.Mode != modeRender || args.OutputFile != "route.png" || args.Select != -1 {
		t.Errorf("args = %+v", args)
	}
	if args.SkyColor != skyColor {
		t.Errorf("sky = %v", args.SkyColor)
	}
	if args.inputPath() != "export.json" {
		t.Errorf("inputPath = %q", args.inputPath())
	}

	cfg := DefaultConfig()
	args.applyTo(&cfg)
	if cfg != DefaultConfig() {
		t.Errorf("unset flags changed the config: %+v", cfg)
	}
}

func TestParseArgumentsOverrides(t *testing.T) {
	args, err := parseTestArgs("-mode", "ride", "-gpx", "ride.gpx", "-workout", "export.json",
		"-units", "metric", "-ride-ticks", "10", "-style", "topo", "-offline", "-sky-color", "#ff8000",
		"-map-brightness", "-0.2")
	if err != nil {
		t.Fatal(err)
	}
	if args.OutputFile != "ride.mp4" || args.inputPath() != "ride.gpx" {
		t.Errorf("args = %+v", args)
	}
	if args.SkyColor != (color.RGBA{R: 255, G: 128, A: 255}) {
		t.Errorf("sky = %v", args.SkyColor)
	}

	cfg := DefaultConfig()
	args.applyTo(&cfg)
	if cfg.Units != MetricUnits() || cfg.Playback.RideTicks != 10 || cfg.Tiles.Style != "topo" || !cfg.Tiles.Offline {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Tiles.Brightness != -0.2 || cfg.Tiles.Contrast != 1 {
		t.Errorf("tone = %v/%v", cfg.Tiles.Brightness, cfg.Tiles.Contrast)
	}
	if cfg.Playback.RideSpeedups != 0 || cfg.Tiles.Is2x {
		t.Errorf("unset flags leaked into the config: %+v", cfg)
	}
}

func TestParseArgumentsGeoJSONToStdout(t *testing.T) {
	args, err := parseTestArgs("-mode", "geojson", "-workout", "export.json")
	if err != nil {
		t.Fatal(err)
	}
	if args.OutputFile != "-" {
		t.Errorf("output = %q", args.OutputFile)
	}
}

func TestParseArgumentsErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"-workout", "a.json", "-mode", "edit"},
		{"-workout", "a.json", "-units", "furlongs"},
		{"-workout", "a.json", "-width", "0"},
		{"-workout", "a.json", "-sky-color", "blue"},
		{"-workout", "a.json", "-no-such-flag"},
	}
	for _, argv := range tests {
		if _, err := parseTestArgs(argv...); err == nil {
			t.Errorf("parseArguments(%q) accepted", argv)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(12500 * time.Microsecond); got != "13ms" {
		t.Errorf("formatDuration = %q", got)
	}
}
