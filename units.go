package main

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	mphPerMps      = 2.23694
	feetPerMeter   = 3.28084
	metersPerMile  = 1609.344
	secondsPerMin  = 60.0
	unknownCourse  = "—"
	altitudeFeet   = "feet"
	altitudeMeters = "meters"
	speedMph       = "mph"
	speedMps       = "mps"
)

// --- Conversions ---

func MPH(mps float64) float64           { return mps * mphPerMps }
func Feet(meters float64) float64       { return meters * feetPerMeter }
func Minutes(seconds float64) float64   { return seconds / secondsPerMin }
func Miles(meters float64) float64      { return meters / metersPerMile }
func Kilometers(meters float64) float64 { return meters / 1000 }

// --- Compass ---

var (
	compassBuckets = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	compassArrows  = [8]string{"⬆️", "↗️", "➡️", "↘️", "⬇️", "↙️", "⬅️", "↖️"}
	compassLabels  = [8]string{"north", "north-east", "east", "south-east", "south", "south-west", "west", "north-west"}
)

// compassIndex returns the 45° bucket centred on each cardinal and
// intercardinal direction, or -1 for an unknown (negative or non-finite) course.
func compassIndex(bearing float64) int {
	if bearing < 0 || math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return -1
	}
	b := math.Mod(bearing, 360)
	return int(math.Floor((b+22.5)/45)) % 8
}

func CompassBucket(bearing float64) string {
	i := compassIndex(bearing)
	if i < 0 {
		return unknownCourse
	}
	return compassBuckets[i]
}

func CourseArrow(bearing float64) string {
	i := compassIndex(bearing)
	if i < 0 {
		return unknownCourse
	}
	return compassArrows[i]
}

func CourseLabel(bearing float64) string {
	i := compassIndex(bearing)
	if i < 0 {
		return unknownCourse
	}
	return compassLabels[i]
}

// --- Display units ---

type Units struct {
	Altitude string `yaml:"altitude" validate:"omitempty,oneof=feet meters"`
	Speed    string `yaml:"speed" validate:"omitempty,oneof=mph mps"`
}

func ImperialUnits() Units { return Units{Altitude: altitudeFeet, Speed: speedMph} }
func MetricUnits() Units   { return Units{Altitude: altitudeMeters, Speed: speedMps} }

func (u Units) ConvertSpeed(mps float64) float64 {
	if u.Speed == speedMps {
		return mps
	}
	return MPH(mps)
}

func (u Units) SpeedUnit() string {
	if u.Speed == speedMps {
		return "m/s"
	}
	return "mph"
}

func (u Units) ConvertAltitude(meters float64) float64 {
	if u.Altitude == altitudeMeters {
		return meters
	}
	return Feet(meters)
}

func (u Units) AltitudeUnit() string {
	if u.Altitude == altitudeMeters {
		return "m"
	}
	return "ft"
}

func (u Units) FormatSpeed(mps float64) string {
	return fmt.Sprintf("%.1f %s", u.ConvertSpeed(mps), u.SpeedUnit())
}

func (u Units) FormatAltitude(meters float64) string {
	return fmt.Sprintf("%.0f %s", u.ConvertAltitude(meters), u.AltitudeUnit())
}

func (u Units) FormatDistance(meters float64) string {
	if u.Speed == speedMps {
		return fmt.Sprintf("%.2f km", Kilometers(meters))
	}
	return fmt.Sprintf("%.2f mi", Miles(meters))
}

// --- Geodesy ---

func distanceMeters(a, b Waypoint) float64 {
	return geo.Distance(a.Point(), b.Point())
}

// bearing returns the initial great-circle bearing from a to b in degrees, [0, 360).
func bearing(a, b orb.Point) float64 {
	return math.Mod(geo.Bearing(a, b)+360, 360)
}

// angleBetweenBearings returns the smallest angle between two bearings in degrees, [0, 180].
func angleBetweenBearings(b1, b2 float64) float64 {
	diff := math.Mod(b2-b1, 360)
	if diff < 0 {
		diff += 360
	}
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
