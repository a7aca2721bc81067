package main

import (
	"testing"
	"time"
)

var fixtureStart = time.Date(2024, 6, 1, 7, 30, 0, 0, time.UTC)

func mustRoute(t *testing.T, wps []Waypoint) *Route {
	t.Helper()
	r, err := NewRoute(wps, RouteMeta{})
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}
	return r
}

// straightRoute heads north from 45°N 7°E, one sample every 10 seconds about
// 22 m apart.
func straightRoute(t *testing.T, n int) *Route {
	t.Helper()
	wps := make([]Waypoint, n)
	for i := range wps {
		wps[i] = Waypoint{
			Lat:       45 + float64(i)*0.0002,
			Lon:       7,
			Altitude:  100 + float64(i),
			Speed:     2 + float64(i)*0.1,
			Course:    0,
			Timestamp: fixtureStart.Add(time.Duration(i) * 10 * time.Second),
		}
	}
	return mustRoute(t, wps)
}

// outAndBack rides 10 points north, then comes back over the same ground
// heading south, starting five minutes after turning around. lonShift moves
// the return leg east, in degrees. A negative course is written as unknown.
func outAndBack(t *testing.T, lonShift, returnCourse float64) *Route {
	t.Helper()
	const leg = 10
	wps := make([]Waypoint, 0, 2*leg)
	for i := 0; i < leg; i++ {
		wps = append(wps, Waypoint{
			Lat:       45 + float64(i)*0.0002,
			Lon:       7,
			Speed:     3,
			Course:    0,
			Timestamp: fixtureStart.Add(time.Duration(i) * 10 * time.Second),
		})
	}
	back := wps[leg-1].Timestamp.Add(5 * time.Minute)
	for i := 0; i < leg; i++ {
		wps = append(wps, Waypoint{
			Lat:       45 + float64(leg-1-i)*0.0002,
			Lon:       7 + lonShift,
			Speed:     4,
			Course:    returnCourse,
			Timestamp: back.Add(time.Duration(i) * 10 * time.Second),
		})
	}
	return mustRoute(t, wps)
}
