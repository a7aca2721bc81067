package main

import (
	"io"

	"github.com/paulmach/orb/geojson"
)

// RouteFeatures exports the route as a LineString feature followed by one
// Point feature per waypoint. With a correlator, each point also carries the
// index of its opposite-direction correlate.
func RouteFeatures(route *Route, corr *Correlator) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	if route.Len() == 0 {
		return fc, nil
	}

	line := geojson.NewFeature(route.LineString())
	line.Properties["name"] = route.Meta.Name
	line.Properties["distance_m"] = route.TotalDistance()
	line.Properties["average_speed_mps"] = route.AverageSpeed()
	line.Properties["duration_s"] = route.Duration().Seconds()
	fc.Append(line)

	for i, w := range route.waypoints {
		f := geojson.NewFeature(w.Point())
		f.Properties["index"] = i
		f.Properties["altitude_m"] = w.Altitude
		f.Properties["speed_mps"] = w.Speed
		if w.Course >= 0 {
			f.Properties["course"] = w.Course
			f.Properties["compass"] = CompassBucket(w.Course)
		}
		if !w.Timestamp.IsZero() {
			f.Properties["time"] = w.Timestamp
		}
		if corr != nil {
			opp, ok, err := corr.Opposite(i)
			if err != nil {
				return nil, err
			}
			if ok {
				f.Properties["opposite"] = opp
			}
		}
		fc.Append(f)
	}
	return fc, nil
}

func WriteGeoJSON(w io.Writer, route *Route, corr *Correlator) error {
	fc, err := RouteFeatures(route, corr)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
