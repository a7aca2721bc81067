package main

import (
	"fmt"
	"image/color"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	panelFontSize   = 16.0
	panelTitleSize  = 20.0
	panelPadding    = 12.0
	panelIconIndent = panelFontSize + 6
	panelLineHeight = 1.45
	panelTimeLayout = "2006-01-02 15:04:05"
	notAvailable    = "N/A"
)

var (
	panelBackground = color.RGBA{R: 0, G: 0, B: 0, A: 170}
	panelText       = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
)

func loadFonts() {
	fontsOnce.Do(func() {
		var err error
		if regularFont, err = truetype.Parse(goregular.TTF); err != nil {
			log.Fatal(err)
		}
		if boldFont, err = truetype.Parse(gobold.TTF); err != nil {
			log.Fatal(err)
		}
	})
}

func fontFace(bold bool, size float64) font.Face {
	loadFonts()
	f := regularFont
	if bold {
		f = boldFont
	}
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

// --- Waypoint Panel ---

type WaypointPanel struct {
	Index     int
	Waypoint  Waypoint
	Point     ProjectedPoint
	Correlate Correlate
	Opposite  Waypoint
	State     PlayState
	Units     Units
}

func NewWaypointPanel(route *Route, points []ProjectedPoint, state PlaybackState, units Units) (WaypointPanel, error) {
	i := state.Correlate.Primary
	if route.Len() == 0 {
		return WaypointPanel{}, ErrNoData
	}
	if i < 0 || i >= route.Len() || i >= len(points) {
		return WaypointPanel{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	p := WaypointPanel{
		Index:     i,
		Waypoint:  route.At(i),
		Point:     points[i],
		Correlate: state.Correlate,
		State:     state.State,
		Units:     units,
	}
	if state.Correlate.HasOpposite {
		p.Opposite = route.At(state.Correlate.Opposite)
	}
	return p, nil
}

func (p WaypointPanel) Title() string {
	return fmt.Sprintf("Waypoint %d", p.Index+1)
}

func (p WaypointPanel) speedText() string {
	if p.Waypoint.Speed == 0 {
		return notAvailable
	}
	return p.Units.FormatSpeed(p.Waypoint.Speed)
}

func (p WaypointPanel) altitudeText() string {
	if p.Waypoint.Altitude == 0 {
		return notAvailable
	}
	return p.Units.FormatAltitude(p.Waypoint.Altitude)
}

func (p WaypointPanel) courseText() string {
	c := p.Waypoint.Course
	if compassIndex(c) < 0 {
		return unknownCourse
	}
	return fmt.Sprintf("%s %.0f° (%s)", CompassBucket(c), c, CourseLabel(c))
}

func (p WaypointPanel) Lines() []string {
	lines := []string{
		"Speed: " + p.speedText(),
		"Altitude: " + p.altitudeText(),
		"Course: " + p.courseText(),
		fmt.Sprintf("Coordinates: %.6f, %.6f", p.Waypoint.Lat, p.Waypoint.Lon),
		fmt.Sprintf("Position: X: %.2f, Y: %.2f, Z: %.2f", p.Point.X, p.Point.Y, p.Point.Z),
	}
	if !p.Waypoint.Timestamp.IsZero() {
		lines = append(lines, "Time: "+p.Waypoint.Timestamp.Format(panelTimeLayout))
	}
	if p.Correlate.HasOpposite {
		lines = append(lines, fmt.Sprintf("Opposite: waypoint %d, %s heading %s",
			p.Correlate.Opposite+1, p.Units.FormatSpeed(p.Opposite.Speed), CompassBucket(p.Opposite.Course)))
	} else {
		lines = append(lines, "Opposite: none")
	}
	return lines
}

// String renders the panel for a terminal, course arrow included.
func (p WaypointPanel) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", p.Title(), p.State)
	for _, line := range p.Lines() {
		if strings.HasPrefix(line, "Course: ") {
			line = "Course: " + CourseArrow(p.Waypoint.Course) + " " + strings.TrimPrefix(line, "Course: ")
		}
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Draw paints the panel with its top-left corner at x, y.
func (p WaypointPanel) Draw(dc *gg.Context, x, y float64) {
	top := drawPanel(dc, x, y, p.Title(), p.Lines(), panelIconIndent)

	dc.Push()
	dc.SetColor(panelText)
	iconX := x + panelPadding + panelFontSize/2
	lineH := panelFontSize * panelLineHeight
	drawSpeedIcon(dc, iconX, top+lineH*0.6, panelFontSize, 1.5)
	drawCompassIcon(dc, iconX, top+lineH*2.5, panelFontSize, 1.5, p.Waypoint.Course)
	dc.Pop()
}

func (p WaypointPanel) Size(dc *gg.Context) (float64, float64) {
	return measurePanel(dc, p.Title(), p.Lines(), panelIconIndent)
}

// --- Summary Panel ---

type SummaryPanel struct {
	Name         string
	Start        time.Time
	Finish       time.Time
	AverageSpeed float64
	Duration     time.Duration
	Distance     string
	Waypoints    int
	Units        Units
}

func NewSummaryPanel(route *Route, units Units) SummaryPanel {
	p := SummaryPanel{Name: route.Meta.Name, Units: units, Waypoints: route.Len()}
	if route.Len() == 0 {
		return p
	}
	p.Start = route.StartTime()
	p.Finish = route.EndTime()
	p.AverageSpeed = route.AverageSpeed()
	p.Duration = route.Duration()
	p.Distance = route.DistanceLabel(units)
	return p
}

func (p SummaryPanel) Title() string {
	if p.Name != "" {
		return "Workout: " + p.Name
	}
	return "Workout"
}

func (p SummaryPanel) Lines() []string {
	if p.Waypoints == 0 {
		return []string{"No route data"}
	}
	return []string{
		"Start: " + formatPanelTime(p.Start),
		"Finish: " + formatPanelTime(p.Finish),
		"Average Speed: " + p.Units.FormatSpeed(p.AverageSpeed),
		fmt.Sprintf("Duration: %.1f min", Minutes(p.Duration.Seconds())),
		"Distance: " + p.Distance,
		fmt.Sprintf("Waypoints: %d", p.Waypoints),
	}
}

func (p SummaryPanel) String() string {
	var b strings.Builder
	b.WriteString(p.Title())
	b.WriteByte('\n')
	for _, line := range p.Lines() {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func (p SummaryPanel) Draw(dc *gg.Context, x, y float64) {
	drawPanel(dc, x, y, p.Title(), p.Lines(), 0)
}

func (p SummaryPanel) Size(dc *gg.Context) (float64, float64) {
	return measurePanel(dc, p.Title(), p.Lines(), 0)
}

func formatPanelTime(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.Format(panelTimeLayout)
}

// --- Drawing ---

// measurePanel returns the size of the box drawPanel would paint.
func measurePanel(dc *gg.Context, title string, lines []string, indent float64) (float64, float64) {
	dc.Push()
	defer dc.Pop()
	dc.SetFontFace(fontFace(true, panelTitleSize))
	width, _ := dc.MeasureString(title)
	dc.SetFontFace(fontFace(false, panelFontSize))
	for _, line := range lines {
		w, _ := dc.MeasureString(line)
		width = max(width, w+indent)
	}
	titleH := panelTitleSize * panelLineHeight
	lineH := panelFontSize * panelLineHeight
	return width + 2*panelPadding, titleH + lineH*float64(len(lines)) + 2*panelPadding
}

// drawPanel paints a translucent box with a bold title and one text line per
// entry, indenting the lines by indent. It returns the y of the first text
// line's top.
func drawPanel(dc *gg.Context, x, y float64, title string, lines []string, indent float64) float64 {
	boxW, boxH := measurePanel(dc, title, lines, indent)
	titleH := panelTitleSize * panelLineHeight
	lineH := panelFontSize * panelLineHeight

	dc.Push()
	dc.SetColor(panelBackground)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 8)
	dc.Fill()

	dc.SetColor(panelText)
	dc.SetFontFace(fontFace(true, panelTitleSize))
	dc.DrawStringAnchored(title, x+panelPadding, y+panelPadding+titleH/2, 0, 0.5)

	top := y + panelPadding + titleH
	dc.SetFontFace(fontFace(false, panelFontSize))
	for i, line := range lines {
		dc.DrawStringAnchored(line, x+panelPadding+indent, top+lineH*(float64(i)+0.5), 0, 0.5)
	}
	dc.Pop()
	return top
}
