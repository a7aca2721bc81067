package main

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"image/png"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const frameWaitTimeout = 60 * time.Second

// --- Structs ---

type Frame struct {
	Number int
	Data   []byte
}

// rideScene is the read-only material every frame worker draws from.
type rideScene struct {
	route   *Route
	points  []ProjectedPoint
	basemap *Basemap
	camera  CameraPose
	units   Units
	width   int
	height  int
	sky     color.RGBA
}

// newRideScene captures what the frame workers need from s. Call it on the
// session's loop.
func newRideScene(s *Session, args *Arguments) *rideScene {
	cfg := s.Config()
	return &rideScene{
		route:   s.Route(),
		points:  s.Points(),
		basemap: s.Basemap(),
		camera:  cfg.Camera,
		units:   cfg.Units,
		width:   args.Width,
		height:  args.Height,
		sky:     args.SkyColor,
	}
}

// --- Recording ---

// RecordRide plays the route on a virtual clock and returns the player state
// after each tick, preceded by the state right after starting. Each speedup
// presses ride once more before recording, doubling the speed.
func RecordRide(route *Route, corr *Correlator, base time.Duration, ticks, speedups int, metrics *Metrics) []PlaybackState {
	if route.Len() == 0 || ticks < 0 {
		return nil
	}
	clock := NewManualClock()
	player := NewPlayer(route, corr, clock, base, metrics)
	defer player.Close()

	player.Start()
	for i := 0; i < speedups; i++ {
		player.Start()
	}

	states := make([]PlaybackState, 0, ticks+1)
	states = append(states, player.State())
	for i := 0; i < ticks; i++ {
		clock.Advance(player.State().Interval)
		states = append(states, player.State())
	}
	return states
}

// --- Video Pipeline ---

func (rs *rideScene) renderFrame(r *CanvasRenderer, st PlaybackState) ([]byte, error) {
	BuildScene(r, rs.points, rs.basemap, HighlightFor(st.Correlate), rs.camera)
	img := r.Image()

	summary := NewSummaryPanel(rs.route, rs.units)
	o := Overlay{Summary: &summary}
	if wp, err := NewWaypointPanel(rs.route, rs.points, st, rs.units); err == nil {
		o.Waypoint = &wp
	}
	drawOverlay(img, o)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func generateFrames(ctx context.Context, frameChan chan<- Frame, rs *rideScene, states []PlaybackState, workers int, metrics *Metrics) {
	var wg sync.WaitGroup
	tasks := make(chan int, workers*2)

	go func() {
		defer close(tasks)
		for i := range states {
			select {
			case tasks <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := NewCanvasRenderer(rs.width, rs.height)
			r.Background = rs.sky

			for frameNum := range tasks {
				data, err := rs.renderFrame(r, states[frameNum])
				if err != nil {
					log.Printf("Failed to encode frame %d: %v", frameNum, err)
					continue
				}
				metrics.frame()
				select {
				case frameChan <- Frame{Number: frameNum, Data: data}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
}

// runRidePipeline renders one frame per recorded state and pipes them, in
// order, into ffmpeg.
func runRidePipeline(ctx context.Context, rs *rideScene, states []PlaybackState, args *Arguments, metrics *Metrics) error {
	if len(states) == 0 {
		return ErrNoData
	}

	// --- FFMPEG Setup ---
	ffmpegCmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-f", "image2pipe", "-vcodec", "png", "-r", fmt.Sprintf("%f", args.Framerate), "-i", "-", "-c:v", "libx264", "-b:v", args.Bitrate, "-pix_fmt", "yuv420p", "-r", fmt.Sprintf("%f", args.Framerate), args.OutputFile)
	ffmpegIn, err := ffmpegCmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg stdin pipe: %w", err)
	}
	ffmpegCmd.Stderr = os.Stderr
	if err := ffmpegCmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- Concurrency Setup ---
	var wg sync.WaitGroup
	frameChan := make(chan Frame, int(args.Framerate)*2)
	totalFrames := len(states)
	var encodeErr error

	// --- Encoder Goroutine (with reordering and timeout) ---
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ffmpegIn.Close()

		var bar *progressbar.ProgressBar
		if args.Quiet {
			bar = progressbar.DefaultSilent(int64(totalFrames))
		} else {
			bar = progressbar.Default(int64(totalFrames), "Encoding")
		}
		frameBuffer := make(map[int][]byte)
		nextFrameToWrite := 0
		timeout := time.NewTimer(frameWaitTimeout)
		defer timeout.Stop()

		for nextFrameToWrite < totalFrames {
			select {
			case frame, ok := <-frameChan:
				if !ok {
					encodeErr = fmt.Errorf("frame channel closed early, last written frame %d", nextFrameToWrite-1)
					return
				}

				frameBuffer[frame.Number] = frame.Data
				if !timeout.Stop() {
					select {
					case <-timeout.C:
					default:
					}
				}
				timeout.Reset(frameWaitTimeout)

				for {
					data, found := frameBuffer[nextFrameToWrite]
					if !found {
						break
					}

					if _, err := ffmpegIn.Write(data); err != nil {
						log.Printf("Error writing frame %d to ffmpeg: %v", nextFrameToWrite, err)
					}
					bar.Add(1)

					delete(frameBuffer, nextFrameToWrite)
					nextFrameToWrite++
				}

			case <-timeout.C:
				encodeErr = fmt.Errorf("stuck waiting for frame %d for over %v", nextFrameToWrite, frameWaitTimeout)
				cancel()
				return
			}
		}
	}()

	// --- Frame Generation ---
	generateFrames(ctx, frameChan, rs, states, max(1, args.Workers), metrics)
	close(frameChan)

	wg.Wait()
	if err := ffmpegCmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg command failed: %w", err)
	}
	return encodeErr
}
