// Package vision provides local OpenCV camera capture, a frame difference
// motion scorer and a YuNet face counter.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned by CurrentFrame before the first frame is captured.
var ErrNoFrame = errors.New("vision: no frame captured yet")

// WebcamConfig holds webcam configuration.
type WebcamConfig struct {
	DeviceID    int
	Interval    time.Duration // Capture cadence
	JPEGQuality int           // 1-100
	Logger      *slog.Logger
}

// DefaultWebcamConfig returns defaults for the first attached camera.
func DefaultWebcamConfig() WebcamConfig {
	return WebcamConfig{
		DeviceID:    0,
		Interval:    100 * time.Millisecond,
		JPEGQuality: 85,
		Logger:      slog.Default(),
	}
}

// Webcam captures frames from a local camera and keeps the latest as JPEG.
type Webcam struct {
	cfg    WebcamConfig
	logger *slog.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	cancel  context.CancelFunc
	done    chan struct{}

	frameMu sync.RWMutex
	latest  []byte
}

// NewWebcam creates a stopped webcam.
func NewWebcam(cfg WebcamConfig) *Webcam {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWebcamConfig().Interval
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultWebcamConfig().JPEGQuality
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Webcam{cfg: cfg, logger: cfg.Logger.With("component", "webcam")}
}

// Start opens the device and captures until ctx is done or Stop is called.
// Starting a running webcam is a no-op.
func (w *Webcam) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(w.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", w.cfg.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("camera %d not available", w.cfg.DeviceID)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.capture = capture
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(ctx, capture, w.done)

	w.logger.Info("camera started", "device", w.cfg.DeviceID)
	return nil
}

// Stop ends capture and releases the device.
func (w *Webcam) Stop() {
	w.mu.Lock()
	capture, cancel, done := w.capture, w.cancel, w.done
	w.capture, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	if capture == nil {
		return
	}
	cancel()
	<-done
	capture.Close()

	w.frameMu.Lock()
	w.latest = nil
	w.frameMu.Unlock()

	w.logger.Info("camera stopped")
}

// CurrentFrame returns a copy of the latest JPEG frame.
func (w *Webcam) CurrentFrame() ([]byte, error) {
	w.frameMu.RLock()
	defer w.frameMu.RUnlock()

	if w.latest == nil {
		return nil, ErrNoFrame
	}
	frame := make([]byte, len(w.latest))
	copy(frame, w.latest)
	return frame, nil
}

func (w *Webcam) loop(ctx context.Context, capture *gocv.VideoCapture, done chan struct{}) {
	defer close(done)

	img := gocv.NewMat()
	defer img.Close()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	params := []int{gocv.IMWriteJpegQuality, w.cfg.JPEGQuality}
	misses := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if ok := capture.Read(&img); !ok || img.Empty() {
			misses++
			if misses == 10 {
				w.logger.Warn("camera returns no frames", "device", w.cfg.DeviceID)
			}
			continue
		}
		misses = 0

		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, params)
		if err != nil {
			w.logger.Debug("encode frame failed", "error", err)
			continue
		}
		frame := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		w.frameMu.Lock()
		w.latest = frame
		w.frameMu.Unlock()
	}
}
