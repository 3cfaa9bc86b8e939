package vision

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// FrameDiff scores motion as the fraction of pixels that changed between
// consecutive frames. Frames are downscaled, converted to gray and blurred
// before comparison.
type FrameDiff struct {
	// Width of the downscaled frame. Height keeps the aspect ratio.
	Width int

	// PixelThreshold is the gray level difference counted as a change.
	PixelThreshold float32

	mu   sync.Mutex
	prev gocv.Mat
	has  bool
}

// NewFrameDiff creates a scorer with defaults suited to presence detection.
func NewFrameDiff() *FrameDiff {
	return &FrameDiff{Width: 160, PixelThreshold: 25}
}

// Score compares jpeg with the previous frame. The first frame scores 0.
func (d *FrameDiff) Score(jpeg []byte) (float64, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadGrayScale)
	if err != nil {
		return 0, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return 0, fmt.Errorf("decode frame: empty image")
	}

	small := gocv.NewMat()
	height := img.Rows() * d.Width / img.Cols()
	if height < 1 {
		height = 1
	}
	gocv.Resize(img, &small, image.Pt(d.Width, height), 0, 0, gocv.InterpolationArea)
	gocv.GaussianBlur(small, &small, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.has || d.prev.Rows() != small.Rows() || d.prev.Cols() != small.Cols() {
		d.replace(small)
		return 0, nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(d.prev, small, &diff)
	gocv.Threshold(diff, &diff, d.PixelThreshold, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(diff)
	total := diff.Rows() * diff.Cols()

	d.replace(small)

	if total == 0 {
		return 0, nil
	}
	return float64(changed) / float64(total), nil
}

// Reset forgets the previous frame.
func (d *FrameDiff) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.has {
		d.prev.Close()
		d.has = false
	}
}

// Close releases the stored frame.
func (d *FrameDiff) Close() error {
	d.Reset()
	return nil
}

func (d *FrameDiff) replace(m gocv.Mat) {
	if d.has {
		d.prev.Close()
	}
	d.prev = m
	d.has = true
}
