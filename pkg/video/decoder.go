package video

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Decoder turns H264 access units into JPEG using a short-lived ffmpeg
// process per frame. Decoding is rate limited and the stream since the last
// keyframe is kept so there is always a decodable picture.
type Decoder struct {
	interval time.Duration
	quality  int
	timeout  time.Duration

	mu         sync.Mutex
	lastDecode time.Time
	gop        []byte

	frameMu sync.RWMutex
	latest  []byte

	// run executes ffmpeg; replaced in tests.
	run func(ctx context.Context, input []byte, args ...string) ([]byte, error)
}

// NewDecoder creates a decoder producing at most one frame per interval.
// quality is the ffmpeg mjpeg q:v (1-31, lower is better).
func NewDecoder(interval time.Duration, quality int) *Decoder {
	return &Decoder{
		interval: interval,
		quality:  quality,
		timeout:  time.Second,
		run:      runFFmpeg,
	}
}

// maxGOP caps buffered stream data when keyframes are rare.
const maxGOP = 4 << 20

// Decode buffers au and, if the rate limit allows, decodes the latest frame.
// It returns the new JPEG or nil when nothing was decoded.
func (d *Decoder) Decode(au []byte) ([]byte, error) {
	if len(au) == 0 {
		return nil, nil
	}

	d.mu.Lock()
	if hasIDR(au) {
		d.gop = d.gop[:0]
	}
	if len(d.gop)+len(au) > maxGOP {
		d.gop = d.gop[:0]
	}
	d.gop = append(d.gop, au...)

	if time.Since(d.lastDecode) < d.interval {
		d.mu.Unlock()
		return nil, nil
	}
	d.lastDecode = time.Now()
	input := append([]byte(nil), d.gop...)
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	jpeg, err := d.run(ctx, input,
		"-loglevel", "error",
		"-f", "h264",
		"-i", "pipe:0",
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", strconv.Itoa(d.quality),
		"pipe:1",
	)
	if err != nil {
		return nil, err
	}
	if len(jpeg) == 0 {
		return nil, nil
	}

	d.frameMu.Lock()
	d.latest = jpeg
	d.frameMu.Unlock()
	return jpeg, nil
}

// Latest returns a copy of the most recently decoded frame.
func (d *Decoder) Latest() []byte {
	d.frameMu.RLock()
	defer d.frameMu.RUnlock()
	if d.latest == nil {
		return nil
	}
	return append([]byte(nil), d.latest...)
}

// Reset drops buffered stream data and the latest frame.
func (d *Decoder) Reset() {
	d.mu.Lock()
	d.gop = nil
	d.lastDecode = time.Time{}
	d.mu.Unlock()

	d.frameMu.Lock()
	d.latest = nil
	d.frameMu.Unlock()
}

// hasIDR reports whether an Annex B access unit contains an IDR slice.
func hasIDR(au []byte) bool {
	for i := 0; i+4 < len(au); i++ {
		if au[i] == 0 && au[i+1] == 0 && au[i+2] == 0 && au[i+3] == 1 {
			if au[i+4]&0x1f == 5 {
				return true
			}
		}
	}
	return false
}

func runFFmpeg(ctx context.Context, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		// Not enough data for a frame yet.
		if stdout.Len() == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
