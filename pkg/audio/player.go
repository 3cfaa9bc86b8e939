// Package audio plays encoded audio by piping it to an external player
// process such as ffplay or mpg123.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// ErrCanceled is returned by Play when Cancel interrupted playback.
var ErrCanceled = errors.New("audio: playback canceled")

// Player pipes audio to a player command. Plays are serialized so cues and
// speech never overlap.
type Player struct {
	command []string
	logger  *slog.Logger

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()

	playMu sync.Mutex

	mu       sync.Mutex
	cmd      *exec.Cmd
	canceled bool
}

// NewPlayer creates a player for command, e.g.
// ["ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "pipe:0"].
// The audio is written to the command's stdin.
func NewPlayer(command []string, logger *slog.Logger) (*Player, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, errors.New("audio: player command required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		command: append([]string(nil), command...),
		logger:  logger.With("component", "audio"),
	}, nil
}

// Play writes data to a new player process and waits for it to exit.
func (p *Player) Play(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return p.play(ctx, bytes.NewReader(data))
}

// PlayFile plays the audio file at path.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()
	return p.play(ctx, f)
}

func (p *Player) play(ctx context.Context, r io.Reader) error {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("audio: start %s: %w", p.command[0], err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.canceled = false
	p.mu.Unlock()

	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}
	err := cmd.Wait()
	if p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd()
	}

	canceled := p.clear()
	switch {
	case canceled:
		return ErrCanceled
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		p.logger.Debug("player exited with error", "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return fmt.Errorf("audio: %s: %w", p.command[0], err)
	}
	return nil
}

func (p *Player) clear() (canceled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	canceled = p.canceled
	p.cmd = nil
	p.canceled = false
	return canceled
}

// Cancel stops any current playback immediately.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	p.canceled = true
	_ = p.cmd.Process.Kill()
}

// IsPlaying returns whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}
