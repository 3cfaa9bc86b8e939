// Package sounds plays the short audio cues that accompany the commentator's
// states. Cues are files in a directory named after the cue, with any of the
// supported extensions:
//
//	presence_detected.mp3
//	alone_again.wav
//	identifying_faces.ogg
//	about_to_comment.mp3
//
// Missing cues are silent.
package sounds

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Cue names a sound.
type Cue string

const (
	PresenceDetected Cue = "presence_detected"
	AloneAgain       Cue = "alone_again"
	IdentifyingFaces Cue = "identifying_faces"
	AboutToComment   Cue = "about_to_comment"
)

// Cues lists every cue the library knows about.
var Cues = []Cue{PresenceDetected, AloneAgain, IdentifyingFaces, AboutToComment}

var extensions = []string{".mp3", ".wav", ".ogg"}

// FilePlayer plays an audio file and returns when playback finished.
type FilePlayer interface {
	PlayFile(ctx context.Context, path string) error
}

// Library maps cues to files.
type Library struct {
	dir    string
	player FilePlayer
	logger *slog.Logger

	mu    sync.RWMutex
	files map[Cue]string
}

// New creates a library for dir. Call Load before playing.
func New(dir string, player FilePlayer, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		dir:    dir,
		player: player,
		logger: logger.With("component", "sounds"),
		files:  make(map[Cue]string),
	}
}

// Load scans the directory for cue files. A missing directory leaves all
// cues silent.
func (l *Library) Load() error {
	files := make(map[Cue]string)

	if _, err := os.Stat(l.dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("sounds directory missing, cues are silent", "dir", l.dir)
			l.swap(files)
			return nil
		}
		return fmt.Errorf("sounds: %w", err)
	}

	for _, cue := range Cues {
		for _, ext := range extensions {
			path := filepath.Join(l.dir, string(cue)+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				files[cue] = path
				break
			}
		}
		if _, ok := files[cue]; !ok {
			l.logger.Debug("cue not found", "cue", cue)
		}
	}

	l.swap(files)
	l.logger.Info("loaded sounds", "dir", l.dir, "cues", len(files))
	return nil
}

func (l *Library) swap(files map[Cue]string) {
	l.mu.Lock()
	l.files = files
	l.mu.Unlock()
}

// Loaded returns the cues that have a file, sorted.
func (l *Library) Loaded() []Cue {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Cue, 0, len(l.files))
	for cue := range l.files {
		out = append(out, cue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Play plays a cue. Unknown or missing cues return nil.
func (l *Library) Play(ctx context.Context, cue Cue) error {
	l.mu.RLock()
	path, ok := l.files[cue]
	l.mu.RUnlock()
	if !ok || l.player == nil {
		return nil
	}
	if err := l.player.PlayFile(ctx, path); err != nil {
		return fmt.Errorf("sounds: play %s: %w", cue, err)
	}
	return nil
}

func (l *Library) PlayPresenceDetected(ctx context.Context) error {
	return l.Play(ctx, PresenceDetected)
}

func (l *Library) PlayAloneAgain(ctx context.Context) error {
	return l.Play(ctx, AloneAgain)
}

func (l *Library) PlayIdentifyingFaces(ctx context.Context) error {
	return l.Play(ctx, IdentifyingFaces)
}

func (l *Library) PlayAboutToCommentOnPerson(ctx context.Context) error {
	return l.Play(ctx, AboutToComment)
}
