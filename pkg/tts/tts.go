// Package tts turns comment text into audio.
//
// Providers call a cloud speech service and return the complete encoded
// audio. A Chain tries providers in order so a failing service falls back
// to the next one.
//
// Example usage:
//
//	openai, _ := tts.NewOpenAI(tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	google, _ := tts.NewGoogle(ctx, tts.WithVoice("en-US-Neural2-F"))
//	chain, _ := tts.NewChain(openai, google)
//	defer chain.Close()
//
//	result, _ := chain.Synthesize(ctx, "Nice hat!")
//	// result.Audio holds MP3 bytes
package tts

import (
	"context"
	"time"
)

// Provider synthesizes speech.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is the synthesized audio for one text.
type AudioResult struct {
	Audio    []byte
	Encoding Encoding

	// Provider names the provider that produced the audio.
	Provider string

	// CharCount is the number of characters synthesized.
	CharCount int

	// Latency is the time until the full response arrived.
	Latency time.Duration
}

// Empty reports whether there is nothing to play.
func (r *AudioResult) Empty() bool {
	return r == nil || len(r.Audio) == 0
}

// Encoding is the container/codec of synthesized audio.
type Encoding string

const (
	EncodingMP3 Encoding = "mp3"
	EncodingWAV Encoding = "wav"
	EncodingOGG Encoding = "ogg_opus"
)

// Extension returns the file extension for the encoding.
func (e Encoding) Extension() string {
	switch e {
	case EncodingWAV:
		return ".wav"
	case EncodingOGG:
		return ".ogg"
	default:
		return ".mp3"
	}
}
