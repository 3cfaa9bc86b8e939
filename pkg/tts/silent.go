package tts

import "context"

// Silent is a provider that produces no audio. Comments are still shown,
// nothing is spoken.
type Silent struct{}

// NewSilent returns a Silent provider.
func NewSilent() *Silent { return &Silent{} }

func (s *Silent) Name() string { return "silent" }

func (s *Silent) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &AudioResult{Encoding: EncodingMP3, Provider: "silent", CharCount: len(text)}, nil
}

func (s *Silent) Close() error { return nil }

var _ Provider = (*Silent)(nil)
