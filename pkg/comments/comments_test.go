package comments

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/faceapi"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

func noon() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func ada() commentator.IdentifiedPerson {
	return commentator.IdentifiedPerson{
		PersonID: "p-ada",
		Settings: settings.Person{PersonID: "p-ada", Name: "Ada Lovelace", Nickname: "Ada"},
	}
}

func faceWith(attrs *faceapi.Attributes) commentator.DetectedFace {
	return commentator.DetectedFace{FaceID: "f1", Detection: faceapi.DetectedFace{FaceID: "f1", Attributes: attrs}}
}

func single(lines map[Trait][]string) map[Trait][]string {
	out := make(map[Trait][]string)
	for trait := range DefaultLines {
		out[trait] = []string{string(trait) + " {{.Name}}"}
	}
	for trait, l := range lines {
		out[trait] = l
	}
	return out
}

func TestGreetingWithoutAttributes(t *testing.T) {
	p, err := New(single(nil), WithNow(noon), WithSeed(1))
	require.NoError(t, err)

	got, err := p.CommentFor(context.Background(), faceWith(nil), ada())
	require.NoError(t, err)
	assert.Equal(t, "greeting Ada", got)
}

func TestTraitSelection(t *testing.T) {
	tests := []struct {
		name  string
		attrs *faceapi.Attributes
		want  string
	}{
		{
			name:  "headwear",
			attrs: &faceapi.Attributes{Accessories: []faceapi.Accessory{{Type: "headwear", Confidence: 0.9}}},
			want:  "headwear Ada",
		},
		{
			name:  "glasses",
			attrs: &faceapi.Attributes{Glasses: "ReadingGlasses"},
			want:  "glasses Ada",
		},
		{
			name:  "no glasses is a greeting",
			attrs: &faceapi.Attributes{Glasses: "NoGlasses"},
			want:  "greeting Ada",
		},
		{
			name:  "sad",
			attrs: &faceapi.Attributes{Emotion: &faceapi.Emotion{Sadness: 0.8, Neutral: 0.2}},
			want:  "sad Ada",
		},
		{
			name:  "beard",
			attrs: &faceapi.Attributes{FacialHair: &faceapi.FacialHair{Beard: 0.7}},
			want:  "beard Ada",
		},
		{
			name:  "bald",
			attrs: &faceapi.Attributes{Hair: &faceapi.Hair{Bald: 0.9}},
			want:  "bald Ada",
		},
		{
			name:  "low confidence accessory",
			attrs: &faceapi.Attributes{Accessories: []faceapi.Accessory{{Type: "headwear", Confidence: 0.2}}},
			want:  "greeting Ada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(single(nil), WithNow(noon), WithSeed(1))
			require.NoError(t, err)

			got, err := p.CommentFor(context.Background(), faceWith(tt.attrs), ada())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateData(t *testing.T) {
	p, err := New(single(map[Trait][]string{
		TraitHair: {"{{.Name}} ({{.Age}}) has {{.HairColor}} hair"},
	}), WithNow(noon), WithSeed(1))
	require.NoError(t, err)

	attrs := &faceapi.Attributes{
		Age: 35.6,
		Hair: &faceapi.Hair{HairColor: []faceapi.HairColor{
			{Color: "brown", Confidence: 0.3},
			{Color: "red", Confidence: 0.9},
		}},
	}
	got, err := p.CommentFor(context.Background(), faceWith(attrs), ada())
	require.NoError(t, err)
	assert.Equal(t, "Ada (36) has red hair", got)
}

func TestTimeOfDay(t *testing.T) {
	morning := func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	p, err := New(single(nil), WithNow(morning), WithSeed(1))
	require.NoError(t, err)

	got, err := p.CommentFor(context.Background(), faceWith(nil), ada())
	require.NoError(t, err)
	assert.Equal(t, "morning Ada", got)
}

func TestDefaultLinesRender(t *testing.T) {
	p, err := New(nil, WithNow(noon))
	require.NoError(t, err)

	attrs := &faceapi.Attributes{
		Smile:       0.9,
		Glasses:     "Sunglasses",
		Accessories: []faceapi.Accessory{{Type: "headwear", Confidence: 0.9}},
		Hair:        &faceapi.Hair{HairColor: []faceapi.HairColor{{Color: "blond", Confidence: 0.9}}},
	}
	for i := 0; i < 20; i++ {
		got, err := p.CommentFor(context.Background(), faceWith(attrs), ada())
		require.NoError(t, err)
		assert.Contains(t, got, "Ada")
	}
}

func TestInvalidTemplate(t *testing.T) {
	_, err := New(map[Trait][]string{TraitGreeting: {"{{.Name"}})
	assert.Error(t, err)
}

func TestCanceledContext(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.CommentFor(ctx, faceWith(nil), ada())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lines.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[lines]
greeting = ["Hey {{.Name}}!"]
headwear = ["Love the hat, {{.Name}}."]
`), 0o644))

	lines, err := LoadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hey {{.Name}}!"}, lines[TraitGreeting])
	assert.Equal(t, []string{"Love the hat, {{.Name}}."}, lines[TraitHeadwear])

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[lines]\nshoes = [\"x\"]\n"), 0o644))
	_, err = LoadLines(bad)
	assert.Error(t, err)

	lines, err = LoadLines("")
	assert.NoError(t, err)
	assert.Nil(t, lines)
}
