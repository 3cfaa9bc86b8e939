// Package comments writes short remarks about a person from the face
// attributes returned by detect.
//
// Each Trait has a list of text/template lines. CommentFor collects the
// traits the face shows, picks one at random and renders one of its lines
// with the person's name and attributes.
package comments

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/faceapi"
)

// Trait is something a comment can be about.
type Trait string

const (
	TraitHeadwear  Trait = "headwear"
	TraitGlasses   Trait = "glasses"
	TraitSmile     Trait = "smile"
	TraitHappy     Trait = "happy"
	TraitSad       Trait = "sad"
	TraitSurprised Trait = "surprised"
	TraitBeard     Trait = "beard"
	TraitHair      Trait = "hair"
	TraitBald      Trait = "bald"
	TraitMorning   Trait = "morning"
	TraitEvening   Trait = "evening"
	TraitGreeting  Trait = "greeting"
)

// Data is what a line template can refer to.
type Data struct {
	Name      string
	Age       int
	Emotion   string
	HairColor string
	Glasses   string
	Headwear  bool
}

// Provider implements commentator.CommentProvider.
type Provider struct {
	lines map[Trait][]*template.Template
	now   func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Provider.
type Option func(*Provider)

// WithSeed makes line selection deterministic.
func WithSeed(seed uint64) Option {
	return func(p *Provider) { p.rnd = rand.New(rand.NewPCG(seed, seed)) }
}

// WithNow sets the time source for time of day traits.
func WithNow(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New parses lines, which replace the defaults per trait. Passing nil uses
// DefaultLines only.
func New(lines map[Trait][]string, opts ...Option) (*Provider, error) {
	merged := make(map[Trait][]string, len(DefaultLines))
	for trait, l := range DefaultLines {
		merged[trait] = l
	}
	for trait, l := range lines {
		if len(l) > 0 {
			merged[trait] = l
		}
	}
	if len(merged[TraitGreeting]) == 0 {
		return nil, fmt.Errorf("comments: at least one %s line required", TraitGreeting)
	}

	p := &Provider{
		lines: make(map[Trait][]*template.Template, len(merged)),
		now:   time.Now,
		rnd:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for trait, texts := range merged {
		for i, text := range texts {
			tmpl, err := template.New(fmt.Sprintf("%s-%d", trait, i)).
				Option("missingkey=error").
				Parse(text)
			if err != nil {
				return nil, fmt.Errorf("comments: parse %s line %d: %w", trait, i, err)
			}
			p.lines[trait] = append(p.lines[trait], tmpl)
		}
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CommentFor returns a comment for person as seen in face.
func (p *Provider) CommentFor(ctx context.Context, face commentator.DetectedFace, person commentator.IdentifiedPerson) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	attrs := face.Detection.Attributes
	data := dataFor(person.Name(), attrs)
	traits := p.traits(attrs)

	p.mu.Lock()
	trait := traits[p.rnd.IntN(len(traits))]
	candidates := p.lines[trait]
	tmpl := candidates[p.rnd.IntN(len(candidates))]
	p.mu.Unlock()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("comments: render %s: %w", trait, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// traits returns the traits that apply and have lines. It always contains
// at least the greeting.
func (p *Provider) traits(attrs *faceapi.Attributes) []Trait {
	var out []Trait
	add := func(t Trait, ok bool) {
		if ok && len(p.lines[t]) > 0 {
			out = append(out, t)
		}
	}

	hour := p.now().Hour()
	add(TraitMorning, hour >= 5 && hour < 11)
	add(TraitEvening, hour >= 18 && hour < 23)

	if attrs != nil {
		add(TraitHeadwear, hasAccessory(attrs, "headwear"))
		add(TraitGlasses, attrs.Glasses != "" && attrs.Glasses != "NoGlasses")
		add(TraitSmile, attrs.Smile >= 0.6)
		if attrs.Emotion != nil {
			emotion, score := attrs.Emotion.Dominant()
			add(TraitHappy, emotion == "happiness" && score >= 0.6)
			add(TraitSad, emotion == "sadness" && score >= 0.4)
			add(TraitSurprised, emotion == "surprise" && score >= 0.4)
		}
		if attrs.FacialHair != nil {
			add(TraitBeard, attrs.FacialHair.Beard >= 0.5)
		}
		if attrs.Hair != nil && !attrs.Hair.Invisible {
			add(TraitBald, attrs.Hair.Bald >= 0.7)
			add(TraitHair, attrs.Hair.Bald < 0.7 && hairColor(attrs.Hair) != "")
		}
	}

	if len(out) == 0 {
		out = append(out, TraitGreeting)
	}
	return out
}

func dataFor(name string, attrs *faceapi.Attributes) Data {
	d := Data{Name: name}
	if attrs == nil {
		return d
	}
	d.Age = int(attrs.Age + 0.5)
	d.Glasses = attrs.Glasses
	d.Headwear = hasAccessory(attrs, "headwear")
	if attrs.Emotion != nil {
		d.Emotion, _ = attrs.Emotion.Dominant()
	}
	if attrs.Hair != nil {
		d.HairColor = hairColor(attrs.Hair)
	}
	return d
}

func hasAccessory(attrs *faceapi.Attributes, kind string) bool {
	for _, a := range attrs.Accessories {
		if a.Type == kind && a.Confidence >= 0.5 {
			return true
		}
	}
	return false
}

func hairColor(h *faceapi.Hair) string {
	var best faceapi.HairColor
	for _, c := range h.HairColor {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	if best.Confidence < 0.5 || best.Color == "other" || best.Color == "unknown" {
		return ""
	}
	return best.Color
}

var _ commentator.CommentProvider = (*Provider)(nil)
