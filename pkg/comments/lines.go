package comments

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultLines are the built-in comment lines.
var DefaultLines = map[Trait][]string{
	TraitGreeting: {
		"Hi {{.Name}}, good to see you.",
		"Look who it is. Hello {{.Name}}!",
		"{{.Name}}! Always a pleasure.",
	},
	TraitHeadwear: {
		"Nice hat, {{.Name}}!",
		"{{.Name}}, that hat really suits you.",
	},
	TraitGlasses: {
		"Those glasses look sharp, {{.Name}}.",
		"{{.Name}}, very distinguished glasses today.",
	},
	TraitSmile: {
		"What a smile, {{.Name}}!",
		"{{.Name}}, your smile just made my day.",
	},
	TraitHappy: {
		"You look happy today, {{.Name}}.",
	},
	TraitSad: {
		"Cheer up, {{.Name}}. It can only get better.",
	},
	TraitSurprised: {
		"Surprised to see me, {{.Name}}?",
	},
	TraitBeard: {
		"Fine beard, {{.Name}}.",
	},
	TraitHair: {
		"{{.Name}}, that {{.HairColor}} hair looks great.",
	},
	TraitBald: {
		"{{.Name}}, I can see my reflection. Looking sleek!",
	},
	TraitMorning: {
		"Good morning, {{.Name}}!",
	},
	TraitEvening: {
		"Good evening, {{.Name}}. Working late?",
	},
}

// linesFile is the TOML layout read by LoadLines:
//
//	[lines]
//	greeting = ["Hey {{.Name}}!"]
//	headwear = ["Nice hat, {{.Name}}."]
type linesFile struct {
	Lines map[string][]string `toml:"lines"`
}

// LoadLines reads custom lines from a TOML file. Unknown traits are an
// error. An empty path returns nil.
func LoadLines(path string) (map[Trait][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("comments: read lines: %w", err)
	}

	var f linesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("comments: parse lines: %w", err)
	}

	out := make(map[Trait][]string, len(f.Lines))
	for name, lines := range f.Lines {
		trait := Trait(name)
		if _, ok := DefaultLines[trait]; !ok {
			return nil, fmt.Errorf("comments: unknown trait %q", name)
		}
		out[trait] = lines
	}
	return out, nil
}
