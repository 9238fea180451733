// Package prompt supplies prompt strings for the creation form.
package prompt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidTemplate  = errors.New("invalid template")
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Template fills {key} placeholders with a random pick from Variations[key].
type Template struct {
	Name       string              `yaml:"name"`
	Template   string              `yaml:"template"`
	Variations map[string][]string `yaml:"variations"`
}

func (t *Template) Generate(r *rand.Rand) string {
	out := t.Template
	for _, key := range t.keys() {
		values := t.Variations[key]
		if len(values) == 0 {
			continue
		}
		out = strings.ReplaceAll(out, "{"+key+"}", values[r.Intn(len(values))])
	}
	return out
}

// Placeholders lists the distinct placeholder names in template order.
func (t *Template) Placeholders() []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(t.Template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

func (t *Template) Validate() error {
	if t.Name == "" || strings.ContainsAny(t.Name, `/\`) || strings.HasPrefix(t.Name, ".") {
		return fmt.Errorf("%w: bad name %q", ErrInvalidTemplate, t.Name)
	}
	if strings.TrimSpace(t.Template) == "" {
		return fmt.Errorf("%w: %s has an empty template", ErrInvalidTemplate, t.Name)
	}
	var missing []string
	for _, key := range t.Placeholders() {
		if len(t.Variations[key]) == 0 {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s has no variations for %s", ErrInvalidTemplate, t.Name, strings.Join(missing, ", "))
	}
	return nil
}

// keys returns variation names sorted so generation is reproducible for a seeded rand.
func (t *Template) keys() []string {
	keys := make([]string, 0, len(t.Variations))
	for k := range t.Variations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func defaultTemplates() []*Template {
	return []*Template{
		{
			Name:     "crypto_meme",
			Template: "CRYPTO, {genre}, {mood}, {theme}, INTERNET, YOUTHFUL, 2024, {style}",
			Variations: map[string][]string{
				"genre": {"HYPERPOP", "TRAP", "ELECTRONIC", "GLITCH"},
				"mood":  {"ENERGETIC", "HYPE", "INTENSE", "PLAYFUL"},
				"theme": {"MEME", "VIRAL", "TRENDING", "CULTURE"},
				"style": {"DIGITAL", "FUTURISTIC", "AESTHETIC", "REMIX"},
			},
		},
		{
			Name:     "chill_lofi",
			Template: "{mood} LOFI, {instrument}, {theme}, {style}",
			Variations: map[string][]string{
				"mood":       {"RELAXING", "CHILL", "PEACEFUL", "AMBIENT"},
				"instrument": {"PIANO", "GUITAR", "SYNTH", "BEATS"},
				"theme":      {"STUDY", "FOCUS", "MEDITATION", "NATURE"},
				"style":      {"MINIMAL", "ATMOSPHERIC", "DREAMY", "SMOOTH"},
			},
		},
	}
}
