package prompt

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Manager holds the built-in templates plus any found in its directory.
// Files may be yaml or json; new templates are written as yaml.
type Manager struct {
	dir       string
	templates map[string]*Template
	rand      *rand.Rand
	log       zerolog.Logger
}

func NewManager(dir string, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		dir:       dir,
		templates: make(map[string]*Template),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       log,
	}
	for _, t := range defaultTemplates() {
		m.templates[t.Name] = t
	}
	if err := m.loadDir(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadDir() error {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read templates dir: %w", err)
	}

	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		t, err := loadTemplateFile(path)
		if err != nil {
			m.log.Warn().Str("path", path).Err(err).Msg("skipping template file")
			continue
		}
		m.templates[t.Name] = t
	}
	return nil
}

func loadTemplateFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := &Template{}
	// JSON documents are valid YAML, so one decoder covers both formats.
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadVariations reads a yaml or json mapping of placeholder name to values.
func LoadVariations(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var variations map[string][]string
	if err := yaml.Unmarshal(data, &variations); err != nil {
		return nil, fmt.Errorf("failed to parse variations %s: %w", path, err)
	}
	return variations, nil
}

func (m *Manager) Get(name string) (*Template, error) {
	t, ok := m.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	return t, nil
}

func (m *Manager) List() []string {
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create validates and stores a template, replacing any of the same name.
func (m *Manager) Create(name, template string, variations map[string][]string) (*Template, error) {
	t := &Template{Name: name, Template: template, Variations: variations}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := m.save(t); err != nil {
		return nil, err
	}
	m.templates[name] = t
	return t, nil
}

func (m *Manager) save(t *Template) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create templates dir: %w", err)
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.dir, t.Name+".yaml"), data, 0644)
}

func (m *Manager) Generate(name string) (string, error) {
	t, err := m.Get(name)
	if err != nil {
		return "", err
	}
	return t.Generate(m.rand), nil
}

func (m *Manager) Variations(name string, count int) ([]string, error) {
	t, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		prompts = append(prompts, t.Generate(m.rand))
	}
	return prompts, nil
}
