// Package analyze records what a site's sign-in surface looks like so locator
// sets can be written or repaired without guessing.
package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"songsmith/internal/automation"
	"songsmith/internal/browser"
	"songsmith/internal/config"
)

// Attributes captured for every element.
var captureAttrs = []string{"id", "class", "name", "type", "href", "aria-label", "placeholder", "role", "data-testid"}

// Generic locators recorded alongside the site's own, so a broken profile
// still yields candidates.
var genericGroups = map[string][]string{
	"buttons": {"button", "[role='button']"},
	"links":   {"a[href]"},
	"inputs":  {"input", "textarea"},
}

const maxPerGroup = 40

type Element struct {
	Locator    string            `yaml:"locator"`
	Tag        string            `yaml:"tag"`
	Visible    bool              `yaml:"visible"`
	Text       string            `yaml:"text,omitempty"`
	X          float64           `yaml:"x"`
	Y          float64           `yaml:"y"`
	Width      float64           `yaml:"width"`
	Height     float64           `yaml:"height"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	HTML       string            `yaml:"html,omitempty"`
}

type Snapshot struct {
	URL      string               `yaml:"url"`
	Title    string               `yaml:"title,omitempty"`
	Stats    PageStats            `yaml:"stats"`
	Elements map[string][]Element `yaml:"elements"`
}

type Report struct {
	Site       string    `yaml:"site"`
	AnalyzedAt time.Time `yaml:"analyzed_at"`
	Page       Snapshot  `yaml:"page"`
	// Modal is the page after the sign-in affordance was clicked, if it was.
	Modal       *Snapshot `yaml:"modal,omitempty"`
	Suggestions []string  `yaml:"suggestions,omitempty"`
}

type Analyzer struct {
	engine *automation.Engine
	site   *config.Site
	cfg    *config.Config
	log    zerolog.Logger
}

func New(engine *automation.Engine, site *config.Site, cfg *config.Config, log zerolog.Logger) *Analyzer {
	return &Analyzer{engine: engine, site: site, cfg: cfg, log: log}
}

// Run loads the homepage in session, records candidate elements, clicks the
// sign-in affordance and records the resulting dialog.
func (a *Analyzer) Run(ctx context.Context, session browser.Session) (*Report, error) {
	page := session.Page()
	if err := page.Navigate(ctx, a.site.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", a.site.BaseURL, err)
	}
	if !a.engine.WaitReady(ctx, page, a.cfg.PageLoadTimeout) {
		a.log.Warn().Msg("page not fully loaded, analyzing anyway")
	}
	if err := automation.Sleep(ctx, a.cfg.Login.StepPause); err != nil {
		return nil, err
	}

	report := &Report{Site: a.site.Name, AnalyzedAt: time.Now().UTC()}
	report.Page = a.snapshot(page, map[string][]string{
		"sign_in":  a.site.SignIn,
		"email":    a.site.EmailInput,
		"continue": a.site.Continue,
	}, false)

	if a.engine.Click(ctx, page, a.site.SignIn, "sign in button", a.cfg.ElementTimeout) {
		if err := automation.Sleep(ctx, a.cfg.Login.StepPause); err != nil {
			return nil, err
		}
		modal := a.snapshot(page, map[string][]string{
			"email":        a.site.EmailInput,
			"continue":     a.site.Continue,
			"password":     a.site.PasswordInput,
			"oauth_button": a.site.OAuthButton,
		}, true)
		report.Modal = &modal
	} else {
		a.log.Warn().Msg("sign in button not found, skipping modal analysis")
	}

	report.Suggestions = Suggest(report)
	a.logSummary(report)
	return report, nil
}

func (a *Analyzer) snapshot(page browser.Page, groups map[string][]string, visibleOnly bool) Snapshot {
	snap := Snapshot{Elements: make(map[string][]Element)}
	snap.URL, _ = page.URL()
	snap.Title, _ = page.Title()

	if content, err := page.HTML(); err == nil {
		if stats, err := Stats(content); err == nil {
			snap.Stats = stats
		} else {
			a.log.Debug().Err(err).Msg("failed to summarize page")
		}
	}

	record := func(group string, locators []string) {
		for _, raw := range locators {
			loc, err := browser.ParseLocator(raw)
			if err != nil {
				a.log.Warn().Str("locator", raw).Err(err).Msg("skipping invalid locator")
				continue
			}
			els, err := page.Find(loc)
			if err != nil {
				continue
			}
			for _, el := range els {
				if len(snap.Elements[group]) >= maxPerGroup {
					return
				}
				info, ok := describe(el, raw)
				if !ok || (visibleOnly && !info.Visible) {
					continue
				}
				snap.Elements[group] = append(snap.Elements[group], info)
			}
		}
	}

	for group, locators := range groups {
		record(group, locators)
	}
	for group, locators := range genericGroups {
		record(group, locators)
	}
	return snap
}

func describe(el browser.Element, locator string) (Element, bool) {
	info, err := el.Describe()
	if err != nil {
		return Element{}, false
	}
	visible, _ := el.Visible()
	out := Element{
		Locator: locator,
		Tag:     info.Tag,
		Visible: visible,
		Text:    truncate(info.Text, 120),
		X:       info.Box.X,
		Y:       info.Box.Y,
		Width:   info.Box.Width,
		Height:  info.Box.Height,
	}
	for _, name := range captureAttrs {
		if v, ok, err := el.Attribute(name); err == nil && ok {
			if out.Attributes == nil {
				out.Attributes = make(map[string]string)
			}
			out.Attributes[name] = v
		}
	}
	if outer, err := el.HTML(); err == nil {
		out.HTML = OpeningTag(outer)
	}
	return out, true
}

func (a *Analyzer) logSummary(r *Report) {
	for group, els := range r.Page.Elements {
		visible := 0
		for _, e := range els {
			if e.Visible {
				visible++
			}
		}
		a.log.Info().Str("group", group).Int("count", len(els)).Int("visible", visible).Msg("elements")
	}
	if r.Modal != nil {
		for group, els := range r.Modal.Elements {
			a.log.Info().Str("group", "modal."+group).Int("count", len(els)).Msg("elements")
		}
	}
	for _, s := range r.Suggestions {
		a.log.Info().Str("locator", s).Msg("suggested sign in locator")
	}
}

// ReportPath is where the report for site is written inside dir.
func ReportPath(dir, site string) string {
	return filepath.Join(dir, site+"_site_analysis.yaml")
}

// Save writes r as yaml into dir and returns the file path.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", err
	}
	path := ReportPath(dir, r.Site)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// LoadReport reads a report written by Save.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
