// Package automation holds the resilient element locator and click engine
// and the page readiness waiter shared by the login and creation flows.
package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"songsmith/internal/browser"
	"songsmith/internal/config"
)

// LocatorError reports that no candidate locator produced a usable element.
type LocatorError struct {
	Name string
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("could not find or click %s", e.Name)
}

type clickStrategy struct {
	name string
	fn   func(browser.Element) error
}

var clickStrategies = []clickStrategy{
	{"mouse", browser.Element.MouseClick},
	{"script", browser.Element.ScriptClick},
	{"native", browser.Element.NativeClick},
}

// Engine finds and clicks elements by trying ordered locators until one works.
type Engine struct {
	log zerolog.Logger

	settle        time.Duration
	retryInterval time.Duration
	readyPoll     time.Duration
	readySettle   time.Duration
}

// New builds an Engine using the click and readiness intervals from cfg.
func New(log zerolog.Logger, cfg config.ClickConfig) *Engine {
	return &Engine{
		log:           log,
		settle:        cfg.Settle,
		retryInterval: cfg.RetryInterval,
		readyPoll:     cfg.ReadyPoll,
		readySettle:   cfg.ReadySettle,
	}
}

// Click tries each locator in order until one yields a visible element that
// accepts a click, repeating whole passes until timeout. It never fails the
// caller: the result only says whether a click landed.
func (e *Engine) Click(ctx context.Context, page browser.Page, locators []string, name string, timeout time.Duration) bool {
	locs := e.parse(locators, name)
	if len(locs) == 0 {
		e.log.Error().Str("name", name).Msg("no usable locators")
		return false
	}

	deadline := time.Now().Add(timeout)
	for pass := 1; ; pass++ {
		for _, loc := range locs {
			el := e.firstVisible(page, loc)
			if el == nil {
				continue
			}
			if e.clickElement(ctx, el, loc, name) {
				e.log.Info().Str("name", name).Str("locator", loc.Raw).Int("pass", pass).Msg("clicked")
				return true
			}
		}

		if !time.Now().Before(deadline) {
			e.log.Warn().Str("name", name).Int("passes", pass).Dur("timeout", timeout).Msg("click failed")
			return false
		}
		if err := Sleep(ctx, e.retryInterval); err != nil {
			e.log.Warn().Str("name", name).Err(err).Msg("click cancelled")
			return false
		}
	}
}

func (e *Engine) clickElement(ctx context.Context, el browser.Element, loc browser.Locator, name string) bool {
	if err := el.ScrollIntoView(); err != nil {
		e.log.Debug().Str("name", name).Err(err).Msg("scroll into view failed")
	}
	if err := Sleep(ctx, e.settle); err != nil {
		return false
	}

	var failures []string
	for _, s := range clickStrategies {
		err := s.fn(el)
		if err == nil {
			e.log.Debug().Str("name", name).Str("strategy", s.name).Msg("click strategy succeeded")
			return true
		}
		failures = append(failures, s.name+": "+err.Error())
	}

	ev := e.log.Warn().Str("name", name).Str("locator", loc.Raw).Str("errors", strings.Join(failures, "; "))
	if info, err := el.Describe(); err == nil {
		ev = ev.Str("tag", info.Tag).
			Str("text", truncate(info.Text, 80)).
			Float64("x", info.Box.X).
			Float64("y", info.Box.Y).
			Float64("w", info.Box.Width).
			Float64("h", info.Box.Height)
	}
	ev.Msg("element found but every click strategy failed")
	return false
}

// FindVisible polls the locators until one resolves to a visible element.
func (e *Engine) FindVisible(ctx context.Context, page browser.Page, locators []string, name string, timeout time.Duration) (browser.Element, error) {
	locs := e.parse(locators, name)
	if len(locs) == 0 {
		return nil, &LocatorError{Name: name}
	}

	var found browser.Element
	err := Poll(ctx, e.retryInterval, timeout, func() bool {
		for _, loc := range locs {
			if el := e.firstVisible(page, loc); el != nil {
				e.log.Debug().Str("name", name).Str("locator", loc.Raw).Msg("element found")
				found = el
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", &LocatorError{Name: name}, err)
	}
	return found, nil
}

// Count returns the number of elements a single locator currently matches.
func (e *Engine) Count(page browser.Page, locator string) int {
	loc, err := browser.ParseLocator(locator)
	if err != nil {
		return 0
	}
	els, err := page.Find(loc)
	if err != nil {
		return 0
	}
	return len(els)
}

// Present reports whether any locator matches a visible element right now.
func (e *Engine) Present(page browser.Page, locators []string) bool {
	locs, _ := browser.ParseLocators(locators)
	for _, loc := range locs {
		if e.firstVisible(page, loc) != nil {
			return true
		}
	}
	return false
}

// Fill clears el and types text into it.
func Fill(el browser.Element, text string) error {
	if err := el.Clear(); err != nil {
		return fmt.Errorf("failed to clear input: %w", err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("failed to type into input: %w", err)
	}
	return nil
}

func (e *Engine) firstVisible(page browser.Page, loc browser.Locator) browser.Element {
	els, err := page.Find(loc)
	if err != nil {
		e.log.Debug().Str("locator", loc.Raw).Err(err).Msg("find failed")
		return nil
	}
	for _, el := range els {
		if ok, err := el.Visible(); err == nil && ok {
			return el
		}
	}
	return nil
}

func (e *Engine) parse(locators []string, name string) []browser.Locator {
	locs, errs := browser.ParseLocators(locators)
	for _, err := range errs {
		e.log.Warn().Str("name", name).Err(err).Msg("skipping invalid locator")
	}
	return locs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
