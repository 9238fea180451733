// Package studio drives the creation side of a music service once signed in:
// submitting a prompt, waiting for the result to render, pulling its share
// link and downloading the media in a plain session.
package studio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"

	"songsmith/internal/automation"
	"songsmith/internal/browser"
	"songsmith/internal/config"
	"songsmith/internal/prompt"
)

// Flow submits prompts on a signed-in page and recovers the share link of each result.
type Flow struct {
	engine  *automation.Engine
	site    *config.Site
	cfg     *config.Config
	log     zerolog.Logger
	pattern *regexp.Regexp

	// Prefix names diagnostic screenshots, usually the run ID.
	Prefix string
}

// New compiles the site share URL pattern and fails when the site lacks creation locators.
func New(engine *automation.Engine, site *config.Site, cfg *config.Config, log zerolog.Logger) (*Flow, error) {
	pattern, err := regexp.Compile(site.ShareURLPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid share url pattern for %s: %w", site.Name, err)
	}
	if site.PromptInput == "" || site.Reaction == "" {
		return nil, fmt.Errorf("site %s has no prompt input or reaction locator", site.Name)
	}
	return &Flow{engine: engine, site: site, cfg: cfg, log: log, pattern: pattern}, nil
}

// Create submits one prompt and returns the shareable reference of the result.
func (f *Flow) Create(ctx context.Context, page browser.Page, src prompt.Source) (string, error) {
	text, err := src.Next()
	if err != nil {
		return "", fmt.Errorf("failed to get prompt: %w", err)
	}

	baseline, err := f.Submit(ctx, page, text)
	if err != nil {
		return "", f.fail(page, "submit_failure", err)
	}
	if err := f.AwaitCompletion(ctx, page, baseline); err != nil {
		return "", f.fail(page, "generation_failure", err)
	}
	ref, err := f.ExtractReference(ctx, page)
	if err != nil {
		return "", f.fail(page, "share_failure", err)
	}
	return ref, nil
}

// Submit types text into the prompt input and clicks create, retrying the
// pair up to creation.submit_retries times. It returns the reaction count
// seen before submission.
func (f *Flow) Submit(ctx context.Context, page browser.Page, text string) (int, error) {
	baseline := f.engine.Count(page, f.site.Reaction)
	f.log.Info().Int("count", baseline).Msg("reaction baseline")

	var lastErr error
	for try := 1; try <= f.cfg.Creation.SubmitRetries; try++ {
		lastErr = f.submitOnce(ctx, page, text)
		if lastErr == nil {
			f.log.Info().Str("prompt", text).Msg("prompt submitted")
			return baseline, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		f.log.Warn().Err(lastErr).Int("attempt", try).Msg("prompt submission failed")
	}
	return 0, lastErr
}

func (f *Flow) submitOnce(ctx context.Context, page browser.Page, text string) error {
	el, err := f.engine.FindVisible(ctx, page, []string{f.site.PromptInput}, "prompt input", f.cfg.Creation.PromptInputWait)
	if err != nil {
		return err
	}
	if err := automation.Fill(el, text); err != nil {
		return err
	}
	if !f.engine.Click(ctx, page, f.site.Create, "create button", f.cfg.ElementTimeout) {
		return &automation.LocatorError{Name: "create button"}
	}
	return nil
}

// AwaitCompletion waits until more reaction controls are on the page than
// baseline, which is when a new result has rendered.
func (f *Flow) AwaitCompletion(ctx context.Context, page browser.Page, baseline int) error {
	var count int
	err := automation.Poll(ctx, f.cfg.Creation.PollInterval, f.cfg.Creation.Timeout, func() bool {
		count = f.engine.Count(page, f.site.Reaction)
		f.log.Debug().Int("count", count).Int("baseline", baseline).Msg("waiting for generation")
		return count > baseline
	})
	if errors.Is(err, automation.ErrTimeout) {
		return fmt.Errorf("%w after %s", ErrGenerationTimeout, f.cfg.Creation.Timeout)
	}
	if err != nil {
		return err
	}
	f.log.Info().Int("count", count).Msg("generation finished")
	return nil
}

// ExtractReference opens the share dialog of the newest result and reads its
// URL, retrying up to creation.share_retries times.
func (f *Flow) ExtractReference(ctx context.Context, page browser.Page) (string, error) {
	var lastErr error
	for try := 1; try <= f.cfg.Creation.ShareRetries; try++ {
		ref, err := f.extractOnce(ctx, page)
		if err == nil {
			f.log.Info().Str("url", ref).Msg("shareable reference found")
			return ref, nil
		}
		if errors.Is(err, ErrAmbiguousReference) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
		f.log.Warn().Err(err).Int("attempt", try).Msg("share extraction failed")
	}
	return "", lastErr
}

func (f *Flow) extractOnce(ctx context.Context, page browser.Page) (string, error) {
	if !f.engine.Click(ctx, page, f.site.Options, "options menu", f.cfg.ElementTimeout) {
		return "", &automation.LocatorError{Name: "options menu"}
	}
	if !f.engine.Click(ctx, page, f.site.Share, "share menu item", f.cfg.ElementTimeout) {
		return "", &automation.LocatorError{Name: "share menu item"}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read share dialog: %w", err)
	}
	refs, err := ScrapeReferences(html, f.pattern)
	if err != nil {
		return "", err
	}
	return f.choose(refs)
}

func (f *Flow) choose(refs []string) (string, error) {
	switch {
	case len(refs) == 0:
		return "", ErrReferenceNotFound
	case len(refs) == 1:
		return refs[0], nil
	case f.cfg.Creation.ReferencePolicy == config.ReferenceStrict:
		return "", fmt.Errorf("%w: %v", ErrAmbiguousReference, refs)
	}
	f.log.Warn().Strs("candidates", refs).Msg("several share links found, using the first")
	return refs[0], nil
}

func (f *Flow) fail(page browser.Page, name string, err error) error {
	if f.cfg.LogsDir != "" {
		if f.Prefix != "" {
			name = f.Prefix + "_" + name
		}
		path := filepath.Join(f.cfg.LogsDir, name+".png")
		if serr := page.Screenshot(path); serr != nil {
			f.log.Warn().Err(serr).Msg("failed to save screenshot")
		} else {
			f.log.Info().Str("path", path).Msg("screenshot saved")
		}
	}
	return err
}
