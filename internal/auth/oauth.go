package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"songsmith/internal/automation"
	"songsmith/internal/browser"
	"songsmith/internal/config"
)

// OAuthHandler completes sign-in inside an identity provider popup window.
type OAuthHandler struct {
	engine *automation.Engine
	log    zerolog.Logger

	domains        []string
	emailInput     []string
	passwordInput  []string
	creds          config.Credentials
	cfg            config.OAuthConfig
	elementTimeout time.Duration
	pollInterval   time.Duration
	stepPause      time.Duration
}

func NewOAuthHandler(engine *automation.Engine, site *config.Site, creds config.Credentials, cfg *config.Config, log zerolog.Logger) *OAuthHandler {
	return &OAuthHandler{
		engine:         engine,
		log:            log,
		domains:        site.OAuthDomains,
		emailInput:     site.OAuthEmailInput,
		passwordInput:  site.OAuthPasswordInput,
		creds:          creds,
		cfg:            cfg.OAuth,
		elementTimeout: cfg.ElementTimeout,
		pollInterval:   cfg.Click.RetryInterval,
		stepPause:      cfg.Login.StepPause,
	}
}

// Run clicks trigger, waits for a provider window to open, signs in there and
// waits for the popup to close before switching back to the original window.
func (h *OAuthHandler) Run(ctx context.Context, session browser.Session, trigger []string) Outcome {
	mainHandle := session.Handle()
	before, err := session.Windows()
	if err != nil {
		return Retryable("failed to list windows", err)
	}
	known := make(map[string]bool, len(before))
	for _, w := range before {
		known[w.Handle] = true
	}

	if !h.engine.Click(ctx, session.Page(), trigger, "identity provider button", h.elementTimeout) {
		return Retryable("could not click identity provider button", &automation.LocatorError{Name: "identity provider button"})
	}

	popup, out := h.awaitWindow(ctx, session, known, trigger)
	if !out.OK() {
		return out
	}

	out = h.signIn(ctx, session, popup)
	if !out.OK() {
		h.switchBack(session, mainHandle)
		return out
	}

	err = automation.Poll(ctx, h.pollInterval, h.cfg.CompletionTimeout, func() bool {
		windows, err := session.Windows()
		return err == nil && len(windows) == 1
	})
	if err != nil {
		h.switchBack(session, mainHandle)
		return Retryable("identity provider window did not close", err)
	}

	if _, err := session.SwitchTo(mainHandle); err != nil {
		return Retryable("failed to switch back to main window", err)
	}
	h.log.Info().Msg("identity provider sign-in complete")
	return Success()
}

func (h *OAuthHandler) awaitWindow(ctx context.Context, session browser.Session, known map[string]bool, trigger []string) (string, Outcome) {
	for try := 1; try <= h.cfg.WindowRetries; try++ {
		var found string
		err := automation.Poll(ctx, h.pollInterval, h.cfg.WindowWait, func() bool {
			windows, err := session.Windows()
			if err != nil {
				return false
			}
			for _, w := range windows {
				if !known[w.Handle] && h.isProvider(w.URL) {
					found = w.Handle
					return true
				}
			}
			return false
		})
		if err == nil {
			h.log.Info().Str("window", found).Int("attempt", try).Msg("found identity provider window")
			return found, Success()
		}
		if ctx.Err() != nil {
			return "", Fatal("cancelled", ctx.Err())
		}

		h.log.Info().Int("attempt", try).Msg("waiting for identity provider window")
		if try < h.cfg.WindowRetries {
			h.engine.Click(ctx, session.Page(), trigger, "identity provider button", h.elementTimeout)
		}
	}
	return "", Retryable("identity provider window not found", automation.ErrTimeout)
}

func (h *OAuthHandler) signIn(ctx context.Context, session browser.Session, handle string) Outcome {
	page, err := session.SwitchTo(handle)
	if err != nil {
		return Retryable("failed to switch to identity provider window", err)
	}

	steps := []struct {
		name     string
		locators []string
		value    string
	}{
		{"provider email input", h.emailInput, h.creds.Email},
		{"provider password input", h.passwordInput, h.creds.Password},
	}

	for _, step := range steps {
		el, err := h.engine.FindVisible(ctx, page, step.locators, step.name, h.elementTimeout)
		if err != nil {
			return Retryable(fmt.Sprintf("could not find %s", step.name), err)
		}
		if err := automation.Fill(el, step.value); err != nil {
			return Retryable(fmt.Sprintf("could not fill %s", step.name), err)
		}
		if err := el.Submit(); err != nil {
			return Retryable(fmt.Sprintf("could not submit %s", step.name), err)
		}
		h.log.Info().Str("name", step.name).Msg("entered")
		if err := automation.Sleep(ctx, h.stepPause); err != nil {
			return Fatal("cancelled", err)
		}
	}
	return Success()
}

func (h *OAuthHandler) isProvider(url string) bool {
	for _, d := range h.domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}

func (h *OAuthHandler) switchBack(session browser.Session, handle string) {
	if _, err := session.SwitchTo(handle); err != nil {
		h.log.Debug().Err(err).Msg("failed to switch back to main window")
	}
}
