// Package auth drives the multi-step sign-in of a music service: homepage,
// sign-in affordance, email first factor, then password, emailed magic link
// or identity provider popup, and finally verification of the signed-in state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"songsmith/internal/automation"
	"songsmith/internal/browser"
	"songsmith/internal/config"
	"songsmith/internal/mail"
)

// Deps collects what a Machine needs to sign in to one site.
type Deps struct {
	Config      *config.Config
	Site        *config.Site
	Credentials config.Credentials
	Factory     browser.Factory
	Options     browser.Options
	Engine      *automation.Engine
	// Mail is required for sites that sign in with an emailed link.
	Mail   mail.Reader
	Logger zerolog.Logger
	// ScreenshotPrefix names diagnostic captures, usually the run ID.
	ScreenshotPrefix string
}

// Machine drives the login stages and rebuilds the browser session after each failed attempt.
type Machine struct {
	cfg     *config.Config
	site    *config.Site
	creds   config.Credentials
	factory browser.Factory
	opts    browser.Options
	engine  *automation.Engine
	mail    mail.Reader
	oauth   *OAuthHandler
	log     zerolog.Logger
	prefix  string

	state State
	trace []State
}

// NewMachine checks that the credentials and mail reader suit the site login method.
func NewMachine(d Deps) (*Machine, error) {
	if d.Credentials.Email == "" {
		return nil, config.ErrMissingCredentials
	}
	switch d.Site.LoginMethod {
	case config.LoginPassword, config.LoginOAuth:
		if !d.Credentials.HasPassword() {
			return nil, fmt.Errorf("%w: %s sign-in needs GOOGLE_PASSWORD", config.ErrMissingCredentials, d.Site.LoginMethod)
		}
	case config.LoginMagicLink:
		if d.Mail == nil {
			return nil, errors.New("magic link sign-in needs an inbox reader")
		}
	}

	m := &Machine{
		cfg:     d.Config,
		site:    d.Site,
		creds:   d.Credentials,
		factory: d.Factory,
		opts:    d.Options,
		engine:  d.Engine,
		mail:    d.Mail,
		log:     d.Logger,
		prefix:  d.ScreenshotPrefix,
	}
	m.oauth = NewOAuthHandler(d.Engine, d.Site, d.Credentials, d.Config, d.Logger)
	return m, nil
}

func (m *Machine) State() State { return m.state }

// Trace returns every state entered so far, across attempts.
func (m *Machine) Trace() []State { return append([]State(nil), m.trace...) }

func (m *Machine) enter(s State) {
	m.state = s
	m.trace = append(m.trace, s)
	m.log.Debug().Str("state", s.String()).Msg("login state")
}

// Login runs up to login.max_retries attempts, each in a freshly constructed
// session. On success the caller owns the returned session and must close it.
func (m *Machine) Login(ctx context.Context) (browser.Session, error) {
	maxAttempts := m.cfg.Login.MaxRetries
	var last Outcome

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logger := m.log.With().Int("attempt", attempt).Int("max", maxAttempts).Logger()
		logger.Info().Msg("starting login attempt")

		session, err := m.factory(ctx, m.opts)
		if err != nil {
			last = Retryable("failed to start browser", err)
		} else {
			last = m.attempt(ctx, session)
			if last.OK() {
				m.enter(StateAuthenticated)
				logger.Info().Msg("login successful")
				return session, nil
			}
			m.snapshot(session, fmt.Sprintf("login_failure_%d", attempt))
			if err := session.Close(); err != nil {
				logger.Warn().Err(err).Msg("error while closing browser, ignoring")
			}
		}

		m.enter(StateFailed)
		logger.Error().Str("outcome", last.String()).Msg("login attempt failed")

		if last.Kind == KindFatal {
			return nil, &LoginError{Attempts: attempt, Last: last}
		}
		if attempt < maxAttempts {
			if err := automation.Sleep(ctx, m.cfg.Login.RetryDelay); err != nil {
				return nil, &LoginError{Attempts: attempt, Last: Fatal("cancelled", err)}
			}
		}
	}

	return nil, &LoginError{Attempts: maxAttempts, Last: last}
}

func (m *Machine) attempt(ctx context.Context, session browser.Session) Outcome {
	m.enter(StateStart)

	if out := m.loadHomepage(ctx, session.Page()); !out.OK() {
		return out
	}
	m.enter(StateHomepageLoaded)

	if out := m.triggerSignIn(ctx, session.Page()); !out.OK() {
		return out
	}
	m.enter(StateSignInTriggered)

	var out Outcome
	if m.site.LoginMethod == config.LoginOAuth {
		m.enter(StateSecondFactorPending)
		out = m.oauth.Run(ctx, session, m.site.OAuthButton)
		if !out.OK() {
			m.snapshot(session, "oauth_failure")
		}
	} else {
		out = m.emailFirst(ctx, session.Page())
	}
	if !out.OK() {
		return out
	}

	m.enter(StateAuthenticatedCheck)
	return m.verify(ctx, session)
}

func (m *Machine) loadHomepage(ctx context.Context, page browser.Page) Outcome {
	if err := page.Navigate(ctx, m.site.BaseURL); err != nil {
		return m.stageErr("failed to load homepage", err)
	}
	if !m.engine.WaitReady(ctx, page, m.cfg.PageLoadTimeout) {
		return Retryable("page load timeout", automation.ErrTimeout)
	}
	return m.pause(ctx)
}

func (m *Machine) triggerSignIn(ctx context.Context, page browser.Page) Outcome {
	if !m.engine.Click(ctx, page, m.site.SignIn, "sign in button", m.cfg.ElementTimeout) {
		return Retryable("could not find or click sign in button", &automation.LocatorError{Name: "sign in button"})
	}
	return m.pause(ctx)
}

// emailFirst submits the email and then completes whichever second step the
// page offers: a password field if one appears, otherwise the emailed link.
func (m *Machine) emailFirst(ctx context.Context, page browser.Page) Outcome {
	el, err := m.engine.FindVisible(ctx, page, m.site.EmailInput, "email input", m.cfg.ElementTimeout)
	if err != nil {
		return m.stageErr("could not find email input", err)
	}
	if err := automation.Fill(el, m.creds.Email); err != nil {
		return m.stageErr("could not enter email", err)
	}
	if out := m.submit(ctx, page, el, m.site.Continue, "continue button"); !out.OK() {
		return out
	}
	m.enter(StateFirstFactorSubmitted)

	if m.creds.HasPassword() && len(m.site.PasswordInput) > 0 {
		pw, err := m.engine.FindVisible(ctx, page, m.site.PasswordInput, "password input", m.cfg.Login.PasswordFieldWait)
		if err == nil {
			return m.passwordFactor(ctx, page, pw)
		}
		if m.site.LoginMethod == config.LoginPassword {
			return m.stageErr("password field did not appear", err)
		}
		m.log.Debug().Msg("no password field, expecting sign-in email")
	}

	if m.mail == nil || m.site.MagicLinkSubject == "" {
		return Retryable("no second factor available after email", nil)
	}
	m.enter(StateSecondFactorPending)
	return m.magicLink(ctx, page)
}

func (m *Machine) passwordFactor(ctx context.Context, page browser.Page, el browser.Element) Outcome {
	if err := automation.Fill(el, m.creds.Password); err != nil {
		return m.stageErr("could not enter password", err)
	}
	return m.submit(ctx, page, el, m.site.PasswordSubmit, "password submit button")
}

// submit clicks the affordance, falling back to pressing Enter in the field.
func (m *Machine) submit(ctx context.Context, page browser.Page, field browser.Element, locators []string, name string) Outcome {
	if len(locators) > 0 && m.engine.Click(ctx, page, locators, name, m.cfg.ElementTimeout) {
		return m.pause(ctx)
	}
	m.log.Warn().Str("name", name).Msg("falling back to Enter key")
	if err := field.Submit(); err != nil {
		return Retryable(fmt.Sprintf("could not submit via %s", name), err)
	}
	return m.pause(ctx)
}

func (m *Machine) magicLink(ctx context.Context, page browser.Page) Outcome {
	retries := m.cfg.Email.Retries
	var lastErr error

	for i := 1; i <= retries; i++ {
		if err := automation.Sleep(ctx, m.cfg.Email.RetryDelay); err != nil {
			return Fatal("cancelled", err)
		}

		link, err := m.mail.FetchLatestMatching(ctx, m.site.MagicLinkSubject, m.cfg.Email.Freshness)
		if err == nil {
			m.log.Info().Msg("following sign-in link")
			if err := page.Navigate(ctx, link); err != nil {
				return m.stageErr("failed to open sign-in link", err)
			}
			m.engine.WaitReady(ctx, page, m.cfg.PageLoadTimeout)
			return Success()
		}
		if !mail.IsRetryable(err) {
			return Fatal("inbox unavailable", err)
		}

		lastErr = err
		m.log.Info().Err(err).Int("try", i).Int("max", retries).Msg("sign-in email not ready")
		if i < retries {
			// Ask the service to send the email again.
			m.engine.Click(ctx, page, m.site.Continue, "continue button", m.cfg.ElementTimeout)
		}
	}
	return Retryable("sign-in email never arrived", lastErr)
}

func (m *Machine) verify(ctx context.Context, session browser.Session) Outcome {
	var current string
	err := automation.Poll(ctx, m.cfg.Login.VerifyInterval, m.cfg.Login.VerifyTimeout, func() bool {
		page := session.Page()
		if u, err := page.URL(); err == nil {
			current = u
			for _, p := range m.site.AuthenticatedPaths {
				if strings.Contains(u, p) {
					return true
				}
			}
		} else {
			m.log.Warn().Err(err).Msg("error checking url, retrying")
		}
		return m.engine.Present(page, m.site.AuthenticatedMarkers)
	})
	if err != nil {
		return m.stageErr("login verification failed", err)
	}
	m.log.Info().Str("url", current).Msg("login verified")
	return Success()
}

func (m *Machine) pause(ctx context.Context) Outcome {
	if err := automation.Sleep(ctx, m.cfg.Login.StepPause); err != nil {
		return Fatal("cancelled", err)
	}
	return Success()
}

// stageErr treats cancellation as fatal and everything else as retryable.
func (m *Machine) stageErr(reason string, err error) Outcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal(reason, err)
	}
	return Retryable(reason, err)
}

func (m *Machine) snapshot(session browser.Session, name string) {
	dir := m.cfg.LogsDir
	if dir == "" {
		return
	}
	if m.prefix != "" {
		name = m.prefix + "_" + name
	}
	path := filepath.Join(dir, name+".png")
	if err := session.Page().Screenshot(path); err != nil {
		m.log.Warn().Err(err).Msg("failed to save screenshot")
		return
	}
	m.log.Info().Str("path", path).Msg("screenshot saved")
}
