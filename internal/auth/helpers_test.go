package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"songsmith/internal/automation"
	"songsmith/internal/browser/browsertest"
	"songsmith/internal/config"
)

const baseURL = "https://service.example"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LogsDir = t.TempDir()
	cfg.PageLoadTimeout = 20 * time.Millisecond
	cfg.ElementTimeout = 20 * time.Millisecond
	cfg.Click = config.ClickConfig{RetryInterval: 2 * time.Millisecond, ReadyPoll: time.Millisecond}
	cfg.Login = config.LoginConfig{
		MaxRetries:        3,
		VerifyTimeout:     30 * time.Millisecond,
		VerifyInterval:    2 * time.Millisecond,
		PasswordFieldWait: 10 * time.Millisecond,
	}
	cfg.Email.Retries = 3
	cfg.Email.RetryDelay = 0
	cfg.OAuth = config.OAuthConfig{
		WindowRetries:     2,
		WindowWait:        15 * time.Millisecond,
		CompletionTimeout: 30 * time.Millisecond,
	}
	return cfg
}

func testSite(method string) *config.Site {
	return &config.Site{
		Name:                 "example",
		BaseURL:              baseURL,
		LoginMethod:          method,
		SignIn:               []string{"#signin"},
		EmailInput:           []string{"input[name='email']", "input[type='email']"},
		Continue:             []string{"#continue"},
		PasswordInput:        []string{"input[type='password']"},
		PasswordSubmit:       []string{"#password-submit"},
		OAuthButton:          []string{"#google"},
		OAuthDomains:         []string{"accounts.google.com"},
		OAuthEmailInput:      []string{"input[name='identifier']"},
		OAuthPasswordInput:   []string{"input[name='Passwd']"},
		MagicLinkSubject:     "Sign in to Service",
		AuthenticatedPaths:   []string{"/home", "/create"},
		AuthenticatedMarkers: []string{"#logout"},
	}
}

func testEngine(cfg *config.Config) *automation.Engine {
	return automation.New(zerolog.Nop(), cfg.Click)
}

// loginPage has the homepage affordances every email-first flow needs.
type loginPage struct {
	*browsertest.FakePage
	signIn   *browsertest.FakeElement
	email    *browsertest.FakeElement
	cont     *browsertest.FakeElement
	password *browsertest.FakeElement
	pwSubmit *browsertest.FakeElement
}

func newLoginPage() *loginPage {
	p := &loginPage{
		FakePage: browsertest.NewFakePage("about:blank"),
		signIn:   &browsertest.FakeElement{Tag: "button", TextValue: "Sign in"},
		email:    &browsertest.FakeElement{Tag: "input"},
		cont:     &browsertest.FakeElement{Tag: "button", TextValue: "Continue"},
	}
	p.Set("#signin", p.signIn)
	p.Set("input[type='email']", p.email)
	p.Set("#continue", p.cont)
	return p
}

func (p *loginPage) withPassword() *loginPage {
	p.password = &browsertest.FakeElement{Tag: "input"}
	p.pwSubmit = &browsertest.FakeElement{Tag: "button"}
	p.Set("input[type='password']", p.password)
	p.Set("#password-submit", p.pwSubmit)
	return p
}

type mailResult struct {
	link string
	err  error
}

type fakeMail struct {
	results []mailResult
	calls   int
}

func (f *fakeMail) FetchLatestMatching(ctx context.Context, subject string, maxAge time.Duration) (string, error) {
	r := f.results[len(f.results)-1]
	if f.calls < len(f.results) {
		r = f.results[f.calls]
	}
	f.calls++
	return r.link, r.err
}

func newMachine(t *testing.T, cfg *config.Config, site *config.Site, creds config.Credentials, factory *browsertest.Factory, reader *fakeMail) *Machine {
	t.Helper()
	deps := Deps{
		Config:      cfg,
		Site:        site,
		Credentials: creds,
		Factory:     factory.Launch,
		Engine:      testEngine(cfg),
		Logger:      zerolog.Nop(),
	}
	if reader != nil {
		deps.Mail = reader
	}
	m, err := NewMachine(deps)
	if err != nil {
		t.Fatalf("NewMachine() error: %v", err)
	}
	return m
}
