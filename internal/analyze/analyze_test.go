package analyze

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"songsmith/internal/automation"
	"songsmith/internal/browser"
	"songsmith/internal/browser/browsertest"
	"songsmith/internal/config"
)

func testAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.PageLoadTimeout = 20 * time.Millisecond
	cfg.ElementTimeout = 20 * time.Millisecond
	cfg.Login.StepPause = 0
	cfg.Click = config.ClickConfig{RetryInterval: 2 * time.Millisecond, ReadyPoll: time.Millisecond}
	site := &config.Site{
		Name:       "example",
		BaseURL:    "https://service.example",
		SignIn:     []string{"#signin"},
		EmailInput: []string{"input[type='email']"},
		Continue:   []string{"#continue"},
	}
	return New(automation.New(zerolog.Nop(), cfg.Click), site, cfg, zerolog.Nop())
}

func homepage() *browsertest.FakePage {
	page := browsertest.NewFakePage("about:blank")
	page.TitleValue = "Service"
	page.Content = `<html><body><form><input type="email"><button>Continue</button></form><a href="/login">Log in</a></body></html>`

	signIn := &browsertest.FakeElement{
		Tag:       "button",
		TextValue: "Sign in",
		HTMLValue: `<button id="signin" class="bg-primary">Sign in</button>`,
		Box:       browser.Rect{X: 10, Y: 20, Width: 80, Height: 30},
		Attrs:     map[string]string{"id": "signin", "class": "bg-primary"},
	}
	email := &browsertest.FakeElement{Tag: "input", Hidden: true, Attrs: map[string]string{"type": "email"}}
	login := &browsertest.FakeElement{Tag: "a", TextValue: "Log in", Attrs: map[string]string{"href": "/login"}}
	signIn.OnClick = func() { email.Hidden = false }

	page.Set("#signin", signIn)
	page.Set("button", signIn)
	page.Set("input[type='email']", email)
	page.Set("input", email)
	page.Set("a[href]", login)
	return page
}

func TestRunRecordsPageAndModal(t *testing.T) {
	a := testAnalyzer(t)
	page := homepage()

	r, err := a.Run(context.Background(), browsertest.NewFakeSession(page))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if r.Page.URL != "https://service.example" || r.Page.Title != "Service" {
		t.Errorf("Page = %s %q", r.Page.URL, r.Page.Title)
	}
	signIn := r.Page.Elements["sign_in"]
	if len(signIn) != 1 {
		t.Fatalf("Expected one sign in element, got %d", len(signIn))
	}
	if signIn[0].Attributes["class"] != "bg-primary" || signIn[0].X != 10 || signIn[0].HTML != `<button id="signin" class="bg-primary">` {
		t.Errorf("Sign in element = %+v", signIn[0])
	}
	if email := r.Page.Elements["email"]; len(email) != 1 || email[0].Visible {
		t.Errorf("Expected one hidden email input before sign in, got %+v", email)
	}
	if r.Page.Stats.Forms != 1 || r.Page.Stats.Links != 1 {
		t.Errorf("Stats = %+v", r.Page.Stats)
	}

	if r.Modal == nil {
		t.Fatal("Expected a modal snapshot")
	}
	if email := r.Modal.Elements["email"]; len(email) != 1 || !email[0].Visible {
		t.Errorf("Expected the email input visible in the modal, got %+v", email)
	}
	if len(r.Suggestions) == 0 {
		t.Error("Expected sign in suggestions")
	}
}

func TestRunWithoutSignIn(t *testing.T) {
	a := testAnalyzer(t)
	page := homepage()
	page.Set("#signin")

	r, err := a.Run(context.Background(), browsertest.NewFakeSession(page))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if r.Modal != nil {
		t.Error("No modal snapshot expected when sign in cannot be clicked")
	}
}

func TestReportSaveLoad(t *testing.T) {
	dir := t.TempDir()
	r := &Report{
		Site:       "example",
		AnalyzedAt: time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC),
		Page: Snapshot{
			URL:      "https://service.example",
			Elements: map[string][]Element{"sign_in": {{Locator: "#signin", Tag: "button", Visible: true}}},
		},
		Suggestions: []string{"//button[contains(text(), 'Sign in')]"},
	}

	path, err := r.Save(dir)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if path != filepath.Join(dir, "example_site_analysis.yaml") {
		t.Errorf("Save() path = %q", path)
	}

	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport() error: %v", err)
	}
	if loaded.Page.Elements["sign_in"][0].Locator != "#signin" || !loaded.AnalyzedAt.Equal(r.AnalyzedAt) {
		t.Errorf("Loaded report = %+v", loaded)
	}
}
