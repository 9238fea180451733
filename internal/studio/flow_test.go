package studio

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"songsmith/internal/automation"
	"songsmith/internal/browser/browsertest"
	"songsmith/internal/config"
	"songsmith/internal/prompt"
)

const songURL = "https://service.example/songs/abc-123"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LogsDir = t.TempDir()
	cfg.PageLoadTimeout = 20 * time.Millisecond
	cfg.ElementTimeout = 20 * time.Millisecond
	cfg.Click = config.ClickConfig{RetryInterval: 2 * time.Millisecond, ReadyPoll: time.Millisecond}
	cfg.Creation = config.CreationConfig{
		PromptInputWait: 10 * time.Millisecond,
		SubmitRetries:   3,
		Timeout:         40 * time.Millisecond,
		PollInterval:    2 * time.Millisecond,
		ShareRetries:    2,
		ReferencePolicy: config.ReferenceFirst,
	}
	cfg.Download = config.DownloadConfig{
		ConfirmTimeout: 20 * time.Millisecond,
		PollInterval:   2 * time.Millisecond,
		PollRounds:     5,
	}
	return cfg
}

func testSite() *config.Site {
	return &config.Site{
		Name:            "example",
		BaseURL:         "https://service.example",
		PromptInput:     "textarea",
		Create:          []string{"#create"},
		Reaction:        "button.like",
		Options:         []string{"button.more"},
		Share:           []string{"#share"},
		ShareURLPattern: `https://service\.example/songs/[A-Za-z0-9-]+`,
		DownloadMedia:   []string{"#download"},
		Generate:        []string{"#generate"},
		ConfirmDownload: []string{"#confirm"},
	}
}

func newFlow(t *testing.T, cfg *config.Config) *Flow {
	t.Helper()
	f, err := New(automation.New(zerolog.Nop(), cfg.Click), testSite(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return f
}

type studioPage struct {
	*browsertest.FakePage
	input  *browsertest.FakeElement
	create *browsertest.FakeElement
	share  *browsertest.FakeElement
}

// newStudioPage has two rendered results. Clicking create renders a third
// and clicking share shows dialog as the page content.
func newStudioPage(dialog string) *studioPage {
	p := &studioPage{
		FakePage: browsertest.NewFakePage("https://service.example/create"),
		input:    &browsertest.FakeElement{Tag: "textarea"},
		create:   &browsertest.FakeElement{Tag: "button", TextValue: "Create"},
		share:    &browsertest.FakeElement{Tag: "div", TextValue: "Share"},
	}
	p.Set("textarea", p.input)
	p.Set("#create", p.create)
	p.Set("button.like", &browsertest.FakeElement{}, &browsertest.FakeElement{})
	p.Set("button.more", &browsertest.FakeElement{Tag: "button"})
	p.Set("#share", p.share)
	p.create.OnClick = func() { p.Add("button.like", &browsertest.FakeElement{}) }
	p.share.OnClick = func() { p.Content = dialog }
	return p
}

func dialogHTML(body string) string {
	return `<html><head><script>var feed = "https://service.example/songs/zzz";</script></head>` +
		`<body><div role="dialog"><h2>Share</h2>` + body + `</div></body></html>`
}

// Reaction count goes from 2 to 3 and the share dialog holds one link.
func TestCreateReturnsShareLink(t *testing.T) {
	cfg := testConfig(t)
	page := newStudioPage(dialogHTML(`<span>` + songURL + `</span>`))
	f := newFlow(t, cfg)

	ref, err := f.Create(context.Background(), page, prompt.Literal("lofi beats about the moon"))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if ref != songURL {
		t.Errorf("Create() = %q, want %q", ref, songURL)
	}
	if page.input.Value != "lofi beats about the moon" {
		t.Errorf("Prompt input = %q", page.input.Value)
	}
	if len(page.create.Clicks) != 1 {
		t.Errorf("Expected create clicked once, got %d", len(page.create.Clicks))
	}
}

func TestCreateGenerationTimeout(t *testing.T) {
	cfg := testConfig(t)
	page := newStudioPage(dialogHTML(`<span>` + songURL + `</span>`))
	page.create.OnClick = nil
	f := newFlow(t, cfg)
	f.Prefix = "run1"

	_, err := f.Create(context.Background(), page, prompt.Literal("x"))

	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("Create() error = %v, want ErrGenerationTimeout", err)
	}
	if len(page.Screenshots) != 1 {
		t.Fatalf("Expected one screenshot, got %v", page.Screenshots)
	}
	if _, err := os.Stat(page.Screenshots[0]); err != nil {
		t.Errorf("Screenshot not written: %v", err)
	}
}

func TestCreatePromptSourceError(t *testing.T) {
	cfg := testConfig(t)
	page := newStudioPage("")
	f := newFlow(t, cfg)

	if _, err := f.Create(context.Background(), page, prompt.Literal("  ")); err == nil {
		t.Fatal("Create() should fail on an empty prompt")
	}
	if page.input.Value != "" || len(page.create.Clicks) != 0 {
		t.Error("Nothing should be submitted without a prompt")
	}
}

func TestSubmitRetriesThenFails(t *testing.T) {
	cfg := testConfig(t)
	page := newStudioPage("")
	page.Set("textarea")
	f := newFlow(t, cfg)

	_, err := f.Submit(context.Background(), page, "x")

	var locErr *automation.LocatorError
	if !errors.As(err, &locErr) || locErr.Name != "prompt input" {
		t.Fatalf("Submit() error = %v, want prompt input LocatorError", err)
	}
}

func TestSubmitWaitsForLateInput(t *testing.T) {
	cfg := testConfig(t)
	page := newStudioPage("")
	input := page.input
	page.Set("textarea")
	page.BeforeFind = func(calls int) {
		if calls == 3 {
			page.Set("textarea", input)
		}
	}
	f := newFlow(t, cfg)

	baseline, err := f.Submit(context.Background(), page, "x")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if baseline != 2 {
		t.Errorf("Expected baseline 2, got %d", baseline)
	}
	if input.Value != "x" {
		t.Errorf("Prompt input = %q, want x", input.Value)
	}
}

func TestSubmitRetriesAfterFillError(t *testing.T) {
	cfg := testConfig(t)
	page := newStudioPage("")
	page.input.InputErrs = []error{errors.New("node detached")}
	f := newFlow(t, cfg)

	if _, err := f.Submit(context.Background(), page, "x"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if page.input.Value != "x" {
		t.Errorf("Prompt input = %q, want x", page.input.Value)
	}
	if len(page.create.Clicks) != 1 {
		t.Errorf("Expected one create click, got %d", len(page.create.Clicks))
	}
}

func TestExtractReferencePolicy(t *testing.T) {
	two := dialogHTML(`<span>` + songURL + `</span><span>https://service.example/songs/def-456</span>`)

	tests := []struct {
		name    string
		policy  string
		dialog  string
		want    string
		wantErr error
	}{
		{"single", config.ReferenceFirst, dialogHTML(`<p>` + songURL + `</p>`), songURL, nil},
		{"first of two", config.ReferenceFirst, two, songURL, nil},
		{"strict with two", config.ReferenceStrict, two, "", ErrAmbiguousReference},
		{"none", config.ReferenceFirst, dialogHTML(`<p>Copy link</p>`), "", ErrReferenceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Creation.ReferencePolicy = tt.policy
			page := newStudioPage(tt.dialog)
			f := newFlow(t, cfg)

			ref, err := f.ExtractReference(context.Background(), page)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ExtractReference() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractReference() error: %v", err)
			}
			if ref != tt.want {
				t.Errorf("ExtractReference() = %q, want %q", ref, tt.want)
			}
		})
	}
}

func TestExtractReferenceRetriesShare(t *testing.T) {
	cfg := testConfig(t)
	page := newStudioPage(dialogHTML(`<p>Loading</p>`))
	opened := 0
	page.share.OnClick = func() {
		opened++
		if opened == 2 {
			page.Content = dialogHTML(`<p>` + songURL + `</p>`)
		} else {
			page.Content = dialogHTML(`<p>Loading</p>`)
		}
	}
	f := newFlow(t, cfg)

	ref, err := f.ExtractReference(context.Background(), page)
	if err != nil {
		t.Fatalf("ExtractReference() error: %v", err)
	}
	if ref != songURL || opened != 2 {
		t.Errorf("Expected %q on the second try, got %q after %d tries", songURL, ref, opened)
	}
}

func TestScrapeReferences(t *testing.T) {
	pattern := regexp.MustCompile(`https://service\.example/songs/[A-Za-z0-9-]+`)
	html := dialogHTML(`<input value="` + songURL + `"><p>Link: ` + songURL + `</p>` +
		`<a href="https://service.example/songs/href-only">open</a>` +
		`<p>https://service.example/songs/second</p>`)

	refs, err := ScrapeReferences(html, pattern)
	if err != nil {
		t.Fatalf("ScrapeReferences() error: %v", err)
	}

	want := []string{songURL, "https://service.example/songs/second"}
	if len(refs) != len(want) {
		t.Fatalf("ScrapeReferences() = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %q, want %q", i, refs[i], want[i])
		}
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	cfg := testConfig(t)
	site := testSite()
	site.ShareURLPattern = "https://(unclosed"
	if _, err := New(automation.New(zerolog.Nop(), cfg.Click), site, cfg, zerolog.Nop()); err == nil {
		t.Error("New() should reject an invalid share url pattern")
	}
}
