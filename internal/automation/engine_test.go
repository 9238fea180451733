package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"songsmith/internal/browser/browsertest"
	"songsmith/internal/config"
)

func testEngine() *Engine {
	return New(zerolog.Nop(), config.ClickConfig{
		Settle:        time.Millisecond,
		RetryInterval: 5 * time.Millisecond,
		ReadyPoll:     2 * time.Millisecond,
		ReadySettle:   time.Millisecond,
	})
}

func TestClickNoMatchReturnsFalse(t *testing.T) {
	page := browsertest.NewFakePage("https://service.example/")
	e := testEngine()

	start := time.Now()
	ok := e.Click(context.Background(), page, []string{"#missing", "//button[@id='none']"}, "sign in", 40*time.Millisecond)

	if ok {
		t.Error("Click() = true, want false when nothing matches")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Click() returned after %v, expected it to retry until the timeout", elapsed)
	}
	if page.FindCalls < 4 {
		t.Errorf("Expected several passes over both locators, got %d finds", page.FindCalls)
	}
}

func TestClickSkipsHiddenAndUsesPreferenceOrder(t *testing.T) {
	page := browsertest.NewFakePage("https://service.example/")
	hidden := &browsertest.FakeElement{Tag: "button", Hidden: true}
	second := &browsertest.FakeElement{Tag: "button", TextValue: "Sign in"}
	third := &browsertest.FakeElement{Tag: "a"}
	page.Set("#first", hidden)
	page.Set("#second", second)
	page.Set("#third", third)

	ok := testEngine().Click(context.Background(), page, []string{"#first", "#second", "#third"}, "sign in", time.Second)

	if !ok {
		t.Fatal("Click() = false, want true")
	}
	if len(hidden.Clicks) != 0 {
		t.Error("Hidden element should never be clicked")
	}
	if len(second.Clicks) != 1 || second.Clicks[0] != "mouse" {
		t.Errorf("Expected one mouse click on second locator, got %v", second.Clicks)
	}
	if second.Scrolls != 1 {
		t.Errorf("Expected element to be scrolled into view once, got %d", second.Scrolls)
	}
	if len(third.Clicks) != 0 {
		t.Error("Lower-preference locator should not be clicked")
	}
}

func TestClickStrategyFallback(t *testing.T) {
	tests := []struct {
		name     string
		el       *browsertest.FakeElement
		want     bool
		strategy string
	}{
		{
			name:     "mouse works",
			el:       &browsertest.FakeElement{},
			want:     true,
			strategy: "mouse",
		},
		{
			name:     "falls back to script",
			el:       &browsertest.FakeElement{MouseErr: errors.New("intercepted")},
			want:     true,
			strategy: "script",
		},
		{
			name: "falls back to native",
			el: &browsertest.FakeElement{
				MouseErr:  errors.New("intercepted"),
				ScriptErr: errors.New("detached"),
			},
			want:     true,
			strategy: "native",
		},
		{
			name: "all strategies fail",
			el: &browsertest.FakeElement{
				Tag:       "button",
				MouseErr:  errors.New("intercepted"),
				ScriptErr: errors.New("detached"),
				NativeErr: errors.New("not interactable"),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewFakePage("https://service.example/")
			page.Set("button", tt.el)

			got := testEngine().Click(context.Background(), page, []string{"button"}, "button", 20*time.Millisecond)
			if got != tt.want {
				t.Fatalf("Click() = %v, want %v", got, tt.want)
			}
			if tt.want && (len(tt.el.Clicks) != 1 || tt.el.Clicks[0] != tt.strategy) {
				t.Errorf("Clicks = %v, want [%s]", tt.el.Clicks, tt.strategy)
			}
		})
	}
}

func TestClickElementAppearsLater(t *testing.T) {
	page := browsertest.NewFakePage("https://service.example/")
	el := &browsertest.FakeElement{Hidden: true}
	page.Set("#late", el)
	page.BeforeFind = func(calls int) {
		if calls > 3 {
			el.Hidden = false
		}
	}

	if !testEngine().Click(context.Background(), page, []string{"#late"}, "late", time.Second) {
		t.Fatal("Click() = false, want true once the element is visible")
	}
	if len(el.Clicks) != 1 {
		t.Errorf("Expected exactly one click, got %v", el.Clicks)
	}
}

func TestClickInvalidLocatorsSkipped(t *testing.T) {
	page := browsertest.NewFakePage("https://service.example/")
	el := &browsertest.FakeElement{}
	page.Set("#ok", el)

	if !testEngine().Click(context.Background(), page, []string{"", "x >> text=(", "#ok"}, "mixed", 50*time.Millisecond) {
		t.Error("Click() should skip invalid locators and use the valid one")
	}

	if testEngine().Click(context.Background(), page, []string{""}, "empty", 10*time.Millisecond) {
		t.Error("Click() with no usable locators should return false")
	}
}

func TestClickCancelledContext(t *testing.T) {
	page := browsertest.NewFakePage("https://service.example/")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if testEngine().Click(ctx, page, []string{"#missing"}, "missing", time.Minute) {
		t.Error("Click() with cancelled context should return false")
	}
}

func TestFindVisible(t *testing.T) {
	page := browsertest.NewFakePage("https://service.example/")
	want := &browsertest.FakeElement{Tag: "input"}
	page.Set("input[type='email']", &browsertest.FakeElement{Hidden: true}, want)

	got, err := testEngine().FindVisible(context.Background(), page, []string{"input[name='email']", "input[type='email']"}, "email", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("FindVisible() error: %v", err)
	}
	if got != want {
		t.Error("FindVisible() returned the wrong element")
	}

	_, err = testEngine().FindVisible(context.Background(), page, []string{"#nope"}, "nope", 10*time.Millisecond)
	var locErr *LocatorError
	if !errors.As(err, &locErr) {
		t.Fatalf("FindVisible() error = %v, want LocatorError", err)
	}
	if locErr.Name != "nope" {
		t.Errorf("LocatorError.Name = %q, want nope", locErr.Name)
	}
}

func TestCountAndPresent(t *testing.T) {
	page := browsertest.NewFakePage("https://service.example/")
	page.Set(".like", &browsertest.FakeElement{}, &browsertest.FakeElement{})
	page.Set("#hidden", &browsertest.FakeElement{Hidden: true})
	e := testEngine()

	if n := e.Count(page, ".like"); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	if n := e.Count(page, ""); n != 0 {
		t.Errorf("Count() of invalid locator = %d, want 0", n)
	}
	if e.Present(page, []string{"#hidden"}) {
		t.Error("Present() should ignore hidden elements")
	}
	if !e.Present(page, []string{"#hidden", ".like"}) {
		t.Error("Present() = false, want true")
	}
}

func TestFill(t *testing.T) {
	el := &browsertest.FakeElement{Value: "old@example.com"}
	if err := Fill(el, "new@example.com"); err != nil {
		t.Fatal(err)
	}
	if el.Value != "new@example.com" {
		t.Errorf("Value = %q, want new@example.com", el.Value)
	}
}
