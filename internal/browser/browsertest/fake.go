// Package browsertest provides in-memory browser fakes for exercising the
// automation flows without launching Chrome.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"songsmith/internal/browser"
)

type FakeElement struct {
	Tag       string
	TextValue string
	HTMLValue string
	Box       browser.Rect
	Hidden    bool
	Attrs     map[string]string

	MouseErr  error
	ScriptErr error
	NativeErr error

	// OnClick runs after any successful click strategy.
	OnClick func()
	// OnSubmit runs when Enter is sent to the element.
	OnSubmit func()
	// InputErrs fail successive Input calls, one error per call.
	InputErrs []error

	Value     string
	Clicks    []string
	Scrolls   int
	Submitted int
}

func (e *FakeElement) Visible() (bool, error) { return !e.Hidden, nil }

func (e *FakeElement) ScrollIntoView() error {
	e.Scrolls++
	return nil
}

func (e *FakeElement) Describe() (browser.ElementInfo, error) {
	return browser.ElementInfo{Tag: e.Tag, Text: e.TextValue, Box: e.Box}, nil
}

func (e *FakeElement) click(strategy string, err error) error {
	if err != nil {
		return err
	}
	e.Clicks = append(e.Clicks, strategy)
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *FakeElement) MouseClick() error  { return e.click("mouse", e.MouseErr) }
func (e *FakeElement) ScriptClick() error { return e.click("script", e.ScriptErr) }
func (e *FakeElement) NativeClick() error { return e.click("native", e.NativeErr) }

func (e *FakeElement) Clear() error {
	e.Value = ""
	return nil
}

func (e *FakeElement) Input(text string) error {
	if len(e.InputErrs) > 0 {
		err := e.InputErrs[0]
		e.InputErrs = e.InputErrs[1:]
		return err
	}
	e.Value += text
	return nil
}

func (e *FakeElement) Submit() error {
	e.Submitted++
	if e.OnSubmit != nil {
		e.OnSubmit()
	}
	return nil
}

func (e *FakeElement) Text() (string, error) { return e.TextValue, nil }

func (e *FakeElement) HTML() (string, error) {
	if e.HTMLValue != "" {
		return e.HTMLValue, nil
	}
	return fmt.Sprintf("<%s>%s</%s>", e.Tag, e.TextValue, e.Tag), nil
}

func (e *FakeElement) Attribute(name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

// FakePage serves elements keyed by the raw locator string.
type FakePage struct {
	CurrentURL string
	TitleValue string
	Content    string

	// ReadyStates is consumed one value per ReadyState call; the last value repeats.
	ReadyStates []string
	NavigateErr error
	OnNavigate  func(url string)
	// BeforeFind runs at the start of every Find with the 1-based call count.
	BeforeFind func(calls int)

	Navigations []string
	Screenshots []string
	FindCalls   int

	elements map[string][]*FakeElement
}

func NewFakePage(url string) *FakePage {
	return &FakePage{
		CurrentURL:  url,
		ReadyStates: []string{"complete"},
		elements:    make(map[string][]*FakeElement),
	}
}

// Set replaces the elements a locator resolves to.
func (p *FakePage) Set(locator string, els ...*FakeElement) {
	if len(els) == 0 {
		delete(p.elements, locator)
		return
	}
	p.elements[locator] = els
}

func (p *FakePage) Add(locator string, els ...*FakeElement) {
	p.elements[locator] = append(p.elements[locator], els...)
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Navigations = append(p.Navigations, url)
	p.CurrentURL = url
	if p.OnNavigate != nil {
		p.OnNavigate(url)
	}
	return nil
}

func (p *FakePage) URL() (string, error)   { return p.CurrentURL, nil }
func (p *FakePage) Title() (string, error) { return p.TitleValue, nil }

func (p *FakePage) ReadyState() (string, error) {
	if len(p.ReadyStates) == 0 {
		return "", errors.New("no ready state")
	}
	state := p.ReadyStates[0]
	if len(p.ReadyStates) > 1 {
		p.ReadyStates = p.ReadyStates[1:]
	}
	return state, nil
}

func (p *FakePage) Find(loc browser.Locator) ([]browser.Element, error) {
	p.FindCalls++
	if p.BeforeFind != nil {
		p.BeforeFind(p.FindCalls)
	}
	var out []browser.Element
	for _, el := range p.elements[loc.Raw] {
		if loc.MatchText(el.TextValue) {
			out = append(out, el)
		}
	}
	return out, nil
}

func (p *FakePage) HTML() (string, error) { return p.Content, nil }

func (p *FakePage) Screenshot(path string) error {
	p.Screenshots = append(p.Screenshots, path)
	return os.WriteFile(path, []byte("fake-png"), 0644)
}

// FakeSession holds a set of windows keyed by handle. The first window is "main".
type FakeSession struct {
	ID  int
	Dir string

	Closes int

	pages   map[string]*FakePage
	order   []string
	current string
}

func NewFakeSession(main *FakePage) *FakeSession {
	s := &FakeSession{pages: make(map[string]*FakePage)}
	s.OpenWindow("main", main)
	s.current = "main"
	return s
}

func (s *FakeSession) OpenWindow(handle string, p *FakePage) {
	if _, ok := s.pages[handle]; !ok {
		s.order = append(s.order, handle)
	}
	s.pages[handle] = p
}

func (s *FakeSession) CloseWindow(handle string) {
	delete(s.pages, handle)
	for i, h := range s.order {
		if h == handle {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.current == handle && len(s.order) > 0 {
		s.current = s.order[0]
	}
}

func (s *FakeSession) Current() *FakePage { return s.pages[s.current] }

func (s *FakeSession) Handle() string { return s.current }

func (s *FakeSession) Page() browser.Page { return s.Current() }

func (s *FakeSession) Windows() ([]browser.Window, error) {
	if s.Closes > 0 {
		return nil, browser.ErrClosed
	}
	windows := make([]browser.Window, 0, len(s.order))
	for _, h := range s.order {
		windows = append(windows, browser.Window{Handle: h, URL: s.pages[h].CurrentURL})
	}
	return windows, nil
}

func (s *FakeSession) SwitchTo(handle string) (browser.Page, error) {
	p, ok := s.pages[handle]
	if !ok {
		return nil, fmt.Errorf("no window %s", handle)
	}
	s.current = handle
	return p, nil
}

func (s *FakeSession) DownloadDir() string { return s.Dir }

func (s *FakeSession) Close() error {
	s.Closes++
	return nil
}

// Factory hands out FakeSessions built by Build and remembers each one.
type Factory struct {
	Build    func(n int) *FakeSession
	Err      error
	Sessions []*FakeSession
	Opts     []browser.Options
}

func (f *Factory) Launch(ctx context.Context, opts browser.Options) (browser.Session, error) {
	f.Opts = append(f.Opts, opts)
	if f.Err != nil {
		return nil, f.Err
	}
	s := f.Build(len(f.Sessions))
	s.ID = len(f.Sessions)
	if s.Dir == "" {
		s.Dir = opts.DownloadDir
	}
	f.Sessions = append(f.Sessions, s)
	return s, nil
}
