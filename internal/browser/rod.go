package browser

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
}

const (
	// nativeClickTimeout bounds rod's own wait for the element to become interactable.
	nativeClickTimeout = 3 * time.Second
	// pageCallTimeout bounds a single CDP round trip made without a caller deadline.
	pageCallTimeout = 10 * time.Second
	// profileCleanupWait bounds the wait for chrome to exit before its temp profile is removed.
	profileCleanupWait = 5 * time.Second
)

type rodSession struct {
	ctx      context.Context
	opts     Options
	log      zerolog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rodPage
	closed   bool
}

// Launch starts a Chrome instance and opens one page. It satisfies Factory.
func Launch(ctx context.Context, opts Options) (Session, error) {
	s := &rodSession{ctx: ctx, opts: opts, log: opts.Logger}
	if err := s.launch(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *rodSession) launch(ctx context.Context) error {
	// Leakless deadlocks on Windows, see go-rod/rod#853.
	useLeakless := runtime.GOOS != "windows"

	s.launcher = launcher.New().
		Leakless(useLeakless).
		Headless(s.opts.Headless).
		Set("window-size", fmt.Sprintf("%d,%d", s.opts.ViewportWidth, s.opts.ViewportHeight)).
		Set("disable-dev-shm-usage").
		Set("disable-notifications")

	if s.opts.Stealth {
		s.launcher = s.launcher.Set("disable-blink-features", "AutomationControlled")
	}

	if s.opts.ProfileDir != "" {
		s.launcher = s.launcher.UserDataDir(s.opts.ProfileDir)
		s.log.Debug().Str("path", s.opts.ProfileDir).Msg("browser profile set")
	}

	if chromePath, ok := launcher.LookPath(); ok {
		s.launcher = s.launcher.Bin(chromePath)
		s.log.Debug().Str("path", chromePath).Msg("using system chrome")
	} else {
		s.log.Info().Msg("system chrome not found, using bundled chromium")
	}

	controlURL, err := s.launcher.Context(ctx).Launch()
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "ProcessSingleton") || strings.Contains(msg, "SingletonLock") {
			return fmt.Errorf("browser profile %s is in use by another chrome instance: %w", s.opts.ProfileDir, err)
		}
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	if s.opts.DownloadDir != "" {
		dir, err := filepath.Abs(s.opts.DownloadDir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create download dir: %w", err)
		}
		s.opts.DownloadDir = dir
		err = proto.BrowserSetDownloadBehavior{
			Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath:  dir,
			EventsEnabled: true,
		}.Call(s.browser)
		if err != nil {
			return fmt.Errorf("failed to set download behavior: %w", err)
		}
	}

	var page *rod.Page
	if s.opts.Stealth {
		page, err = stealth.Page(s.browser)
		if err != nil {
			return fmt.Errorf("failed to create stealth page: %w", err)
		}
		s.log.Debug().Msg("stealth page created")
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
	}

	s.fingerprint(page)
	s.page = s.wrap(page)
	return nil
}

// fingerprint applies best-effort user agent and viewport settings.
func (s *rodSession) fingerprint(page *rod.Page) {
	ua := s.opts.UserAgent
	width, height := s.opts.ViewportWidth, s.opts.ViewportHeight
	if s.opts.Stealth {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		if ua == "" {
			ua = userAgents[r.Intn(len(userAgents))]
		}
		width -= r.Intn(40)
		height -= r.Intn(40)
	}

	if ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			s.log.Debug().Err(err).Msg("failed to set user agent")
		}
	}

	err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("failed to set viewport")
	}
}

func (s *rodSession) wrap(page *rod.Page) *rodPage {
	return &rodPage{page: page, ctx: s.ctx, loadTimeout: s.opts.PageLoadTimeout, callTimeout: pageCallTimeout}
}

func (s *rodSession) Page() Page {
	return s.page
}

func (s *rodSession) Handle() string {
	if s.page == nil {
		return ""
	}
	return string(s.page.page.TargetID)
}

func (s *rodSession) DownloadDir() string {
	return s.opts.DownloadDir
}

func (s *rodSession) Windows() ([]Window, error) {
	if s.closed || s.browser == nil {
		return nil, ErrClosed
	}
	res, err := proto.TargetGetTargets{}.Call(s.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	var windows []Window
	for _, info := range res.TargetInfos {
		if info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		windows = append(windows, Window{Handle: string(info.TargetID), URL: info.URL})
	}
	return windows, nil
}

func (s *rodSession) SwitchTo(handle string) (Page, error) {
	if s.closed || s.browser == nil {
		return nil, ErrClosed
	}
	if s.page != nil && string(s.page.page.TargetID) == handle {
		return s.page, nil
	}

	page, err := s.browser.PageFromTarget(proto.TargetTargetID(handle))
	if err != nil {
		return nil, fmt.Errorf("failed to attach to window %s: %w", handle, err)
	}
	if _, err := page.Activate(); err != nil {
		s.log.Debug().Err(err).Str("window", handle).Msg("failed to activate window")
	}

	s.page = s.wrap(page)
	return s.page, nil
}

func (s *rodSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.Debug().Err(err).Msg("browser close failed")
			firstErr = err
		}
	}
	// PID is zero when chrome never started, and Cleanup would then block forever.
	if s.launcher != nil && s.launcher.PID() != 0 {
		s.launcher.Kill()
		if s.opts.ProfileDir == "" {
			s.removeTempProfile()
		}
	}
	s.log.Debug().Msg("browser session closed")
	return firstErr
}

// removeTempProfile deletes rod's per-session user data dir. A configured
// profile is never removed since it carries the signed-in state.
func (s *rodSession) removeTempProfile() {
	done := make(chan struct{})
	go func() {
		s.launcher.Cleanup()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(profileCleanupWait):
		s.log.Warn().Msg("browser did not exit, temp profile left in place")
	}
}

type rodPage struct {
	page        *rod.Page
	ctx         context.Context
	loadTimeout time.Duration
	callTimeout time.Duration
}

// call runs fn against a copy of the page bound to the session context and
// the per-call timeout.
func (p *rodPage) call(fn func(page *rod.Page) error) error {
	ctx, cancel := p.callContext()
	defer cancel()
	return fn(p.page.Context(ctx))
}

func (p *rodPage) callContext() (context.Context, context.CancelFunc) {
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.callTimeout)
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if p.loadTimeout > 0 {
		page = page.Timeout(p.loadTimeout)
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) info() (*proto.TargetTargetInfo, error) {
	var info *proto.TargetTargetInfo
	err := p.call(func(page *rod.Page) error {
		var err error
		info, err = page.Info()
		return err
	})
	return info, err
}

func (p *rodPage) URL() (string, error) {
	info, err := p.info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Title() (string, error) {
	info, err := p.info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *rodPage) ReadyState() (string, error) {
	var state string
	err := p.call(func(page *rod.Page) error {
		res, err := page.Eval(`() => document.readyState`)
		if err != nil {
			return err
		}
		state = res.Value.Str()
		return nil
	})
	return state, err
}

func (p *rodPage) Find(loc Locator) ([]Element, error) {
	var elements []Element
	err := p.call(func(page *rod.Page) error {
		var (
			found rod.Elements
			err   error
		)
		if loc.Kind == XPath {
			found, err = page.ElementsX(loc.Expr)
		} else {
			found, err = page.Elements(loc.Expr)
		}
		if err != nil {
			return err
		}

		elements = make([]Element, 0, len(found))
		for _, el := range found {
			if loc.Text != nil {
				text, err := el.Text()
				if err != nil || !loc.MatchText(text) {
					continue
				}
			}
			// Detach from the per-call deadline so later clicks are not cut short.
			elements = append(elements, &rodElement{el: el.Context(p.page.GetContext())})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("locator %s: %w", loc, err)
	}
	return elements, nil
}

func (p *rodPage) HTML() (string, error) {
	var html string
	err := p.call(func(page *rod.Page) error {
		var err error
		html, err = page.HTML()
		return err
	})
	return html, err
}

func (p *rodPage) Screenshot(path string) error {
	var data []byte
	err := p.call(func(page *rod.Page) error {
		var err error
		data, err = page.Screenshot(true, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) ScrollIntoView() error {
	return e.el.ScrollIntoView()
}

func (e *rodElement) Describe() (ElementInfo, error) {
	var info ElementInfo

	res, err := e.el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return info, err
	}
	info.Tag = res.Value.Str()

	if text, err := e.el.Text(); err == nil {
		info.Text = strings.TrimSpace(text)
	}

	if shape, err := e.el.Shape(); err == nil {
		if box := shape.Box(); box != nil {
			info.Box = Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}
		}
	}
	return info, nil
}

func (e *rodElement) MouseClick() error {
	shape, err := e.el.Shape()
	if err != nil {
		return fmt.Errorf("no geometry: %w", err)
	}
	box := shape.Box()
	if box == nil {
		return fmt.Errorf("element has no box")
	}

	x, y := Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}.Center()
	mouse := e.el.Page().Mouse
	if err := mouse.MoveLinear(proto.NewPoint(x, y), 8); err != nil {
		return err
	}
	return mouse.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ScriptClick() error {
	_, err := e.el.Eval(`() => this.click()`)
	return err
}

func (e *rodElement) NativeClick() error {
	return e.el.Timeout(nativeClickTimeout).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Clear() error {
	if err := e.el.SelectAllText(); err != nil {
		return err
	}
	return e.el.Input("")
}

func (e *rodElement) Input(text string) error {
	return e.el.Input(text)
}

func (e *rodElement) Submit() error {
	return e.el.Type(input.Enter)
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) HTML() (string, error) {
	return e.el.HTML()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}
