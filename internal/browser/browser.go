// Package browser abstracts the automated browser behind small interfaces so
// the login and creation flows can be driven by rod or by in-memory fakes.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("browser session is closed")

// Rect is an element's bounding box in CSS pixels.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// ElementInfo is the diagnostic view of an element.
type ElementInfo struct {
	Tag  string
	Text string
	Box  Rect
}

type Element interface {
	Visible() (bool, error)
	ScrollIntoView() error
	Describe() (ElementInfo, error)

	// MouseClick moves the pointer to the element centre and clicks.
	MouseClick() error
	// ScriptClick calls the element's click() from page script.
	ScriptClick() error
	// NativeClick uses the driver's own element click.
	NativeClick() error

	Clear() error
	Input(text string) error
	Submit() error

	Text() (string, error)
	HTML() (string, error)
	Attribute(name string) (string, bool, error)
}

type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() (string, error)
	Title() (string, error)
	ReadyState() (string, error)
	// Find returns every element matching loc without waiting.
	Find(loc Locator) ([]Element, error)
	HTML() (string, error)
	Screenshot(path string) error
}

// Window is a top-level browsing context. Handle is stable for its lifetime.
type Window struct {
	Handle string
	URL    string
}

type Session interface {
	// Page returns the page currently being driven.
	Page() Page
	// Handle identifies the window of the current page.
	Handle() string
	Windows() ([]Window, error)
	// SwitchTo makes the window with handle the current page.
	SwitchTo(handle string) (Page, error)
	DownloadDir() string
	// Close releases the browser. It is safe to call more than once.
	Close() error
}

type Options struct {
	Headless        bool
	Stealth         bool
	ProfileDir      string
	DownloadDir     string
	ViewportWidth   int
	ViewportHeight  int
	PageLoadTimeout time.Duration
	UserAgent       string
	Logger          zerolog.Logger
}

// Factory constructs a fresh Session.
type Factory func(ctx context.Context, opts Options) (Session, error)
