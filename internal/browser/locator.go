package browser

import (
	"fmt"
	"regexp"
	"strings"
)

type Kind int

const (
	CSS Kind = iota
	XPath
)

func (k Kind) String() string {
	if k == XPath {
		return "xpath"
	}
	return "css"
}

const textFilterSep = ">> text="

// Locator is a parsed element-finding expression. Expressions starting with
// "/" or "(" are XPath, everything else is CSS. A trailing ">> text=<regexp>"
// keeps only matches whose visible text matches the pattern.
type Locator struct {
	Raw  string
	Kind Kind
	Expr string
	Text *regexp.Regexp
}

func ParseLocator(raw string) (Locator, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Locator{}, fmt.Errorf("empty locator")
	}

	loc := Locator{Raw: raw, Expr: s}

	if i := strings.Index(s, textFilterSep); i >= 0 {
		pattern := strings.TrimSpace(s[i+len(textFilterSep):])
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Locator{}, fmt.Errorf("locator %q: bad text filter: %w", raw, err)
		}
		loc.Text = re
		loc.Expr = strings.TrimSpace(s[:i])
		if loc.Expr == "" {
			loc.Expr = "*"
		}
	}

	if strings.HasPrefix(loc.Expr, "/") || strings.HasPrefix(loc.Expr, "(") {
		loc.Kind = XPath
	}
	return loc, nil
}

// ParseLocators parses every expression, returning the valid ones in order
// together with the errors for the rest.
func ParseLocators(raws []string) ([]Locator, []error) {
	locs := make([]Locator, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		loc, err := ParseLocator(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		locs = append(locs, loc)
	}
	return locs, errs
}

func (l Locator) String() string {
	return l.Raw
}

// MatchText reports whether text passes the locator's text filter.
func (l Locator) MatchText(text string) bool {
	return l.Text == nil || l.Text.MatchString(strings.TrimSpace(text))
}
