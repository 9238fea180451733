package studio

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScrapeReferences returns the distinct matches of pattern found in the text
// nodes and input values of html, in document order.
func ScrapeReferences(html string, pattern *regexp.Regexp) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var refs []string
	seen := make(map[string]bool)
	add := func(s string) {
		for _, m := range pattern.FindAllString(s, -1) {
			if !seen[m] {
				seen[m] = true
				refs = append(refs, m)
			}
		}
	}

	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "script", "style", "noscript":
			return
		case "input", "textarea":
			if v, ok := sel.Attr("value"); ok {
				add(v)
			}
		}
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				add(c.Text())
			}
		})
	})
	return refs, nil
}
