package analyze

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type PageStats struct {
	Forms    int  `yaml:"forms"`
	Inputs   int  `yaml:"inputs"`
	Buttons  int  `yaml:"buttons"`
	Links    int  `yaml:"links"`
	IFrames  int  `yaml:"iframes"`
	Dialogs  int  `yaml:"dialogs"`
	Password bool `yaml:"password_field"`
}

// Stats counts the interactive structure of a page.
func Stats(content string) (PageStats, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return PageStats{}, err
	}
	doc := goquery.NewDocumentFromNode(root)
	return PageStats{
		Forms:    doc.Find("form").Length(),
		Inputs:   doc.Find("input, textarea, select").Length(),
		Buttons:  doc.Find("button, [role='button']").Length(),
		Links:    doc.Find("a[href]").Length(),
		IFrames:  doc.Find("iframe").Length(),
		Dialogs:  doc.Find("dialog, [role='dialog']").Length(),
		Password: doc.Find("input[type='password']").Length() > 0,
	}, nil
}

// OpeningTag reduces an element's outer HTML to its start tag, which is all
// a locator can key on.
func OpeningTag(outer string) string {
	nodes, err := html.ParseFragment(strings.NewReader(outer), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return truncate(outer, 200)
	}
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		shallow := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom, Attr: n.Attr}
		var buf bytes.Buffer
		if err := html.Render(&buf, shallow); err != nil {
			break
		}
		tag := buf.String()
		if end := strings.Index(tag, ">"); end >= 0 && !isVoid(n.Data) {
			tag = tag[:end+1]
		}
		return tag
	}
	return truncate(outer, 200)
}

func isVoid(tag string) bool {
	switch tag {
	case "input", "img", "br", "hr", "meta", "link":
		return true
	}
	return false
}
