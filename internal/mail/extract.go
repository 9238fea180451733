package mail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// ExtractLink returns the href of the anchor whose text contains phrase.
// Messages without an HTML body fall back to the first URL on or just after
// the line mentioning phrase, then to the first URL at all.
func ExtractLink(msg *Message, phrase string) (string, error) {
	if strings.TrimSpace(msg.HTML) != "" {
		return linkFromHTML(msg.HTML, phrase)
	}
	if strings.TrimSpace(msg.Text) != "" {
		return linkFromText(msg.Text, phrase)
	}
	return "", fmt.Errorf("%w: message %s has no body", ErrLinkNotFound, msg.ID)
}

func linkFromHTML(body, phrase string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: unparseable html: %v", ErrLinkNotFound, err)
	}

	var link string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(strings.TrimSpace(a.Text()), phrase) {
			return true
		}
		link, _ = a.Attr("href")
		link = strings.TrimSpace(link)
		return link == ""
	})

	if link == "" {
		return "", fmt.Errorf("%w: no anchor with text %q", ErrLinkNotFound, phrase)
	}
	return link, nil
}

func linkFromText(body, phrase string) (string, error) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !strings.Contains(line, phrase) {
			continue
		}
		if u := urlPattern.FindString(line); u != "" {
			return u, nil
		}
		if i+1 < len(lines) {
			if u := urlPattern.FindString(lines[i+1]); u != "" {
				return u, nil
			}
		}
	}
	if u := urlPattern.FindString(body); u != "" {
		return u, nil
	}
	return "", fmt.Errorf("%w: no url in text body", ErrLinkNotFound)
}
