package analyze

import (
	"fmt"
	"regexp"
	"strings"
)

var signInTerms = []string{"sign in", "signin", "login", "log in"}

// Suggest derives sign-in locators from the visible buttons and links of a
// report's page snapshot.
func Suggest(r *Report) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, group := range []string{"sign_in", "buttons", "links"} {
		for _, el := range r.Page.Elements[group] {
			if !el.Visible {
				continue
			}
			text := strings.TrimSpace(el.Text)
			href := el.Attributes["href"]
			aria := el.Attributes["aria-label"]
			if !mentionsSignIn(text + " " + href + " " + aria) {
				continue
			}

			switch {
			case el.Tag == "a" && href != "":
				add(fmt.Sprintf("//a[contains(@href, %s)]", xpathLiteral(href)))
			case el.Tag == "button" && text != "":
				add(fmt.Sprintf("//button[contains(text(), %s)]", xpathLiteral(text)))
			case aria != "":
				add(fmt.Sprintf("//*[@aria-label=%s]", xpathLiteral(aria)))
			case el.Attributes["id"] != "":
				add("#" + el.Attributes["id"])
			case text != "":
				add(fmt.Sprintf("%s >> text=^%s$", el.Tag, regexp.QuoteMeta(text)))
			}
		}
	}
	return out
}

func mentionsSignIn(s string) bool {
	s = strings.ToLower(s)
	for _, term := range signInTerms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
