// Package markup turns the HTML fragments returned by the search API into plain text.
package markup

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const emphasis = "**"

var tagExpr = regexp.MustCompile(`<[^>]*>`)

// StripTags removes every tag from fragment, decodes entities and collapses whitespace.
func StripTags(fragment string) string {
	doc, err := parse(fragment)
	if err != nil {
		return collapse(html.UnescapeString(tagExpr.ReplaceAllString(fragment, "")))
	}
	return collapse(doc.Text())
}

// NormalizeEmphasis rewrites <b> and <strong> runs as **text** and strips the
// remaining markup.
func NormalizeEmphasis(fragment string) string {
	doc, err := parse(fragment)
	if err != nil {
		replaced := strings.NewReplacer("<b>", emphasis, "</b>", emphasis, "<strong>", emphasis, "</strong>", emphasis).Replace(fragment)
		return collapse(html.UnescapeString(tagExpr.ReplaceAllString(replaced, "")))
	}

	doc.Find("b, strong").Each(func(_ int, sel *goquery.Selection) {
		text := sel.Text()
		if strings.TrimSpace(text) == "" {
			sel.Remove()
			return
		}
		sel.ReplaceWithHtml(emphasis + html.EscapeString(text) + emphasis)
	})

	return collapse(doc.Text())
}

func parse(fragment string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(fragment))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
