package extract

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// plainText strips every tag and decodes entities. Text between tags is
// kept as is.
func plainText(raw string) string {
	return html.UnescapeString(strict.Sanitize(raw))
}

// firstToken is the first whitespace-delimited token of the raw body.
func firstToken(raw string) string {
	f := strings.Fields(raw)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// firstLink returns the first non-empty href in the markup.
func firstLink(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("href")
		href = strings.TrimSpace(v)
		return href == ""
	})
	return href
}
