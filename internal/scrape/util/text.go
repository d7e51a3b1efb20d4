package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

var htmlMinifier = func() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepWhitespace:   false,
	})
	return m
}()

// MinifyHTML collapses whitespace and drops comments. The input is
// returned unchanged if it cannot be minified.
func MinifyHTML(s string) string {
	out, err := htmlMinifier.String("text/html", s)
	if err != nil {
		return s
	}
	return out
}

// HTMLToText extracts readable text from a page, one block per line.
func HTMLToText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(MinifyHTML(s)))
	if err != nil {
		return CleanText(s)
	}
	return SelectionText(doc.Selection)
}

// SelectionText is HTMLToText for an already parsed selection.
func SelectionText(sel *goquery.Selection) string {
	sel.Find("script, style, nav, header, footer, iframe, noscript, svg, button").Remove()
	sel.Find(".cookie, .banner, .social, .ads, .popup").Remove()

	var blocks []string
	sel.Find("p, li, h1, h2, h3, h4, h5, h6, td").Each(func(_ int, s *goquery.Selection) {
		// nested blocks are emitted by their innermost element
		if s.Find("p, li, h1, h2, h3, h4, h5, h6, td").Length() > 0 {
			return
		}
		if t := CleanText(s.Text()); t != "" {
			prefix := ""
			if goquery.NodeName(s) == "li" {
				prefix = "- "
			}
			blocks = append(blocks, prefix+t)
		}
	})
	if len(blocks) > 0 {
		return strings.Join(blocks, "\n")
	}
	return CleanText(sel.Text())
}
