package util

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

var locationSelectors = []string{
	"[data-testid='job-location']",
	"[data-testid='inlineHeader-companyLocation']",
	"[itemprop='jobLocation'] [itemprop='addressLocality']",
	".topcard__flavor--bullet",
	".posting-categories .location",
	".job__location",
	".location",
}

// FindLocation reads a job page's location from known board markup, falling
// back to a "Location:" style label in og:description and then the body.
func FindLocation(doc *goquery.Document) string {
	for _, sel := range locationSelectors {
		if t := CleanText(doc.Find(sel).First().Text()); t != "" {
			return NormalizeLocation(t)
		}
	}
	for _, text := range []string{
		doc.Find(`meta[property="og:description"]`).AttrOr("content", ""),
		doc.Find("body").Text(),
	} {
		if loc := ExtractLocationFromLabeledText(text); loc != "" {
			return NormalizeLocation(loc)
		}
	}
	return ""
}

// The value runs to the end of the line or a "|" / "·" separator and is at
// most 80 bytes.
var reLocationLabel = regexp.MustCompile(`(?i)\b(?:job location|locations?|arbetsort|placering|ort)\s*:\s*([^\n\r|·]{1,80})(?:[\n\r|·]|$)`)

// ExtractLocationFromLabeledText returns the text after the first
// "Location:", "Arbetsort:" or similar label.
func ExtractLocationFromLabeledText(s string) string {
	m := reLocationLabel.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return CleanText(m[1])
}
