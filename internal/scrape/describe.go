package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

// descriptionSelectors are tried in order on generic job pages.
var descriptionSelectors = []string{
	"#jobDescriptionText",
	".show-more-less-html__markup",
	"[data-testid='job-description']",
	".job-description",
	".posting-page .section-wrapper",
	"#content",
	"[class*='description']",
	"article",
	"main",
}

// Description is the text a describer found for a job page.
type Description struct {
	Text     string
	Location string
}

// DescribeRegistry routes a job URL to the first describer that handles
// it and falls back to generic page extraction.
type DescribeRegistry struct {
	Describers []types.Describer
	Fallback   util.PageFetcher
	MaxChars   int
}

func (r *DescribeRegistry) Describe(ctx context.Context, rawURL string) (Description, error) {
	for _, d := range r.Describers {
		if !d.Handles(rawURL) {
			continue
		}
		text, err := d.Describe(ctx, rawURL)
		if err != nil {
			return Description{}, err
		}
		if strings.TrimSpace(text) != "" {
			return Description{Text: util.Clip(text, r.MaxChars)}, nil
		}
		break
	}

	if r.Fallback == nil {
		return Description{}, fmt.Errorf("describe %s: no describer", rawURL)
	}
	page, err := r.Fallback.FetchPage(ctx, rawURL)
	if err != nil {
		return Description{}, fmt.Errorf("describe %s: %w", rawURL, err)
	}
	d := ExtractDescription(page)
	d.Text = util.Clip(d.Text, r.MaxChars)
	return d, nil
}

// ExtractDescription pulls the posting text and location out of a job page.
func ExtractDescription(page string) Description {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(util.MinifyHTML(page)))
	if err != nil {
		return Description{Text: util.CleanText(page)}
	}

	out := Description{Location: util.FindLocation(doc)}
	for _, sel := range descriptionSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if t := util.SelectionText(s); len(t) >= 80 {
			out.Text = t
			return out
		}
	}
	out.Text = util.SelectionText(doc.Find("body"))
	return out
}
