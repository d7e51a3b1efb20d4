package scrape

import (
	"strings"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

// Skip reasons reported by ShouldKeepJob.
const (
	ReasonJunkURL  = "junk_url"
	ReasonLocation = "location"
	ReasonNoMatch  = "no_keyword_match"
)

func ShouldKeepJob(cfg config.Config, j domain.JobLead) (keep bool, reason string) {
	if util.IsObviousJunkURL(j.URL) {
		return false, ReasonJunkURL
	}
	if !passesLocation(cfg, j) {
		return false, ReasonLocation
	}
	if !matchesAnyRule(cfg, j) {
		return false, ReasonNoMatch
	}
	return true, ""
}

func passesLocation(cfg config.Config, j domain.JobLead) bool {
	text := strings.ToLower(strings.TrimSpace(j.LocationRaw))
	title := strings.ToLower(strings.TrimSpace(j.Title))
	desc := strings.ToLower(strings.TrimSpace(j.Description))

	isRemote := strings.EqualFold(j.WorkMode, "remote") ||
		strings.Contains(text, "remote") || strings.Contains(title, "remote") ||
		strings.Contains(text, "distans")

	hitAny := func(terms []string) bool {
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if strings.Contains(text, t) || strings.Contains(title, t) || strings.Contains(desc, t) {
				return true
			}
		}
		return false
	}

	// blocklist wins
	if hitAny(cfg.Filters.LocationsBlock) {
		return false
	}
	if isRemote {
		return cfg.Filters.RemoteOK
	}

	// email leads often carry no location at all
	if text == "" && desc == "" {
		return true
	}
	if len(cfg.Filters.LocationsAllow) == 0 {
		return true
	}
	return hitAny(cfg.Filters.LocationsAllow)
}

func matchesAnyRule(cfg config.Config, j domain.JobLead) bool {
	rules := append(append([]config.Rule{}, cfg.Scoring.TitleRules...), cfg.Scoring.KeywordRules...)
	if len(rules) == 0 {
		return true
	}

	text := strings.ToLower(j.Title + " " + j.Description)
	for _, r := range rules {
		for _, needle := range r.Any {
			n := strings.ToLower(strings.TrimSpace(needle))
			if n != "" && strings.Contains(text, n) {
				return true
			}
		}
	}
	return false
}
