package rank

import (
	"strings"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
)

// Scorer rates how relevant a lead is before it is stored.
type Scorer interface {
	Score(job domain.JobLead) (score int, tags []string)
}

type termSet struct {
	tag    string
	weight int
	terms  []string
}

func (t termSet) hit(text string) bool {
	for _, term := range t.terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// YAMLScorer applies the scoring section of the config. Title rules and
// penalties look at the title only; keyword rules look at the whole posting.
type YAMLScorer struct {
	minScore  int
	title     []termSet
	keyword   []termSet
	penalties []termSet
}

var _ Scorer = (*YAMLScorer)(nil)

// NewYAMLScorer lowercases every term once so Score only lowercases the lead.
func NewYAMLScorer(sc config.Scoring) *YAMLScorer {
	rules := func(in []config.Rule) []termSet {
		out := make([]termSet, 0, len(in))
		for _, r := range in {
			out = append(out, termSet{tag: r.Tag, weight: r.Weight, terms: lowerTerms(r.Any)})
		}
		return out
	}
	s := &YAMLScorer{
		minScore: sc.MinScore,
		title:    rules(sc.TitleRules),
		keyword:  rules(sc.KeywordRules),
	}
	for _, p := range sc.Penalties {
		s.penalties = append(s.penalties, termSet{tag: "-" + p.Reason, weight: p.Weight, terms: lowerTerms(p.Any)})
	}
	return s
}

func (s *YAMLScorer) Score(job domain.JobLead) (int, []string) {
	title := strings.ToLower(job.Title)
	full := title + " " + strings.ToLower(job.Description)

	score := 0
	var tags []string
	seen := map[string]bool{}
	apply := func(text string, sets []termSet) {
		for _, set := range sets {
			if !set.hit(text) {
				continue
			}
			score += set.weight
			if !seen[set.tag] {
				seen[set.tag] = true
				tags = append(tags, set.tag)
			}
		}
	}
	apply(title, s.title)
	apply(full, s.keyword)
	apply(title, s.penalties)
	return score, tags
}

// Passes reports whether score clears scoring.min_score.
func (s *YAMLScorer) Passes(score int) bool {
	return score >= s.minScore
}

func lowerTerms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
