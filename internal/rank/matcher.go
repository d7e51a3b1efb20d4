package rank

import (
	"strings"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
)

// TemplateMatcher picks the CV role whose keywords best cover a posting.
// A role's score is the sum of its keyword counts divided by its priority.
type TemplateMatcher struct {
	roles      []config.Role
	defaultKey string
}

// Match is the outcome of matching one posting.
type Match struct {
	Role   string                    `json:"role"`
	Score  float64                   `json:"score"`
	Scores map[string]float64        `json:"scores"`
	Counts map[string]map[string]int `json:"counts"`
}

// NewTemplateMatcher keeps the configured role order; it decides ties.
func NewTemplateMatcher(cfg config.Config) *TemplateMatcher {
	m := &TemplateMatcher{defaultKey: cfg.Roles.Default}
	for _, r := range cfg.Roles.Categories {
		if r.Priority <= 0 {
			continue
		}
		m.roles = append(m.roles, r)
	}
	if m.defaultKey == "" && len(m.roles) > 0 {
		m.defaultKey = m.roles[0].Key
	}
	return m
}

// Roles returns the roles in match order.
func (m *TemplateMatcher) Roles() []config.Role {
	return append([]config.Role(nil), m.roles...)
}

// Default is the role used when nothing matches.
func (m *TemplateMatcher) Default() string { return m.defaultKey }

// CountKeywords counts non-overlapping, case-insensitive occurrences of each
// role keyword in text. Keywords that do not occur are omitted.
func (m *TemplateMatcher) CountKeywords(text string) map[string]map[string]int {
	lower := strings.ToLower(text)
	out := make(map[string]map[string]int, len(m.roles))
	for _, r := range m.roles {
		counts := map[string]int{}
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if n := strings.Count(lower, kw); n > 0 {
				counts[kw] = n
			}
		}
		out[r.Key] = counts
	}
	return out
}

// CalculateScores divides each role's summed keyword counts by its priority.
// Roles missing from counts score 0.
func (m *TemplateMatcher) CalculateScores(counts map[string]map[string]int) map[string]float64 {
	scores := make(map[string]float64, len(m.roles))
	for _, r := range m.roles {
		total := 0
		for _, n := range counts[r.Key] {
			total += n
		}
		scores[r.Key] = float64(total) / float64(r.Priority)
	}
	return scores
}

// Best returns the highest scoring role. Ties go to the role configured
// first. When nothing scores above zero the default role is returned.
func (m *TemplateMatcher) Best(scores map[string]float64) (string, float64) {
	best, bestScore := "", 0.0
	for _, r := range m.roles {
		if s := scores[r.Key]; s > bestScore {
			best, bestScore = r.Key, s
		}
	}
	if best == "" {
		return m.defaultKey, 0
	}
	return best, bestScore
}

func (m *TemplateMatcher) Match(text string) Match {
	counts := m.CountKeywords(text)
	scores := m.CalculateScores(counts)
	role, score := m.Best(scores)
	return Match{Role: role, Score: score, Scores: scores, Counts: counts}
}
