package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
)

func testConfig(roles ...config.Role) config.Config {
	var cfg config.Config
	cfg.Roles.Categories = roles
	return cfg
}

func TestCalculateScoresDividesByPriority(t *testing.T) {
	m := NewTemplateMatcher(testConfig(
		config.Role{Key: "devops", Priority: 1, Keywords: []string{"kubernetes"}},
		config.Role{Key: "backend", Priority: 3, Keywords: []string{"java"}},
	))

	scores := m.CalculateScores(map[string]map[string]int{
		"devops":  {"kubernetes": 2},
		"backend": {"java": 6, "spring": 3},
	})
	assert.InDelta(t, 2.0, scores["devops"], 1e-9)
	assert.InDelta(t, 3.0, scores["backend"], 1e-9)

	role, score := m.Best(scores)
	assert.Equal(t, "backend", role)
	assert.InDelta(t, 3.0, score, 1e-9)
}

func TestBestTieGoesToFirstConfiguredRole(t *testing.T) {
	m := NewTemplateMatcher(testConfig(
		config.Role{Key: "frontend", Priority: 2, Keywords: []string{"react"}},
		config.Role{Key: "fullstack", Priority: 1, Keywords: []string{"node"}},
	))

	role, score := m.Best(map[string]float64{"frontend": 1, "fullstack": 1})
	assert.Equal(t, "frontend", role)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestBestFallsBackToDefault(t *testing.T) {
	cfg := testConfig(
		config.Role{Key: "devops", Priority: 1, Keywords: []string{"terraform"}},
		config.Role{Key: "fullstack", Priority: 4, Keywords: []string{"react"}},
	)
	cfg.Roles.Default = "fullstack"

	got := NewTemplateMatcher(cfg).Match("We bake bread in Gothenburg")
	assert.Equal(t, "fullstack", got.Role)
	assert.Zero(t, got.Score)

	cfg.Roles.Default = ""
	got = NewTemplateMatcher(cfg).Match("nothing relevant")
	assert.Equal(t, "devops", got.Role)
}

func TestCountKeywordsCaseInsensitive(t *testing.T) {
	m := NewTemplateMatcher(testConfig(
		config.Role{Key: "android", Priority: 1, Keywords: []string{"Kotlin", "android", " "}},
	))

	counts := m.CountKeywords("Android developer: KOTLIN, kotlin coroutines and Android Automotive")
	assert.Equal(t, map[string]int{"kotlin": 2, "android": 2}, counts["android"])
}

func TestMatchDefaultRoles(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	m := NewTemplateMatcher(cfg)

	got := m.Match("DevOps Engineer. You will run Kubernetes on AWS with Terraform and build CI/CD.")
	assert.Equal(t, "devops_cloud", got.Role)
	assert.Greater(t, got.Score, got.Scores["backend"])

	got = m.Match("Android developer with Kotlin and Jetpack Compose")
	assert.Equal(t, "android", got.Role)
}

func TestYAMLScorer(t *testing.T) {
	var cfg config.Config
	cfg.Scoring.MinScore = 5
	cfg.Scoring.TitleRules = []config.Rule{{Tag: "engineer", Weight: 10, Any: []string{"Engineer"}}}
	cfg.Scoring.KeywordRules = []config.Rule{{Tag: "cloud", Weight: 8, Any: []string{"aws", "gcp"}}}
	cfg.Scoring.Penalties = []config.Penalty{{Reason: "too_senior", Weight: -20, Any: []string{"principal"}}}
	s := NewYAMLScorer(cfg.Scoring)

	score, tags := s.Score(domain.JobLead{Title: "Cloud Engineer", Description: "AWS and GCP"})
	assert.Equal(t, 18, score)
	assert.Equal(t, []string{"engineer", "cloud"}, tags)
	assert.True(t, s.Passes(score))

	score, tags = s.Score(domain.JobLead{Title: "Principal Engineer"})
	assert.Equal(t, -10, score)
	assert.Contains(t, tags, "-too_senior")
	assert.False(t, s.Passes(score))
}
