package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/rank"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

// Classification methods.
const (
	MethodKeywords = "keywords"
	MethodLLM      = "llm"
	MethodConfig   = "config"
)

// Posting is the part of a job the prompts look at.
type Posting struct {
	Title       string
	Company     string
	Location    string
	Description string
}

// Text is what the keyword matcher counts over.
func (p Posting) Text() string { return p.Title + "\n" + p.Description }

type Classification struct {
	Role       string             `json:"role"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason,omitempty"`
	Method     string             `json:"method"`
	Score      float64            `json:"score"`
	Scores     map[string]float64 `json:"scores"`
}

// Classifier picks a CV role for a posting. The keyword matcher always
// runs; a configured LLM may override its choice.
type Classifier struct {
	Matcher       *rank.TemplateMatcher
	LLM           Completer
	MaxInputChars int
	Logger        *slog.Logger
}

func NewClassifier(cfg config.Config, c Completer, logger *slog.Logger) *Classifier {
	return &Classifier{
		Matcher:       rank.NewTemplateMatcher(cfg),
		LLM:           c,
		MaxInputChars: cfg.LLM.MaxInputChars,
		Logger:        logger,
	}
}

type verdict struct {
	Role       string  `json:"role"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (c *Classifier) Classify(ctx context.Context, p Posting) Classification {
	m := c.Matcher.Match(p.Text())
	out := Classification{Role: m.Role, Score: m.Score, Scores: m.Scores, Method: MethodKeywords}
	if total := sumScores(m.Scores); total > 0 {
		out.Confidence = m.Score / total
	}
	if c.LLM == nil {
		return out
	}

	v, err := c.ask(ctx, p)
	if err != nil {
		logging.WithOperation(c.Logger, "classify").Warn("llm classification failed, using keywords",
			"provider", c.LLM.Name(), logging.Role(m.Role), logging.Err(err))
		return out
	}
	out.Role = v.Role
	out.Confidence = v.Confidence
	out.Reason = v.Reason
	out.Method = MethodLLM
	out.Score = m.Scores[v.Role]
	return out
}

func (c *Classifier) ask(ctx context.Context, p Posting) (verdict, error) {
	roles := c.Matcher.Roles()
	keys := make([]string, 0, len(roles))
	var list strings.Builder
	for _, r := range roles {
		keys = append(keys, r.Key)
		fmt.Fprintf(&list, "- %s: %s (keywords: %s)\n", r.Key, r.Name, strings.Join(r.Keywords, ", "))
	}

	user := fmt.Sprintf("Roles:\n%s\nJob title: %s\nCompany: %s\nLocation: %s\n\nJob description:\n%s\n\n"+
		`Answer with JSON {"role": one of the role keys, "confidence": 0..1, "reason": one sentence}.`,
		list.String(), p.Title, p.Company, p.Location, util.Clip(p.Description, c.MaxInputChars))

	raw, err := c.LLM.Complete(ctx, Request{
		System:     "You classify job postings into exactly one CV role category.",
		User:       user,
		JSON:       true,
		SchemaName: "role_classification",
		Schema: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"role":       {Type: jsonschema.String, Enum: keys},
				"confidence": {Type: jsonschema.Number},
				"reason":     {Type: jsonschema.String},
			},
			Required:             []string{"role", "confidence", "reason"},
			AdditionalProperties: false,
		},
		MaxTokens:   300,
		Temperature: 0.1,
	})
	if err != nil {
		return verdict{}, err
	}

	var v verdict
	if err := json.Unmarshal([]byte(CleanResponse(raw)), &v); err != nil {
		return verdict{}, fmt.Errorf("decode classification: %w", err)
	}
	v.Role = strings.ToLower(strings.TrimSpace(v.Role))
	for _, k := range keys {
		if k == v.Role {
			v.Confidence = min(max(v.Confidence, 0), 1)
			return v, nil
		}
	}
	return verdict{}, fmt.Errorf("%w: %q", ErrUnknownRole, v.Role)
}

func sumScores(scores map[string]float64) float64 {
	total := 0.0
	for _, s := range scores {
		total += s
	}
	return total
}
