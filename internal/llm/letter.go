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
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

var defaultLetter = []string{
	"I am writing to apply for the {title} position at {company}.",
	"My experience matches the role well and I would welcome the chance to discuss how I can contribute to your team.",
}

type letterReply struct {
	Paragraphs []string `json:"paragraphs"`
}

// Writer produces cover letter paragraphs.
type Writer struct {
	LLM           Completer
	MaxInputChars int
	Logger        *slog.Logger
}

// CoverLetter returns 2 to 4 paragraphs and how they were produced. Without
// a working LLM the role's configured paragraphs are used.
func (w *Writer) CoverLetter(ctx context.Context, p Posting, role config.Role, applicant config.Applicant) ([]string, string) {
	if w.LLM != nil {
		paras, err := w.ask(ctx, p, role, applicant)
		if err == nil {
			return paras, MethodLLM
		}
		logging.WithOperation(w.Logger, "cover_letter").Warn("llm letter failed, using configured text",
			"provider", w.LLM.Name(), logging.Role(role.Key), logging.Err(err))
	}
	return FillPlaceholders(role.Letter, p), MethodConfig
}

// FillPlaceholders substitutes {title} and {company}. Empty input falls back
// to a generic letter.
func FillPlaceholders(paras []string, p Posting) []string {
	if len(paras) == 0 {
		paras = defaultLetter
	}
	company := p.Company
	if company == "" {
		company = "your company"
	}
	r := strings.NewReplacer("{title}", p.Title, "{company}", company)
	out := make([]string, 0, len(paras))
	for _, s := range paras {
		out = append(out, r.Replace(s))
	}
	return out
}

func (w *Writer) ask(ctx context.Context, p Posting, role config.Role, a config.Applicant) ([]string, error) {
	schema, err := jsonschema.GenerateSchemaForType(letterReply{})
	if err != nil {
		return nil, err
	}

	user := fmt.Sprintf("Write the body of a cover letter (2 to 4 short paragraphs, no greeting or signature).\n"+
		"Applicant: %s, based in %s.\nSummary: %s\nStrengths for this role (%s):\n- %s\n\n"+
		"Job title: %s\nCompany: %s\nLocation: %s\n\nJob description:\n%s\n\n"+
		`Answer with JSON {"paragraphs": [...]}.`,
		a.Name, a.Location, a.Summary, role.Name, strings.Join(role.Highlights, "\n- "),
		p.Title, p.Company, p.Location, util.Clip(p.Description, w.MaxInputChars))

	raw, err := w.LLM.Complete(ctx, Request{
		System:      "You write concise, specific cover letters in the applicant's voice. Never invent experience.",
		User:        user,
		JSON:        true,
		SchemaName:  "cover_letter",
		Schema:      schema,
		MaxTokens:   900,
		Temperature: 0.6,
	})
	if err != nil {
		return nil, err
	}

	var reply letterReply
	if err := json.Unmarshal([]byte(CleanResponse(raw)), &reply); err != nil {
		return nil, fmt.Errorf("decode letter: %w", err)
	}
	var paras []string
	for _, s := range reply.Paragraphs {
		if s = strings.TrimSpace(s); s != "" {
			paras = append(paras, s)
		}
	}
	if len(paras) < 2 {
		return nil, fmt.Errorf("decode letter: want at least 2 paragraphs, got %d", len(paras))
	}
	if len(paras) > 4 {
		paras = paras[:4]
	}
	return paras, nil
}
