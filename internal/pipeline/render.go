package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/events"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/latex"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/llm"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/metrics"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

// Render fills and compiles the documents of every classified job.
func (p *Pipeline) Render(ctx context.Context) (StageStats, error) {
	jobs, err := store.JobsByStatus(ctx, p.DB, domain.StatusClassified, p.limit())
	if err != nil {
		return StageStats{}, err
	}
	var stats StageStats
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		ok, err := p.renderJob(ctx, j)
		if err != nil {
			return stats, err
		}
		if ok {
			stats.Processed++
		} else {
			stats.Failed++
		}
	}
	p.emit(events.StageCompleted, map[string]any{"stage": "render", "stats": stats})
	return stats, nil
}

// RenderJob renders one stored job regardless of its status.
func (p *Pipeline) RenderJob(ctx context.Context, id int64) error {
	j, err := store.GetJob(ctx, p.DB, id)
	if err != nil {
		return err
	}
	if j.Role == "" {
		return fmt.Errorf("job %d has no role yet, run classify first", id)
	}
	ok, err := p.renderJob(ctx, j)
	if err != nil {
		return err
	}
	if !ok {
		j, _ = store.GetJob(ctx, p.DB, id)
		return fmt.Errorf("render job %d: %s", id, j.LastError)
	}
	return nil
}

func (p *Pipeline) renderJob(ctx context.Context, j store.Job) (bool, error) {
	logger := logging.WithOperation(p.Logger, "render").With(logging.JobID(j.ID))

	role, ok := p.roleFor(j.Role)
	if !ok {
		return false, p.fail(ctx, logger, j, "render", fmt.Errorf("%w: %q", llm.ErrUnknownRole, j.Role))
	}

	posting := postingOf(j)
	letter, method := p.Writer.CoverLetter(ctx, posting, role, p.Cfg.Applicant)

	now := p.now()
	data := latex.Data{
		Applicant: p.Cfg.Applicant,
		Job: latex.JobInfo{
			Company:  j.Company,
			Title:    j.Title,
			Location: j.Location,
			URL:      j.URL,
		},
		Role:       latex.RoleInfo{Key: role.Key, Name: role.Name},
		Highlights: role.Highlights,
		Letter:     letter,
		Date:       now.Format("2 January 2006"),
	}
	outDir := latex.OutputDir(filepath.Join(p.Cfg.App.DataDir, "output"), now, j.Company, j.URL)

	docs, err := p.Builder.Build(ctx, role, data, outDir)
	p.observeCompile(docs)
	if err != nil {
		return false, p.fail(ctx, logger, j, "render", err)
	}
	if err := store.SetRendered(ctx, p.DB, j.ID, docs.CVPDF, docs.LetterPDF); err != nil {
		return false, err
	}

	logger.Info("documents rendered", logging.Role(role.Key), "letter", method, "dir", docs.Dir)
	p.emit(events.JobRendered, map[string]any{
		"id":     j.ID,
		"role":   role.Key,
		"letter": method,
		"cv":     docs.CVPDF,
		"cover":  docs.LetterPDF,
	})
	return true, nil
}

// roleFor falls back to the default role for keys no longer in the config.
func (p *Pipeline) roleFor(key string) (config.Role, bool) {
	if r, ok := p.Cfg.RoleByKey(key); ok {
		return r, true
	}
	return p.Cfg.RoleByKey(p.Cfg.Roles.Default)
}

// observeCompile counts compilations. The CV is compiled first and the
// letter only after it succeeded.
func (p *Pipeline) observeCompile(docs latex.Documents) {
	if docs.LetterTex == "" {
		return
	}
	m := p.Metrics.DocsCompiled
	if docs.CVPDF == "" {
		m.WithLabelValues(metrics.KindCV, metrics.ResultError).Inc()
		return
	}
	m.WithLabelValues(metrics.KindCV, metrics.ResultSuccess).Inc()
	if docs.LetterPDF == "" {
		m.WithLabelValues(metrics.KindLetter, metrics.ResultError).Inc()
		return
	}
	m.WithLabelValues(metrics.KindLetter, metrics.ResultSuccess).Inc()
}
