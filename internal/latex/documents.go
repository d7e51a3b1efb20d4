package latex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
)

// Documents are the files produced for one job.
type Documents struct {
	Dir       string
	CVTex     string
	CVPDF     string
	LetterTex string
	LetterPDF string
}

// Builder fills the CV and cover letter templates for a role and
// compiles both.
type Builder struct {
	TemplatesDir string
	CoverLetter  string
	Compiler     *Compiler
}

func NewBuilder(cfg config.Config) *Builder {
	dir := cfg.Templates.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.App.DataDir, dir)
	}
	return &Builder{
		TemplatesDir: dir,
		CoverLetter:  cfg.Templates.CoverLetter,
		Compiler: &Compiler{
			Pdflatex: cfg.Templates.Pdflatex,
			Passes:   cfg.Templates.Passes,
			Timeout:  secondsToDuration(cfg.Templates.TimeoutSeconds),
			KeepAux:  cfg.Templates.KeepAux,
		},
	}
}

// Write renders both .tex files into outDir without compiling.
func (b *Builder) Write(role config.Role, data Data, outDir string) (Documents, error) {
	docs := Documents{Dir: outDir}

	cvTpl, err := ResolveCV(b.TemplatesDir, role)
	if err != nil {
		return docs, err
	}
	letterTpl := b.CoverLetter
	if !filepath.IsAbs(letterTpl) {
		letterTpl = filepath.Join(b.TemplatesDir, letterTpl)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return docs, fmt.Errorf("create output dir: %w", err)
	}

	write := func(tpl, name string) (string, error) {
		out, err := Render(tpl, data)
		if err != nil {
			return "", err
		}
		p := filepath.Join(outDir, name)
		if err := os.WriteFile(p, out, 0o644); err != nil {
			return "", err
		}
		return p, nil
	}

	if docs.CVTex, err = write(cvTpl, "cv.tex"); err != nil {
		return docs, err
	}
	if docs.LetterTex, err = write(letterTpl, "cover_letter.tex"); err != nil {
		return docs, err
	}
	return docs, nil
}

// Build writes and compiles the CV and the cover letter.
func (b *Builder) Build(ctx context.Context, role config.Role, data Data, outDir string) (Documents, error) {
	docs, err := b.Write(role, data, outDir)
	if err != nil {
		return docs, err
	}
	if docs.CVPDF, err = b.Compiler.Compile(ctx, docs.CVTex); err != nil {
		return docs, err
	}
	if docs.LetterPDF, err = b.Compiler.Compile(ctx, docs.LetterTex); err != nil {
		return docs, err
	}
	return docs, nil
}
