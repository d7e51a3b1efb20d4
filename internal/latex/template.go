// Package latex fills .tex templates and compiles them with pdflatex.
package latex

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
)

// ErrTemplateNotFound means no CV template exists for a role.
var ErrTemplateNotFound = errors.New("latex template not found")

//go:embed templates/*.tex
var defaultTemplates embed.FS

type JobInfo struct {
	Company  string
	Title    string
	Location string
	URL      string
}

type RoleInfo struct {
	Key  string
	Name string
}

// Data is what templates see. Templates use << >> as delimiters so LaTeX
// braces need no escaping in the template itself.
type Data struct {
	Applicant  config.Applicant
	Job        JobInfo
	Role       RoleInfo
	Highlights []string
	Letter     []string
	Date       string
}

var escaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`^`, `\textasciicircum{}`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`%`, `\%`,
)

// Escape makes s safe to place in LaTeX body text.
func Escape(s string) string { return escaper.Replace(s) }

func escapeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Escape(s)
	}
	return out
}

// Escaped returns a copy with every string LaTeX-escaped.
func (d Data) Escaped() Data {
	a := d.Applicant
	return Data{
		Applicant: config.Applicant{
			Name: Escape(a.Name), Email: Escape(a.Email), Phone: Escape(a.Phone),
			Location: Escape(a.Location), LinkedIn: Escape(a.LinkedIn), GitHub: Escape(a.GitHub),
			Website: Escape(a.Website), Summary: Escape(a.Summary),
		},
		Job: JobInfo{
			Company: Escape(d.Job.Company), Title: Escape(d.Job.Title),
			Location: Escape(d.Job.Location), URL: Escape(d.Job.URL),
		},
		Role:       RoleInfo{Key: Escape(d.Role.Key), Name: Escape(d.Role.Name)},
		Highlights: escapeAll(d.Highlights),
		Letter:     escapeAll(d.Letter),
		Date:       Escape(d.Date),
	}
}

// Render executes the template file at path with escaped data.
func Render(path string, data Data) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return nil, err
	}
	return RenderString(filepath.Base(path), string(b), data)
}

func RenderString(name, text string, data Data) ([]byte, error) {
	tpl, err := template.New(name).Delims("<<", ">>").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data.Escaped()); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// ResolveCV finds the CV template for a role: the role's own template, then
// cv_<key>.tex, then cv_default.tex.
func ResolveCV(dir string, role config.Role) (string, error) {
	var candidates []string
	if role.Template != "" {
		candidates = append(candidates, role.Template)
	}
	candidates = append(candidates, "cv_"+role.Key+".tex", "cv_default.tex")

	for _, name := range candidates {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, name)
		}
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: role %q in %s", ErrTemplateNotFound, role.Key, dir)
}

// WriteDefaultTemplates copies the built-in templates into dir, keeping
// files that already exist. It returns the paths it wrote.
func WriteDefaultTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	entries, err := defaultTemplates.ReadDir("templates")
	if err != nil {
		return nil, err
	}

	var written []string
	for _, e := range entries {
		dst := filepath.Join(dir, e.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		b, err := defaultTemplates.ReadFile("templates/" + e.Name())
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(dst, b, 0o644); err != nil {
			return written, err
		}
		written = append(written, dst)
	}
	return written, nil
}
