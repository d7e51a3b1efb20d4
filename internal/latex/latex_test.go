package latex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, `R\&D 100\% \$5 \#1 a\_b \{x\} \textasciitilde{}\textasciicircum{}\textbackslash{}`,
		Escape(`R&D 100% $5 #1 a_b {x} ~^\`))
}

func sampleData() Data {
	return Data{
		Applicant:  config.Applicant{Name: "Alex Doe", Location: "Göteborg", Email: "alex@example.com"},
		Job:        JobInfo{Company: "AT&T", Title: "C# Developer", Location: "Remote"},
		Role:       RoleInfo{Key: "backend", Name: "Backend Developer"},
		Highlights: []string{"Cut p99 latency by 40%"},
		Letter:     []string{"First.", "Second."},
		Date:       "2026-10-19",
	}
}

func TestRenderStringEscapesValues(t *testing.T) {
	out, err := RenderString("t", `\section{<< .Job.Title >> at << .Job.Company >>}<< range .Highlights >>\item << . >><< end >>`, sampleData())
	require.NoError(t, err)
	assert.Equal(t, `\section{C\# Developer at AT\&T}\item Cut p99 latency by 40\%`, string(out))

	_, err = RenderString("t", `<< .Nope >>`, sampleData())
	assert.Error(t, err)
}

func TestDefaultTemplatesRender(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteDefaultTemplates(dir)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	again, err := WriteDefaultTemplates(dir)
	require.NoError(t, err)
	assert.Empty(t, again)

	cv, err := Render(filepath.Join(dir, "cv_default.tex"), sampleData())
	require.NoError(t, err)
	assert.Contains(t, string(cv), `\item Cut p99 latency by 40\%`)
	assert.Contains(t, string(cv), "Backend Developer")

	letter, err := Render(filepath.Join(dir, "cover_letter.tex"), sampleData())
	require.NoError(t, err)
	assert.Contains(t, string(letter), "First.\n\nSecond.")
	assert.Contains(t, string(letter), `AT\&T`)
}

func TestResolveCV(t *testing.T) {
	dir := t.TempDir()
	role := config.Role{Key: "android"}

	_, err := ResolveCV(dir, role)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	write := func(name string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	write("cv_default.tex")
	p, err := ResolveCV(dir, role)
	require.NoError(t, err)
	assert.Equal(t, "cv_default.tex", filepath.Base(p))

	write("cv_android.tex")
	p, err = ResolveCV(dir, role)
	require.NoError(t, err)
	assert.Equal(t, "cv_android.tex", filepath.Base(p))

	write("special.tex")
	role.Template = "special.tex"
	p, err = ResolveCV(dir, role)
	require.NoError(t, err)
	assert.Equal(t, "special.tex", filepath.Base(p))

	_, err = Render(filepath.Join(dir, "missing.tex"), sampleData())
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

const fakePdflatex = `#!/bin/sh
out=.
for a in "$@"; do
  case "$a" in
    -output-directory=*) out="${a#-output-directory=}" ;;
  esac
  file="$a"
done
base=$(basename "$file" .tex)
if grep -q BROKEN "$file"; then
  echo "! Undefined control sequence."
  echo "l.3 \BROKEN"
  exit 1
fi
echo "%PDF-1.4" > "$out/$base.pdf"
echo log > "$out/$base.log"
echo aux > "$out/$base.aux"
`

func fakeCompiler(t *testing.T) *Compiler {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	bin := filepath.Join(t.TempDir(), "pdflatex")
	require.NoError(t, os.WriteFile(bin, []byte(fakePdflatex), 0o755))
	return &Compiler{Pdflatex: bin, Passes: 2, Timeout: 10 * time.Second}
}

func TestCompile(t *testing.T) {
	c := fakeCompiler(t)
	dir := t.TempDir()
	tex := filepath.Join(dir, "cv.tex")
	require.NoError(t, os.WriteFile(tex, []byte(`\documentclass{article}`), 0o644))

	pdf, err := c.Compile(context.Background(), tex)
	require.NoError(t, err)
	assert.FileExists(t, pdf)
	assert.NoFileExists(t, filepath.Join(dir, "cv.aux"))
	assert.NoFileExists(t, filepath.Join(dir, "cv.log"))

	c.KeepAux = true
	_, err = c.Compile(context.Background(), tex)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "cv.log"))
}

func TestCompileError(t *testing.T) {
	c := fakeCompiler(t)
	tex := filepath.Join(t.TempDir(), "bad.tex")
	require.NoError(t, os.WriteFile(tex, []byte("\\BROKEN\n"), 0o644))

	_, err := c.Compile(context.Background(), tex)
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Tail, "Undefined control sequence")
}

func TestBuilderBuild(t *testing.T) {
	tplDir := t.TempDir()
	_, err := WriteDefaultTemplates(tplDir)
	require.NoError(t, err)

	b := &Builder{TemplatesDir: tplDir, CoverLetter: "cover_letter.tex", Compiler: fakeCompiler(t)}
	out := filepath.Join(t.TempDir(), "2026-10-19_att_abcd1234")
	docs, err := b.Build(context.Background(), config.Role{Key: "backend"}, sampleData(), out)
	require.NoError(t, err)
	assert.FileExists(t, docs.CVPDF)
	assert.FileExists(t, docs.LetterPDF)
	assert.True(t, strings.HasSuffix(docs.LetterTex, "cover_letter.tex"))
}

func TestSlugifyAndOutputDir(t *testing.T) {
	assert.Equal(t, "volvo-cars-goteborg", Slugify("Volvo Cars (Göteborg)"))
	assert.Equal(t, "job", Slugify("!!!"))

	d := OutputDir("/data/output", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), "AT&T", "https://x")
	base := filepath.Base(d)
	assert.True(t, strings.HasPrefix(base, "2026-10-19_at-t_"), base)
	assert.Len(t, base, len("2026-10-19_at-t_")+8)
}
