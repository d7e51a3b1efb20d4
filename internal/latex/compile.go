package latex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var auxExts = []string{".aux", ".log", ".out"}

// CompileError carries the tail of the pdflatex output.
type CompileError struct {
	TexPath string
	Tail    string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("pdflatex %s: %v\n%s", filepath.Base(e.TexPath), e.Err, e.Tail)
}

func (e *CompileError) Unwrap() error { return e.Err }

type Compiler struct {
	Pdflatex string
	Passes   int
	Timeout  time.Duration
	KeepAux  bool
}

// Compile runs pdflatex next to texPath and returns the PDF path.
func (c *Compiler) Compile(ctx context.Context, texPath string) (string, error) {
	bin := c.Pdflatex
	if bin == "" {
		bin = "pdflatex"
	}
	dir := filepath.Dir(texPath)
	base := strings.TrimSuffix(filepath.Base(texPath), filepath.Ext(texPath))
	pdf := filepath.Join(dir, base+".pdf")

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	for pass := 0; pass < max(c.Passes, 1); pass++ {
		cmd := exec.CommandContext(ctx, bin,
			"-interaction=nonstopmode",
			"-halt-on-error",
			"-output-directory="+dir,
			texPath,
		)
		cmd.Dir = dir
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("%w: %w", err, ctx.Err())
			}
			return "", &CompileError{TexPath: texPath, Tail: tail(out.String(), 20), Err: err}
		}
	}

	if _, err := os.Stat(pdf); err != nil {
		return "", &CompileError{TexPath: texPath, Err: errors.New("no pdf produced")}
	}
	if !c.KeepAux {
		for _, ext := range auxExts {
			_ = os.Remove(filepath.Join(dir, base+ext))
		}
	}
	return pdf, nil
}

func secondsToDuration(n int) time.Duration { return time.Duration(n) * time.Second }

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
