package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/events"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/runlock"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInitWritesOnce(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "", "config", "init", "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote config.yml")
	assert.Contains(t, out, "wrote cv_default.tex")
	assert.Contains(t, out, "wrote cover_letter.tex")
	assert.FileExists(t, filepath.Join(dir, "config.yml"))
	assert.FileExists(t, filepath.Join(dir, "templates", "cv_default.tex"))

	out, err = execute(t, "", "config", "init", "--data-dir", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "wrote")
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "", "config", "validate", "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("roles:\n  default: nope\n  categories:\n    - key: a\n      priority: 0\n"), 0o644))
	out, err = execute(t, "", "config", "validate", "--data-dir", dir, "--config", bad)
	require.Error(t, err)
	assert.Contains(t, out, "error:")
}

func TestRunDryRunJSON(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "", "run", "--dry-run", "--json", "--data-dir", dir)
	require.NoError(t, err)

	var types []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var e events.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e), sc.Text())
		assert.NotEmpty(t, e.RunID)
		types = append(types, e.Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, events.RunStarted, types[0])
	assert.Equal(t, events.RunFinished, types[len(types)-1])
	assert.FileExists(t, filepath.Join(dir, DBFileName))
}

func TestRunHumanSummary(t *testing.T) {
	out, err := execute(t, "", "run", "--dry-run", "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, "scan:      0 new jobs")
	assert.Contains(t, out, "send:")
}

func TestRunRefusesWhenLocked(t *testing.T) {
	dir := t.TempDir()
	l, err := runlock.Acquire(dir)
	require.NoError(t, err)
	defer l.Release()

	_, err = execute(t, "", "run", "--data-dir", dir)
	assert.ErrorIs(t, err, runlock.ErrLocked)
}

func TestClassifyText(t *testing.T) {
	posting := "DevOps Engineer\nWe run Kubernetes on AWS with Terraform and Docker."
	out, err := execute(t, posting, "classify", "--text", "-", "--data-dir", t.TempDir())
	require.NoError(t, err)

	var got textClassification
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "devops_cloud", got.Role)
	assert.Equal(t, "keywords", got.Method)
	assert.Equal(t, 1, got.Counts["devops_cloud"]["kubernetes"])
}

func TestJobsListEmpty(t *testing.T) {
	out, err := execute(t, "", "jobs", "list", "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "0 jobs")
}

func TestSecretsRejectsUnknownName(t *testing.T) {
	_, err := execute(t, "x\n", "secrets", "set", "ftp", "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, "unknown secret")

	_, err = execute(t, "", "secrets", "delete", "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, "usage:")
}

func TestResolvePaths(t *testing.T) {
	o := &rootOptions{dataDir: t.TempDir(), logLevel: "error"}
	a, err := o.load(loadOpts{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(o.dataDir, "credentials.json"), a.cfg.Gmail.CredentialsFile)
	assert.Equal(t, filepath.Join(o.dataDir, "gmail_token.json"), a.cfg.Gmail.TokenFile)
	assert.Empty(t, a.cfg.Metrics.Textfile)
}
