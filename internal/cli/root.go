// Package cli is the jobhunter command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

// DBFileName lives in the data directory.
const DBFileName = "jobhunter.db"

type rootOptions struct {
	configPath string
	dataDir    string
	logLevel   string
	logFormat  string
}

// app is what a command needs once flags are parsed.
type app struct {
	cfg     config.Config
	cfgPath string
	// created is set when this load wrote the default config.
	created bool
	logger  *slog.Logger
	db      *store.DB
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

type loadOpts struct {
	db       bool
	validate bool
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "jobhunter",
		Short: "Finds job postings, tailors a CV and cover letter for each and mails them",
		Long: `jobhunter scans job alert emails and job boards, classifies each posting
into a CV role, fills LaTeX templates for that role, compiles them with
pdflatex and emails the PDFs.

It runs once and exits; schedule "jobhunter run" from cron.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "jobhunter version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "config file (default <data-dir>/config.yml, created on first use)")
	pf.StringVar(&o.dataDir, "data-dir", "", "directory for the database, output and config (default $JOBHUNTER_DATA_DIR or .)")
	pf.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&o.logFormat, "log-format", "text", "text or json")

	root.AddCommand(
		newRunCmd(o),
		newScanCmd(o),
		newEnrichCmd(o),
		newClassifyCmd(o),
		newRenderCmd(o),
		newSendCmd(o),
		newJobsCmd(o),
		newConfigCmd(o),
		newSecretsCmd(o),
		newGmailCmd(o),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (o *rootOptions) resolveDataDir() string {
	if o.dataDir != "" {
		return o.dataDir
	}
	if v := strings.TrimSpace(os.Getenv("JOBHUNTER_DATA_DIR")); v != "" {
		return v
	}
	return "."
}

// load reads .env files, the config and env overrides, then opens the
// database when asked to.
func (o *rootOptions) load(lo loadOpts) (*app, error) {
	dataDir := o.resolveDataDir()
	if err := config.LoadDotEnv(".env", filepath.Join(dataDir, ".env")); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	// .env may have set it
	dataDir = o.resolveDataDir()

	logger, err := logging.New(os.Stderr, o.logFormat, o.logLevel)
	if err != nil {
		return nil, err
	}

	cfgPath, created := o.configPath, false
	if cfgPath == "" {
		if cfgPath, created, err = config.EnsureUserConfig(dataDir); err != nil {
			return nil, fmt.Errorf("config bootstrap: %w", err)
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config load (%s): %w", cfgPath, err)
	}
	config.OverlayEnv(&cfg, nil)
	if o.dataDir != "" || cfg.App.DataDir == "." {
		cfg.App.DataDir = dataDir
	}
	resolvePaths(&cfg)

	if lo.validate {
		norm, v := config.NormalizeAndValidate(cfg)
		for _, w := range v.Warnings {
			logger.Warn("config", "warning", w)
		}
		if !v.OK() {
			return nil, fmt.Errorf("invalid config %s:\n  %s", cfgPath, strings.Join(v.Errors, "\n  "))
		}
		cfg = norm
	}

	a := &app{cfg: cfg, cfgPath: cfgPath, created: created, logger: logger}
	if lo.db {
		if a.db, err = store.OpenAndMigrate(filepath.Join(cfg.App.DataDir, DBFileName)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// resolvePaths makes data files relative to the data directory.
func resolvePaths(cfg *config.Config) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(cfg.App.DataDir, *p)
		}
	}
	abs(&cfg.Gmail.CredentialsFile)
	abs(&cfg.Gmail.TokenFile)
	abs(&cfg.Metrics.Textfile)
}

func requireArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return errors.New("usage: " + cmd.CommandPath() + " " + usage)
		}
		return nil
	}
}
