package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE files into the process environment.
// Missing files are skipped; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// OverlayEnv applies JOBHUNTER_* overrides on top of the file config.
func OverlayEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&cfg.App.DataDir, "JOBHUNTER_DATA_DIR")
	set(&cfg.Email.Username, "JOBHUNTER_IMAP_USERNAME")
	set(&cfg.SMTP.Host, "JOBHUNTER_SMTP_HOST")
	set(&cfg.SMTP.Username, "JOBHUNTER_SMTP_USERNAME")
	set(&cfg.SMTP.From, "JOBHUNTER_SMTP_FROM")
	set(&cfg.LLM.Provider, "JOBHUNTER_LLM_PROVIDER")
	set(&cfg.LLM.Model, "JOBHUNTER_LLM_MODEL")
	set(&cfg.LLM.BaseURL, "JOBHUNTER_LLM_BASE_URL")
	set(&cfg.Templates.Dir, "JOBHUNTER_TEMPLATES_DIR")
	set(&cfg.Templates.Pdflatex, "JOBHUNTER_PDFLATEX")
	set(&cfg.Metrics.Textfile, "JOBHUNTER_METRICS_TEXTFILE")

	if v := strings.TrimSpace(getenv("JOBHUNTER_SMTP_TO")); v != "" {
		var to []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				to = append(to, s)
			}
		}
		cfg.SMTP.To = to
	}
	if v := strings.TrimSpace(getenv("JOBHUNTER_SMTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = n
		}
	}
	if v := strings.TrimSpace(getenv("JOBHUNTER_MAX_JOBS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.MaxJobsPerRun = n
		}
	}
}
