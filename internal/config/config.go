package config

import (
	_ "embed"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultConfig []byte

type Rule struct {
	Tag    string   `yaml:"tag"`
	Weight int      `yaml:"weight"`
	Any    []string `yaml:"any"`
}

type Penalty struct {
	Reason string   `yaml:"reason"`
	Weight int      `yaml:"weight"`
	Any    []string `yaml:"any"`
}

// Scoring holds the relevance rules applied before a lead is stored.
type Scoring struct {
	MinScore     int       `yaml:"min_score"`
	TitleRules   []Rule    `yaml:"title_rules"`
	KeywordRules []Rule    `yaml:"keyword_rules"`
	Penalties    []Penalty `yaml:"penalties"`
}

type Company struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// Board configures a searchable job board.
type Board struct {
	Enabled  bool     `yaml:"enabled"`
	BaseURL  string   `yaml:"base_url"`
	Queries  []string `yaml:"queries"`
	Location string   `yaml:"location"`
	MaxPages int      `yaml:"max_pages"`
	Limit    int      `yaml:"limit"`
	RenderJS bool     `yaml:"render_js"`
}

// Applicant is the person the documents are written for.
type Applicant struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Location string `yaml:"location"`
	LinkedIn string `yaml:"linkedin"`
	GitHub   string `yaml:"github"`
	Website  string `yaml:"website"`
	Summary  string `yaml:"summary"`
}

// Role is one CV template category. Lower priority values weigh more.
type Role struct {
	Key        string   `yaml:"key"`
	Name       string   `yaml:"name"`
	Priority   int      `yaml:"priority"`
	Keywords   []string `yaml:"keywords"`
	Template   string   `yaml:"template"`
	Highlights []string `yaml:"highlights"`
	Letter     []string `yaml:"letter"`
}

type Config struct {
	App struct {
		DataDir   string `yaml:"data_dir"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"app"`

	Email struct {
		Enabled          bool     `yaml:"enabled"`
		IMAPHost         string   `yaml:"imap_host"`
		IMAPPort         int      `yaml:"imap_port"`
		Username         string   `yaml:"username"`
		Mailbox          string   `yaml:"mailbox"`
		SearchSubjectAny []string `yaml:"search_subject_any"`
		MaxMessages      int      `yaml:"max_messages"`
	} `yaml:"email"`

	Gmail struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		Query           string `yaml:"query"`
		MaxMessages     int    `yaml:"max_messages"`
	} `yaml:"gmail"`

	SMTP struct {
		Host       string   `yaml:"host"`
		Port       int      `yaml:"port"`
		Username   string   `yaml:"username"`
		From       string   `yaml:"from"`
		To         []string `yaml:"to"`
		Subject    string   `yaml:"subject"`
		MaxRetries int      `yaml:"max_retries"`
	} `yaml:"smtp"`

	LLM struct {
		Provider       string `yaml:"provider"` // none | openai | gemini
		Model          string `yaml:"model"`
		BaseURL        string `yaml:"base_url"`
		MaxRetries     int    `yaml:"max_retries"`
		MaxInputChars  int    `yaml:"max_input_chars"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		CoverLetter    bool   `yaml:"cover_letter"`
	} `yaml:"llm"`

	Sources struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`

		LinkedIn           Board `yaml:"linkedin"`
		Indeed             Board `yaml:"indeed"`
		Arbetsformedlingen Board `yaml:"arbetsformedlingen"`

		Greenhouse struct {
			Enabled   bool      `yaml:"enabled"`
			Companies []Company `yaml:"companies"`
		} `yaml:"greenhouse"`
		Lever struct {
			Enabled   bool      `yaml:"enabled"`
			Companies []Company `yaml:"companies"`
		} `yaml:"lever"`
		SmartRecruiters struct {
			Enabled   bool      `yaml:"enabled"`
			Companies []Company `yaml:"companies"`
		} `yaml:"smartrecruiters"`
	} `yaml:"sources"`

	Filters struct {
		RemoteOK       bool     `yaml:"remote_ok"`
		LocationsAllow []string `yaml:"locations_allow"`
		LocationsBlock []string `yaml:"locations_block"`
	} `yaml:"filters"`

	Scoring Scoring `yaml:"scoring"`

	Roles struct {
		Default    string `yaml:"default"`
		Categories []Role `yaml:"categories"`
	} `yaml:"roles"`

	Templates struct {
		Dir            string `yaml:"dir"`
		CoverLetter    string `yaml:"cover_letter"`
		Pdflatex       string `yaml:"pdflatex"`
		Passes         int    `yaml:"passes"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		KeepAux        bool   `yaml:"keep_aux"`
	} `yaml:"templates"`

	Applicant Applicant `yaml:"applicant"`

	Pipeline struct {
		MaxJobsPerRun int `yaml:"max_jobs_per_run"`
		MaxAttempts   int `yaml:"max_attempts"`
		Concurrency   int `yaml:"concurrency"`
	} `yaml:"pipeline"`

	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
}

// RoleByKey returns the configured role with the given key.
func (c Config) RoleByKey(key string) (Role, bool) {
	for _, r := range c.Roles.Categories {
		if r.Key == key {
			return r, true
		}
	}
	return Role{}, false
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML and fills unset fields with defaults.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() (Config, error) {
	return Parse(defaultConfig)
}

func applyDefaults(cfg *Config) {
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = "."
	}
	if cfg.App.UserAgent == "" {
		cfg.App.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}

	if cfg.Email.IMAPPort == 0 {
		cfg.Email.IMAPPort = 993
	}
	if cfg.Email.Mailbox == "" {
		cfg.Email.Mailbox = "INBOX"
	}
	if cfg.Email.MaxMessages <= 0 {
		cfg.Email.MaxMessages = 200
	}

	if cfg.Gmail.Query == "" {
		cfg.Gmail.Query = "is:unread newer_than:30d"
	}
	if cfg.Gmail.MaxMessages <= 0 {
		cfg.Gmail.MaxMessages = 100
	}
	if cfg.Gmail.CredentialsFile == "" {
		cfg.Gmail.CredentialsFile = "credentials.json"
	}
	if cfg.Gmail.TokenFile == "" {
		cfg.Gmail.TokenFile = "gmail_token.json"
	}

	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.Subject == "" {
		cfg.SMTP.Subject = "Job application ready: {title} at {company}"
	}
	if cfg.SMTP.MaxRetries <= 0 {
		cfg.SMTP.MaxRetries = 3
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "none"
	}
	if cfg.LLM.MaxRetries <= 0 {
		cfg.LLM.MaxRetries = 3
	}
	if cfg.LLM.MaxInputChars <= 0 {
		cfg.LLM.MaxInputChars = 12000
	}
	if cfg.LLM.TimeoutSeconds <= 0 {
		cfg.LLM.TimeoutSeconds = 60
	}

	if cfg.Sources.RequestsPerSecond <= 0 {
		cfg.Sources.RequestsPerSecond = 1
	}
	if cfg.Sources.Burst <= 0 {
		cfg.Sources.Burst = 2
	}
	if cfg.Sources.LinkedIn.BaseURL == "" {
		cfg.Sources.LinkedIn.BaseURL = "https://www.linkedin.com"
	}
	if cfg.Sources.Indeed.BaseURL == "" {
		cfg.Sources.Indeed.BaseURL = "https://se.indeed.com"
	}
	if cfg.Sources.Arbetsformedlingen.BaseURL == "" {
		cfg.Sources.Arbetsformedlingen.BaseURL = "https://jobsearch.api.jobtechdev.se"
	}
	for _, b := range []*Board{&cfg.Sources.LinkedIn, &cfg.Sources.Indeed, &cfg.Sources.Arbetsformedlingen} {
		if b.MaxPages <= 0 {
			b.MaxPages = 1
		}
		if b.Limit <= 0 {
			b.Limit = 25
		}
	}

	if cfg.Templates.Dir == "" {
		cfg.Templates.Dir = "templates"
	}
	if cfg.Templates.CoverLetter == "" {
		cfg.Templates.CoverLetter = "cover_letter.tex"
	}
	if cfg.Templates.Pdflatex == "" {
		cfg.Templates.Pdflatex = "pdflatex"
	}
	if cfg.Templates.Passes <= 0 {
		cfg.Templates.Passes = 1
	}
	if cfg.Templates.TimeoutSeconds <= 0 {
		cfg.Templates.TimeoutSeconds = 120
	}

	if cfg.Pipeline.MaxJobsPerRun <= 0 {
		cfg.Pipeline.MaxJobsPerRun = 20
	}
	if cfg.Pipeline.MaxAttempts <= 0 {
		cfg.Pipeline.MaxAttempts = 3
	}
	if cfg.Pipeline.Concurrency <= 0 {
		cfg.Pipeline.Concurrency = 4
	}
}
