package poll

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/arbetsformedlingen"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/browser"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/email"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/greenhouse"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/indeed"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/lever"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/linkedin"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/smartrecruiters"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/secrets"
)

const maxDescriptionChars = 20000

// Sources holds the fetchers and describers built from the config.
type Sources struct {
	Fetchers  []types.Fetcher
	Describer *scrape.DescribeRegistry

	closers []func() error
}

// Close releases mailbox connections and the headless browser.
func (s *Sources) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Build wires every enabled source. A mailbox that cannot be opened is
// logged and left out so the boards still run.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) *Sources {
	logger = logging.WithOperation(logger, "sources")
	limiter := util.NewHostLimiter(cfg.Sources.RequestsPerSecond, cfg.Sources.Burst)
	client := util.NewClient(limiter, cfg.App.UserAgent)
	s := &Sources{}

	var pages util.PageFetcher = client
	if cfg.Sources.Indeed.RenderJS {
		b := browser.New(cfg.App.UserAgent, limiter)
		s.closers = append(s.closers, b.Close)
		pages = b
	}

	newEmailFetcher := func(src email.MessageSource, max int) *email.Fetcher {
		s.closers = append(s.closers, src.Close)
		return &email.Fetcher{
			Source:        src,
			MaxMessages:   max,
			SubjectAny:    cfg.Email.SearchSubjectAny,
			IndeedBaseURL: cfg.Sources.Indeed.BaseURL,
			Logger:        logger,
		}
	}

	if cfg.Email.Enabled {
		pw, err := secrets.Get(cfg, secrets.IMAP)
		if err != nil {
			logger.Warn("imap disabled for this run", logging.Err(err))
		} else {
			src := &email.IMAPSource{
				Host:     cfg.Email.IMAPHost,
				Port:     cfg.Email.IMAPPort,
				Username: cfg.Email.Username,
				Password: pw,
				Mailbox:  cfg.Email.Mailbox,
				Logger:   logger,
			}
			s.Fetchers = append(s.Fetchers, newEmailFetcher(src, cfg.Email.MaxMessages))
		}
	}
	if cfg.Gmail.Enabled {
		svc, err := email.NewGmailService(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
		if err != nil {
			logger.Warn("gmail disabled for this run", logging.Err(err))
		} else {
			s.Fetchers = append(s.Fetchers, newEmailFetcher(email.NewGmailSource(svc, cfg.Gmail.Query), cfg.Gmail.MaxMessages))
		}
	}

	src := cfg.Sources
	if src.LinkedIn.Enabled {
		s.Fetchers = append(s.Fetchers, &linkedin.Fetcher{Client: client, Board: src.LinkedIn, Logger: logger})
	}
	if src.Indeed.Enabled {
		s.Fetchers = append(s.Fetchers, &indeed.Fetcher{Pages: pages, Board: src.Indeed, Logger: logger})
	}
	if src.Arbetsformedlingen.Enabled {
		s.Fetchers = append(s.Fetchers, &arbetsformedlingen.Fetcher{Client: client, Board: src.Arbetsformedlingen, Logger: logger})
	}
	if src.Greenhouse.Enabled && len(src.Greenhouse.Companies) > 0 {
		s.Fetchers = append(s.Fetchers, greenhouse.New(src.Greenhouse.Companies, client, logger))
	}
	if src.Lever.Enabled && len(src.Lever.Companies) > 0 {
		s.Fetchers = append(s.Fetchers, lever.New(src.Lever.Companies, client, logger))
	}
	if src.SmartRecruiters.Enabled && len(src.SmartRecruiters.Companies) > 0 {
		s.Fetchers = append(s.Fetchers, smartrecruiters.New(src.SmartRecruiters.Companies, client, logger))
	}

	// Describers are wired regardless of which boards are enabled because
	// email alerts link to all of them.
	s.Describer = &scrape.DescribeRegistry{
		Describers: []types.Describer{
			&linkedin.Describer{Client: client, BaseURL: src.LinkedIn.BaseURL},
			&indeed.Describer{Pages: pages, BaseURL: src.Indeed.BaseURL},
			&arbetsformedlingen.Describer{Client: client, BaseURL: src.Arbetsformedlingen.BaseURL},
			&smartrecruiters.Describer{Client: client},
		},
		Fallback: client,
		MaxChars: maxDescriptionChars,
	}
	return s
}
