package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSource reads unread messages through the Gmail REST API.
type GmailSource struct {
	svc   *gmail.UsersService
	query string
}

// NewGmailSource wraps an authenticated Gmail service.
func NewGmailSource(svc *gmail.Service, query string) *GmailSource {
	return &GmailSource{svc: svc.Users, query: query}
}

// NewGmailService builds a Gmail service from an OAuth client config file
// and a cached token.
func NewGmailService(ctx context.Context, credentialsFile, tokenFile string, opts ...option.ClientOption) (*gmail.Service, error) {
	conf, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("gmail token %s: %w (run `jobhunter gmail auth`)", tokenFile, err)
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(conf.Client(ctx, tok))}, opts...)
	return gmail.NewService(ctx, opts...)
}

func (s *GmailSource) Name() string { return "gmail" }

func (s *GmailSource) Fetch(ctx context.Context, max int) ([]EmailMessage, error) {
	if max <= 0 {
		max = 50
	}

	var ids []string
	pageToken := ""
	for len(ids) < max {
		req := s.svc.Messages.List("me").Q(s.query).MaxResults(int64(max - len(ids))).Context(ctx)
		if pageToken != "" {
			req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("gmail list: %w", err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	if len(ids) > max {
		ids = ids[:max]
	}

	out := make([]EmailMessage, 0, len(ids))
	for _, id := range ids {
		m, err := s.svc.Messages.Get("me", id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get %s: %w", id, err)
		}
		raw, err := decodeRaw(m.Raw)
		if err != nil {
			return nil, fmt.Errorf("gmail decode %s: %w", id, err)
		}

		em := EmailMessage{ID: id, Raw: raw}
		if m.InternalDate > 0 {
			em.Date = time.UnixMilli(m.InternalDate)
		}
		subj, from, date := parseHeadersFallback(raw)
		em.Subject, em.From = subj, from
		if em.Date.IsZero() {
			em.Date = date
		}
		out = append(out, em)
	}
	return out, nil
}

func (s *GmailSource) MarkSeen(ctx context.Context, ids []string) error {
	for _, id := range ids {
		_, err := s.svc.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{"UNREAD"},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("gmail mark read %s: %w", id, err)
		}
	}
	return nil
}

func (s *GmailSource) Close() error { return nil }

func decodeRaw(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// OAuthConfig reads a Google "installed app" client file.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}
	return conf, nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token file has no tokens")
	}
	return &tok, nil
}

// SaveToken writes tok with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
