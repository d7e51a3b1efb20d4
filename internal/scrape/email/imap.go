package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPSource reads a mailbox over IMAPS. The connection is opened lazily
// on the first Fetch and reused by MarkSeen.
type IMAPSource struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	Logger   *slog.Logger

	mu sync.Mutex
	c  *imapclient.Client
}

func (s *IMAPSource) Name() string { return "imap" }

func (s *IMAPSource) addr() string {
	port := s.Port
	if port == 0 {
		port = 993
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

func (s *IMAPSource) client(ctx context.Context) (*imapclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return s.c, nil
	}

	c, err := DialAndLoginIMAP(ctx, s.addr(), s.Username, s.Password, &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: s.Host,
	})
	if err != nil {
		return nil, err
	}

	mailbox := s.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		LogoutAndClose(c, s.Logger)
		return nil, fmt.Errorf("imap select %q: %w", mailbox, err)
	}
	s.c = c
	return c, nil
}

func (s *IMAPSource) Fetch(ctx context.Context, max int) ([]EmailMessage, error) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return FetchUnseen(ctx, c, max)
}

func (s *IMAPSource) MarkSeen(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	uids := make([]imap.UID, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return fmt.Errorf("imap mark seen: bad uid %q", id)
		}
		uids = append(uids, imap.UID(n))
	}
	c, err := s.client(ctx)
	if err != nil {
		return err
	}
	return MarkSeen(c, uids)
}

func (s *IMAPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		LogoutAndClose(s.c, s.Logger)
		s.c = nil
	}
	return nil
}

// DialAndLoginIMAP connects over TLS and logs in.
func DialAndLoginIMAP(ctx context.Context, addr, username, password string, tlsCfg *tls.Config) (*imapclient.Client, error) {
	if addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{TLSConfig: tlsCfg})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// Unblock pending commands if the run is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	if err := c.Login(username, password).Wait(); err != nil {
		stop()
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

// FetchUnseen pulls up to max unseen messages newer than three months,
// newest first. BODY.PEEK[] leaves \Seen untouched.
func FetchUnseen(ctx context.Context, c *imapclient.Client, max int) ([]EmailMessage, error) {
	if c == nil {
		return nil, errors.New("imap client is nil")
	}
	if max <= 0 {
		max = 50
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   time.Now().AddDate(0, -3, 0),
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return []EmailMessage{}, nil
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	return readFetch(ctx, fetchCmd, bodyAll, len(uids))
}

type fetchStream interface {
	Next() *imapclient.FetchMessageData
	Close() error
}

// readFetch drains cmd into messages and closes it exactly once.
func readFetch(ctx context.Context, cmd fetchStream, bodyAll *imap.FetchItemBodySection, n int) (out []EmailMessage, err error) {
	defer func() {
		if cerr := cmd.Close(); cerr != nil && err == nil {
			out, err = nil, fmt.Errorf("imap fetch close: %w", cerr)
		}
	}()

	out = make([]EmailMessage, 0, n)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgData := cmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		em := EmailMessage{ID: strconv.FormatUint(uint64(buf.UID), 10), Date: buf.InternalDate}
		if buf.Envelope != nil {
			em.Subject = decodeHeader(buf.Envelope.Subject)
			em.From = joinAddrs(buf.Envelope.From)
			if !buf.Envelope.Date.IsZero() {
				em.Date = buf.Envelope.Date
			}
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			em.Raw = append([]byte(nil), b...)
		}
		if (em.Subject == "" || em.From == "" || em.Date.IsZero()) && len(em.Raw) > 0 {
			subj, from, date := parseHeadersFallback(em.Raw)
			if em.Subject == "" {
				em.Subject = subj
			}
			if em.From == "" {
				em.From = from
			}
			if em.Date.IsZero() {
				em.Date = date
			}
		}
		out = append(out, em)
	}
	return out, nil
}

// MarkSeen sets \Seen on the given UIDs.
func MarkSeen(c *imapclient.Client, uids []imap.UID) error {
	if c == nil {
		return errors.New("imap client is nil")
	}
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store add seen: %w", err)
	}
	return nil
}

func LogoutAndClose(c *imapclient.Client, logger *slog.Logger) {
	if c == nil {
		return
	}
	if err := c.Logout().Wait(); err != nil && logger != nil {
		logger.Debug("imap logout failed", "error", err)
	}
	_ = c.Close()
}

func joinAddrs(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}

// parseHeadersFallback covers servers that return an incomplete envelope.
func parseHeadersFallback(raw []byte) (subject, from string, date time.Time) {
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return "", "", time.Time{}
	}
	h := msg.Header
	subject = decodeHeader(h.Get("Subject"))
	from = h.Get("From")
	if ds := h.Get("Date"); ds != "" {
		if t, err := mail.ParseDate(ds); err == nil {
			date = t
		}
	}
	return subject, from, date
}
