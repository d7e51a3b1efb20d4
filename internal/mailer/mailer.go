package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
)

// SendFunc delivers a built message.
type SendFunc func(ctx context.Context, m *Mailer, from string, to []string, raw []byte) error

type Mailer struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	To         []string
	MaxRetries int
	Logger     *slog.Logger

	send    SendFunc
	initial time.Duration
}

// New returns a mailer for the smtp config section.
func New(cfg config.Config, password string, logger *slog.Logger) *Mailer {
	user := cfg.SMTP.Username
	if user == "" {
		user = cfg.SMTP.From
	}
	return &Mailer{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   user,
		Password:   password,
		From:       cfg.SMTP.From,
		To:         cfg.SMTP.To,
		MaxRetries: cfg.SMTP.MaxRetries,
		Logger:     logger,
		send:       sendSMTP,
		initial:    2 * time.Second,
	}
}

func (m *Mailer) addr() string { return net.JoinHostPort(m.Host, strconv.Itoa(m.Port)) }

// Send builds msg, filling From, To and MessageID when empty, and delivers
// it with retries. It returns the Message-ID used.
func (m *Mailer) Send(ctx context.Context, msg Message) (string, error) {
	if msg.From == "" {
		msg.From = m.From
	}
	if len(msg.To) == 0 {
		msg.To = m.To
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString() + "@jobhunter"
	}
	from, rcpts, err := envelope(msg)
	if err != nil {
		return "", fmt.Errorf("mailer envelope: %w", err)
	}
	raw, err := Build(msg)
	if err != nil {
		return "", fmt.Errorf("mailer build: %w", err)
	}

	send := m.send
	if send == nil {
		send = sendSMTP
	}
	initial := m.initial
	if initial <= 0 {
		initial = 2 * time.Second
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = time.Minute

	logger := logging.WithOperation(m.Logger, "smtp_send")
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		err := send(ctx, m, from, rcpts, raw)
		if err != nil && isPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(max(m.MaxRetries, 0))+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("smtp send failed, retrying", "in", next, logging.Err(err))
		}),
	)
	if err != nil {
		return "", fmt.Errorf("mailer send: %w", err)
	}
	logger.Info("mail sent", "subject", msg.Subject, "recipients", len(rcpts),
		"to_hash", logging.AnonymizeEmail(rcpts[0]), logging.Status(logging.StatusSuccess))
	return msg.MessageID, nil
}

// isPermanent treats SMTP 5xx replies, such as failed authentication, as final.
func isPermanent(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code >= 500
}

func sendSMTP(ctx context.Context, m *Mailer, from string, to []string, raw []byte) error {
	d := net.Dialer{Timeout: 30 * time.Second}
	var (
		conn net.Conn
		err  error
	)
	tlsCfg := &tls.Config{ServerName: m.Host, MinVersion: tls.VersionTLS12}
	if m.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: &d, Config: tlsCfg}).DialContext(ctx, "tcp", m.addr())
	} else {
		conn, err = d.DialContext(ctx, "tcp", m.addr())
	}
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", m.addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(2 * time.Minute))
	}

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp hello: %w", err)
	}
	defer c.Close()

	if m.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if m.Password != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", m.Username, m.Password, m.Host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, r := range to {
		if err := c.Rcpt(r); err != nil {
			return fmt.Errorf("smtp rcpt: %w", err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data end: %w", err)
	}
	return c.Quit()
}
