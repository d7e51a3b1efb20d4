// Package mailer builds and sends the application emails.
package mailer

import (
	"bytes"
	"fmt"
	"io"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

type Attachment struct {
	Path string
	// Name defaults to the base name of Path.
	Name string
}

type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
	Date        time.Time
	// MessageID is without angle brackets.
	MessageID string
}

func parseAddrs(list []string) ([]*mail.Address, error) {
	out := make([]*mail.Address, 0, len(list))
	for _, s := range list {
		a, err := netmail.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", s, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// envelope returns the SMTP sender and recipient addresses of msg.
func envelope(msg Message) (string, []string, error) {
	from, err := parseAddrs([]string{msg.From})
	if err != nil {
		return "", nil, err
	}
	to, err := parseAddrs(msg.To)
	if err != nil {
		return "", nil, err
	}
	if len(to) == 0 {
		return "", nil, fmt.Errorf("no recipients")
	}
	rcpts := make([]string, 0, len(to))
	for _, a := range to {
		rcpts = append(rcpts, a.Address)
	}
	return from[0].Address, rcpts, nil
}

// Build renders msg as multipart/mixed: a text/plain body followed by one
// application/pdf part per attachment.
func Build(msg Message) ([]byte, error) {
	from, err := parseAddrs([]string{msg.From})
	if err != nil {
		return nil, err
	}
	to, err := parseAddrs(msg.To)
	if err != nil {
		return nil, err
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("build message: no recipients")
	}

	var h mail.Header
	h.SetAddressList("From", from)
	h.SetAddressList("To", to)
	h.SetSubject(msg.Subject)
	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	if msg.MessageID != "" {
		h.SetMessageID(msg.MessageID)
	} else if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(tw, msg.Body); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAttachment(mw *mail.Writer, a Attachment) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("attachment: %w", err)
	}
	defer f.Close()

	name := a.Name
	if name == "" {
		name = filepath.Base(a.Path)
	}
	ctype := "application/octet-stream"
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		ctype = "application/pdf"
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(ctype, nil)
	ah.SetFilename(name)
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return err
	}
	return w.Close()
}
