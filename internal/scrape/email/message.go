package email

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const maxPartBytes = 20 << 20

// EmailMessage is one raw message pulled from a mailbox.
type EmailMessage struct {
	// ID is the source-specific handle used to mark the message seen
	// (IMAP UID or Gmail message id).
	ID      string
	From    string
	Subject string
	Date    time.Time
	Raw     []byte
}

// Parsed is the decoded content of an RFC 822 message.
type Parsed struct {
	MessageID string
	From      string
	Subject   string
	Date      time.Time
	Text      string
	HTML      string
}

// ParseMessage decodes headers and picks the largest text/plain and
// text/html parts. Unknown charsets are passed through undecoded.
func ParseMessage(raw []byte) (Parsed, error) {
	var p Parsed
	if len(raw) == 0 {
		return p, errors.New("empty message")
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if mr == nil {
		// not a MIME message; treat it as plain text
		p.Text = string(raw)
		return p, err
	}
	defer mr.Close()

	h := mr.Header
	p.MessageID, _ = h.MessageID()
	if s, err := h.Subject(); err == nil {
		p.Subject = s
	} else {
		p.Subject = h.Get("Subject")
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		p.From = from[0].String()
	} else {
		p.From = h.Get("From")
	}
	p.Date, _ = h.Date()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if p.Text == "" && p.HTML == "" {
				return p, err
			}
			break
		}

		ih, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := ih.ContentType()
		if ct == "" {
			ct = "text/plain"
		}
		b, _ := io.ReadAll(io.LimitReader(part.Body, maxPartBytes))

		switch strings.ToLower(ct) {
		case "text/plain":
			if len(b) > len(p.Text) {
				p.Text = string(b)
			}
		case "text/html":
			if len(b) > len(p.HTML) {
				p.HTML = string(b)
			}
		}
	}
	return p, nil
}

// decodeHeader decodes RFC 2047 words, returning s unchanged on failure.
func decodeHeader(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	out, err := new(mime.WordDecoder).DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}
