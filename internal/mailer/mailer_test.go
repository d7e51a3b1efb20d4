package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
)

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 "+name), 0o644))
	return p
}

func TestBuildMultipart(t *testing.T) {
	dir := t.TempDir()
	raw, err := Build(Message{
		From:        "Me <me@example.com>",
		To:          []string{"me@example.com"},
		Subject:     "Job application ready: SRE at Acme",
		Body:        "hello",
		Attachments: []Attachment{{Path: writePDF(t, dir, "cv.pdf")}, {Path: writePDF(t, dir, "cover_letter.pdf")}},
		MessageID:   "abc@jobhunter",
	})
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	subj, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Job application ready: SRE at Acme", subj)
	id, err := r.Header.MessageID()
	require.NoError(t, err)
	assert.Equal(t, "abc@jobhunter", id)

	var body string
	var files []string
	for {
		p, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			b, _ := io.ReadAll(p.Body)
			body = string(b)
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			ct, _, _ := h.ContentType()
			assert.Equal(t, "application/pdf", ct)
			b, _ := io.ReadAll(p.Body)
			assert.Equal(t, "%PDF-1.4 "+name, string(b))
			files = append(files, name)
		}
	}
	assert.Equal(t, "hello", body)
	assert.Equal(t, []string{"cv.pdf", "cover_letter.pdf"}, files)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(Message{From: "me@example.com"})
	assert.Error(t, err)

	_, err = Build(Message{From: "me@example.com", To: []string{"a@example.com"},
		Attachments: []Attachment{{Path: filepath.Join(t.TempDir(), "missing.pdf")}}})
	assert.Error(t, err)
}

func testMailer(t *testing.T) *Mailer {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.From = "me@example.com"
	cfg.SMTP.To = []string{"inbox@example.com"}
	m := New(cfg, "secret", nil)
	m.initial = time.Millisecond
	return m
}

func TestSendRetriesTransient(t *testing.T) {
	m := testMailer(t)
	calls := 0
	var gotTo []string
	m.send = func(_ context.Context, _ *Mailer, from string, to []string, raw []byte) error {
		calls++
		gotTo = to
		assert.Equal(t, "me@example.com", from)
		if calls == 1 {
			return &textproto.Error{Code: 421, Msg: "try again"}
		}
		return nil
	}

	id, err := m.Send(context.Background(), Message{Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"inbox@example.com"}, gotTo)
	assert.Contains(t, id, "@jobhunter")
}

func TestSendAuthFailureIsPermanent(t *testing.T) {
	m := testMailer(t)
	calls := 0
	m.send = func(context.Context, *Mailer, string, []string, []byte) error {
		calls++
		return &textproto.Error{Code: 535, Msg: "authentication failed"}
	}

	_, err := m.Send(context.Background(), Message{Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var tpErr *textproto.Error
	assert.True(t, errors.As(err, &tpErr))
}

func TestSubjectAndBody(t *testing.T) {
	j := JobSummary{Title: "SRE", Company: "Acme", URL: "https://acme.se/jobs/1", Role: "incident_management",
		RoleName: "Incident Management / SRE", RoleMethod: "llm", Score: 25}
	assert.Equal(t, "Job application ready: SRE at Acme", Subject("", j))
	assert.Equal(t, "Acme - SRE", Subject("{company} - {title}", j))

	body := Body(j)
	assert.Contains(t, body, "https://acme.se/jobs/1")
	assert.Contains(t, body, "Incident Management / SRE (incident_management), chosen by llm")
	assert.Contains(t, body, "Relevance: 25")
}

func TestSendRejectsBadEnvelope(t *testing.T) {
	m := testMailer(t)
	m.send = func(context.Context, *Mailer, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	_, err := m.Send(context.Background(), Message{From: "not an address", Subject: "s"})
	assert.ErrorContains(t, err, "mailer envelope")

	m.To = nil
	_, err = m.Send(context.Background(), Message{Subject: "s"})
	assert.ErrorContains(t, err, "no recipients")
}
