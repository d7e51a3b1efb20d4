package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.Email.Username = "me@example.com"
	cfg.Email.IMAPHost = "imap.example.com"
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.From = "me@example.com"
	return cfg
}

func TestAccount(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "jobhunter:imap:me@example.com@imap.example.com", Account(cfg, IMAP))
	assert.Equal(t, "jobhunter:smtp:me@example.com@smtp.example.com", Account(cfg, SMTP))
	assert.Equal(t, "jobhunter:openai", Account(cfg, OpenAI))
}

func TestGetPrefersKeyring(t *testing.T) {
	keyring.MockInit()
	cfg := testConfig()
	t.Setenv("SMTP_PASSWORD", "from-env")

	require.NoError(t, Set(cfg, SMTP, "from-keyring"))
	got, err := Get(cfg, SMTP)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", got)
}

func TestGetFallsBackToEnv(t *testing.T) {
	keyring.MockInit()
	cfg := testConfig()
	t.Setenv("OPENAI_API_KEY", "sk-test")

	got, err := Get(cfg, OpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got)
}

func TestGetNotFound(t *testing.T) {
	keyring.MockInit()
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Get(testConfig(), Gemini)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetRejectsEmpty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, Set(testConfig(), IMAP, "  "))
}

func TestDelete(t *testing.T) {
	keyring.MockInit()
	cfg := testConfig()
	t.Setenv("IMAP_PASSWORD", "")

	require.NoError(t, Set(cfg, IMAP, "pw"))
	require.NoError(t, Delete(cfg, IMAP))
	_, err := Get(cfg, IMAP)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, Delete(cfg, IMAP), ErrNotFound)
}

func TestParseName(t *testing.T) {
	n, err := ParseName(" SMTP ")
	require.NoError(t, err)
	assert.Equal(t, SMTP, n)

	_, err = ParseName("github")
	assert.Error(t, err)
}
