package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
)

// KeyringService groups the app's secrets in the OS keychain.
const KeyringService = "jobhunter"

var ErrNotFound = errors.New("secret not found")

// Name identifies one stored secret.
type Name string

const (
	IMAP   Name = "imap"
	SMTP   Name = "smtp"
	OpenAI Name = "openai"
	Gemini Name = "gemini"
)

var envVars = map[Name]string{
	IMAP:   "IMAP_PASSWORD",
	SMTP:   "SMTP_PASSWORD",
	OpenAI: "OPENAI_API_KEY",
	Gemini: "GEMINI_API_KEY",
}

// ParseName validates a user-supplied secret name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := envVars[n]; !ok {
		return "", fmt.Errorf("unknown secret %q (want imap, smtp, openai or gemini)", s)
	}
	return n, nil
}

// EnvVar is the environment variable consulted when the keychain has nothing.
func EnvVar(n Name) string { return envVars[n] }

// Account is the keychain account a secret is stored under.
func Account(cfg config.Config, n Name) string {
	switch n {
	case IMAP:
		return fmt.Sprintf("jobhunter:imap:%s@%s", cfg.Email.Username, cfg.Email.IMAPHost)
	case SMTP:
		user := cfg.SMTP.Username
		if user == "" {
			user = cfg.SMTP.From
		}
		return fmt.Sprintf("jobhunter:smtp:%s@%s", user, cfg.SMTP.Host)
	default:
		return "jobhunter:" + string(n)
	}
}

// Get looks in the keychain first, then the environment.
func Get(cfg config.Config, n Name) (string, error) {
	pw, err := keyring.Get(KeyringService, Account(cfg, n))
	if err == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	if v := strings.TrimSpace(os.Getenv(EnvVar(n))); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s secret (set it with `jobhunter secrets set %s` or $%s): %w", n, n, EnvVar(n), ErrNotFound)
}

func Set(cfg config.Config, n Name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, Account(cfg, n), value)
}

func Delete(cfg config.Config, n Name) error {
	err := keyring.Delete(KeyringService, Account(cfg, n))
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s secret: %w", n, ErrNotFound)
	}
	return err
}
