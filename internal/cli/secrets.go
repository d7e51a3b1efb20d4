package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/secrets"
)

func newSecretsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Store passwords and API keys in the OS keychain",
		Long: `Names: imap, smtp, openai, gemini. The IMAP and SMTP entries are keyed by
the username and host in the config, so set those first.`,
	}
	cmd.AddCommand(newSecretsSetCmd(o), newSecretsDeleteCmd(o))
	return cmd
}

func newSecretsSetCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME",
		Short: "Read a secret from stdin and store it",
		Args:  requireArgs(1, "NAME"),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := secrets.ParseName(args[0])
			if err != nil {
				return err
			}
			a, err := o.load(loadOpts{})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s secret: ", name)
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no secret read from stdin")
			}
			value := strings.TrimRight(line, "\r\n")
			if err := secrets.Set(a.cfg, name, value); err != nil {
				return fmt.Errorf("store %s secret: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s as %s\n", name, secrets.Account(a.cfg, name))
			return nil
		},
	}
}

func newSecretsDeleteCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a secret from the keychain",
		Args:  requireArgs(1, "NAME"),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := secrets.ParseName(args[0])
			if err != nil {
				return err
			}
			a, err := o.load(loadOpts{})
			if err != nil {
				return err
			}
			if err := secrets.Delete(a.cfg, name); err != nil {
				return fmt.Errorf("delete %s secret: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
			return nil
		},
	}
}
