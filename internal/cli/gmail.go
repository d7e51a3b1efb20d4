package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/email"
)

const oobRedirect = "urn:ietf:wg:oauth:2.0:oob"

func newGmailCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmail",
		Short: "Gmail API access",
	}
	cmd.AddCommand(newGmailAuthCmd(o))
	return cmd
}

func newGmailAuthCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access and store the token",
		Long: `Prints a consent URL for the OAuth client in gmail.credentials_file,
reads the authorization code from stdin and writes the token to
gmail.token_file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.load(loadOpts{})
			if err != nil {
				return err
			}
			conf, err := email.OAuthConfig(a.cfg.Gmail.CredentialsFile)
			if err != nil {
				return err
			}
			if conf.RedirectURL == "" {
				conf.RedirectURL = oobRedirect
			}

			url := conf.AuthCodeURL("jobhunter", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
			fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL, grant access and paste the code:\n\n%s\n\ncode: ", url)

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			code := strings.TrimSpace(line)
			if code == "" {
				if err == nil {
					err = errors.New("empty code")
				}
				return fmt.Errorf("read authorization code: %w", err)
			}

			tok, err := conf.Exchange(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("exchange auth code: %w", err)
			}
			if err := email.SaveToken(a.cfg.Gmail.TokenFile, tok); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token written to %s\n", a.cfg.Gmail.TokenFile)
			return nil
		},
	}
}
