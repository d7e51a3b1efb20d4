package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/latex"
)

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration",
	}
	cmd.AddCommand(newConfigInitCmd(o), newConfigValidateCmd(o))
	return cmd
}

func newConfigInitCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config and LaTeX templates into the data directory",
		Long: `Writes config.yml and the default templates unless they already exist.
Existing files are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.load(loadOpts{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:    %s\n", a.cfgPath)
			if a.created {
				fmt.Fprintf(out, "  wrote %s\n", filepath.Base(a.cfgPath))
			}

			dir := a.cfg.Templates.Dir
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(a.cfg.App.DataDir, dir)
			}
			written, err := latex.WriteDefaultTemplates(dir)
			if err != nil {
				return fmt.Errorf("write templates: %w", err)
			}
			fmt.Fprintf(out, "templates: %s\n", dir)
			for _, p := range written {
				fmt.Fprintf(out, "  wrote %s\n", filepath.Base(p))
			}
			return nil
		},
	}
}

func newConfigValidateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and print errors and warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.load(loadOpts{})
			if err != nil {
				return err
			}
			_, v := config.NormalizeAndValidate(a.cfg)
			out := cmd.OutOrStdout()
			for _, w := range v.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			for _, e := range v.Errors {
				fmt.Fprintf(out, "error:   %s\n", e)
			}
			if !v.OK() {
				return errors.New(a.cfgPath + " is not valid")
			}
			fmt.Fprintf(out, "%s is valid\n", a.cfgPath)
			return nil
		},
	}
}
