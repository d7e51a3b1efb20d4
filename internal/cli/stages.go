package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/llm"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/pipeline"
)

func newScanCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan mailboxes and job boards and store new jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withPipeline(cmd.Context(), false, func(p *pipeline.Pipeline) error {
				printScan(cmd.OutOrStdout(), p.Scan(cmd.Context()))
				return nil
			})
		},
	}
}

func newEnrichCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fetch full descriptions for stored jobs that have none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withPipeline(cmd.Context(), false, func(p *pipeline.Pipeline) error {
				s, err := p.Enrich(cmd.Context())
				printStage(cmd.OutOrStdout(), "enrich", s)
				return err
			})
		},
	}
}

func newClassifyCmd(o *rootOptions) *cobra.Command {
	var textFile string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Pick a CV role for described jobs, or for a text file",
		Long: `Without flags every described job gets a role. With --text the file
(or - for stdin) is classified and the scores are printed; nothing is stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if textFile != "" {
				return o.classifyText(cmd, textFile)
			}
			return o.withPipeline(cmd.Context(), false, func(p *pipeline.Pipeline) error {
				s, err := p.Classify(cmd.Context())
				printStage(cmd.OutOrStdout(), "classify", s)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&textFile, "text", "", "classify the posting in this file (- for stdin)")
	return cmd
}

type textClassification struct {
	llm.Classification
	Counts map[string]map[string]int `json:"counts"`
}

func (o *rootOptions) classifyText(cmd *cobra.Command, path string) error {
	a, err := o.load(loadOpts{validate: true})
	if err != nil {
		return err
	}
	var b []byte
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctx := cmd.Context()
	completer, err := llm.New(ctx, a.cfg, a.logger)
	if err != nil && !errors.Is(err, llm.ErrDisabled) {
		a.logger.Warn("llm unavailable, using keyword matching", logging.Err(err))
	}
	if completer != nil {
		defer llm.Close(completer)
	}

	c := llm.NewClassifier(a.cfg, completer, a.logger)
	posting := llm.Posting{Description: string(b)}
	out := textClassification{
		Classification: c.Classify(ctx, posting),
		Counts:         c.Matcher.Match(posting.Text()).Counts,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newRenderCmd(o *rootOptions) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fill and compile the CV and cover letter of classified jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withPipeline(cmd.Context(), false, func(p *pipeline.Pipeline) error {
				if jobID > 0 {
					if err := p.RenderJob(cmd.Context(), jobID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "job %d rendered\n", jobID)
					return nil
				}
				s, err := p.Render(cmd.Context())
				printStage(cmd.OutOrStdout(), "render", s)
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "render only this job id, whatever its status")
	return cmd
}

func newSendCmd(o *rootOptions) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Email the rendered PDFs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withPipeline(cmd.Context(), false, func(p *pipeline.Pipeline) error {
				if jobID > 0 {
					if err := p.SendJob(cmd.Context(), jobID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "job %d sent\n", jobID)
					return nil
				}
				s, err := p.Send(cmd.Context())
				printStage(cmd.OutOrStdout(), "send", s)
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "send only this job id")
	return cmd
}
