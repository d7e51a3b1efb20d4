package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/events"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/pipeline"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/runlock"
)

// withPipeline loads everything, takes the run lock and hands a wired
// pipeline to fn.
func (o *rootOptions) withPipeline(ctx context.Context, dryRun bool, fn func(*pipeline.Pipeline) error) error {
	a, err := o.load(loadOpts{db: true, validate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	lock, err := runlock.Acquire(a.cfg.App.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			a.logger.Warn("release run lock", logging.Err(err))
		}
	}()

	p, err := pipeline.New(ctx, a.cfg, a.db.Pool, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			a.logger.Warn("close pipeline", logging.Err(err))
		}
	}()
	p.DryRun = dryRun
	return fn(p)
}

func newRunCmd(o *rootOptions) *cobra.Command {
	var asJSON, dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan, enrich, classify, render and send in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return o.withPipeline(cmd.Context(), dryRun, func(p *pipeline.Pipeline) error {
				var wg sync.WaitGroup
				var sub *events.Subscription
				if asJSON {
					sub = p.Hub.Subscribe()
					wg.Add(1)
					go func() {
						defer wg.Done()
						for line := range sub.C {
							fmt.Fprintln(out, line)
						}
					}()
				}

				sum, err := p.Run(cmd.Context())

				if asJSON {
					sub.Close()
					wg.Wait()
					if n := sub.Dropped(); n > 0 {
						logging.OrDefault(p.Logger).Warn("progress events dropped", "count", n)
					}
				} else {
					printSummary(out, sum)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print progress events as NDJSON on stdout")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "render documents but do not send any email")
	return cmd
}

func printSummary(w io.Writer, s pipeline.Summary) {
	mode := ""
	if s.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "run %s finished in %s%s\n", s.RunID, s.Duration, mode)
	printScan(w, s.Scan)
	if s.Requeued > 0 {
		fmt.Fprintf(w, "requeued:  %d failed jobs\n", s.Requeued)
	}
	printStage(w, "enrich", s.Enriched)
	printStage(w, "classify", s.Classified)
	printStage(w, "render", s.Rendered)
	printStage(w, "send", s.Sent)
}

func printScan(w io.Writer, s pipeline.ScanSummary) {
	fmt.Fprintf(w, "scan:      %d new jobs\n", s.Added)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, src := range s.Sources {
		line := fmt.Sprintf("  %s\tscanned %d\tleads %d\tadded %d", src.Name, src.Scanned, src.Leads, src.Added)
		if len(src.Skipped) > 0 {
			line += "\tskipped " + formatCounts(src.Skipped)
		}
		if src.Error != "" {
			line += "\terror: " + src.Error
		}
		fmt.Fprintln(tw, line)
	}
	_ = tw.Flush()
}

func printStage(w io.Writer, name string, s pipeline.StageStats) {
	line := fmt.Sprintf("%-10s %d ok, %d failed", name+":", s.Processed, s.Failed)
	if s.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", s.Skipped)
	}
	fmt.Fprintln(w, line)
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}
