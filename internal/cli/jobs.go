package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

func newJobsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and maintain stored jobs",
	}
	cmd.AddCommand(newJobsListCmd(o), newJobsCleanupCmd(o))
	return cmd
}

func newJobsListCmd(o *rootOptions) *cobra.Command {
	var (
		opts   store.ListJobsOpts
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.load(loadOpts{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			jobs, err := store.ListJobs(cmd.Context(), a.db.Pool, opts)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(jobs)
			}
			printJobs(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Sort, "sort", "score", "score, date, company or title")
	f.StringVar(&opts.Order, "order", "desc", "asc or desc")
	f.StringVar(&opts.Window, "window", "7d", "24h, 7d, 30d or all")
	f.StringVar(&opts.Status, "status", "", "only jobs in this status")
	f.IntVar(&opts.Limit, "limit", 50, "maximum rows")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printJobs(w io.Writer, jobs []store.Job) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tSTATUS\tROLE\tCOMPANY\tTITLE\tLOCATION\tDATE")
	for _, j := range jobs {
		date := j.Date
		if len(date) > 10 {
			date = date[:10]
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.Score, j.Status, j.Role,
			util.Clip(j.Company, 24), util.Clip(j.Title, 48), util.Clip(j.Location, 24), date)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d jobs\n", len(jobs))
}

func newJobsCleanupCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete jobs older than three months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.load(loadOpts{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := store.CleanupOldJobs(cmd.Context(), a.db.Pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d jobs\n", n)
			return nil
		},
	}
}
