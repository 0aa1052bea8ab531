package main

import (
	"encoding/json"
	"fmt"
	"os/user"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/seedrepo/ledger"
)

func newRunsCmd(o *rootOptions) *cobra.Command {
	var (
		userID string
		all    bool
		limit  int
		stats  bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			store, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if stats {
				st, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				top, err := store.TopTemplates(cmd.Context(), 5)
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(out).Encode(map[string]any{"stats": st, "top_templates": top})
				}
				fmt.Fprintf(out, "runs: %d  completed: %d  failed: %d  full: %d  light: %d\n",
					st.Total, st.Completed, st.Failed, st.Full, st.Light)
				for _, t := range top {
					fmt.Fprintf(out, "  %-30s %d\n", t.Name, t.Count)
				}
				return nil
			}

			if !all && userID == "" {
				userID = currentUser()
			}
			if all {
				userID = ""
			}
			runs, err := store.ListRuns(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(out).Encode(runs)
			}
			printRuns(cmd, runs)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owner of the runs (default current OS user)")
	cmd.Flags().BoolVar(&all, "all", false, "List runs of every user")
	cmd.Flags().IntVar(&limit, "limit", 8, "Maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print totals and the most used templates")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	cmd.AddCommand(newRunsShowCmd(o))
	return cmd
}

func newRunsShowCmd(o *rootOptions) *cobra.Command {
	var userID, doc string
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run, or print one of its archived documents",
		Example: `  seedrepo runs show 6f1c...
  seedrepo runs show 6f1c... --document prd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			store, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if userID == "" {
				userID = currentUser()
			}
			run, err := store.GetRun(cmd.Context(), args[0], userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if doc == "" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			urls := map[string]string{
				"brief":        run.BriefURL,
				"prd":          run.PRDURL,
				"architecture": run.ArchitectureURL,
				"frontend":     run.FrontendURL,
			}
			u, ok := urls[doc]
			if !ok {
				return fmt.Errorf("unknown document %q (want brief, prd, architecture or frontend)", doc)
			}
			if u == "" {
				return fmt.Errorf("run %s has no archived %s document", run.ID, doc)
			}
			arch, err := a.openArchive()
			if err != nil {
				return err
			}
			content, err := arch.GetURL(u)
			if err != nil {
				return err
			}
			_, err = out.Write(content)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owner of the run (default current OS user)")
	cmd.Flags().StringVar(&doc, "document", "", "Print an archived document: brief, prd, architecture or frontend")
	return cmd
}

func printRuns(cmd *cobra.Command, runs []ledger.Run) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tMODE\tSTATUS\tCREATED\tREPOSITORY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.ProjectName, r.Mode, r.Status, r.CreatedAt.Format(time.DateTime), r.RepoURL)
	}
	tw.Flush()
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}
