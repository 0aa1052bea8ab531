package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newArchiveCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived uploads",
	}
	cmd.AddCommand(newArchiveUsageCmd(o), newArchivePruneCmd(o))
	return cmd
}

func newArchiveUsageCmd(o *rootOptions) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Report archived object count and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			count, size, err := store.DiskUsage(prefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d objects, %d bytes\n", count, size)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only count keys with this prefix (e.g. prd/)")
	return cmd
}

func newArchivePruneCmd(o *rootOptions) *cobra.Command {
	var (
		prefix    string
		olderThan time.Duration
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived uploads older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			res, err := store.Prune(prefix, olderThan, time.Now(), dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			verb := "Deleted"
			if dryRun {
				verb = "Would delete"
			}
			for _, key := range res.Deleted {
				fmt.Fprintf(out, "%s %s\n", verb, key)
			}
			for _, e := range res.Errors {
				a.logger.Warn("prune failed", "error", e)
			}
			fmt.Fprintf(out, "%s %d objects (%d bytes), kept %d\n", verb, len(res.Deleted), res.SpaceSaved, res.Kept)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only prune keys with this prefix")
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without deleting")
	return cmd
}
