package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/seedrepo/config"
)

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}
	cmd.AddCommand(newConfigShowCmd(o), newConfigSetCmd(o), newConfigUnsetCmd(o))
	return cmd
}

func newConfigShowCmd(o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show resolved configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			type entry struct {
				Key    string        `json:"key"`
				Value  string        `json:"value"`
				Source config.Source `json:"source"`
			}
			var entries []entry
			for _, key := range a.resolved.Keys() {
				value, src := a.resolved.GetWithSource(key)
				if key == config.KeyJWTSecret && value != "" {
					value = "********"
				}
				entries = append(entries, entry{Key: key, Value: value, Source: src})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(entries)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, e.Value, e.Source)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newConfigSetCmd(o *rootOptions) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := o.configFile(local)
			if err := config.Save(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Write "+config.LocalConfigName+" in the current directory")
	return cmd
}

func newConfigUnsetCmd(o *rootOptions) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a persisted configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := o.configFile(local)
			if err := config.Unset(path, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unset %s in %s\n", args[0], path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Edit "+config.LocalConfigName+" in the current directory")
	return cmd
}

func (o *rootOptions) configFile(local bool) string {
	if local {
		return config.LocalConfigName
	}
	return o.globalConfigPath()
}
