package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/seedrepo/document"
)

func newInstructionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instructions [full|light]",
		Short: "List instruction files, or print the one a mode publishes",
		Example: `  seedrepo instructions
  seedrepo instructions light --prompts-dir ./prompts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			store, err := a.prompts()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				names, err := store.List()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			mode, err := document.ParseMode(args[0])
			if err != nil {
				return err
			}
			name, err := document.InstructionFilename(mode)
			if err != nil {
				return err
			}
			content, err := store.Read(name)
			if err != nil {
				return err
			}
			_, err = out.Write(content)
			return err
		},
	}
	return cmd
}
