package main

import (
	"github.com/spf13/cobra"

	"github.com/randalmurphal/seedrepo/server"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			jwtCfg, err := a.jwtConfig()
			if err != nil {
				return err
			}
			store, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := server.New(server.Config{Runs: store, JWT: jwtCfg, Logger: a.logger})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.settings.ListenAddr
			}
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default listen_addr)")
	return cmd
}
