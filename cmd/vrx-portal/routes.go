package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exploopio/vrx-portal/pkg/server"
)

func newRoutesCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Resolve every section and print the route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			cfg.Latency.Scale = 0
			cfg.Audit.Enabled = false

			srv, err := server.New(cfg, server.Options{Logger: logger, Version: Version})
			if err != nil {
				return err
			}
			srv.Resolve(contextOrBackground(cmd))
			routes := srv.Registry().Routes()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(routes)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SECTION\tPATH\tSTATE\tTARGET")
			for _, r := range routes {
				target := r.Title
				if r.RedirectTo != "" {
					target = "-> " + r.RedirectTo
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Section, r.Path, r.State, target)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the routes as JSON")
	return cmd
}
