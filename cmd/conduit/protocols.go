package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/conduit/pkg/host"
)

func newProtocolsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protocols",
		Short: "Inspect registered protocols",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered protocols and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHost(cmd.Context(), root, func(h *host.Host) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCAPABILITIES")
				for _, p := range h.Registry.All() {
					var caps []string
					for _, c := range p.Capabilities() {
						caps = append(caps, c.String())
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID(), p.Name(), strings.Join(caps, ","))
				}
				return w.Flush()
			})
		},
	})
	return cmd
}
