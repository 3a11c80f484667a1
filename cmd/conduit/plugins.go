package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/conduit/pkg/host"
	"github.com/platinummonkey/conduit/pkg/plugins"
)

func newPluginsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect and exercise plugins",
		Long: `Inspect plugins found on the search paths.

Each command starts the host without the debug API, does its work and shuts
the host down again.`,
		Example: `  # List every known plugin
  conduit plugins list

  # Show one plugin
  conduit plugins info lua-hello

  # Load a plugin and call one of its commands
  conduit plugins call lua-hello greet world`,
	}

	cmd.AddCommand(newPluginsListCommand(root))
	cmd.AddCommand(newPluginsInfoCommand(root))
	cmd.AddCommand(newPluginsCallCommand(root))
	return cmd
}

func newPluginsListCommand(root *rootOptions) *cobra.Command {
	var loadedOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHost(cmd.Context(), root, func(h *host.Host) error {
				list := h.Plugins.All()
				if loadedOnly {
					list = h.Plugins.Loaded()
				}
				return printPlugins(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().BoolVar(&loadedOnly, "loaded", false, "only list loaded plugins")
	return cmd
}

func newPluginsInfoCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show a plugin's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHost(cmd.Context(), root, func(h *host.Host) error {
				p := h.Plugins.Find(args[0])
				if p == nil {
					return fmt.Errorf("plugin %q not found", args[0])
				}
				return printPlugin(cmd.OutOrStdout(), h.Plugins, p)
			})
		},
	}
}

func newPluginsCallCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <id> <command> [args...]",
		Short: "Load a plugin and call one of its IPC commands",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHost(cmd.Context(), root, func(h *host.Host) error {
				p := h.Plugins.Find(args[0])
				if p == nil {
					return fmt.Errorf("plugin %q not found", args[0])
				}
				if !p.IsLoaded() {
					if err := h.Plugins.Load(p); err != nil {
						return err
					}
				}
				params, _, err := h.Plugins.IPCParams(p, args[1])
				if err != nil {
					return err
				}
				in, err := parseArgs(params, args[2:])
				if err != nil {
					return err
				}
				out, err := h.Plugins.IPCCall(p, args[1], in...)
				if err != nil {
					return err
				}
				if out != nil {
					fmt.Fprintln(cmd.OutOrStdout(), out)
				}
				return nil
			})
		},
	}
}

func printPlugins(out io.Writer, list []*plugins.Plugin) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tTYPE\tSTATE\tPATH")
	for _, p := range list {
		version := ""
		if info := p.Info(); info != nil {
			version = info.Version
		}
		path := p.Path()
		if p.IsStatic() {
			path = "(built in)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID(), p.Name(), version, p.Type(), state(p), path)
	}
	return w.Flush()
}

func printPlugin(out io.Writer, m *plugins.Manager, p *plugins.Plugin) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", p.ID())
	fmt.Fprintf(w, "Name:\t%s\n", p.Name())
	fmt.Fprintf(w, "Type:\t%s\n", p.Type())
	fmt.Fprintf(w, "State:\t%s\n", state(p))
	if info := p.Info(); info != nil {
		fmt.Fprintf(w, "Version:\t%s\n", info.Version)
		fmt.Fprintf(w, "ABI:\t%d.%d\n", info.MajorVersion, info.MinorVersion)
		if info.Summary != "" {
			fmt.Fprintf(w, "Summary:\t%s\n", info.Summary)
		}
		if info.Author != "" {
			fmt.Fprintf(w, "Author:\t%s\n", info.Author)
		}
		if len(info.Dependencies) > 0 {
			fmt.Fprintf(w, "Depends on:\t%s\n", strings.Join(info.Dependencies, ", "))
		}
	}
	if p.Path() != "" {
		fmt.Fprintf(w, "Path:\t%s\n", p.Path())
	}
	if l := p.Loader(); l != nil {
		fmt.Fprintf(w, "Loader:\t%s\n", l.ID())
	}
	if p.Error() != "" {
		fmt.Fprintf(w, "Error:\t%s\n", p.Error())
	}
	if cmds := m.IPCCommands(p); len(cmds) > 0 {
		fmt.Fprintf(w, "Commands:\t%s\n", strings.Join(cmds, ", "))
	}
	for _, a := range m.Actions(p) {
		fmt.Fprintf(w, "Action:\t%s\n", a.Label)
	}
	return w.Flush()
}

func state(p *plugins.Plugin) string {
	switch {
	case p.IsLoaded():
		return "loaded"
	case p.IsUnloadable():
		return "unloadable"
	default:
		return "probed"
	}
}
