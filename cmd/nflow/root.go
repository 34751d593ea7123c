package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/nflow/internal/app"
	"github.com/dshills/nflow/internal/flow"
	"github.com/dshills/nflow/internal/metrics"
	"github.com/dshills/nflow/internal/query"
	"github.com/dshills/nflow/internal/tree"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config   string
	seed     string
	logLevel string
}

func newRootCommand() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "nflow",
		Short: "Build and inspect nflow node trees",
		Long: `nflow builds a node tree from a TOML seed, wires it to the event
emitter and behaviour factory configured in nflow.toml, and runs one
command against it.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "configuration file (TOML)")
	root.PersistentFlags().StringVarP(&flags.seed, "seed", "s", "", "tree seed file (TOML)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newTreeCommand(&flags),
		newFindCommand(&flags),
		newParentsCommand(&flags),
		newSetCommand(&flags),
		newMetricsCommand(&flags),
	)
	return root
}

// withApp boots the application for one command and shuts it down after.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(*app.Application) error) error {
	a, err := app.New(app.Options{
		ConfigPath: flags.config,
		SeedPath:   flags.seed,
		LogLevel:   flags.logLevel,
		LogOutput:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer a.Shutdown()
	return fn(a)
}

func newTreeCommand(flags *globalFlags) *cobra.Command {
	var asTOML bool
	cmd := &cobra.Command{
		Use:   "tree [node]",
		Short: "Print the tree, or the subtree under a node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(a *app.Application) error {
				n, err := a.Resolve(argOr(args, 0, ""))
				if err != nil {
					return err
				}
				if asTOML {
					out, err := tree.Encode(n)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(out)
					return err
				}
				return tree.Render(cmd.OutOrStdout(), n)
			})
		},
	}
	cmd.Flags().BoolVar(&asTOML, "toml", false, "print as a TOML seed document")
	return cmd
}

func newFindCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "find <expr>",
		Short: "List nodes matching an expression",
		Long: `List nodes matching an expression: the root's children first, then each
child's descendants in turn.

Expressions:
  name              exact node name
  re:<pattern>      regular expression over the name
  lua:<script>      Lua predicate over name, data, parent, depth, children
  path:<p>          payload has a value at gjson path p
  path:<p>=<value>  payload value at p equals value`,
		Example: `  nflow --seed market.toml find btc
  nflow --seed market.toml find 're:^(btc|eth)$'
  nflow --seed market.toml find 'lua:data.price > 10'
  nflow --seed market.toml find 'path:tags.#(=="hot")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(a *app.Application) error {
				nodes, err := a.Find(args[0])
				if err != nil {
					return err
				}
				for _, n := range nodes {
					fmt.Fprintln(cmd.OutOrStdout(), describe(n))
				}
				return nil
			})
		},
	}
}

func newParentsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "parents <node>",
		Short: "List a node's ancestors, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(a *app.Application) error {
				n, err := a.Resolve(args[0])
				if err != nil {
					return err
				}
				for _, p := range n.Parents() {
					fmt.Fprintln(cmd.OutOrStdout(), p.Name())
				}
				return nil
			})
		},
	}
}

func newSetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <node> <path> <value>",
		Short: "Set a payload value and print the node",
		Long: `Set the value at a gjson path in a node's payload, announce the change
as a "changed" event, and print the updated node. Values are read as JSON
when they parse and as plain strings otherwise.`,
		Example: `  nflow --seed market.toml set btc price 43
  nflow --seed market.toml set btc/alerts enabled false`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(a *app.Application) error {
				n, err := a.Set(context.Background(), args[0], args[1], query.ParseValue(args[2]))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describe(n))
				return nil
			})
		},
	}
}

func newMetricsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print metrics for the loaded tree in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(a *app.Application) error {
				return metrics.WriteText(cmd.OutOrStdout(), a.Registry())
			})
		},
	}
}

// describe formats a node as its slash path from the root plus its payload.
func describe(n *flow.Node) string {
	parents := n.Parents()
	names := make([]string, 0, len(parents)+1)
	for i := len(parents) - 1; i >= 0; i-- {
		names = append(names, parents[i].Name())
	}
	names = append(names, n.Name())
	line := strings.Join(names, "/")
	if n.Data() != nil {
		if raw, err := query.Raw(n.Data()); err == nil {
			line += " " + string(raw)
		}
	}
	return line
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}
