package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mvp-joe/depgraph/internal/bundle"
	"github.com/mvp-joe/depgraph/internal/graph"
	"github.com/spf13/cobra"
)

var (
	bundleFlag    string
	jsonFlag      bool
	moduleFlag    string
	depthFlag     int
	directionFlag string
)

// depsCmd represents the deps command
var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Show the modules a module depends on or feeds",
	Long: `Deps loads a bundle and walks the dependency graph around one module.

Directions:
  upstream    modules the center reads from
  downstream  modules that read from the center
  both        any neighbour, with every edge among the visited modules
  paths       upstream and downstream chains through the center

Examples:
  # Direct producers of ak4Jets
  depgraph deps --module ak4Jets --direction upstream

  # Everything within three hops of the analyzer, as JSON
  depgraph deps --module analyzer --depth 3 --direction both --json
`,
	Args: cobra.NoArgs,
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.Flags().StringVar(&bundleFlag, "bundle", "", "Bundle file (default: configured output path)")
	depsCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of a table")
	depsCmd.Flags().StringVarP(&moduleFlag, "module", "m", "", "Module label or node ID at the center")
	depsCmd.Flags().IntVarP(&depthFlag, "depth", "d", graph.DefaultDepth, fmt.Sprintf("Traversal depth (max %d)", graph.MaxDepth))
	depsCmd.Flags().StringVar(&directionFlag, "direction", string(graph.DirectionBoth), "upstream, downstream, both or paths")
	_ = depsCmd.MarkFlagRequired("module")
}

// loadBundle reads the bundle at path, or at the configured output path when empty.
func loadBundle(path string) (*bundle.Bundle, error) {
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Output.Path
	}
	return bundle.Load(path)
}

func runDeps(cmd *cobra.Command, args []string) error {
	b, err := loadBundle(bundleFlag)
	if err != nil {
		return err
	}
	return executeDeps(cmd.Context(), cmd.OutOrStdout(), b, moduleFlag, depthFlag, graph.Direction(directionFlag), jsonFlag)
}

// executeDeps answers one neighbourhood query against a loaded bundle.
func executeDeps(ctx context.Context, out io.Writer, b *bundle.Bundle, center string, depth int, dir graph.Direction, asJSON bool) error {
	explorer, err := graph.NewExplorer(b.Nodes, b.Edges, b.LabelToID, b.Metadata.IsDirected)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}

	hood, err := explorer.Neighborhood(ctx, center, depth, dir)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(out, hood)
	}

	header := color.New(color.Bold)
	header.Fprintf(out, "%s (%s) %s, depth %d\n", hood.Center.Label, hood.Center.ID, hood.Direction, hood.Depth)

	if len(hood.Nodes) == 0 {
		faintColor.Fprintln(out, "  no connected modules")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  DEPTH\tLABEL\tID\tPLUGIN")
	for _, n := range hood.Nodes {
		plugin := "-"
		if m, ok := b.Modules[n.Node.Label]; ok {
			plugin = m.Plugin
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", n.Depth, n.Node.Label, n.Node.ID, plugin)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d modules, %d edges\n", len(hood.Nodes), len(hood.Edges))
	return nil
}

// writeJSON prints v as indented JSON.
func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
