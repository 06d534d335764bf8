package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mvp-joe/depgraph/internal/bundle"
	"github.com/mvp-joe/depgraph/internal/dump"
	"github.com/mvp-joe/depgraph/internal/search"
	"github.com/spf13/cobra"
)

var (
	matchFlag      string
	unresolvedFlag bool
)

// modulesCmd represents the modules command
var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the modules of a bundle",
	Long: `Modules lists the modules recovered from the configuration dump, with
their reference counts and how many of those resolved against the graph.

Examples:
  # Every jet producer
  depgraph modules --match "*Jets" --kind EDProducer

  # Modules with references that do not resolve
  depgraph modules --unresolved
`,
	Args: cobra.NoArgs,
	RunE: runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	modulesCmd.Flags().StringVar(&bundleFlag, "bundle", "", "Bundle file (default: configured output path)")
	modulesCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of a table")
	modulesCmd.Flags().StringVar(&matchFlag, "match", "", "Glob over module names, e.g. \"ak*Jets\"")
	modulesCmd.Flags().StringVar(&kindFlag, "kind", "", "Only modules of this kind, e.g. EDFilter")
	modulesCmd.Flags().BoolVar(&unresolvedFlag, "unresolved", false, "Only modules with unresolved references")
}

func runModules(cmd *cobra.Command, args []string) error {
	b, err := loadBundle(bundleFlag)
	if err != nil {
		return err
	}
	filter := search.Filter{
		Match:      matchFlag,
		Kind:       dump.ModuleKind(kindFlag),
		Unresolved: unresolvedFlag,
	}
	return executeModules(cmd.OutOrStdout(), b, filter, jsonFlag)
}

// executeModules prints the modules selected by filter.
func executeModules(out io.Writer, b *bundle.Bundle, filter search.Filter, asJSON bool) error {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return fmt.Errorf("unknown module kind: %s", filter.Kind)
	}

	modules, err := search.FilterModules(b.Modules, filter)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(out, modules)
	}

	if len(modules) == 0 {
		faintColor.Fprintln(out, "No modules match")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tPLUGIN\tREFS\tRESOLVED\tIN GRAPH")
	for _, m := range modules {
		resolved := 0
		for _, tag := range m.ReferenceTags {
			if tag.Found {
				resolved++
			}
		}
		_, inGraph := b.LabelToID.Lookup(m.Name)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			m.Name, m.Kind, m.Plugin, len(m.ReferenceTags), resolved, yesNo(inGraph))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d of %d modules\n", len(modules), len(b.Modules))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
