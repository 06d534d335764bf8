package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/depgraph/internal/bundle"
	"github.com/mvp-joe/depgraph/internal/dump"
	"github.com/mvp-joe/depgraph/internal/search"
	"github.com/spf13/cobra"
)

var (
	limitFlag int
	kindFlag  string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over the modules of a bundle",
	Long: `Search indexes every module of a bundle in memory and runs a query-string query.

Fields: name, label, plugin, kind, params, refs, snippet.

Examples:
  # Modules built from a plugin
  depgraph search plugin:FastjetJetProducer

  # Modules that read ak4Jets
  depgraph search refs:ak4Jets

  # Filters mentioning a threshold
  depgraph search --kind EDFilter "params:minPt"
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&bundleFlag, "bundle", "", "Bundle file (default: configured output path)")
	searchCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of a list")
	searchCmd.Flags().IntVarP(&limitFlag, "limit", "n", search.DefaultLimit, fmt.Sprintf("Maximum results (max %d)", search.MaxLimit))
	searchCmd.Flags().StringVar(&kindFlag, "kind", "", "Only modules of this kind, e.g. EDProducer")
}

func runSearch(cmd *cobra.Command, args []string) error {
	b, err := loadBundle(bundleFlag)
	if err != nil {
		return err
	}
	opts := &search.Options{Limit: limitFlag, Kind: dump.ModuleKind(kindFlag)}
	return executeSearch(cmd.Context(), cmd.OutOrStdout(), b, strings.Join(args, " "), opts, jsonFlag)
}

// executeSearch indexes the bundle modules and prints the hits for query.
func executeSearch(ctx context.Context, out io.Writer, b *bundle.Bundle, query string, opts *search.Options, asJSON bool) error {
	if opts.Kind != "" && !opts.Kind.Valid() {
		return fmt.Errorf("unknown module kind: %s", opts.Kind)
	}

	searcher, err := search.NewModuleSearcher(ctx, b.Modules)
	if err != nil {
		return err
	}
	defer searcher.Close()

	results, err := searcher.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(out, results)
	}

	if len(results) == 0 {
		faintColor.Fprintf(out, "No modules match %q\n", query)
		return nil
	}

	for _, r := range results {
		successColor.Fprint(out, r.Module.Name)
		fmt.Fprintf(out, "  %s(%q)  ", r.Module.Kind, r.Module.Plugin)
		faintColor.Fprintf(out, "score %.3f\n", r.Score)
		for _, h := range r.Highlights {
			fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(strings.TrimSpace(h), "\n", " "))
		}
	}
	fmt.Fprintf(out, "\n%d result(s)\n", len(results))
	return nil
}
