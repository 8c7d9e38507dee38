package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trujjo/neurotome/internal/app"
	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/modules/explorer/query"
)

type queryOptions struct {
	req    domain.FilterRequest
	search string
	random int
	dryRun bool
	asJSON bool
}

// build picks the query shape. --search and --random ignore the facet flags.
func (q *queryOptions) build(b *query.Builder, f domain.FilterState) (query.Query, error) {
	switch {
	case q.search != "" && q.random > 0:
		return query.Query{}, fmt.Errorf("--search and --random are exclusive")
	case q.search != "":
		return b.Search(q.search)
	case q.random > 0:
		return b.Random(q.random), nil
	}
	return b.Build(f), nil
}

func queryCmd(opts *rootOptions) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one filtered graph query and print the normalized result",
		Example: "  neurotome query --label bone --location \"lower limb\" --tier major --tier intermediate\n" +
			"  neurotome query --system nervous --dry-run\n" +
			"  neurotome query --search trigeminal\n" +
			"  neurotome query --random 10",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			f, err := q.req.ToState(cfg.Tiers())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if q.dryRun {
				ex := app.NewExplorer(cfg, log, nil, nil)
				built, err := q.build(ex.Builder, f)
				if err != nil {
					return err
				}
				printQuery(cmd, built)
				return nil
			}

			ctx := cmd.Context()
			clients, err := app.ConnectGraph(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer clients.Close(ctx)

			ex := app.NewExplorer(cfg, log, clients.Reader, nil)
			if len(f.Sublocations) > 0 {
				// Bind sub-locations to their parents from the live catalog.
				_, _ = ex.Catalog.Get(ctx)
			}
			built, err := q.build(ex.Builder, f)
			if err != nil {
				return err
			}
			rows, err := clients.Reader.Execute(ctx, built.Cypher, built.Params)
			if err != nil {
				return err
			}
			model, stats := ex.Normalizer.Normalize(rows)

			if q.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"shape": built.Shape, "graph": model, "stats": stats})
			}

			nodes := make([][]string, 0, model.Len())
			for _, n := range model.OrderedNodes() {
				nodes = append(nodes, []string{string(n.ID), n.Name(), strings.Join(n.Labels, ","), string(n.SizeClass), strconv.Itoa(model.NeighborCount(n.ID))})
			}
			table(out, []string{"ID", "NAME", "LABELS", "SIZE", "NEIGHBORS"}, nodes)
			fmt.Fprintf(out, "\n  %s %d nodes, %d edges (shape %s)\n", statusIcon(true), stats.Nodes, stats.Edges, built.Shape)
			if stats.Truncated > 0 {
				warn.Fprintf(out, "  %d entities beyond the result cap of %d were left out\n", stats.Truncated, cfg.Query.ResultCap)
			}
			if stats.Malformed > 0 {
				warn.Fprintf(out, "  %d malformed records dropped\n", stats.Malformed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&q.req.Labels, "label", nil, "node label (repeatable)")
	cmd.Flags().StringSliceVar(&q.req.Locations, "location", nil, "location (repeatable)")
	cmd.Flags().StringSliceVar(&q.req.Sublocations, "sublocation", nil, "sub-location (repeatable)")
	cmd.Flags().StringSliceVar(&q.req.Systems, "system", nil, "system (repeatable)")
	cmd.Flags().StringSliceVar(&q.req.DetailTiers, "tier", nil, "detail tier (repeatable)")
	cmd.Flags().StringVar(&q.search, "search", "", "case-insensitive name search instead of facet filters")
	cmd.Flags().IntVar(&q.random, "random", 0, "sample this many random nodes instead of facet filters")
	cmd.Flags().BoolVar(&q.dryRun, "dry-run", false, "print the Cypher and parameters without connecting")
	cmd.Flags().BoolVar(&q.asJSON, "json", false, "print the graph as JSON")
	return cmd
}

func printQuery(cmd *cobra.Command, q query.Query) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n\n", brand.Sprint("cypher"), subtle.Sprintf("(shape %s)", q.Shape))
	for _, line := range strings.Split(q.Cypher, "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}
	raw, err := json.MarshalIndent(q.Params, "  ", "  ")
	if err != nil {
		warn.Fprintf(out, "params: %v\n", err)
		return
	}
	fmt.Fprintf(out, "\n%s\n  %s\n", brand.Sprint("params"), raw)
}
