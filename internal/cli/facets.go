package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trujjo/neurotome/internal/app"
)

func facetsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "facets",
		Short: "List the facet values the database offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			clients, err := app.ConnectGraph(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer clients.Close(ctx)

			ex := app.NewExplorer(cfg, log, clients.Reader, nil)
			snap, ferr := ex.Catalog.Refresh(ctx, true)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(snap); err != nil {
					return err
				}
				return nil
			}

			fmt.Fprintf(out, "%s %s\n\n", brand.Sprint("labels"), subtle.Sprintf("(%s)", snap.Sources["labels"]))
			fmt.Fprintf(out, "  %s\n\n", strings.Join(snap.Labels, ", "))

			fmt.Fprintf(out, "%s %s\n\n", brand.Sprint("locations"), subtle.Sprintf("(%s)", snap.Sources["locations"]))
			rows := make([][]string, 0, len(snap.Locations))
			for _, g := range snap.Locations {
				rows = append(rows, []string{g.Location, strings.Join(g.Sublocations, ", ")})
			}
			table(out, []string{"LOCATION", "SUBLOCATIONS"}, rows)

			fmt.Fprintf(out, "\n%s %s\n\n", brand.Sprint("systems"), subtle.Sprintf("(%s)", snap.Sources["systems"]))
			fmt.Fprintf(out, "  %s\n\n", strings.Join(snap.Systems, ", "))

			fmt.Fprintf(out, "%s\n\n  %s\n", brand.Sprint("detail tiers"), strings.Join(snap.DetailTiers, " > "))
			if ferr != nil {
				warn.Fprintf(cmd.ErrOrStderr(), "\nsome facets fell back to configured values: %v\n", ferr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}
