package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/handiism/sdss-fetch/internal/model"
	"github.com/handiism/sdss-fetch/internal/strategy"
)

func newCandidatesCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "candidates <plate-mjd-fiber>",
		Short: "Print the URLs that would be tried for a target, in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseTarget(args[0])
			if err != nil {
				return err
			}
			cat, err := opts.catalog()
			if err != nil {
				return err
			}

			list := strategy.NewGenerator(cat).Generate(t)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for i, c := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, c.MethodTag, c.URL)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
