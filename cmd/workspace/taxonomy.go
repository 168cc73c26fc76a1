package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"workspace-client/pkg/taxonomy"
)

func newTaxonomyCmd() *cobra.Command {
	var status, bucket string
	cmd := &cobra.Command{
		Use:         "taxonomy",
		Short:       "Print phases, role types, roadmap buckets and default categories",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"bare": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case status != "":
				fmt.Fprintln(out, taxonomy.BackendToBucket(status))
				return nil
			case bucket != "":
				fmt.Fprintln(out, taxonomy.MapBucketToBackendPrimary(bucket))
				return nil
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				j, err := json.MarshalIndent(map[string]any{
					"phases":            taxonomy.Phases(),
					"roleTypes":         taxonomy.RoleTypes(),
					"buckets":           taxonomy.Buckets(),
					"defaultCategories": taxonomy.DefaultCategories(),
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(j))
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tID\tLABEL")
			for _, p := range taxonomy.Phases() {
				fmt.Fprintf(tw, "phase\t%s\t%s\n", p.ID, p.Label)
			}
			for _, r := range taxonomy.RoleTypes() {
				fmt.Fprintf(tw, "role\t%s\t%s\n", r.ID, r.Label)
			}
			for _, b := range taxonomy.Buckets() {
				fmt.Fprintf(tw, "bucket\t%s\t%s\n", b.ID, b.Label)
			}
			for _, c := range taxonomy.DefaultCategories() {
				fmt.Fprintf(tw, "category\t%s\t%s\n", c.ID, c.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "print the roadmap bucket for a backend status")
	cmd.Flags().StringVar(&bucket, "bucket", "", "print the primary backend status for a bucket")
	return cmd
}
