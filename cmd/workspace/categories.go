package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"workspace-client/pkg/models"
	"workspace-client/pkg/taxonomy"
)

func newCategoriesCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage your custom feed categories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List custom categories in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			cs, err := a.categories.List()
			if err != nil {
				return err
			}
			return printCategories(a, cs)
		},
	}

	add := &cobra.Command{
		Use:   "add <id> [name]",
		Short: "Add a category, or rename it when the id exists",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			c := models.Category{ID: args[0]}
			if len(args) == 2 {
				c.Name = args[1]
			}
			cs, err := a.categories.Upsert(c)
			if err != nil {
				return err
			}
			return printCategories(a, cs)
		},
	}

	var defaults bool
	ensure := &cobra.Command{
		Use:   "ensure [id]...",
		Short: "Add every missing category, keeping existing ones untouched",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			batch := make([]models.Category, 0, len(args))
			if defaults {
				batch = append(batch, taxonomy.DefaultCategories()...)
			}
			for _, id := range args {
				batch = append(batch, models.Category{ID: id})
			}
			if len(batch) == 0 {
				return fmt.Errorf("give category ids or --defaults")
			}
			cs, err := a.categories.EnsureAll(batch)
			if err != nil {
				return err
			}
			return printCategories(a, cs)
		},
	}
	ensure.Flags().BoolVar(&defaults, "defaults", false, "include the default categories")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			cs, err := a.categories.Remove(args[0])
			if err != nil {
				return err
			}
			return printCategories(a, cs)
		},
	}

	cmd.AddCommand(list, add, ensure, remove)
	return cmd
}

func printCategories(a *app, cs []models.Category) error {
	if a.json {
		return a.printJSON(cs)
	}
	if len(cs) == 0 {
		fmt.Fprintln(a.out, "No custom categories.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
	}
	return tw.Flush()
}
