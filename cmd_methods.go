package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"prowriter/article"
)

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the built-in expansion methods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		methods := article.BuiltinMethods()
		rows := make([]table.Row, 0, len(methods))
		for _, m := range methods {
			rows = append(rows, table.Row{m.ID, m.Name, m.Category, truncate(m.Description, 60)})
		}
		renderTable(cmd.OutOrStdout(), table.Row{"ID", "Name", "Category", "Description"}, rows)
		return nil
	},
}
