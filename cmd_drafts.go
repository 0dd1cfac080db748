package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"prowriter/article"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List or delete saved drafts",
	Args:  cobra.NoArgs,
	RunE:  runDraftsList,
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved drafts, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runDraftsList,
}

var draftsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftsDelete,
}

func init() {
	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsDeleteCmd)
}

func runDraftsList(cmd *cobra.Command, _ []string) error {
	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	drafts, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no drafts")
		return nil
	}
	rows := make([]table.Row, 0, len(drafts))
	for _, d := range drafts {
		rows = append(rows, table.Row{
			d.ID,
			truncate(d.Topic, 40),
			d.Status,
			fmt.Sprintf("%d/%d", article.CompletedCount(d.Sections), len(d.Sections)),
			d.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	renderTable(cmd.OutOrStdout(), table.Row{"ID", "Topic", "Status", "Sections", "Updated"}, rows)
	return nil
}

func runDraftsDelete(cmd *cobra.Command, args []string) error {
	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
