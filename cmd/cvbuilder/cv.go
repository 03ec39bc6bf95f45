package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/spf13/cobra"
)

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "List and manage stored CVs",
}

var cvListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your CVs",
	Args:  cobra.NoArgs,
	RunE:  runCVList,
}

var cvShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored CV as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCVShow,
}

var cvDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored CV",
	Args:  cobra.ExactArgs(1),
	RunE:  runCVDelete,
}

func init() {
	cvCmd.AddCommand(cvListCmd, cvShowCmd, cvDeleteCmd)
	rootCmd.AddCommand(cvCmd)
}

func runCVList(cmd *cobra.Command, _ []string) error {
	a := current
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	cvs, err := a.client.ListCVs(ctx)
	if err != nil {
		return err
	}
	if len(cvs) == 0 {
		a.notify.Info("No CVs yet", "Start one with `cvbuilder draft show` and store it with `cvbuilder draft save`.")
		return nil
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cvTable(cvs))
	return nil
}

// cvTable renders the CV list.
func cvTable(cvs []types.CV) string {
	rows := make([][]string, 0, len(cvs))
	for _, cv := range cvs {
		updated := ""
		if !cv.UpdatedAt.IsZero() {
			updated = cv.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{cv.ID, cv.Title, string(cv.Status), cv.TemplateID, updated})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "STATUS", "TEMPLATE", "UPDATED").
		Rows(rows...).
		String()
}

func runCVShow(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	cv, err := a.client.GetCV(ctx, args[0])
	if err != nil {
		return err
	}
	return writeJSON(cmd, cv)
}

func runCVDelete(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	if err := a.client.DeleteCV(ctx, args[0]); err != nil {
		return err
	}
	a.notify.Success("CV deleted", args[0])
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
