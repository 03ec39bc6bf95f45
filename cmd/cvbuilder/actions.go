package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/spf13/cobra"
)

var draftSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Store the CV on the backend",
	Long:  "Stores the CV as a draft, or publishes it with --publish. A new CV is created first; the local draft is cleared once it is stored.",
	Args:  cobra.NoArgs,
	RunE:  runDraftSave,
}

var draftPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the CV to HTML with the selected template",
	Args:  cobra.NoArgs,
	RunE:  runDraftPreview,
}

var draftExportCmd = &cobra.Command{
	Use:   "export <pdf|docx>",
	Short: "Export the CV document",
	Long:  "Renders the CV on the backend and writes cv.<format> to --dir, the configured bucket, or the export directory.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftExport,
}

var (
	savePublish bool
	previewOut  string
	exportDir   string
)

func init() {
	draftSaveCmd.Flags().BoolVar(&savePublish, "publish", false, "Publish instead of saving as a draft")
	draftPreviewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "Write the HTML to this file instead of stdout")
	draftExportCmd.Flags().StringVar(&exportDir, "dir", "", "Write to this directory instead of the configured destination")

	draftCmd.AddCommand(draftSaveCmd, draftPreviewCmd, draftExportCmd)
}

func runDraftSave(cmd *cobra.Command, _ []string) error {
	a := current
	if err := a.requireLogin(cmd.Context()); err != nil {
		return err
	}
	status := types.StatusDraft
	if savePublish {
		status = types.StatusPublished
	}

	return withEditor(cmd, false, func(ctx context.Context, ed *editor.Editor) error {
		result, err := ed.SaveDraft(ctx, status)
		if err != nil {
			return err
		}
		if result == editor.ResultNoChanges {
			a.notify.Info(result.String(), "")
			return nil
		}
		title := "Draft saved"
		if status == types.StatusPublished {
			title = "CV published"
		}
		a.notify.Success(title, "CV id "+ed.CVID())
		return nil
	})
}

func runDraftPreview(cmd *cobra.Command, _ []string) error {
	a := current
	if err := a.requireLogin(cmd.Context()); err != nil {
		return err
	}

	return withEditor(cmd, false, func(ctx context.Context, ed *editor.Editor) error {
		html, err := ed.Preview(ctx)
		if err != nil {
			return err
		}
		if previewOut == "" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), html)
			return nil
		}
		if dir := filepath.Dir(previewOut); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := os.WriteFile(previewOut, []byte(html), 0o644); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
		a.notify.Success("Preview written", previewOut)
		return nil
	})
}

func runDraftExport(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()
	format := types.ExportFormat(args[0])
	if !format.Valid() {
		return fmt.Errorf("unsupported export format %q: use pdf or docx", args[0])
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	sink, err := a.sink(ctx, exportDir)
	if err != nil {
		return err
	}

	return withEditor(cmd, false, func(ctx context.Context, ed *editor.Editor) error {
		location, err := ed.Export(ctx, format, sink)
		if err != nil {
			return err
		}
		a.notify.Success("CV exported", location)
		return nil
	})
}
