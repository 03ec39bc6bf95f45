package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/cv-builder/internal/draft"
	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/richtext"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Edit a CV",
	Long: "Edits the local draft of a new CV, which is kept between runs until it is saved or exported. " +
		"With --cv the stored CV with that id is edited instead and every change is saved back right away.",
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the sections and validation state",
	Args:  cobra.NoArgs,
	RunE:  runDraftShow,
}

var draftResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the local draft and start from the default template",
	Args:  cobra.NoArgs,
	RunE:  runDraftReset,
}

var draftImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the sections with a JSON document (- reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftImport,
}

var draftValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check required fields",
	Args:  cobra.NoArgs,
	RunE:  runDraftValidate,
}

var draftAddSectionCmd = &cobra.Command{
	Use:   "add-section <type> [title]",
	Short: "Add a section (text, experience, education, skills, languages, hobbies)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runDraftAddSection,
}

var draftRemoveSectionCmd = &cobra.Command{
	Use:   "remove-section <section-id>",
	Short: "Remove a section",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftRemoveSection,
}

var draftAddItemCmd = &cobra.Command{
	Use:   "add-item <section-id>",
	Short: "Append a blank entry to a list section",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftAddItem,
}

var draftRemoveItemCmd = &cobra.Command{
	Use:   "remove-item <section-id> <item-id>",
	Short: "Remove an entry from a list section",
	Args:  cobra.ExactArgs(2),
	RunE:  runDraftRemoveItem,
}

var draftSetCmd = &cobra.Command{
	Use:   "set <section-id> <path> <value>",
	Short: "Set a field",
	Long: "Sets one field. Paths are a contact field (name, email, phone, location, linkedin, github), " +
		"content for text sections, title, or <item-id>.<field> for list entries.",
	Args: cobra.ExactArgs(3),
	RunE: runDraftSet,
}

var draftTextCmd = &cobra.Command{
	Use:   "text <section-id>",
	Short: "Set a text section from markdown or plain text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftText,
}

var draftReorderCmd = &cobra.Command{
	Use:   "reorder <dragged-id> <target-id>",
	Short: "Move a section to the position of another",
	Args:  cobra.ExactArgs(2),
	RunE:  runDraftReorder,
}

var draftTemplateCmd = &cobra.Command{
	Use:   "template [id]",
	Short: "List templates or select one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDraftTemplate,
}

var (
	draftCVID     string
	draftShowJSON bool
	textMarkdown  string
	textPlain     string
)

func init() {
	draftCmd.PersistentFlags().StringVar(&draftCVID, "cv", "", "Edit the stored CV with this id instead of the local draft")
	draftShowCmd.Flags().BoolVar(&draftShowJSON, "json", false, "Print the full state as JSON")
	draftTextCmd.Flags().StringVar(&textMarkdown, "markdown", "", "Markdown file to convert (- reads stdin)")
	draftTextCmd.Flags().StringVar(&textPlain, "text", "", "Plain text content")
	draftTextCmd.MarkFlagsOneRequired("markdown", "text")
	draftTextCmd.MarkFlagsMutuallyExclusive("markdown", "text")

	draftCmd.AddCommand(draftShowCmd, draftResetCmd, draftImportCmd, draftValidateCmd,
		draftAddSectionCmd, draftRemoveSectionCmd, draftAddItemCmd, draftRemoveItemCmd,
		draftSetCmd, draftTextCmd, draftReorderCmd, draftTemplateCmd)
	rootCmd.AddCommand(draftCmd)
}

// openEditor loads the CV named by --cv, or the local draft.
func openEditor(ctx context.Context, a *app, onEvent func(editor.Event)) (*editor.Editor, error) {
	if draftCVID != "" {
		if err := a.requireLogin(ctx); err != nil {
			return nil, err
		}
	}

	ed := a.newEditor(onEvent)
	var err error
	if draftCVID == "" {
		err = ed.NewDraft(ctx)
	} else {
		err = ed.Open(ctx, draftCVID)
	}
	if err != nil {
		_ = ed.Close(ctx)
		return nil, err
	}
	return ed, nil
}

// withEditor runs fn against the CV being edited. After a change, a stored CV
// is saved back with its current status; a local draft is written when the
// editor closes.
func withEditor(cmd *cobra.Command, changes bool, fn func(ctx context.Context, ed *editor.Editor) error) (err error) {
	a := current
	ctx := cmd.Context()

	ed, err := openEditor(ctx, a, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ed.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("failed to write local draft: %w", cerr)
		}
	}()

	if err := fn(ctx, ed); err != nil {
		return err
	}
	if !changes || ed.CVID() == "" {
		return nil
	}
	return saveBack(ctx, a, ed)
}

func saveBack(ctx context.Context, a *app, ed *editor.Editor) error {
	status := ed.State().Status
	if !status.Valid() {
		status = types.StatusDraft
	}
	if _, err := ed.SaveDraft(ctx, status); err != nil {
		return err
	}
	a.log.Debug().Str("cv_id", ed.CVID()).Msg("change saved")
	return nil
}

func runDraftShow(cmd *cobra.Command, _ []string) error {
	return withEditor(cmd, false, func(_ context.Context, ed *editor.Editor) error {
		st := ed.State()
		if draftShowJSON {
			return writeJSON(cmd, st)
		}
		out := cmd.OutOrStdout()
		if st.CVID != "" {
			_, _ = fmt.Fprintf(out, "CV %s (%s), template %s\n", st.CVID, st.Status, st.TemplateID)
		} else {
			_, _ = fmt.Fprintf(out, "Local draft, template %s\n", st.TemplateID)
		}
		for _, s := range st.Sections {
			_, _ = fmt.Fprintf(out, "%2d  %-14s %-11s %s\n", s.Order, s.ID, s.Type, s.Title)
			for _, line := range describeContent(s.Content) {
				_, _ = fmt.Fprintf(out, "      %s\n", line)
			}
		}
		if len(st.Errors) > 0 {
			_, _ = fmt.Fprintf(out, "%d validation error(s); run `cvbuilder draft validate`\n", len(st.Errors))
		}
		return nil
	})
}

// describeContent summarizes a section's content, one line per entry.
func describeContent(c types.Content) []string {
	switch v := c.(type) {
	case *types.ContactContent:
		return []string{strings.Join(nonEmpty(v.Name, v.Email, v.Phone, v.Location, v.LinkedIn, v.GitHub), " | ")}
	case types.TextContent:
		text := richtext.PlainText(string(v))
		if r := []rune(text); len(r) > 72 {
			text = string(r[:69]) + "..."
		}
		return nonEmpty(text)
	case types.ExperienceList:
		lines := make([]string, 0, len(v))
		for _, e := range v {
			lines = append(lines, fmt.Sprintf("%s  %s", e.ID, strings.Join(nonEmpty(e.Position, e.Company), " at ")))
		}
		return lines
	case types.EducationList:
		lines := make([]string, 0, len(v))
		for _, e := range v {
			lines = append(lines, fmt.Sprintf("%s  %s", e.ID, strings.Join(nonEmpty(e.Degree, e.Institution), ", ")))
		}
		return lines
	case types.LanguageList:
		lines := make([]string, 0, len(v))
		for _, l := range v {
			lines = append(lines, fmt.Sprintf("%s  %s", l.ID, strings.Join(nonEmpty(l.Name, l.Level), " - ")))
		}
		return lines
	default:
		return nil
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func runDraftReset(cmd *cobra.Command, _ []string) error {
	a := current
	if draftCVID != "" {
		return fmt.Errorf("reset applies to the local draft only")
	}
	if err := draft.Clear(cmd.Context(), a.kv); err != nil {
		return err
	}
	a.notify.Info("Draft discarded", "The next edit starts from the default template.")
	return nil
}

func runDraftImport(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	if err := schemas.ValidateDraft(data); err != nil {
		return err
	}
	var next []types.Section
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("failed to decode sections: %w", err)
	}

	return withEditor(cmd, true, func(_ context.Context, ed *editor.Editor) error {
		if err := ed.Replace(next); err != nil {
			return err
		}
		current.notify.Success("Sections imported", fmt.Sprintf("%d sections from %s", len(next), args[0]))
		return nil
	})
}

func runDraftValidate(cmd *cobra.Command, _ []string) error {
	return withEditor(cmd, false, func(_ context.Context, ed *editor.Editor) error {
		if errs := ed.Errors(); len(errs) > 0 {
			return validation.Errors(errs)
		}
		current.notify.Success("CV is valid", "All required fields are filled in.")
		return nil
	})
}

func runDraftAddSection(cmd *cobra.Command, args []string) error {
	sectionType := types.SectionType(args[0])
	if !sectionType.Valid() {
		return fmt.Errorf("unknown section type %q", args[0])
	}
	title := ""
	if len(args) == 2 {
		title = args[1]
	}
	return withEditor(cmd, true, func(_ context.Context, ed *editor.Editor) error {
		id, err := ed.AddSection(sectionType, title)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	})
}

func runDraftRemoveSection(cmd *cobra.Command, args []string) error {
	return withEditor(cmd, true, func(_ context.Context, ed *editor.Editor) error {
		return ed.RemoveSection(args[0])
	})
}

func runDraftAddItem(cmd *cobra.Command, args []string) error {
	return withEditor(cmd, true, func(_ context.Context, ed *editor.Editor) error {
		id, err := ed.AddItem(args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	})
}

func runDraftRemoveItem(cmd *cobra.Command, args []string) error {
	return withEditor(cmd, true, func(_ context.Context, ed *editor.Editor) error {
		return ed.RemoveItem(args[0], args[1])
	})
}

func runDraftSet(cmd *cobra.Command, args []string) error {
	return withEditor(cmd, true, func(_ context.Context, ed *editor.Editor) error {
		return ed.UpdateField(args[0], args[1], args[2])
	})
}

func runDraftText(cmd *cobra.Command, args []string) error {
	var markdown []byte
	if textMarkdown != "" {
		data, err := readInput(cmd, textMarkdown)
		if err != nil {
			return err
		}
		markdown = data
	}

	return withEditor(cmd, true, func(_ context.Context, ed *editor.Editor) error {
		var writeErr error
		doc, err := ed.RichText(args[0], func(err error) { writeErr = err })
		if err != nil {
			return err
		}
		if markdown != nil {
			doc.SetMarkdown(string(markdown))
		} else {
			doc.SetText(textPlain)
		}
		return writeErr
	})
}

func runDraftReorder(cmd *cobra.Command, args []string) error {
	return withEditor(cmd, true, func(_ context.Context, ed *editor.Editor) error {
		return ed.Reorder(args[0], args[1])
	})
}

func runDraftTemplate(cmd *cobra.Command, args []string) error {
	return withEditor(cmd, len(args) == 1, func(ctx context.Context, ed *editor.Editor) error {
		if len(args) == 0 {
			out := cmd.OutOrStdout()
			for _, t := range types.Templates {
				marker := " "
				if t.ID == ed.Template() {
					marker = "*"
				}
				_, _ = fmt.Fprintf(out, "%s %-13s %s\n", marker, t.ID, t.Name)
			}
			return nil
		}
		if err := ed.SetTemplate(ctx, args[0]); err != nil {
			return fmt.Errorf("%w %q", err, args[0])
		}
		current.notify.Success("Template selected", args[0])
		return nil
	})
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
