package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/fetch"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/wizard"
	"github.com/spf13/cobra"
)

var letterCmd = &cobra.Command{
	Use:   "letter",
	Short: "Generate cover letters",
}

var letterGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a cover letter for a job from one of your CVs",
	Long: "Walks through the cover letter steps: select a CV, describe the job (text, file or URL), " +
		"choose style and tone, then generate. Generating uses one credit.",
	Args: cobra.NoArgs,
	RunE: runLetterGenerate,
}

var letterExportCmd = &cobra.Command{
	Use:   "export <letter-id> <pdf|docx>",
	Short: "Export a saved cover letter",
	Args:  cobra.ExactArgs(2),
	RunE:  runLetterExport,
}

var letterFetchJobCmd = &cobra.Command{
	Use:   "fetch-job <url>",
	Short: "Fetch a job posting and print its description",
	Args:  cobra.ExactArgs(1),
	RunE:  runLetterFetchJob,
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show your cover letter credit balance",
	Args:  cobra.NoArgs,
	RunE:  runCredits,
}

var (
	letterCVID        string
	letterJobText     string
	letterJobFile     string
	letterJobURL      string
	letterCompany     string
	letterJobTitle    string
	letterStyle       string
	letterTone        string
	letterContext     string
	letterFocus       string
	letterSave        bool
	letterExportAs    string
	letterOut         string
	letterDir         string
	fetchJobRefresh   bool
	fetchJobNoBrowser bool
)

func init() {
	f := letterGenerateCmd.Flags()
	f.StringVar(&letterCVID, "cv", "", "CV to write from (prompted when omitted)")
	f.StringVar(&letterJobText, "job-description", "", "Job description text")
	f.StringVar(&letterJobFile, "job-file", "", "File holding the job description (- reads stdin)")
	f.StringVar(&letterJobURL, "job-url", "", "URL of the job posting; fetched when no description is given")
	f.StringVar(&letterCompany, "company", "", "Company name")
	f.StringVar(&letterJobTitle, "job-title", "", "Job title")
	f.StringVar(&letterStyle, "style", types.StyleProfessional, "Style: professional, creative, academic, modern")
	f.StringVar(&letterTone, "tone", types.ToneFormal, "Tone: formal, confident, enthusiastic, conservative")
	f.StringVar(&letterContext, "context", "", "Additional context for the writer")
	f.StringVar(&letterFocus, "focus", "", "Comma-separated points to focus on")
	f.BoolVar(&letterSave, "save", false, "Save the generated letter")
	f.StringVar(&letterExportAs, "export", "", "Save and export the letter as pdf or docx")
	f.StringVarP(&letterOut, "out", "o", "", "Write the letter text to this file")
	f.StringVar(&letterDir, "dir", "", "Export directory (overrides the configured destination)")
	letterGenerateCmd.MarkFlagsOneRequired("job-description", "job-file", "job-url")
	letterGenerateCmd.MarkFlagsMutuallyExclusive("job-description", "job-file")

	letterExportCmd.Flags().StringVar(&letterDir, "dir", "", "Export directory (overrides the configured destination)")
	letterFetchJobCmd.Flags().BoolVar(&fetchJobRefresh, "refresh", false, "Ignore the cached copy")
	letterFetchJobCmd.Flags().BoolVar(&fetchJobNoBrowser, "no-browser", false, "Never render the page in a headless browser")

	letterCmd.AddCommand(letterGenerateCmd, letterExportCmd, letterFetchJobCmd)
	rootCmd.AddCommand(letterCmd, creditsCmd)
}

// jobFetcher builds the posting fetcher from the configuration.
func (a *app) jobFetcher(browser bool) *fetch.Fetcher {
	opts := []fetch.FetcherOption{
		fetch.WithCache(a.kv, time.Duration(a.cfg.JobCacheHours)*time.Hour),
	}
	if browser && a.cfg.UseBrowser {
		opts = append(opts, fetch.WithRenderer(fetch.Browser(fetch.DefaultTimeout, a.log)))
	}
	return fetch.NewFetcher(a.log, opts...)
}

func runLetterGenerate(cmd *cobra.Command, _ []string) error {
	a := current
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	var format types.ExportFormat
	if letterExportAs != "" {
		format = types.ExportFormat(letterExportAs)
		if !format.Valid() {
			return fmt.Errorf("unsupported export format %q: use pdf or docx", letterExportAs)
		}
	}

	jobText := letterJobText
	if letterJobFile != "" {
		data, err := readInput(cmd, letterJobFile)
		if err != nil {
			return err
		}
		jobText = string(data)
	}

	w := wizard.New(wizard.Options{Backend: a.client, Jobs: a.jobFetcher(true), Logger: a.log})
	if err := w.Start(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Credits: %d\n", w.Credits())

	cvID, err := chooseCV(cmd, w.CVs())
	if err != nil {
		return err
	}

	inputs := []wizard.Input{
		wizard.SelectCVInput{CVID: cvID},
		wizard.JobDetailsInput{
			JobDescription: jobText,
			JobURL:         letterJobURL,
			CompanyName:    letterCompany,
			JobTitle:       letterJobTitle,
		},
		wizard.ContextInput{
			Style:             letterStyle,
			Tone:              letterTone,
			AdditionalContext: letterContext,
			FocusPoints:       splitList(letterFocus),
		},
	}
	for _, in := range inputs {
		step := w.Step()
		if err := w.HandleStepComplete(ctx, in); err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
	}

	letter, err := w.Generate(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Matching score: %.0f%%\n\n%s\n", letter.MatchingScore, letter.Content)

	if letterOut != "" {
		if err := os.WriteFile(letterOut, []byte(letter.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write letter: %w", err)
		}
	}

	if !letterSave && format == "" {
		return nil
	}
	if err := w.Save(ctx, letter.Content); err != nil {
		return err
	}
	a.notify.Success("Cover letter saved", fmt.Sprintf("Letter %s; %d credits left", letter.ID, w.Credits()))

	if format == "" {
		return nil
	}
	sink, err := a.sink(ctx, letterDir)
	if err != nil {
		return err
	}
	location, err := w.Export(ctx, letter.ID, format, sink)
	if err != nil {
		return err
	}
	a.notify.Success("Cover letter exported", location)
	return nil
}

// chooseCV returns --cv, or asks the user to pick one of cvs.
func chooseCV(cmd *cobra.Command, cvs []types.CV) (string, error) {
	if letterCVID != "" {
		return letterCVID, nil
	}
	if len(cvs) == 0 {
		return "", fmt.Errorf("you have no stored CVs; save one with `cvbuilder draft save` first")
	}

	out := cmd.OutOrStdout()
	for i, cv := range cvs {
		_, _ = fmt.Fprintf(out, "%d) %s [%s]\n", i+1, cv.Title, cv.ID)
	}
	p := newPrompter(cmd.InOrStdin(), out)
	answer, err := p.Line("CV number")
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 1 || n > len(cvs) {
		return "", fmt.Errorf("choose a number between 1 and %d", len(cvs))
	}
	return cvs[n-1].ID, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runLetterExport(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()
	format := types.ExportFormat(args[1])
	if !format.Valid() {
		return fmt.Errorf("unsupported export format %q: use pdf or docx", args[1])
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	sink, err := a.sink(ctx, letterDir)
	if err != nil {
		return err
	}

	location, err := exportLetter(ctx, a, sink, args[0], format)
	if err != nil {
		return err
	}
	a.notify.Success("Cover letter exported", location)
	return nil
}

func exportLetter(ctx context.Context, a *app, sink export.Sink, id string, format types.ExportFormat) (string, error) {
	data, err := a.client.ExportLetter(ctx, id, format)
	if err != nil {
		return "", err
	}
	return sink.Put(ctx, export.LetterFileName(format), format.ContentType(), data)
}

func runLetterFetchJob(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()
	if err := fetch.ValidateURL(args[0]); err != nil {
		return err
	}

	f := a.jobFetcher(!fetchJobNoBrowser)
	if fetchJobRefresh {
		if err := f.Invalidate(ctx, args[0]); err != nil {
			a.log.Warn().Err(err).Msg("failed to drop cached posting")
		}
	}
	posting, err := f.FetchJob(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if posting.Title != "" {
		_, _ = fmt.Fprintf(out, "Title:    %s\n", posting.Title)
	}
	if posting.Company != "" {
		_, _ = fmt.Fprintf(out, "Company:  %s\n", posting.Company)
	}
	_, _ = fmt.Fprintf(out, "Platform: %s\n\n%s\n", posting.Platform, posting.Description)
	return nil
}

func runCredits(cmd *cobra.Command, _ []string) error {
	a := current
	ctx := cmd.Context()
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	n, err := a.client.Credits(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d credits\n", n)
	return nil
}
