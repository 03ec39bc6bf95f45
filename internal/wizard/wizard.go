// Package wizard implements the cover letter flow: a forward-only sequence of
// steps (select CV, job details, context, generation) that accumulates the
// form data sent to the letter generator.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/fetch"
	"github.com/jonathan/cv-builder/internal/sections"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Step is a position in the wizard.
type Step int

// Steps in the order they are completed
const (
	StepSelectCV Step = iota
	StepJobDetails
	StepContext
	StepGeneration
)

var stepTitles = [...]string{"Select CV", "Job Details", "Context", "Generation"}

func (s Step) String() string {
	if s < StepSelectCV || s > StepGeneration {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepTitles[s]
}

// Errors returned by the wizard
var (
	ErrBusy                = errors.New("another wizard action is in progress")
	ErrInsufficientCredits = errors.New("insufficient credits: purchase more credits to generate cover letters")
	ErrNotReady            = errors.New("the wizard has not reached the generation step")
	ErrNoLetter            = errors.New("no cover letter has been generated")
)

// StepError is returned when an input does not belong to the current step.
type StepError struct {
	Current Step
	Input   Step
}

func (e *StepError) Error() string {
	if e.Current == StepGeneration {
		return "the wizard is complete; no further steps"
	}
	return fmt.Sprintf("input for step %q given at step %q", e.Input, e.Current)
}

// ActionError wraps a backend failure with the wizard action that caused it.
type ActionError struct {
	Action string
	Cause  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Action, e.Cause)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}

// Backend is the part of the API client the wizard needs.
type Backend interface {
	GetCV(ctx context.Context, id string) (*types.CV, error)
	ListCVs(ctx context.Context) ([]types.CV, error)
	Credits(ctx context.Context) (int, error)
	GenerateLetter(ctx context.Context, form *types.CoverLetterFormData) (*types.GeneratedLetter, error)
	SaveLetter(ctx context.Context, req *types.SaveLetterRequest) error
	ExportLetter(ctx context.Context, id string, format types.ExportFormat) ([]byte, error)
}

// JobFetcher retrieves a job posting from its URL.
type JobFetcher interface {
	FetchJob(ctx context.Context, url string) (*fetch.Posting, error)
}

// Options configures a Wizard.
type Options struct {
	Backend Backend
	// Jobs is optional. When set, a job URL given without a description is fetched.
	Jobs   JobFetcher
	Logger zerolog.Logger
}

// Wizard holds one cover letter session.
type Wizard struct {
	backend Backend
	jobs    JobFetcher
	log     zerolog.Logger

	busy atomic.Bool

	mu      sync.Mutex
	step    Step
	data    types.CoverLetterFormData
	credits int
	cvs     []types.CV
	letter  *types.GeneratedLetter
}

// New returns a wizard at the first step with the default letter context.
func New(opts Options) *Wizard {
	return &Wizard{
		backend: opts.Backend,
		jobs:    opts.Jobs,
		log:     opts.Logger.With().Str("component", "wizard").Logger(),
		data:    types.CoverLetterFormData{Context: types.DefaultLetterContext()},
	}
}

// Start loads the credit balance and the user's CVs concurrently.
func (w *Wizard) Start(ctx context.Context) error {
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer w.busy.Store(false)

	var (
		credits int
		cvs     []types.CV
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := w.backend.Credits(gctx)
		if err != nil {
			return &ActionError{Action: "load credits", Cause: err}
		}
		credits = n
		return nil
	})
	g.Go(func() error {
		list, err := w.backend.ListCVs(gctx)
		if err != nil {
			return &ActionError{Action: "load CVs", Cause: err}
		}
		cvs = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	w.mu.Lock()
	w.credits = credits
	w.cvs = cvs
	w.mu.Unlock()
	w.log.Debug().Int("credits", credits).Int("cvs", len(cvs)).Msg("wizard started")
	return nil
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Data returns a copy of the accumulated form data.
func (w *Wizard) Data() types.CoverLetterFormData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.data.Clone()
}

// Credits returns the last loaded credit balance. It is 0 until Start succeeds.
func (w *Wizard) Credits() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.credits
}

// CVs returns the CV list loaded by Start.
func (w *Wizard) CVs() []types.CV {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]types.CV(nil), w.cvs...)
}

// Letter returns the last generated letter, or nil.
func (w *Wizard) Letter() *types.GeneratedLetter {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.letter == nil {
		return nil
	}
	l := *w.letter
	return &l
}

// Busy reports whether an action is running.
func (w *Wizard) Busy() bool {
	return w.busy.Load()
}

// HandleStepComplete merges the input for the current step into the form
// data and advances one step. When the step's side effect fails (loading the
// CV, fetching the job posting) nothing is merged and the step is kept. At the
// context step a zero credit balance keeps the step after merging.
func (w *Wizard) HandleStepComplete(ctx context.Context, in Input) error {
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer w.busy.Store(false)

	current := w.Step()
	if in.step() != current || current == StepGeneration {
		return &StepError{Current: current, Input: in.step()}
	}
	if err := validation.Struct(in); err != nil {
		return err
	}

	patch, err := w.resolve(ctx, in)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = patch(w.data.Clone())
	if current == StepContext && w.credits <= 0 {
		return ErrInsufficientCredits
	}
	w.step = current + 1
	w.log.Debug().Stringer("step", w.step).Msg("wizard advanced")
	return nil
}

// resolve runs the input's side effect and returns the merge to apply.
func (w *Wizard) resolve(ctx context.Context, in Input) (func(types.CoverLetterFormData) types.CoverLetterFormData, error) {
	switch v := in.(type) {
	case SelectCVInput:
		cv, err := w.backend.GetCV(ctx, v.CVID)
		if err != nil {
			return nil, &ActionError{Action: "load CV", Cause: err}
		}
		content := sections.Sorted(cv.Sections)
		return func(d types.CoverLetterFormData) types.CoverLetterFormData {
			d.CVID = v.CVID
			d.CVContent = content
			return d
		}, nil

	case JobDetailsInput:
		if strings.TrimSpace(v.JobDescription) == "" && v.JobURL != "" && w.jobs != nil {
			posting, err := w.jobs.FetchJob(ctx, v.JobURL)
			if err != nil {
				return nil, &ActionError{Action: "fetch job posting", Cause: err}
			}
			v.JobDescription = posting.Description
			if v.CompanyName == "" {
				v.CompanyName = posting.Company
			}
			if v.JobTitle == "" {
				v.JobTitle = posting.Title
			}
		}
		return func(d types.CoverLetterFormData) types.CoverLetterFormData {
			d.JobDescription = v.JobDescription
			d.JobURL = v.JobURL
			d.CompanyName = v.CompanyName
			d.JobTitle = v.JobTitle
			return d
		}, nil

	case ContextInput:
		lc := types.LetterContext(v)
		if lc.FocusPoints == nil {
			lc.FocusPoints = []string{}
		} else {
			lc.FocusPoints = append([]string{}, lc.FocusPoints...)
		}
		return func(d types.CoverLetterFormData) types.CoverLetterFormData {
			d.Context = lc
			return d
		}, nil
	}
	return nil, fmt.Errorf("unsupported wizard input %T", in)
}

// Generate asks the backend for a letter from the accumulated form data.
func (w *Wizard) Generate(ctx context.Context) (*types.GeneratedLetter, error) {
	data, err := w.beginGeneration()
	if err != nil {
		return nil, err
	}
	defer w.busy.Store(false)

	letter, err := w.backend.GenerateLetter(ctx, &data)
	if err != nil {
		return nil, &ActionError{Action: "generate cover letter", Cause: err}
	}

	w.mu.Lock()
	w.letter = letter
	w.mu.Unlock()
	w.log.Info().Str("letter_id", letter.ID).Float64("matching_score", letter.MatchingScore).Msg("cover letter generated")
	l := *letter
	return &l, nil
}

// Save stores content, usually the generated letter after editing, together
// with the form data, then reloads the credit balance. A failed reload is
// logged and does not fail the save.
func (w *Wizard) Save(ctx context.Context, content string) error {
	data, err := w.beginGeneration()
	if err != nil {
		return err
	}
	defer w.busy.Store(false)

	if strings.TrimSpace(content) == "" {
		return ErrNoLetter
	}
	if err := w.backend.SaveLetter(ctx, &types.SaveLetterRequest{Content: content, CoverLetterFormData: data}); err != nil {
		return &ActionError{Action: "save cover letter", Cause: err}
	}

	credits, err := w.backend.Credits(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to reload credits")
		return nil
	}
	w.mu.Lock()
	w.credits = credits
	w.mu.Unlock()
	return nil
}

// Export renders a stored letter in format and writes it to sink as
// cover-letter.<format>. It returns the location reported by the sink.
func (w *Wizard) Export(ctx context.Context, letterID string, format types.ExportFormat, sink export.Sink) (string, error) {
	if !format.Valid() {
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if letterID == "" {
		return "", ErrNoLetter
	}
	if _, err := w.beginGeneration(); err != nil {
		return "", err
	}
	defer w.busy.Store(false)

	data, err := w.backend.ExportLetter(ctx, letterID, format)
	if err != nil {
		return "", &ActionError{Action: "export cover letter", Cause: err}
	}
	location, err := sink.Put(ctx, export.LetterFileName(format), format.ContentType(), data)
	if err != nil {
		return "", &ActionError{Action: "export cover letter", Cause: err}
	}
	w.log.Info().Str("letter_id", letterID).Str("location", location).Msg("cover letter exported")
	return location, nil
}

// beginGeneration marks the wizard busy when it is at the generation step and
// returns a copy of the form data. The caller releases the busy flag.
func (w *Wizard) beginGeneration() (types.CoverLetterFormData, error) {
	if w.Step() != StepGeneration {
		return types.CoverLetterFormData{}, ErrNotReady
	}
	if !w.busy.CompareAndSwap(false, true) {
		return types.CoverLetterFormData{}, ErrBusy
	}
	return w.Data(), nil
}
