package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/cv-builder/internal/fetch"
	"github.com/jonathan/cv-builder/internal/sections"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu          sync.Mutex
	credits     []int
	creditCalls int
	creditsErr  error
	cvs         map[string]*types.CV
	generated   *types.CoverLetterFormData
	saved       *types.SaveLetterRequest
	saveErr     error
	exported    string
	// gate, when set, holds GenerateLetter until closed.
	gate chan struct{}
}

func newFakeBackend(credits ...int) *fakeBackend {
	return &fakeBackend{
		credits: credits,
		cvs: map[string]*types.CV{
			"cv-1": {ID: "cv-1", Title: "Main", Sections: sections.Default(nil)},
		},
	}
}

func (f *fakeBackend) GetCV(_ context.Context, id string) (*types.CV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cv, ok := f.cvs[id]
	if !ok {
		return nil, errors.New("CV not found")
	}
	return cv, nil
}

func (f *fakeBackend) ListCVs(context.Context) ([]types.CV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.CV, 0, len(f.cvs))
	for _, cv := range f.cvs {
		out = append(out, *cv)
	}
	return out, nil
}

func (f *fakeBackend) Credits(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditsErr != nil {
		return 0, f.creditsErr
	}
	n := f.credits[min(f.creditCalls, len(f.credits)-1)]
	f.creditCalls++
	return n, nil
}

func (f *fakeBackend) GenerateLetter(ctx context.Context, form *types.CoverLetterFormData) (*types.GeneratedLetter, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := form.Clone()
	f.generated = &c
	return &types.GeneratedLetter{ID: "l-1", Content: "<p>Dear " + form.CompanyName + "</p>", MatchingScore: 0.9}, nil
}

func (f *fakeBackend) SaveLetter(_ context.Context, req *types.SaveLetterRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = req
	return f.saveErr
}

func (f *fakeBackend) ExportLetter(_ context.Context, id string, format types.ExportFormat) ([]byte, error) {
	f.exported = id + "." + string(format)
	return []byte("letter"), nil
}

type fakeJobs struct {
	posting *fetch.Posting
	err     error
	calls   int
}

func (f *fakeJobs) FetchJob(_ context.Context, url string) (*fetch.Posting, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.posting
	p.URL = url
	return &p, nil
}

type memorySink struct{ name string }

func (m *memorySink) Put(_ context.Context, name, _ string, _ []byte) (string, error) {
	m.name = name
	return "mem://" + name, nil
}

func started(t *testing.T, backend *fakeBackend, jobs JobFetcher) *Wizard {
	t.Helper()
	opts := Options{Backend: backend, Logger: zerolog.Nop()}
	if jobs != nil {
		opts.Jobs = jobs
	}
	w := New(opts)
	require.NoError(t, w.Start(context.Background()))
	return w
}

func completeAll(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, w.HandleStepComplete(ctx, SelectCVInput{CVID: "cv-1"}))
	require.NoError(t, w.HandleStepComplete(ctx, JobDetailsInput{JobDescription: "Build things", CompanyName: "ACME"}))
	require.NoError(t, w.HandleStepComplete(ctx, ContextInput{Style: types.StyleModern, Tone: types.ToneConfident}))
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "Select CV", StepSelectCV.String())
	assert.Equal(t, "Generation", StepGeneration.String())
	assert.Equal(t, "Step(9)", Step(9).String())
	assert.Len(t, Steps(), 4)
}

func TestNew_Defaults(t *testing.T) {
	w := New(Options{Backend: newFakeBackend(1)})
	assert.Equal(t, StepSelectCV, w.Step())
	d := w.Data()
	assert.Equal(t, types.StyleProfessional, d.Context.Style)
	assert.Equal(t, types.ToneFormal, d.Context.Tone)
	assert.NotNil(t, d.Context.FocusPoints)
	assert.Zero(t, w.Credits())
}

func TestStart_LoadsCreditsAndCVs(t *testing.T) {
	w := started(t, newFakeBackend(4), nil)
	assert.Equal(t, 4, w.Credits())
	require.Len(t, w.CVs(), 1)
	assert.Equal(t, "Main", w.CVs()[0].Title)
}

func TestStart_Failure(t *testing.T) {
	backend := newFakeBackend(1)
	backend.creditsErr = errors.New("boom")
	w := New(Options{Backend: backend, Logger: zerolog.Nop()})
	err := w.Start(context.Background())
	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "load credits", actionErr.Action)
}

func TestHandleStepComplete_AdvancesOneStepAndMerges(t *testing.T) {
	w := started(t, newFakeBackend(2), nil)
	ctx := context.Background()

	require.NoError(t, w.HandleStepComplete(ctx, SelectCVInput{CVID: "cv-1"}))
	assert.Equal(t, StepJobDetails, w.Step())
	d := w.Data()
	assert.Equal(t, "cv-1", d.CVID)
	assert.Len(t, d.CVContent, 7)

	before := w.Data()
	require.NoError(t, w.HandleStepComplete(ctx, JobDetailsInput{JobDescription: "Go engineer", JobTitle: "Engineer"}))
	assert.Equal(t, StepContext, w.Step())
	// earlier copies are unaffected by later merges
	assert.Empty(t, before.JobDescription)

	require.NoError(t, w.HandleStepComplete(ctx, ContextInput{Style: types.StyleCreative, Tone: types.ToneEnthusiastic, FocusPoints: []string{"leadership"}}))
	assert.Equal(t, StepGeneration, w.Step())

	d = w.Data()
	assert.Equal(t, "cv-1", d.CVID)
	assert.Equal(t, "Go engineer", d.JobDescription)
	assert.Equal(t, "Engineer", d.JobTitle)
	assert.Equal(t, types.StyleCreative, d.Context.Style)
	assert.Equal(t, []string{"leadership"}, d.Context.FocusPoints)

	err := w.HandleStepComplete(ctx, ContextInput{Style: types.StyleCreative, Tone: types.ToneFormal})
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepGeneration, w.Step())
}

func TestHandleStepComplete_WrongStep(t *testing.T) {
	w := started(t, newFakeBackend(1), nil)
	err := w.HandleStepComplete(context.Background(), JobDetailsInput{JobDescription: "x"})
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepSelectCV, stepErr.Current)
	assert.Equal(t, StepJobDetails, stepErr.Input)
}

func TestHandleStepComplete_CVLoadFailureKeepsStep(t *testing.T) {
	w := started(t, newFakeBackend(1), nil)
	err := w.HandleStepComplete(context.Background(), SelectCVInput{CVID: "missing"})
	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, StepSelectCV, w.Step())
	assert.Empty(t, w.Data().CVID)
}

func TestHandleStepComplete_Validation(t *testing.T) {
	w := started(t, newFakeBackend(1), nil)
	ctx := context.Background()

	err := w.HandleStepComplete(ctx, SelectCVInput{})
	var formErr *validation.FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "CV is required", formErr.Message("cvId"))

	require.NoError(t, w.HandleStepComplete(ctx, SelectCVInput{CVID: "cv-1"}))

	err = w.HandleStepComplete(ctx, JobDetailsInput{})
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "Job description or job url is required", formErr.Message("jobDescription"))

	err = w.HandleStepComplete(ctx, JobDetailsInput{JobURL: "not a url"})
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "Invalid URL", formErr.Message("jobUrl"))

	// without a fetcher a URL alone is accepted as is
	require.NoError(t, w.HandleStepComplete(ctx, JobDetailsInput{JobURL: "https://jobs.example.com/1"}))

	err = w.HandleStepComplete(ctx, ContextInput{Style: "baroque", Tone: types.ToneFormal})
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "Style must be one of: professional, creative, academic, modern", formErr.Message("style"))
	assert.Equal(t, StepContext, w.Step())
}

func TestHandleStepComplete_FetchesJobPosting(t *testing.T) {
	jobs := &fakeJobs{posting: &fetch.Posting{Title: "Backend Engineer", Company: "ACME", Description: "We build rockets."}}
	w := started(t, newFakeBackend(1), jobs)
	ctx := context.Background()
	require.NoError(t, w.HandleStepComplete(ctx, SelectCVInput{CVID: "cv-1"}))

	require.NoError(t, w.HandleStepComplete(ctx, JobDetailsInput{JobURL: "https://jobs.example.com/1", JobTitle: "Engineer"}))
	d := w.Data()
	assert.Equal(t, "We build rockets.", d.JobDescription)
	assert.Equal(t, "ACME", d.CompanyName)
	assert.Equal(t, "Engineer", d.JobTitle)
	assert.Equal(t, "https://jobs.example.com/1", d.JobURL)
	assert.Equal(t, 1, jobs.calls)
}

func TestHandleStepComplete_FetchFailureKeepsStep(t *testing.T) {
	jobs := &fakeJobs{err: errors.New("timeout")}
	w := started(t, newFakeBackend(1), jobs)
	ctx := context.Background()
	require.NoError(t, w.HandleStepComplete(ctx, SelectCVInput{CVID: "cv-1"}))

	err := w.HandleStepComplete(ctx, JobDetailsInput{JobURL: "https://jobs.example.com/1"})
	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, StepJobDetails, w.Step())
	assert.Empty(t, w.Data().JobURL)

	// a description given alongside the URL skips the fetch
	require.NoError(t, w.HandleStepComplete(ctx, JobDetailsInput{JobURL: "https://jobs.example.com/1", JobDescription: "typed"}))
	assert.Equal(t, 1, jobs.calls)
}

func TestHandleStepComplete_InsufficientCredits(t *testing.T) {
	w := started(t, newFakeBackend(0), nil)
	ctx := context.Background()
	require.NoError(t, w.HandleStepComplete(ctx, SelectCVInput{CVID: "cv-1"}))
	require.NoError(t, w.HandleStepComplete(ctx, JobDetailsInput{JobDescription: "x"}))

	err := w.HandleStepComplete(ctx, ContextInput{Style: types.StyleAcademic, Tone: types.ToneConservative})
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, StepContext, w.Step())
	assert.Equal(t, types.StyleAcademic, w.Data().Context.Style)
}

func TestGeneration(t *testing.T) {
	backend := newFakeBackend(3, 2)
	w := started(t, backend, nil)
	ctx := context.Background()

	_, err := w.Generate(ctx)
	assert.ErrorIs(t, err, ErrNotReady)

	completeAll(t, w)

	letter, err := w.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "l-1", letter.ID)
	assert.Equal(t, "<p>Dear ACME</p>", letter.Content)
	require.NotNil(t, backend.generated)
	assert.Equal(t, "cv-1", backend.generated.CVID)
	assert.Len(t, backend.generated.CVContent, 7)
	assert.Equal(t, "l-1", w.Letter().ID)

	assert.ErrorIs(t, w.Save(ctx, "  "), ErrNoLetter)
	require.NoError(t, w.Save(ctx, "<p>Dear ACME, edited</p>"))
	require.NotNil(t, backend.saved)
	assert.Equal(t, "<p>Dear ACME, edited</p>", backend.saved.Content)
	assert.Equal(t, "Build things", backend.saved.JobDescription)
	assert.Equal(t, 2, w.Credits())

	sink := &memorySink{}
	loc, err := w.Export(ctx, "l-1", types.FormatDOCX, sink)
	require.NoError(t, err)
	assert.Equal(t, "mem://cover-letter.docx", loc)
	assert.Equal(t, "l-1.docx", backend.exported)

	_, err = w.Export(ctx, "l-1", "odt", sink)
	assert.Error(t, err)
	_, err = w.Export(ctx, "", types.FormatPDF, sink)
	assert.ErrorIs(t, err, ErrNoLetter)
}

func TestSave_FailureAndCreditReload(t *testing.T) {
	backend := newFakeBackend(3)
	w := started(t, backend, nil)
	completeAll(t, w)
	ctx := context.Background()

	backend.saveErr = errors.New("denied")
	var actionErr *ActionError
	require.ErrorAs(t, w.Save(ctx, "text"), &actionErr)

	backend.saveErr = nil
	backend.creditsErr = errors.New("credits down")
	assert.NoError(t, w.Save(ctx, "text"))
	assert.Equal(t, 3, w.Credits())
}

func TestBusy(t *testing.T) {
	backend := newFakeBackend(3)
	backend.gate = make(chan struct{})
	w := started(t, backend, nil)
	completeAll(t, w)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := w.Generate(ctx)
		done <- err
	}()
	require.Eventually(t, w.Busy, time.Second, time.Millisecond)

	assert.ErrorIs(t, w.Save(ctx, "x"), ErrBusy)
	assert.ErrorIs(t, w.Start(ctx), ErrBusy)

	close(backend.gate)
	require.NoError(t, <-done)
	assert.False(t, w.Busy())
}
