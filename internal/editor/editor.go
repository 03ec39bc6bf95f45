// Package editor implements a CV editing session: the section state, its
// validation, local autosave for new CVs and the actions that talk to the
// backend (preview, export, save and publish).
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonathan/cv-builder/internal/draft"
	"github.com/jonathan/cv-builder/internal/sections"
	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
	"github.com/rs/zerolog"
)

// Backend is the part of the API client the editor needs.
type Backend interface {
	CreateCV(ctx context.Context, req *types.CreateCVRequest) (string, error)
	GetCV(ctx context.Context, id string) (*types.CV, error)
	UpdateCV(ctx context.Context, id string, req *types.UpdateCVRequest) error
	Preview(ctx context.Context, req *types.RenderRequest) (string, error)
	Export(ctx context.Context, format types.ExportFormat, req *types.RenderRequest) ([]byte, error)
}

// Event types emitted to Options.OnEvent.
const (
	EventChanged   = "changed"
	EventAutosaved = "autosaved"
	EventSaved     = "saved"
	EventExported  = "exported"
)

// Event describes something that happened to the session.
type Event struct {
	Type   string    `json:"type"`
	CVID   string    `json:"cv_id,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Errors int       `json:"errors"`
	At     time.Time `json:"at"`
}

// Options configures an Editor.
type Options struct {
	Backend Backend
	// KV holds the local draft and the template preference.
	KV            storage.KV
	AutosaveDelay time.Duration
	NewID         sections.IDFunc
	Logger        zerolog.Logger
	// OnEvent is called after every change and action. It must not block.
	OnEvent func(Event)
}

// State is a snapshot of the session.
type State struct {
	CVID       string                       `json:"cv_id,omitempty"`
	Status     types.CVStatus               `json:"status,omitempty"`
	TemplateID string                       `json:"template_id"`
	Sections   []types.Section              `json:"sections"`
	Errors     []validation.ValidationError `json:"errors"`
	// Dirty is true when the sections differ from the last successful save.
	Dirty bool `json:"dirty"`
}

// Editor is one CV editing session. Mutations may run at any time; actions
// that reach the backend are serialized and rejected with ErrBusy while one runs.
type Editor struct {
	backend  Backend
	kv       storage.KV
	autosave *draft.Autosaver
	newID    sections.IDFunc
	log      zerolog.Logger
	onEvent  func(Event)

	busy atomic.Bool

	mu         sync.Mutex
	sections   []types.Section
	cvID       string
	status     types.CVStatus
	templateID string
	lastSaved  string
	errs       []validation.ValidationError
}

// New returns an editor holding the default template. Call NewDraft or Open to load content.
func New(opts Options) *Editor {
	newID := opts.NewID
	if newID == nil {
		newID = sections.NewID
	}
	e := &Editor{
		backend:    opts.Backend,
		kv:         opts.KV,
		newID:      newID,
		log:        opts.Logger.With().Str("component", "editor").Logger(),
		onEvent:    opts.OnEvent,
		templateID: types.DefaultTemplate,
	}
	e.autosave = draft.New(opts.KV, opts.Logger,
		draft.WithDelay(opts.AutosaveDelay),
		draft.WithOnSave(e.autosaved),
	)
	e.sections = sections.Default(newID)
	e.errs = validation.Validate(e.sections)
	return e
}

// NewDraft starts a new, unsaved CV. A locally autosaved draft is restored
// when present and well-formed; otherwise the default template is used.
func (e *Editor) NewDraft(ctx context.Context) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.busy.Store(false)

	s, err := draft.Load(ctx, e.kv)
	switch {
	case err == nil:
		e.log.Info().Int("sections", len(s)).Msg("restored local draft")
	default:
		if !errors.Is(err, draft.ErrNoDraft) {
			e.log.Warn().Err(err).Msg("ignoring unreadable local draft")
		}
		// Item ids must survive a restart even before the first edit.
		s = sections.Default(e.newID)
		if err := draft.Save(ctx, e.kv, s); err != nil {
			return fmt.Errorf("failed to store new draft: %w", err)
		}
	}

	templateID, err := draft.LoadTemplate(ctx, e.kv)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.cvID = ""
	e.status = ""
	e.lastSaved = ""
	e.templateID = templateID
	e.sections = s
	e.errs = validation.Validate(s)
	e.mu.Unlock()
	return nil
}

// Open loads a stored CV for editing. Local autosave is off for stored CVs.
func (e *Editor) Open(ctx context.Context, id string) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.busy.Store(false)

	cv, err := e.backend.GetCV(ctx, id)
	if err != nil {
		return &ActionError{Action: "load CV", Cause: err}
	}
	if err := sections.CheckInvariants(cv.Sections); err != nil {
		e.log.Warn().Err(err).Str("cv_id", id).Msg("stored CV breaks section invariants")
	}

	templateID := cv.TemplateID
	if !types.IsTemplate(templateID) {
		if templateID, err = draft.LoadTemplate(ctx, e.kv); err != nil {
			return err
		}
	}

	e.autosave.Cancel()
	e.mu.Lock()
	e.cvID = cv.ID
	if e.cvID == "" {
		e.cvID = id
	}
	e.status = cv.Status
	e.lastSaved = ""
	e.templateID = templateID
	e.sections = sections.Sorted(cv.Sections)
	e.errs = validation.Validate(e.sections)
	e.mu.Unlock()
	return nil
}

// State returns a snapshot of the session.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		CVID:       e.cvID,
		Status:     e.status,
		TemplateID: e.templateID,
		Sections:   sections.Clone(e.sections),
		Errors:     append([]validation.ValidationError{}, e.errs...),
		Dirty:      e.lastSaved == "" || e.lastSaved != marshalSections(e.sections),
	}
}

// Sections returns a copy of the current sections.
func (e *Editor) Sections() []types.Section {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sections.Clone(e.sections)
}

// Errors returns the current validation result.
func (e *Editor) Errors() []validation.ValidationError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]validation.ValidationError{}, e.errs...)
}

// CVID returns the backend id, or "" for a CV that has not been stored yet.
func (e *Editor) CVID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cvID
}

// Busy reports whether an action is running.
func (e *Editor) Busy() bool {
	return e.busy.Load()
}

// Template returns the selected template id.
func (e *Editor) Template() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.templateID
}

// SetTemplate selects a template and stores it as the preference.
func (e *Editor) SetTemplate(ctx context.Context, id string) error {
	if !types.IsTemplate(id) {
		return ErrUnknownTemplate
	}
	if err := draft.SaveTemplate(ctx, e.kv, id); err != nil {
		return err
	}
	e.mu.Lock()
	e.templateID = id
	e.mu.Unlock()
	return nil
}

// Close writes any pending autosave and stops the autosaver.
func (e *Editor) Close(ctx context.Context) error {
	return e.autosave.Close(ctx)
}

func (e *Editor) autosaved(ev draft.Event) {
	if ev.Err != nil {
		e.emit(Event{Type: EventAutosaved, Detail: ev.Err.Error()})
		return
	}
	e.emit(Event{Type: EventAutosaved, Detail: "draft saved locally"})
}

func (e *Editor) emit(ev Event) {
	if e.onEvent == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.onEvent(ev)
}
