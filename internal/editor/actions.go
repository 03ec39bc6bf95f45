package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/cv-builder/internal/draft"
	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

// Result is the outcome of SaveDraft.
type Result int

// Save outcomes
const (
	ResultSaved Result = iota
	ResultNoChanges
)

func (r Result) String() string {
	if r == ResultNoChanges {
		return "No changes to save"
	}
	return "saved"
}

// snapshot is the state an action works on, taken when it starts.
type snapshot struct {
	sections   []types.Section
	cvID       string
	templateID string
	lastSaved  string
}

// begin marks the editor busy, takes a snapshot and checks it is valid.
// The returned release func must be called when the action ends.
func (e *Editor) begin(action string) (snapshot, func(), error) {
	if !e.busy.CompareAndSwap(false, true) {
		return snapshot{}, nil, ErrBusy
	}
	release := func() { e.busy.Store(false) }

	e.mu.Lock()
	snap := snapshot{
		sections:   e.sections,
		cvID:       e.cvID,
		templateID: e.templateID,
		lastSaved:  e.lastSaved,
	}
	e.mu.Unlock()

	if errs := validation.Validate(snap.sections); len(errs) > 0 {
		release()
		return snapshot{}, nil, &InvalidError{Action: action, Errors: errs}
	}
	return snap, release, nil
}

func (s snapshot) render() *types.RenderRequest {
	return &types.RenderRequest{CVData: s.sections, TemplateID: s.templateID}
}

// Preview renders the CV with the selected template and returns the HTML.
func (e *Editor) Preview(ctx context.Context) (string, error) {
	snap, release, err := e.begin("preview")
	if err != nil {
		return "", err
	}
	defer release()

	html, err := e.backend.Preview(ctx, snap.render())
	if err != nil {
		return "", &ActionError{Action: "preview", Cause: err}
	}
	return html, nil
}

// Export renders the CV as format, hands it to sink as cv.<format> and clears
// the local draft. It returns the location reported by the sink.
func (e *Editor) Export(ctx context.Context, format types.ExportFormat, sink export.Sink) (string, error) {
	if !format.Valid() {
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	snap, release, err := e.begin("export")
	if err != nil {
		return "", err
	}
	defer release()

	data, err := e.backend.Export(ctx, format, snap.render())
	if err != nil {
		return "", &ActionError{Action: "export", Cause: err}
	}
	location, err := sink.Put(ctx, export.CVFileName(format), format.ContentType(), data)
	if err != nil {
		return "", &ActionError{Action: "export", Cause: err}
	}

	e.clearLocalDraft(ctx)
	e.log.Info().Str("format", string(format)).Str("location", location).Msg("CV exported")
	e.emit(Event{Type: EventExported, CVID: snap.cvID, Detail: location})
	return location, nil
}

// SaveDraft stores the CV on the backend with the given status. A CV without
// a backend id is created first. When the sections are unchanged since the
// last successful save nothing is sent and ResultNoChanges is returned.
func (e *Editor) SaveDraft(ctx context.Context, status types.CVStatus) (Result, error) {
	if !status.Valid() {
		return ResultSaved, fmt.Errorf("unknown CV status %q", status)
	}
	snap, release, err := e.begin("save")
	if err != nil {
		return ResultSaved, err
	}
	defer release()

	cvID := snap.cvID
	if cvID == "" {
		cvID, err = e.backend.CreateCV(ctx, &types.CreateCVRequest{TemplateID: snap.templateID, Sections: snap.sections})
		if err != nil {
			return ResultSaved, &ActionError{Action: "create CV", Cause: err}
		}
		e.mu.Lock()
		e.cvID = cvID
		e.mu.Unlock()
		e.autosave.Cancel()
		e.log.Info().Str("cv_id", cvID).Msg("CV created")
	}

	content := marshalSections(snap.sections)
	if content == snap.lastSaved {
		return ResultNoChanges, nil
	}

	err = e.backend.UpdateCV(ctx, cvID, &types.UpdateCVRequest{
		TemplateID: snap.templateID,
		Sections:   snap.sections,
		Status:     status,
	})
	if err != nil {
		return ResultSaved, &ActionError{Action: "save CV", Cause: err}
	}

	e.mu.Lock()
	e.lastSaved = content
	e.status = status
	e.mu.Unlock()
	e.clearLocalDraft(ctx)

	e.log.Info().Str("cv_id", cvID).Str("status", string(status)).Msg("CV saved")
	e.emit(Event{Type: EventSaved, CVID: cvID, Detail: string(status)})
	return ResultSaved, nil
}

// clearLocalDraft drops the pending autosave and the stored draft. Failures are logged only.
func (e *Editor) clearLocalDraft(ctx context.Context) {
	e.autosave.Cancel()
	if err := draft.Clear(ctx, e.kv); err != nil {
		e.log.Warn().Err(err).Msg("failed to clear local draft")
	}
}

func marshalSections(s []types.Section) string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}
