package editor

import (
	"github.com/jonathan/cv-builder/internal/richtext"
	"github.com/jonathan/cv-builder/internal/sections"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

// apply runs a pure section operation against the current state and commits
// the result when it succeeds. Validation is re-run and, for CVs not stored
// on the backend yet, a local autosave is scheduled.
func (e *Editor) apply(op func([]types.Section) ([]types.Section, error)) error {
	e.mu.Lock()
	next, err := op(e.sections)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.sections = next
	e.errs = validation.Validate(next)
	cvID := e.cvID
	errCount := len(e.errs)
	// Scheduled under the lock so a concurrent create sees it and cancels it.
	if cvID == "" {
		e.autosave.Schedule(next)
	}
	e.mu.Unlock()

	e.emit(Event{Type: EventChanged, CVID: cvID, Errors: errCount})
	return nil
}

// AddSection appends a section and returns its id.
func (e *Editor) AddSection(sectionType types.SectionType, title string) (string, error) {
	var id string
	err := e.apply(func(in []types.Section) ([]types.Section, error) {
		out, newID, err := sections.AddSection(in, sectionType, title, e.newID)
		id = newID
		return out, err
	})
	return id, err
}

// RemoveSection deletes a section.
func (e *Editor) RemoveSection(sectionID string) error {
	return e.apply(func(in []types.Section) ([]types.Section, error) {
		return sections.RemoveSection(in, sectionID)
	})
}

// AddItem appends a blank entry to a list section and returns its id.
func (e *Editor) AddItem(sectionID string) (string, error) {
	var id string
	err := e.apply(func(in []types.Section) ([]types.Section, error) {
		out, newID, err := sections.AddItem(in, sectionID, e.newID)
		id = newID
		return out, err
	})
	return id, err
}

// RemoveItem deletes an entry from a list section.
func (e *Editor) RemoveItem(sectionID, itemID string) error {
	return e.apply(func(in []types.Section) ([]types.Section, error) {
		return sections.RemoveItem(in, sectionID, itemID)
	})
}

// UpdateField sets one value; see sections.UpdateField for paths.
func (e *Editor) UpdateField(sectionID, path string, value any) error {
	return e.apply(func(in []types.Section) ([]types.Section, error) {
		return sections.UpdateField(in, sectionID, path, value)
	})
}

// SetTitle renames a section.
func (e *Editor) SetTitle(sectionID, title string) error {
	return e.apply(func(in []types.Section) ([]types.Section, error) {
		return sections.SetTitle(in, sectionID, title)
	})
}

// SetContent replaces the content of a section.
func (e *Editor) SetContent(sectionID string, content types.Content) error {
	return e.apply(func(in []types.Section) ([]types.Section, error) {
		return sections.SetContent(in, sectionID, content)
	})
}

// Reorder swaps the positions of two sections.
func (e *Editor) Reorder(draggedID, targetID string) error {
	return e.apply(func(in []types.Section) ([]types.Section, error) {
		return sections.Reorder(in, draggedID, targetID), nil
	})
}

// Replace swaps in a whole sections slice, for imports. It must satisfy the document invariants.
func (e *Editor) Replace(s []types.Section) error {
	if err := sections.CheckInvariants(s); err != nil {
		return err
	}
	return e.apply(func([]types.Section) ([]types.Section, error) {
		return sections.Sorted(s), nil
	})
}

// RichText returns a controlled document over a text-like section's content.
// Setting the document's value writes it back through UpdateField; a write
// error is passed to onError when it is not nil.
func (e *Editor) RichText(sectionID string, onError func(error)) (*richtext.Document, error) {
	e.mu.Lock()
	idx := sections.Find(e.sections, sectionID)
	if idx < 0 {
		e.mu.Unlock()
		return nil, &sections.NotFoundError{Kind: "section", ID: sectionID}
	}
	text, ok := e.sections[idx].Content.(types.TextContent)
	e.mu.Unlock()
	if !ok {
		return nil, &sections.OperationError{Op: "rich text", Message: "section " + sectionID + " does not hold text"}
	}

	return richtext.New(string(text), func(html string) {
		if err := e.UpdateField(sectionID, sections.PathContent, html); err != nil && onError != nil {
			onError(err)
		}
	}), nil
}
