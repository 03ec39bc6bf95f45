// Package sections implements the CV section state model: the default template
// and the pure operations the editor applies to a sections slice.
//
// Every operation returns a new slice and never mutates its input, so callers can
// keep the previous state around (for change detection or undo).
package sections

import (
	"sort"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/types"
)

// IDFunc generates item ids. NewID is the production implementation.
type IDFunc func() string

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// Default returns the template a new CV starts from.
func Default(newID IDFunc) []types.Section {
	if newID == nil {
		newID = NewID
	}
	return []types.Section{
		{
			ID:      "contact",
			Title:   "Contact Information",
			Type:    types.SectionContact,
			Content: &types.ContactContent{},
			Order:   0,
		},
		{
			ID:      "profile",
			Title:   "Profile Summary",
			Type:    types.SectionText,
			Content: types.TextContent(""),
			Order:   1,
		},
		{
			ID:      "experience",
			Title:   "Work Experience",
			Type:    types.SectionExperience,
			Content: types.ExperienceList{},
			Order:   2,
		},
		{
			ID:      "education",
			Title:   "Education",
			Type:    types.SectionEducation,
			Content: types.EducationList{{ID: newID()}},
			Order:   3,
		},
		{
			ID:      "skills",
			Title:   "Skills",
			Type:    types.SectionSkills,
			Content: types.TextContent(""),
			Order:   4,
		},
		{
			ID:      "languages",
			Title:   "Languages",
			Type:    types.SectionLanguages,
			Content: types.LanguageList{{ID: newID()}},
			Order:   5,
		},
		{
			ID:      "hobbies",
			Title:   "Interests & Hobbies",
			Type:    types.SectionHobbies,
			Content: types.TextContent(""),
			Order:   6,
		},
	}
}

// Clone deep-copies a sections slice.
func Clone(in []types.Section) []types.Section {
	if in == nil {
		return nil
	}
	out := make([]types.Section, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// Sorted returns a copy ordered by the order field. Ties keep their relative position.
func Sorted(in []types.Section) []types.Section {
	out := Clone(in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Find returns the index of the section with the given id, or -1.
func Find(in []types.Section, id string) int {
	for i := range in {
		if in[i].ID == id {
			return i
		}
	}
	return -1
}

// Contact returns the contact content, or nil when there is no contact section.
func Contact(in []types.Section) *types.ContactContent {
	for _, s := range in {
		if s.Type != types.SectionContact {
			continue
		}
		if c, ok := s.Content.(*types.ContactContent); ok {
			return c
		}
	}
	return nil
}

// AddSection appends a new blank section. Its order is one past the current maximum.
// The returned id is generated when id is empty.
func AddSection(in []types.Section, sectionType types.SectionType, title string, newID IDFunc) ([]types.Section, string, error) {
	if !sectionType.Valid() {
		return Clone(in), "", &OperationError{Op: "add section", Message: "unknown section type " + string(sectionType)}
	}
	if sectionType == types.SectionContact && Contact(in) != nil {
		return Clone(in), "", ErrDuplicateContact
	}
	if newID == nil {
		newID = NewID
	}

	maxOrder := -1
	for _, s := range in {
		if s.Order > maxOrder {
			maxOrder = s.Order
		}
	}

	id := newID()
	out := Clone(in)
	out = append(out, types.Section{
		ID:      id,
		Title:   title,
		Type:    sectionType,
		Content: types.NewContent(sectionType),
		Order:   maxOrder + 1,
	})
	return out, id, nil
}

// RemoveSection deletes a section. The contact section cannot be removed.
func RemoveSection(in []types.Section, sectionID string) ([]types.Section, error) {
	idx := Find(in, sectionID)
	if idx < 0 {
		return Clone(in), &NotFoundError{Kind: "section", ID: sectionID}
	}
	if in[idx].Type == types.SectionContact {
		return Clone(in), ErrContactRequired
	}

	out := make([]types.Section, 0, len(in)-1)
	for i, s := range in {
		if i != idx {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// Reorder swaps the order values of the dragged and target sections and re-sorts.
// It is a no-op when the ids are equal or either section is missing.
func Reorder(in []types.Section, draggedID, targetID string) []types.Section {
	if draggedID == targetID {
		return Clone(in)
	}
	dragged := Find(in, draggedID)
	target := Find(in, targetID)
	if dragged < 0 || target < 0 {
		return Clone(in)
	}

	out := Clone(in)
	out[dragged].Order, out[target].Order = in[target].Order, in[dragged].Order
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// SetTitle renames a section.
func SetTitle(in []types.Section, sectionID, title string) ([]types.Section, error) {
	return UpdateField(in, sectionID, PathTitle, title)
}

// SetContent replaces the whole content of a section. The content variant must match the section type.
func SetContent(in []types.Section, sectionID string, content types.Content) ([]types.Section, error) {
	idx := Find(in, sectionID)
	if idx < 0 {
		return Clone(in), &NotFoundError{Kind: "section", ID: sectionID}
	}
	if !contentMatches(in[idx].Type, content) {
		return Clone(in), &OperationError{Op: "set content", Message: "content does not match section type " + string(in[idx].Type)}
	}

	out := Clone(in)
	out[idx].Content = content.Clone()
	normalizeCurrent(&out[idx])
	return out, nil
}

func contentMatches(t types.SectionType, c types.Content) bool {
	if c == nil {
		return false
	}
	if t.IsTextual() {
		_, ok := c.(types.TextContent)
		return ok
	}
	return c.SectionType() == t
}

// normalizeCurrent clears end dates on entries marked current.
func normalizeCurrent(s *types.Section) {
	switch list := s.Content.(type) {
	case types.ExperienceList:
		for i := range list {
			if list[i].Current {
				list[i].EndDate = nil
			}
		}
	case types.EducationList:
		for i := range list {
			if list[i].Current {
				list[i].EndDate = nil
			}
		}
	}
}
