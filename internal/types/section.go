// Package types provides type definitions for structured data used throughout the cv-builder client.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// SectionType identifies the content shape of a CV section
type SectionType string

// Section types supported by the CV editor
const (
	SectionContact    SectionType = "contact"
	SectionText       SectionType = "text"
	SectionExperience SectionType = "experience"
	SectionEducation  SectionType = "education"
	SectionSkills     SectionType = "skills"
	SectionLanguages  SectionType = "languages"
	SectionHobbies    SectionType = "hobbies"
)

// SectionTypes lists every known section type in template order.
var SectionTypes = []SectionType{
	SectionContact,
	SectionText,
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionLanguages,
	SectionHobbies,
}

// Valid reports whether t is a known section type.
func (t SectionType) Valid() bool {
	for _, known := range SectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsList reports whether sections of this type hold an ordered list of items.
func (t SectionType) IsList() bool {
	return t == SectionExperience || t == SectionEducation || t == SectionLanguages
}

// IsTextual reports whether sections of this type hold a single rich-text string.
func (t SectionType) IsTextual() bool {
	return t == SectionText || t == SectionSkills || t == SectionHobbies
}

// Section is one named block of a CV document.
// Content always matches Type; see NewContent.
type Section struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Type    SectionType `json:"type"`
	Content Content     `json:"content"`
	Order   int         `json:"order"`
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	if s.Content != nil {
		out.Content = s.Content.Clone()
	}
	return out
}

type sectionJSON struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Type    SectionType     `json:"type"`
	Content json.RawMessage `json:"content"`
	Order   int             `json:"order"`
}

// MarshalJSON encodes the section with its content in the wire shape for its type.
func (s Section) MarshalJSON() ([]byte, error) {
	content := s.Content
	if content == nil {
		content = NewContent(s.Type)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s content: %w", s.Type, err)
	}
	return json.Marshal(sectionJSON{
		ID:      s.ID,
		Title:   s.Title,
		Type:    s.Type,
		Content: raw,
		Order:   s.Order,
	})
}

// UnmarshalJSON decodes the section, picking the content variant from the type field.
func (s *Section) UnmarshalJSON(data []byte) error {
	var wire sectionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if !wire.Type.Valid() {
		return &ContentError{SectionID: wire.ID, Type: wire.Type, Message: "unknown section type"}
	}

	content := NewContent(wire.Type)
	if len(wire.Content) > 0 && string(wire.Content) != "null" {
		target := content
		if err := json.Unmarshal(wire.Content, contentTarget(&target)); err != nil {
			return &ContentError{SectionID: wire.ID, Type: wire.Type, Message: "content does not match section type", Cause: err}
		}
		content = target
	}

	*s = Section{
		ID:      wire.ID,
		Title:   wire.Title,
		Type:    wire.Type,
		Content: content,
		Order:   wire.Order,
	}
	return nil
}

// contentTarget returns a pointer json.Unmarshal can decode into for the variant held in c.
func contentTarget(c *Content) any {
	switch v := (*c).(type) {
	case *ContactContent:
		return v
	case TextContent:
		return &textTarget{dst: c}
	case ExperienceList:
		return &experienceTarget{dst: c}
	case EducationList:
		return &educationTarget{dst: c}
	case LanguageList:
		return &languageTarget{dst: c}
	default:
		return v
	}
}

type textTarget struct{ dst *Content }

func (t *textTarget) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t.dst = TextContent(s)
	return nil
}

type experienceTarget struct{ dst *Content }

func (t *experienceTarget) UnmarshalJSON(b []byte) error {
	var items []Experience
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*t.dst = ExperienceList(items)
	return nil
}

type educationTarget struct{ dst *Content }

func (t *educationTarget) UnmarshalJSON(b []byte) error {
	var items []Education
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*t.dst = EducationList(items)
	return nil
}

type languageTarget struct{ dst *Content }

func (t *languageTarget) UnmarshalJSON(b []byte) error {
	var items []Language
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*t.dst = LanguageList(items)
	return nil
}

// Content is the type-specific payload of a section.
// The set of implementations is closed: ContactContent, TextContent,
// ExperienceList, EducationList and LanguageList.
type Content interface {
	// SectionType returns the section type this content belongs to.
	SectionType() SectionType
	// Clone returns a deep copy.
	Clone() Content
	isContent()
}

// NewContent returns the blank content value for a section type.
func NewContent(t SectionType) Content {
	switch t {
	case SectionContact:
		return &ContactContent{}
	case SectionExperience:
		return ExperienceList{}
	case SectionEducation:
		return EducationList{}
	case SectionLanguages:
		return LanguageList{}
	default:
		return TextContent("")
	}
}

// ContactContent holds the contact block. Name, email, phone and location are required.
type ContactContent struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// SectionType implements Content.
func (*ContactContent) SectionType() SectionType { return SectionContact }

// Clone implements Content.
func (c *ContactContent) Clone() Content {
	cp := *c
	return &cp
}

func (*ContactContent) isContent() {}

// TextContent is the rich-text body of text, skills and hobbies sections.
type TextContent string

// SectionType implements Content. Text content is shared by several types, so it reports SectionText.
func (TextContent) SectionType() SectionType { return SectionText }

// Clone implements Content.
func (t TextContent) Clone() Content { return t }

func (TextContent) isContent() {}

// Experience is one work experience entry.
type Experience struct {
	ID          string     `json:"id"`
	Company     string     `json:"company"`
	Position    string     `json:"position"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description"`
}

// ExperienceList is the content of an experience section.
type ExperienceList []Experience

// SectionType implements Content.
func (ExperienceList) SectionType() SectionType { return SectionExperience }

// Clone implements Content.
func (l ExperienceList) Clone() Content {
	out := make(ExperienceList, len(l))
	for i, e := range l {
		e.StartDate = cloneTime(e.StartDate)
		e.EndDate = cloneTime(e.EndDate)
		out[i] = e
	}
	return out
}

func (ExperienceList) isContent() {}

// Education is one education entry.
type Education struct {
	ID          string     `json:"id"`
	Institution string     `json:"institution"`
	Degree      string     `json:"degree"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description"`
}

// EducationList is the content of an education section.
type EducationList []Education

// SectionType implements Content.
func (EducationList) SectionType() SectionType { return SectionEducation }

// Clone implements Content.
func (l EducationList) Clone() Content {
	out := make(EducationList, len(l))
	for i, e := range l {
		e.StartDate = cloneTime(e.StartDate)
		e.EndDate = cloneTime(e.EndDate)
		out[i] = e
	}
	return out
}

func (EducationList) isContent() {}

// Language is one spoken language with a free-form proficiency level.
type Language struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
}

// LanguageList is the content of a languages section.
type LanguageList []Language

// SectionType implements Content.
func (LanguageList) SectionType() SectionType { return SectionLanguages }

// Clone implements Content.
func (l LanguageList) Clone() Content {
	out := make(LanguageList, len(l))
	copy(out, l)
	return out
}

func (LanguageList) isContent() {}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// ContentError reports section content that does not fit its declared type.
type ContentError struct {
	SectionID string
	Type      SectionType
	Message   string
	Cause     error
}

func (e *ContentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("section %q (%s): %s: %v", e.SectionID, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("section %q (%s): %s", e.SectionID, e.Type, e.Message)
}

func (e *ContentError) Unwrap() error {
	return e.Cause
}
