// Package validation checks CV documents before they are previewed, exported or
// saved, and validates the auth and wizard forms.
package validation

import (
	"strings"

	"github.com/jonathan/cv-builder/internal/types"
)

// ValidationError is one blocking problem in a CV document.
// Field is the contact field name, or the section title for text sections.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// contactFields lists the required contact fields in display order.
var contactFields = []struct {
	name  string
	label string
	value func(*types.ContactContent) string
}{
	{"name", "Name", func(c *types.ContactContent) string { return c.Name }},
	{"email", "Email", func(c *types.ContactContent) string { return c.Email }},
	{"phone", "Phone", func(c *types.ContactContent) string { return c.Phone }},
	{"location", "Location", func(c *types.ContactContent) string { return c.Location }},
}

// Validate returns every blocking problem in sections, or an empty slice.
//
// Each required contact field that is blank after trimming yields one error,
// and each text section with blank content yields one error keyed by its title.
// A missing contact section counts as all contact fields being blank.
// Formats (email, phone) are not checked.
func Validate(sections []types.Section) []ValidationError {
	errs := []ValidationError{}

	contact := &types.ContactContent{}
	for _, s := range sections {
		if c, ok := s.Content.(*types.ContactContent); ok && s.Type == types.SectionContact {
			contact = c
			break
		}
	}
	for _, f := range contactFields {
		if strings.TrimSpace(f.value(contact)) == "" {
			errs = append(errs, ValidationError{Field: f.name, Message: f.label + " is required"})
		}
	}

	for _, s := range sections {
		if s.Type != types.SectionText {
			continue
		}
		text, _ := s.Content.(types.TextContent)
		if strings.TrimSpace(string(text)) == "" {
			errs = append(errs, ValidationError{Field: s.Title, Message: s.Title + " cannot be empty"})
		}
	}

	return errs
}

// Errors is a non-empty result of Validate used as an error value.
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return "invalid CV: " + strings.Join(msgs, "; ")
}

// Check runs Validate and returns the problems as an Errors value, or nil.
func Check(sections []types.Section) error {
	if errs := Validate(sections); len(errs) > 0 {
		return Errors(errs)
	}
	return nil
}
