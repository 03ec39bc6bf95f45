package sections

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/types"
)

// CheckInvariants verifies the structural rules of a CV document: unique section
// ids, unique order values, exactly one contact section, content matching each
// section's type and unique item ids within each list.
func CheckInvariants(in []types.Section) error {
	var problems []string

	ids := make(map[string]bool)
	orders := make(map[int]string)
	contacts := 0

	for _, s := range in {
		if s.ID == "" {
			problems = append(problems, "section with empty id")
		} else if ids[s.ID] {
			problems = append(problems, fmt.Sprintf("duplicate section id %q", s.ID))
		}
		ids[s.ID] = true

		if other, ok := orders[s.Order]; ok {
			problems = append(problems, fmt.Sprintf("sections %q and %q share order %d", other, s.ID, s.Order))
		} else {
			orders[s.Order] = s.ID
		}

		if s.Type == types.SectionContact {
			contacts++
		}
		if !contentMatches(s.Type, s.Content) {
			problems = append(problems, fmt.Sprintf("section %q has content of the wrong shape for %s", s.ID, s.Type))
			continue
		}
		problems = append(problems, duplicateItems(s)...)
	}

	if contacts != 1 {
		problems = append(problems, fmt.Sprintf("expected exactly one contact section, found %d", contacts))
	}

	if len(problems) > 0 {
		return &InvariantError{Problems: problems}
	}
	return nil
}

func duplicateItems(s types.Section) []string {
	var ids []string
	switch list := s.Content.(type) {
	case types.ExperienceList:
		for _, e := range list {
			ids = append(ids, e.ID)
		}
	case types.EducationList:
		for _, e := range list {
			ids = append(ids, e.ID)
		}
	case types.LanguageList:
		for _, l := range list {
			ids = append(ids, l.ID)
		}
	}

	var problems []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			problems = append(problems, fmt.Sprintf("section %q has an item without id", s.ID))
			continue
		}
		if seen[id] {
			problems = append(problems, fmt.Sprintf("section %q has duplicate item id %q", s.ID, id))
		}
		seen[id] = true
	}
	return problems
}
