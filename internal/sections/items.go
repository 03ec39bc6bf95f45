package sections

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/cv-builder/internal/types"
)

// Paths accepted by UpdateField besides contact field names and "<itemID>.<field>".
const (
	PathTitle   = "title"
	PathContent = "content"
)

// dateLayouts are the accepted textual date forms, most specific first.
var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

// AddItem appends a blank entry with a fresh id to a list-typed section.
// The returned id is distinct from every id already in that list.
func AddItem(in []types.Section, sectionID string, newID IDFunc) ([]types.Section, string, error) {
	idx := Find(in, sectionID)
	if idx < 0 {
		return Clone(in), "", &NotFoundError{Kind: "section", ID: sectionID}
	}
	if !in[idx].Type.IsList() {
		return Clone(in), "", &OperationError{Op: "add item", Message: "section " + sectionID + " does not hold a list"}
	}
	if newID == nil {
		newID = NewID
	}

	out := Clone(in)
	existing := itemIDs(out[idx].Content)
	id := newID()
	for existing[id] || id == "" {
		id = newID()
	}

	switch list := out[idx].Content.(type) {
	case types.ExperienceList:
		out[idx].Content = append(list, types.Experience{ID: id})
	case types.EducationList:
		out[idx].Content = append(list, types.Education{ID: id})
	case types.LanguageList:
		out[idx].Content = append(list, types.Language{ID: id})
	default:
		return Clone(in), "", &OperationError{Op: "add item", Message: "unexpected content for section " + sectionID}
	}
	return out, id, nil
}

// RemoveItem deletes an entry from a list-typed section. The first entry of an
// experience or education list is the anchor entry and cannot be removed.
func RemoveItem(in []types.Section, sectionID, itemID string) ([]types.Section, error) {
	idx := Find(in, sectionID)
	if idx < 0 {
		return Clone(in), &NotFoundError{Kind: "section", ID: sectionID}
	}

	out := Clone(in)
	switch list := out[idx].Content.(type) {
	case types.ExperienceList:
		pos := indexOf(len(list), func(i int) bool { return list[i].ID == itemID })
		if err := checkRemovable(pos, true, itemID); err != nil {
			return Clone(in), err
		}
		out[idx].Content = append(list[:pos:pos], list[pos+1:]...)
	case types.EducationList:
		pos := indexOf(len(list), func(i int) bool { return list[i].ID == itemID })
		if err := checkRemovable(pos, true, itemID); err != nil {
			return Clone(in), err
		}
		out[idx].Content = append(list[:pos:pos], list[pos+1:]...)
	case types.LanguageList:
		pos := indexOf(len(list), func(i int) bool { return list[i].ID == itemID })
		if err := checkRemovable(pos, false, itemID); err != nil {
			return Clone(in), err
		}
		out[idx].Content = append(list[:pos:pos], list[pos+1:]...)
	default:
		return Clone(in), &OperationError{Op: "remove item", Message: "section " + sectionID + " does not hold a list"}
	}
	return out, nil
}

func checkRemovable(pos int, anchored bool, itemID string) error {
	if pos < 0 {
		return &NotFoundError{Kind: "item", ID: itemID}
	}
	if anchored && pos == 0 {
		return ErrAnchorItem
	}
	return nil
}

func indexOf(n int, match func(int) bool) int {
	for i := 0; i < n; i++ {
		if match(i) {
			return i
		}
	}
	return -1
}

func itemIDs(c types.Content) map[string]bool {
	ids := make(map[string]bool)
	switch list := c.(type) {
	case types.ExperienceList:
		for _, e := range list {
			ids[e.ID] = true
		}
	case types.EducationList:
		for _, e := range list {
			ids[e.ID] = true
		}
	case types.LanguageList:
		for _, l := range list {
			ids[l.ID] = true
		}
	}
	return ids
}

// UpdateField sets one value inside a section.
//
// path is "title", "content" (text, skills and hobbies sections), a contact field
// (name, email, phone, location, linkedin, github) or "<itemID>.<field>" for list
// entries. Date fields accept nil, time.Time, *time.Time or a string in RFC 3339,
// YYYY-MM-DD or YYYY-MM form; an empty string clears the date. Setting current to
// true clears endDate, and an endDate written to a current entry is dropped.
func UpdateField(in []types.Section, sectionID, path string, value any) ([]types.Section, error) {
	idx := Find(in, sectionID)
	if idx < 0 {
		return Clone(in), &NotFoundError{Kind: "section", ID: sectionID}
	}

	out := Clone(in)
	section := &out[idx]

	if path == PathTitle {
		title, err := asString(value)
		if err != nil {
			return Clone(in), &FieldError{SectionID: sectionID, Path: path, Cause: err}
		}
		section.Title = title
		return out, nil
	}

	var err error
	switch content := section.Content.(type) {
	case types.TextContent:
		if path != PathContent {
			return Clone(in), &FieldError{SectionID: sectionID, Path: path, Cause: errUnknownField}
		}
		var text string
		text, err = asString(value)
		if err == nil {
			section.Content = types.TextContent(text)
		}
	case *types.ContactContent:
		err = setContactField(content, path, value)
	case types.ExperienceList:
		itemID, field, _ := strings.Cut(path, ".")
		pos := indexOf(len(content), func(i int) bool { return content[i].ID == itemID })
		if pos < 0 {
			return Clone(in), &NotFoundError{Kind: "item", ID: itemID}
		}
		err = setExperienceField(&content[pos], field, value)
	case types.EducationList:
		itemID, field, _ := strings.Cut(path, ".")
		pos := indexOf(len(content), func(i int) bool { return content[i].ID == itemID })
		if pos < 0 {
			return Clone(in), &NotFoundError{Kind: "item", ID: itemID}
		}
		err = setEducationField(&content[pos], field, value)
	case types.LanguageList:
		itemID, field, _ := strings.Cut(path, ".")
		pos := indexOf(len(content), func(i int) bool { return content[i].ID == itemID })
		if pos < 0 {
			return Clone(in), &NotFoundError{Kind: "item", ID: itemID}
		}
		err = setLanguageField(&content[pos], field, value)
	default:
		err = errUnknownField
	}
	if err != nil {
		return Clone(in), &FieldError{SectionID: sectionID, Path: path, Cause: err}
	}
	return out, nil
}

func setContactField(c *types.ContactContent, field string, value any) error {
	s, err := asString(value)
	if err != nil {
		return err
	}
	switch field {
	case "name":
		c.Name = s
	case "email":
		c.Email = s
	case "phone":
		c.Phone = s
	case "location":
		c.Location = s
	case "linkedin":
		c.LinkedIn = s
	case "github":
		c.GitHub = s
	default:
		return errUnknownField
	}
	return nil
}

func setExperienceField(e *types.Experience, field string, value any) error {
	switch field {
	case "company", "position", "description":
		s, err := asString(value)
		if err != nil {
			return err
		}
		switch field {
		case "company":
			e.Company = s
		case "position":
			e.Position = s
		default:
			e.Description = s
		}
	case "startDate":
		d, err := asDate(value)
		if err != nil {
			return err
		}
		e.StartDate = d
	case "endDate":
		d, err := asDate(value)
		if err != nil {
			return err
		}
		if !e.Current {
			e.EndDate = d
		}
	case "current":
		b, err := asBool(value)
		if err != nil {
			return err
		}
		e.Current = b
		if b {
			e.EndDate = nil
		}
	default:
		return errUnknownField
	}
	return nil
}

func setEducationField(e *types.Education, field string, value any) error {
	switch field {
	case "institution", "degree", "description":
		s, err := asString(value)
		if err != nil {
			return err
		}
		switch field {
		case "institution":
			e.Institution = s
		case "degree":
			e.Degree = s
		default:
			e.Description = s
		}
	case "startDate":
		d, err := asDate(value)
		if err != nil {
			return err
		}
		e.StartDate = d
	case "endDate":
		d, err := asDate(value)
		if err != nil {
			return err
		}
		if !e.Current {
			e.EndDate = d
		}
	case "current":
		b, err := asBool(value)
		if err != nil {
			return err
		}
		e.Current = b
		if b {
			e.EndDate = nil
		}
	default:
		return errUnknownField
	}
	return nil
}

func setLanguageField(l *types.Language, field string, value any) error {
	s, err := asString(value)
	if err != nil {
		return err
	}
	switch field {
	case "name":
		l.Name = s
	case "level":
		l.Level = s
	default:
		return errUnknownField
	}
	return nil
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", value)
	}
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("expected boolean, got %q", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", value)
	}
}

func asDate(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		t := *v
		return &t, nil
	case time.Time:
		return &v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return &t, nil
			}
		}
		return nil, fmt.Errorf("unrecognized date %q", v)
	default:
		return nil, fmt.Errorf("expected date, got %T", value)
	}
}
