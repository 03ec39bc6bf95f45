//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSection_UnmarshalPicksVariantByType(t *testing.T) {
	data := `[
		{"id":"contact","title":"Contact Information","type":"contact","order":0,
		 "content":{"name":"Ada","email":"ada@example.com","phone":"1","location":"London","github":"ada"}},
		{"id":"profile","title":"Profile Summary","type":"text","order":1,"content":"<p>Hi</p>"},
		{"id":"experience","title":"Work Experience","type":"experience","order":2,
		 "content":[{"id":"e1","company":"Acme","position":"Engineer","startDate":"2020-01-01T00:00:00Z","current":true,"description":""}]},
		{"id":"languages","title":"Languages","type":"languages","order":5,"content":[{"id":"l1","name":"French","level":"B2"}]},
		{"id":"hobbies","title":"Interests & Hobbies","type":"hobbies","order":6,"content":null}
	]`

	var sections []Section
	require.NoError(t, json.Unmarshal([]byte(data), &sections))
	require.Len(t, sections, 5)

	contact, ok := sections[0].Content.(*ContactContent)
	require.True(t, ok)
	assert.Equal(t, "Ada", contact.Name)
	assert.Equal(t, "ada", contact.GitHub)

	assert.Equal(t, TextContent("<p>Hi</p>"), sections[1].Content)

	exp, ok := sections[2].Content.(ExperienceList)
	require.True(t, ok)
	require.Len(t, exp, 1)
	assert.True(t, exp[0].Current)
	require.NotNil(t, exp[0].StartDate)
	assert.Equal(t, 2020, exp[0].StartDate.Year())
	assert.Nil(t, exp[0].EndDate)

	langs, ok := sections[3].Content.(LanguageList)
	require.True(t, ok)
	assert.Equal(t, "French", langs[0].Name)

	assert.Equal(t, TextContent(""), sections[4].Content)
}

func TestSection_UnmarshalRejectsMismatchedContent(t *testing.T) {
	var s Section
	err := json.Unmarshal([]byte(`{"id":"x","title":"X","type":"experience","content":"oops","order":0}`), &s)
	require.Error(t, err)

	var contentErr *ContentError
	require.ErrorAs(t, err, &contentErr)
	assert.Equal(t, SectionExperience, contentErr.Type)
}

func TestSection_UnmarshalRejectsUnknownType(t *testing.T) {
	var s Section
	err := json.Unmarshal([]byte(`{"id":"x","title":"X","type":"photo","content":"","order":0}`), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown section type")
}

func TestSection_MarshalNilContentUsesBlankVariant(t *testing.T) {
	out, err := json.Marshal(Section{ID: "e", Title: "Education", Type: SectionEducation, Order: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"e","title":"Education","type":"education","content":[],"order":3}`, string(out))
}

func TestSection_CloneIsDeep(t *testing.T) {
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := Section{
		ID:   "experience",
		Type: SectionExperience,
		Content: ExperienceList{
			{ID: "e1", Company: "Acme", StartDate: &start},
		},
	}

	cp := orig.Clone()
	list := cp.Content.(ExperienceList)
	list[0].Company = "Globex"
	*list[0].StartDate = start.AddDate(1, 0, 0)

	origList := orig.Content.(ExperienceList)
	assert.Equal(t, "Acme", origList[0].Company)
	assert.Equal(t, 2021, origList[0].StartDate.Year())
}

func TestSectionType_Helpers(t *testing.T) {
	assert.True(t, SectionLanguages.IsList())
	assert.False(t, SectionSkills.IsList())
	assert.True(t, SectionHobbies.IsTextual())
	assert.False(t, SectionContact.IsTextual())
	assert.False(t, SectionType("photo").Valid())
}

func TestCoverLetterFormData_CloneIsDeep(t *testing.T) {
	orig := CoverLetterFormData{
		CVID:    "cv1",
		Context: LetterContext{Style: StyleModern, Tone: ToneFormal, FocusPoints: []string{"leadership"}},
	}
	cp := orig.Clone()
	cp.Context.FocusPoints[0] = "changed"
	assert.Equal(t, "leadership", orig.Context.FocusPoints[0])
}
