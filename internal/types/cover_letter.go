package types

import "time"

// Writing styles offered by the cover letter wizard
const (
	StyleProfessional = "professional"
	StyleCreative     = "creative"
	StyleAcademic     = "academic"
	StyleModern       = "modern"
)

// Tones offered by the cover letter wizard
const (
	ToneFormal       = "formal"
	ToneConfident    = "confident"
	ToneEnthusiastic = "enthusiastic"
	ToneConservative = "conservative"
)

// LetterContext captures the writing preferences for a cover letter.
type LetterContext struct {
	Style             string   `json:"style" validate:"required,oneof=professional creative academic modern"`
	Tone              string   `json:"tone" validate:"required,oneof=formal confident enthusiastic conservative"`
	AdditionalContext string   `json:"additionalContext"`
	FocusPoints       []string `json:"focusPoints"`
}

// DefaultLetterContext returns the preferences preselected in the wizard.
func DefaultLetterContext() LetterContext {
	return LetterContext{
		Style:       StyleProfessional,
		Tone:        ToneFormal,
		FocusPoints: []string{},
	}
}

// CoverLetterFormData accumulates the wizard inputs sent to the generator.
type CoverLetterFormData struct {
	CVID           string        `json:"cvId"`
	CVContent      []Section     `json:"cvContent,omitempty"`
	JobDescription string        `json:"jobDescription"`
	JobURL         string        `json:"jobUrl,omitempty"`
	CompanyName    string        `json:"companyName,omitempty"`
	JobTitle       string        `json:"jobTitle,omitempty"`
	Context        LetterContext `json:"context"`
}

// Clone returns a deep copy of the form data.
func (f CoverLetterFormData) Clone() CoverLetterFormData {
	out := f
	if f.CVContent != nil {
		out.CVContent = make([]Section, len(f.CVContent))
		for i, s := range f.CVContent {
			out.CVContent[i] = s.Clone()
		}
	}
	if f.Context.FocusPoints != nil {
		out.Context.FocusPoints = append([]string{}, f.Context.FocusPoints...)
	}
	return out
}

// LetterMetadata describes a generated letter.
type LetterMetadata struct {
	CompanyName string    `json:"company_name,omitempty"`
	JobTitle    string    `json:"job_title,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// GeneratedLetter is the generator's response.
type GeneratedLetter struct {
	ID            string          `json:"id"`
	Content       string          `json:"content"`
	MatchingScore float64         `json:"matching_score"`
	Metadata      *LetterMetadata `json:"metadata,omitempty"`
}

// SaveLetterRequest is the body of POST /api/ai/save: the letter content plus the form data it came from.
type SaveLetterRequest struct {
	Content string `json:"content"`
	CoverLetterFormData
}

// CreditsResponse is the body returned by GET /api/ai/credits.
type CreditsResponse struct {
	Credits int `json:"credits"`
}
