package types

import "time"

// CVStatus is the publication state of a stored CV
type CVStatus string

// CV statuses
const (
	StatusDraft     CVStatus = "draft"
	StatusPublished CVStatus = "published"
)

// Valid reports whether s is a known status.
func (s CVStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Template identifiers understood by the rendering backend
const (
	TemplateClassic      = "classic"
	TemplateModern       = "modern"
	TemplateProfessional = "professional"

	DefaultTemplate = TemplateProfessional
)

// Templates lists the selectable templates with their display names.
var Templates = []Template{
	{ID: TemplateClassic, Name: "Classic"},
	{ID: TemplateModern, Name: "Modern"},
	{ID: TemplateProfessional, Name: "Professional"},
}

// Template is a rendering template offered to the user.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsTemplate reports whether id names a known template.
func IsTemplate(id string) bool {
	for _, t := range Templates {
		if t.ID == id {
			return true
		}
	}
	return false
}

// ExportFormat is a binary export format supported by the backend
type ExportFormat string

// Export formats
const (
	FormatPDF  ExportFormat = "pdf"
	FormatDOCX ExportFormat = "docx"
)

// Valid reports whether f is a supported export format.
func (f ExportFormat) Valid() bool {
	return f == FormatPDF || f == FormatDOCX
}

// ContentType returns the MIME type of an exported document.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// CV is a stored CV as returned by the backend.
type CV struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Status          CVStatus  `json:"status"`
	TemplateID      string    `json:"template_id"`
	Sections        []Section `json:"sections"`
	PreviewImageURL string    `json:"preview_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateCVRequest is the body of POST /api/cv.
type CreateCVRequest struct {
	TemplateID string    `json:"template_id"`
	Sections   []Section `json:"sections"`
}

// CreateCVResponse is the body returned by POST /api/cv.
type CreateCVResponse struct {
	ID string `json:"id"`
}

// UpdateCVRequest is the body of PUT /api/cv/:id.
type UpdateCVRequest struct {
	TemplateID string    `json:"template_id"`
	Sections   []Section `json:"sections"`
	Status     CVStatus  `json:"status"`
}

// RenderRequest is the body of the preview and export endpoints.
type RenderRequest struct {
	CVData     []Section `json:"cv_data"`
	TemplateID string    `json:"template_id"`
}

// PreviewResponse is the body returned by POST /api/cv/preview.
type PreviewResponse struct {
	HTML string `json:"html"`
}
