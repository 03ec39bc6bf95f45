package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/server/middleware"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/validation"
)

// handleHome summarizes the session for the landing page.
func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	st := s.editor.State()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"cv_id":       st.CVID,
		"template_id": st.TemplateID,
		"dirty":       st.Dirty,
		"errors":      len(st.Errors),
		"busy":        s.editor.Busy(),
		"templates":   types.Templates,
	})
}

func (s *Server) handleGetDraft(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.editor.State())
}

type replaceDraftRequest struct {
	TemplateID string          `json:"template_id,omitempty"`
	Sections   json.RawMessage `json:"sections,omitempty"`
}

// handleReplaceDraft swaps in a whole document and/or changes the template.
// The sections are checked against the draft schema before they are decoded.
func (s *Server) handleReplaceDraft(w http.ResponseWriter, r *http.Request) {
	var req replaceDraftRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, err)
		return
	}
	if req.TemplateID == "" && len(req.Sections) == 0 {
		s.errorResponse(w, &ErrBadRequest{Message: "sections or template_id is required"})
		return
	}

	if len(req.Sections) > 0 {
		if err := schemas.ValidateDraft(req.Sections); err != nil {
			s.errorResponse(w, err)
			return
		}
		var next []types.Section
		if err := json.Unmarshal(req.Sections, &next); err != nil {
			s.errorResponse(w, &ErrBadRequest{Field: "sections", Message: err.Error()})
			return
		}
		if err := s.editor.Replace(next); err != nil {
			s.errorResponse(w, err)
			return
		}
	}
	if req.TemplateID != "" {
		if err := s.editor.SetTemplate(r.Context(), req.TemplateID); err != nil {
			s.errorResponse(w, err)
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, s.editor.State())
}

type addSectionRequest struct {
	Type  types.SectionType `json:"type"`
	Title string            `json:"title"`
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	var req addSectionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, err)
		return
	}
	if !req.Type.Valid() {
		s.errorResponse(w, &ErrBadRequest{Field: "type", Message: "unknown section type " + string(req.Type)})
		return
	}
	id, err := s.editor.AddSection(req.Type, req.Title)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id})
}

// sectionPatch changes one section. Exactly one way of changing it is used:
// a new title, a field path with its value, or rich text content given as
// markdown or plain text.
type sectionPatch struct {
	Title    *string `json:"title,omitempty"`
	Path     string  `json:"path,omitempty"`
	Value    any     `json:"value,omitempty"`
	Markdown *string `json:"markdown,omitempty"`
	Text     *string `json:"text,omitempty"`
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p sectionPatch
	if err := decodeJSON(r, &p, false); err != nil {
		s.errorResponse(w, err)
		return
	}

	var err error
	switch {
	case p.Title != nil:
		err = s.editor.SetTitle(id, *p.Title)
	case p.Path != "":
		err = s.editor.UpdateField(id, p.Path, p.Value)
	case p.Markdown != nil || p.Text != nil:
		err = s.setRichText(id, p)
	default:
		err = &ErrBadRequest{Message: "one of title, path, markdown or text is required"}
	}
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.editor.State())
}

func (s *Server) setRichText(sectionID string, p sectionPatch) error {
	var writeErr error
	doc, err := s.editor.RichText(sectionID, func(err error) { writeErr = err })
	if err != nil {
		return err
	}
	if p.Markdown != nil {
		doc.SetMarkdown(*p.Markdown)
	} else {
		doc.SetText(*p.Text)
	}
	return writeErr
}

func (s *Server) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.RemoveSection(r.PathValue("id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := s.editor.AddItem(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.RemoveItem(r.PathValue("id"), r.PathValue("item_id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	DraggedID string `json:"dragged_id"`
	TargetID  string `json:"target_id"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, err)
		return
	}
	if req.DraggedID == "" || req.TargetID == "" {
		s.errorResponse(w, &ErrBadRequest{Message: "dragged_id and target_id are required"})
		return
	}
	if err := s.editor.Reorder(req.DraggedID, req.TargetID); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.editor.State())
}

func (s *Server) handleValidation(w http.ResponseWriter, _ *http.Request) {
	errs := s.editor.Errors()
	if errs == nil {
		errs = []validation.ValidationError{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

type saveRequest struct {
	Status types.CVStatus `json:"status,omitempty"`
}

// handleSave stores the CV on the backend, as a draft unless another status is given.
// requireSession checks that the request carries a token and that the client
// holds a backend session for it to act on.
func (s *Server) requireSession(r *http.Request) error {
	if _, err := middleware.GetToken(r); err != nil {
		return ErrNotLoggedIn
	}
	if !s.session.IsAuthenticated(r.Context()) {
		return ErrNotLoggedIn
	}
	return nil
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.requireSession(r); err != nil {
		s.errorResponse(w, err)
		return
	}
	var req saveRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.errorResponse(w, err)
		return
	}
	if req.Status == "" {
		req.Status = types.StatusDraft
	}
	if !req.Status.Valid() {
		s.errorResponse(w, &ErrBadRequest{Field: "status", Message: "must be draft or published"})
		return
	}

	result, err := s.editor.SaveDraft(r.Context(), req.Status)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"cv_id":   s.editor.CVID(),
		"saved":   result == editor.ResultSaved,
		"message": result.String(),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if err := s.requireSession(r); err != nil {
		s.errorResponse(w, err)
		return
	}
	html, err := s.editor.Preview(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
		return
	}
	s.jsonResponse(w, http.StatusOK, types.PreviewResponse{HTML: html})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := s.requireSession(r); err != nil {
		s.errorResponse(w, err)
		return
	}
	format := types.ExportFormat(r.PathValue("format"))
	if !format.Valid() {
		s.errorResponse(w, &ErrBadRequest{Field: "format", Message: "must be pdf or docx"})
		return
	}
	location, err := s.editor.Export(r.Context(), format, s.sink)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"location": location})
}

// handleEvents streams editor events until the client goes away or the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.log.Debug().Err(err).Msg("could not lift write deadline for event stream")
	}

	events, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	stream, err := newEventStream(w)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	st := s.editor.State()
	if err := stream.send("state", map[string]any{"cv_id": st.CVID, "dirty": st.Dirty, "errors": len(st.Errors)}); err != nil {
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := stream.ping(); err != nil {
				return
			}
		case ev := <-events:
			if err := stream.send(ev.Type, ev); err != nil {
				s.log.Debug().Err(err).Msg("event stream closed")
				return
			}
		}
	}
}
