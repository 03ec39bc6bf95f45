// Package server is the local editor server: one CV editing session exposed
// over JSON, with a cookie route guard, rate limiting and an event stream.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/cv-builder/internal/api"
	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/sections"
	"github.com/jonathan/cv-builder/internal/validation"
)

// ErrBadRequest indicates a malformed request body or parameter
type ErrBadRequest struct {
	Field   string
	Message string
}

func (e *ErrBadRequest) Error() string {
	if e.Field == "" {
		return "bad request: " + e.Message
	}
	return fmt.Sprintf("bad request: %s - %s", e.Field, e.Message)
}

// ErrNotLoggedIn indicates an action that needs a backend session
var ErrNotLoggedIn = errors.New("not logged in")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		badRequest *ErrBadRequest
		fieldErr   *sections.FieldError
		opErr      *sections.OperationError
		notFound   *sections.NotFoundError
		invariant  *sections.InvariantError
		form       *validation.FormError
		schemaErr  *schemas.ValidationError
		apiErr     *api.Error
		requestErr *api.RequestError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &badRequest), errors.As(err, &fieldErr), errors.As(err, &opErr),
		errors.As(err, &invariant), errors.As(err, &form), errors.As(err, &schemaErr),
		errors.Is(err, sections.ErrAnchorItem), errors.Is(err, sections.ErrDuplicateContact),
		errors.Is(err, sections.ErrContactRequired), errors.Is(err, editor.ErrUnknownTemplate):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, editor.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotLoggedIn):
		return http.StatusUnauthorized
	case api.IsUnverified(err):
		return http.StatusForbidden
	case api.IsUnauthorized(err):
		return http.StatusUnauthorized
	case api.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &requestErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string                       `json:"error"`
	Errors   []validation.ValidationError `json:"errors,omitempty"`
	Fields   []validation.FieldError      `json:"fields,omitempty"`
	Redirect string                       `json:"redirect,omitempty"`
}

// newErrorBody describes err for the client. Validation failures carry the
// full list; backend errors carry the server's detail.
func newErrorBody(err error) errorBody {
	var (
		invalid   *editor.InvalidError
		form      *validation.FormError
		schemaErr *schemas.ValidationError
		apiErr    *api.Error
	)
	switch {
	case errors.As(err, &invalid):
		return errorBody{Error: editor.ErrInvalid.Error(), Errors: invalid.Errors}
	case errors.As(err, &form):
		return errorBody{Error: "invalid form", Fields: form.Fields}
	case errors.As(err, &schemaErr):
		body := errorBody{Error: "document does not match " + schemaErr.Schema}
		for _, fe := range schemaErr.Errors {
			body.Fields = append(body.Fields, validation.FieldError{Field: fe.Field, Message: fe.Message})
		}
		return body
	case errors.As(err, &apiErr):
		return errorBody{Error: apiErr.Message()}
	default:
		return errorBody{Error: err.Error()}
	}
}
