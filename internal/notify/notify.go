// Package notify renders user-facing notices in the terminal: the CLI's
// counterpart of toast notifications. Errors from the client packages are
// mapped to a title and a description the user can act on.
package notify

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonathan/cv-builder/internal/api"
	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/validation"
	"github.com/jonathan/cv-builder/internal/wizard"
)

// Variant selects the styling of a toast.
type Variant int

// Toast variants
const (
	Default Variant = iota
	Success
	Destructive
)

// Toast is one notice.
type Toast struct {
	Title       string
	Description string
	Variant     Variant
}

// Notifier writes toasts to a terminal.
type Notifier struct {
	mu     sync.Mutex
	w      io.Writer
	frame  map[Variant]lipgloss.Style
	title  map[Variant]lipgloss.Style
	detail lipgloss.Style
}

// New returns a Notifier writing to w. Colors are used only when w is a terminal.
func New(w io.Writer) *Notifier {
	r := lipgloss.NewRenderer(w)
	frame := r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	title := r.NewStyle().Bold(true)
	return &Notifier{
		w: w,
		frame: map[Variant]lipgloss.Style{
			Default:     frame.BorderForeground(lipgloss.Color("63")),
			Success:     frame.BorderForeground(lipgloss.Color("42")),
			Destructive: frame.BorderForeground(lipgloss.Color("196")),
		},
		title: map[Variant]lipgloss.Style{
			Default:     title.Foreground(lipgloss.Color("63")),
			Success:     title.Foreground(lipgloss.Color("42")),
			Destructive: title.Foreground(lipgloss.Color("196")),
		},
		detail: r.NewStyle().Foreground(lipgloss.Color("252")),
	}
}

// Show renders t.
func (n *Notifier) Show(t Toast) {
	body := n.title[t.Variant].Render(t.Title)
	if t.Description != "" {
		body += "\n" + n.detail.Render(t.Description)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintln(n.w, n.frame[t.Variant].Render(body))
}

// Success shows a success toast.
func (n *Notifier) Success(title, description string) {
	n.Show(Toast{Title: title, Description: description, Variant: Success})
}

// Info shows a neutral toast.
func (n *Notifier) Info(title, description string) {
	n.Show(Toast{Title: title, Description: description})
}

// Error shows the toast for err.
func (n *Notifier) Error(err error) {
	n.Show(FromError(err))
}

// FromError maps an error to the toast shown for it.
func FromError(err error) Toast {
	t := Toast{Title: "Error", Variant: Destructive}

	var (
		invalid  *editor.InvalidError
		form     *validation.FormError
		apiErr   *api.Error
		problems validation.Errors
	)
	switch {
	case err == nil:
		return Toast{}
	case errors.As(err, &invalid):
		t.Title = "Validation Error"
		t.Description = bulletList(invalid.Errors)
	case errors.As(err, &problems):
		t.Title = "Validation Error"
		t.Description = bulletList(problems)
	case errors.As(err, &form):
		t.Title = "Validation Error"
		lines := make([]string, 0, len(form.Fields))
		for _, f := range form.Fields {
			lines = append(lines, "• "+f.Message)
		}
		t.Description = strings.Join(lines, "\n")
	case errors.Is(err, editor.ErrBusy), errors.Is(err, wizard.ErrBusy):
		t.Title = "Please wait"
		t.Description = "Another action is still running."
		t.Variant = Default
	case errors.Is(err, wizard.ErrInsufficientCredits):
		t.Title = "Insufficient Credits"
		t.Description = "Please purchase more credits to generate cover letters"
	case api.IsUnverified(err):
		t.Title = "Email not verified"
		t.Description = api.UnverifiedDetail + ". Run `cvbuilder auth resend` to get a new link."
	case api.IsUnauthorized(err):
		t.Title = "Session expired"
		t.Description = "Please log in again with `cvbuilder auth login`."
	case errors.As(err, &apiErr):
		t.Description = apiErr.Message()
	default:
		t.Description = err.Error()
	}
	return t
}

func bulletList(errs []validation.ValidationError) string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, "• "+e.Message)
	}
	return strings.Join(lines, "\n")
}
