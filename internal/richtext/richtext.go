// Package richtext holds the rich-text value of text-like CV sections.
//
// A Document is a controlled value: it owns the HTML string stored in the
// section, edits go through its setters, and every change is reported to the
// OnChange callback, which writes it back into the section state.
package richtext

import (
	"strings"
	"sync"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Document is a rich-text value with a change callback.
type Document struct {
	mu       sync.Mutex
	html     string
	onChange func(html string)
}

// New returns a document holding html. onChange may be nil.
func New(html string, onChange func(html string)) *Document {
	return &Document{html: html, onChange: onChange}
}

// Value returns the current HTML.
func (d *Document) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.html
}

// SetHTML replaces the value with sanitized html and reports the change.
// Setting the current value again does not fire OnChange.
func (d *Document) SetHTML(html string) {
	d.set(Sanitize(html))
}

// SetMarkdown replaces the value with the HTML rendering of md.
func (d *Document) SetMarkdown(md string) {
	d.set(FromMarkdown(md))
}

// SetText replaces the value with plain text, escaped and split into paragraphs.
func (d *Document) SetText(text string) {
	d.set(FromText(text))
}

func (d *Document) set(html string) {
	d.mu.Lock()
	if html == d.html {
		d.mu.Unlock()
		return
	}
	d.html = html
	cb := d.onChange
	d.mu.Unlock()

	if cb != nil {
		cb(html)
	}
}

// Text returns the plain-text view of the document.
func (d *Document) Text() string {
	return PlainText(d.Value())
}

// IsBlank reports whether the document has no visible text.
func (d *Document) IsBlank() bool {
	return strings.TrimSpace(d.Text()) == ""
}

// FromMarkdown renders markdown to HTML. Raw HTML in the input is dropped.
func FromMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	src := markdown.NormalizeNewlines([]byte(md))
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Autolink | parser.Strikethrough)
	doc := p.Parse(src)

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.SkipHTML | mdhtml.Safelink | mdhtml.HrefTargetBlank | mdhtml.NoreferrerLinks,
	})
	return strings.TrimSpace(string(markdown.Render(doc, renderer)))
}

// FromText wraps plain text in paragraphs, one per blank-line separated block.
func FromText(text string) string {
	var sb strings.Builder
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(escape(block), "\n", "<br>"))
		sb.WriteString("</p>")
	}
	return sb.String()
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")

func escape(s string) string {
	return escaper.Replace(s)
}
