package richtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// unsafeElements are removed together with their content.
const unsafeElements = "script, style, iframe, object, embed, form, input, button, textarea, select, link, meta"

// Sanitize removes active content from html: unsafe elements, event handler
// attributes and javascript: URLs. Formatting markup is kept.
func Sanitize(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div id=\"richtext-root\">" + html + "</div>"))
	if err != nil {
		return escape(html)
	}
	root := doc.Find("#richtext-root")
	root.Find(unsafeElements).Remove()
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			key := strings.ToLower(attr.Key)
			if strings.HasPrefix(key, "on") {
				continue
			}
			if (key == "href" || key == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr.Val)), "javascript:") {
				continue
			}
			kept = append(kept, attr)
		}
		node.Attr = kept
	})

	out, err := root.Html()
	if err != nil {
		return escape(html)
	}
	return strings.TrimSpace(out)
}

// PlainText returns the visible text of html with block elements on their own lines.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})

	lines := strings.Split(doc.Text(), "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
