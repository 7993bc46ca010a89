// Package markdown renders crate READMEs for the crate details page.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Render converts a README body to HTML. Raw HTML in the source is escaped
// by goldmark's default renderer, so the output is safe to embed.
func Render(body []byte) (template.HTML, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	// #nosec G203 - goldmark escapes raw HTML with default renderer options
	return template.HTML(buf.String()), nil
}

// Fingerprint computes a stable content fingerprint of a README, used as
// the ETag for rendered crate pages.
func Fingerprint(body []byte) string {
	return mdfp.CalculateFingerprintFromParts("", string(body))
}
