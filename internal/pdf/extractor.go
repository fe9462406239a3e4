// Package pdfutil inspects PDF documents staged as privacy policies.
package pdfutil

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
)

// Summary describes a parsed document.
type Summary struct {
	Pages   int
	Excerpt string
}

// Inspect parses data and returns its page count together with the first
// maxRunes characters of its plain text. Pages without content are skipped.
func Inspect(data []byte, maxRunes int) (Summary, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Summary{}, fmt.Errorf("new pdf reader: %w", err)
	}
	summary := Summary{Pages: doc.NumPage()}
	var builder strings.Builder
	for page := 1; page <= summary.Pages; page++ {
		if maxRunes > 0 && utf8.RuneCountInString(builder.String()) >= maxRunes {
			break
		}
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return summary, fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	summary.Excerpt = truncate(strings.TrimSpace(collapse(builder.String())), maxRunes)
	return summary, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "…"
}
