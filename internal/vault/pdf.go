package vault

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	hyphenBreak  = regexp.MustCompile(`-\n`)
	paragraphGap = regexp.MustCompile(`\n{2,}`)
	anySpaceRun  = regexp.MustCompile(`\s+`)
)

// ExtractPDFText pulls the text out of a PDF and normalizes it for a
// context window: hyphenated line breaks are joined back together,
// intra-paragraph newlines become spaces, and paragraphs are separated
// by blank lines.
func ExtractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		text = hyphenBreak.ReplaceAllString(text, "")
		for _, para := range paragraphGap.Split(text, -1) {
			para = strings.TrimSpace(anySpaceRun.ReplaceAllString(para, " "))
			if para == "" {
				continue
			}
			sb.WriteString(para)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
