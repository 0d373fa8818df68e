package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	pdfx "github.com/ledongthuc/pdf"
)

const maxPDFPages = 20

// PDFToText extracts plain text from the first pages of a PDF held in
// memory. Extraction stops early when ctx is done.
func PDFToText(ctx context.Context, data []byte) (string, error) {
	r, err := pdfx.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	total := r.NumPage()
	if total > maxPDFPages {
		total = maxPDFPages
	}

	var out strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		if t := strings.TrimSpace(txt); t != "" {
			out.WriteString(t)
			out.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(out.String()), nil
}
