package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
	"github.com/olegbakhtin/document-qa-service/internal/core/ports"
)

const (
	formatText = "text"
	formatPDF  = "pdf"
	formatXLSX = "xlsx"
)

// Composite routes extraction by file extension, falling back to the
// declared mime type and finally to plain text.
type Composite struct {
	plain ports.TextExtractor
	pdf   ports.TextExtractor
	xlsx  ports.TextExtractor
}

func NewComposite(plain, pdf, xlsx ports.TextExtractor) *Composite {
	return &Composite{plain: plain, pdf: pdf, xlsx: xlsx}
}

func (c *Composite) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	switch resolveFormat(doc) {
	case formatPDF:
		return c.pdf.Extract(ctx, doc)
	case formatXLSX:
		return c.xlsx.Extract(ctx, doc)
	default:
		return c.plain.Extract(ctx, doc)
	}
}

func resolveFormat(doc *domain.Document) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(doc.Filename), ".")) {
	case "pdf":
		return formatPDF
	case "xlsx", "xlsm":
		return formatXLSX
	}

	mime := strings.ToLower(doc.MimeType)
	switch {
	case strings.Contains(mime, "application/pdf"):
		return formatPDF
	case strings.Contains(mime, "spreadsheetml"):
		return formatXLSX
	}
	return formatText
}
