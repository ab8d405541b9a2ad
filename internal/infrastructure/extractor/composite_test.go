package extractor

import (
	"context"
	"testing"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
)

type markerExtractorFake struct {
	marker string
}

func (f *markerExtractorFake) Extract(context.Context, *domain.Document) (string, error) {
	return f.marker, nil
}

func TestCompositeRoutesByExtensionAndMime(t *testing.T) {
	composite := NewComposite(
		&markerExtractorFake{marker: "plain"},
		&markerExtractorFake{marker: "pdf"},
		&markerExtractorFake{marker: "xlsx"},
	)

	cases := []struct {
		name string
		doc  domain.Document
		want string
	}{
		{"pdf extension", domain.Document{Filename: "Report.PDF"}, "pdf"},
		{"xlsx extension", domain.Document{Filename: "costs.xlsx"}, "xlsx"},
		{"xlsm extension", domain.Document{Filename: "macro.xlsm"}, "xlsx"},
		{"pdf mime without extension", domain.Document{Filename: "upload", MimeType: "application/pdf"}, "pdf"},
		{"sheet mime without extension", domain.Document{Filename: "upload", MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}, "xlsx"},
		{"text fallback", domain.Document{Filename: "notes.md", MimeType: "text/markdown"}, "plain"},
	}

	for _, tc := range cases {
		got, err := composite.Extract(context.Background(), &tc.doc)
		if err != nil {
			t.Fatalf("%s: Extract() error = %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %s extractor, got %s", tc.name, tc.want, got)
		}
	}
}
