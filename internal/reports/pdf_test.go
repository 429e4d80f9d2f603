package reports

import (
	"errors"
	"testing"

	"protein-analysis-ui/internal/reports/reportstest"
)

func TestVerifyPDF(t *testing.T) {
	pages, err := VerifyPDF(reportstest.MinimalPDF(3))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}
}

func TestVerifyPDF_Rejects(t *testing.T) {
	for _, body := range [][]byte{nil, []byte("id,tipo\n1,PLM\n"), []byte("%PDF-1.4\ngarbage")} {
		if _, err := VerifyPDF(body); !errors.Is(err, ErrNotPDF) {
			t.Fatalf("expected ErrNotPDF for %q, got %v", body, err)
		}
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		contentType string
		name        string
		body        string
		want        bool
	}{
		{"application/pdf", "x.bin", "", true},
		{"application/octet-stream", "reporte.PDF", "", true},
		{"", "", "%PDF-1.7", true},
		{"text/csv", "reportes.csv", "id,tipo", false},
	}
	for _, tt := range tests {
		if got := IsPDF(tt.contentType, tt.name, []byte(tt.body)); got != tt.want {
			t.Fatalf("IsPDF(%q,%q) = %v, want %v", tt.contentType, tt.name, got, tt.want)
		}
	}
}
