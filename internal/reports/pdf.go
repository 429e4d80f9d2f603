package reports

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"rsc.io/pdf"
)

// ErrNotPDF is returned when a payload announced as PDF does not parse.
var ErrNotPDF = errors.New("reports: not a valid pdf document")

// File is a downloadable report ready to be streamed to the user.
type File struct {
	Name        string
	ContentType string
	Body        []byte
	Pages       int
}

// IsPDF reports whether a payload claims to be a PDF by type, name or magic.
func IsPDF(contentType, name string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF-"))
}

// VerifyPDF parses body and returns its page count.
func VerifyPDF(body []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	n := r.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return n, nil
}
