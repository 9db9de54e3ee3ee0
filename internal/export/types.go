// Package export renders a list with its tasks, sharing and recent activity
// as HTML, PDF or DOCX.
package export

import (
	"errors"
	"fmt"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "":
		return FormatHTML, nil
	case FormatHTML, FormatPDF, FormatDOCX:
		return Format(value), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", value)
	}
}

// Request contains parameters for an export operation
type Request struct {
	ListID          int64
	Format          Format
	IncludeActivity bool
	// ActivityLimit caps the number of feed entries rendered.
	ActivityLimit int
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
