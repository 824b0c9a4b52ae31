package ingestion

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxUploadBytes is the largest file the pipeline accepts.
const MaxUploadBytes = 16 << 20

// AllowedExtension reports whether the filename carries a supported
// extension: .txt, .csv or .pdf.
func AllowedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".csv", ".pdf":
		return true
	}
	return false
}

// ExtractText returns the plain text content of an uploaded file. Text and
// CSV files pass through as-is; PDFs are parsed page by page.
func ExtractText(filename string, data []byte) (string, error) {
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("ingestion: %s exceeds the %d byte limit", filename, MaxUploadBytes)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".csv":
		return string(data), nil
	case ".pdf":
		return extractPDF(filename, data)
	default:
		return "", fmt.Errorf("ingestion: unsupported file type %q, allowed: .txt, .csv, .pdf", filepath.Ext(filename))
	}
}

// extractPDF concatenates the plain text of every page.
func extractPDF(filename string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("ingestion: parse %s: %w", filename, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages rather than failing the whole file.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("ingestion: no extractable text in %s", filename)
	}
	return sb.String(), nil
}
