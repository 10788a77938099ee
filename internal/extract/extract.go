// Package extract loads raw text from uploaded files. PDF parsing is
// delegated entirely to UniPDF; plain text and markdown files are read as
// single-page documents.
package extract

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

func init() {
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			log.Printf("failed to set UniPDF license key: %v", err)
		}
	}
}

// ErrUnsupportedType is returned for file extensions the extractor cannot handle.
var ErrUnsupportedType = errors.New("unsupported file type")

// Page holds the extracted text of one source page. Page numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Supported reports whether the file extension can be ingested.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// Pages reads the file at path and returns its text split by page.
// Non-PDF files yield a single page numbered 1.
func Pages(path string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Page{{Number: 1, Text: string(content)}}, nil
	case ".pdf":
		return pdfPages(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

// pdfPages extracts text from every page of a PDF using UniPDF.
func pdfPages(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}

	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}
