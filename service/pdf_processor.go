package service

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFProcessor gives the extractor its two views of a document: the
// embedded text layer and a rasterized first page for the OCR path.
type PDFProcessor interface {
	ExtractText(pdfData []byte) (string, error)
	RenderFirstPage(pdfData []byte) ([]byte, error)
}

type pdfProcessor struct{}

func NewPDFProcessor() PDFProcessor {
	return &pdfProcessor{}
}

// ExtractText reads the text layer row by row, preserving enough layout
// for identifier tokens to stay contiguous. Digitally-generated fiscal
// receipts resolve here without any OCR cost.
func (p *pdfProcessor) ExtractText(pdfData []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return "", err
	}

	var textBuilder bytes.Buffer
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		rows, _ := page.GetTextByRow()
		for _, row := range rows {
			for _, word := range row.Content {
				textBuilder.WriteString(word.S)
			}
			textBuilder.WriteString("\n")
		}
	}
	return textBuilder.String(), nil
}

// RenderFirstPage extracts the embedded image(s) of page 1 and returns
// the first one found. Scanned fiscal documents are a single full-page
// image, which is exactly what the OCR collaborator needs.
func (p *pdfProcessor) RenderFirstPage(pdfData []byte) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "pdf_page")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile, err := os.CreateTemp("", "doc-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(pdfData); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write pdf data: %w", err)
	}
	tempFile.Close()

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(tempFile.Name(), tempDir, []string{"1"}, conf); err != nil {
		return nil, fmt.Errorf("failed to extract page image: %w", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no image found on page 1")
	}
	sort.Strings(names)

	img, err := os.ReadFile(filepath.Join(tempDir, names[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to read page image: %w", err)
	}
	return img, nil
}
