package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/sirupsen/logrus"

	"github.com/taxbasehub/fiscal-audit/dto"
	"github.com/taxbasehub/fiscal-audit/utils"
)

// SentinelOCRError prefixes the text returned when rasterization or OCR
// fails, so the pipeline can log the failure without the batch dying.
const SentinelOCRError = "ERRO_OCR"

// StorageReader downloads the raw bytes of a candidate file.
type StorageReader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// OCRClient turns a page image into text.
type OCRClient interface {
	RecognizeText(ctx context.Context, imageBytes []byte) (string, error)
}

// ContentExtractor produces plain text and a best-guess CNPJ for one
// file, trying the embedded text layer first and falling back to OCR
// when that is inconclusive.
type ContentExtractor struct {
	storage   StorageReader
	pdf       PDFProcessor
	ocr       OCRClient
	firmTaxID string
	logger    *logrus.Logger
}

func NewContentExtractor(storage StorageReader, pdf PDFProcessor, ocr OCRClient, firmTaxID string, logger *logrus.Logger) *ContentExtractor {
	return &ContentExtractor{
		storage:   storage,
		pdf:       pdf,
		ocr:       ocr,
		firmTaxID: utils.CleanDigits(firmTaxID),
		logger:    logger,
	}
}

// ProcessFile never returns an error: collaborator failures degrade to
// an empty result or to sentinel text, and the pipeline decides what to
// log. Classification by filename must still be possible when content
// extraction yields nothing.
func (e *ContentExtractor) ProcessFile(ctx context.Context, fileID, fileName string) dto.ExtractionResult {
	pdfBytes, err := e.storage.Download(ctx, fileID)
	if err != nil || len(pdfBytes) == 0 {
		e.logger.WithFields(logrus.Fields{"file": fileName, "file_id": fileID}).
			Warn("download failed, skipping content extraction")
		return dto.ExtractionResult{}
	}

	text, err := e.pdf.ExtractText(pdfBytes)
	if err != nil {
		text = ""
	}
	cnpj := utils.ExtractBestCNPJ(text, e.firmTaxID)

	// OCR fires when the text layer produced no CNPJ, or only the
	// firm's own: the firm appears on nearly every document as the
	// filer, so its presence alone identifies nothing.
	needsOCR := cnpj == "" || cnpj == e.firmTaxID
	if !needsOCR {
		return dto.ExtractionResult{Text: text, TaxID: cnpj, UsedOCR: false}
	}

	pageImage, err := e.pdf.RenderFirstPage(pdfBytes)
	if err != nil {
		return dto.ExtractionResult{
			Text:  fmt.Sprintf("%s: page render failed: %v", SentinelOCRError, err),
			TaxID: cnpj,
		}
	}

	ocrText, err := e.ocr.RecognizeText(ctx, pageImage)
	if err != nil {
		return dto.ExtractionResult{
			Text:  fmt.Sprintf("%s: %v", SentinelOCRError, err),
			TaxID: cnpj,
		}
	}

	// QR sweep: fiscal guides often carry a QR code whose payload
	// embeds the very identifiers OCR tends to mangle. Decoded payloads
	// are appended so the registry's digit scan sees them too.
	if qrPayload := decodeQRCode(pageImage); qrPayload != "" {
		ocrText = ocrText + "\n" + qrPayload
	}

	if cnpjOCR := utils.ExtractBestCNPJ(ocrText, e.firmTaxID); cnpjOCR != "" {
		return dto.ExtractionResult{Text: ocrText, TaxID: cnpjOCR, UsedOCR: true}
	}
	return dto.ExtractionResult{Text: ocrText, TaxID: cnpj, UsedOCR: true}
}

// decodeQRCode attempts a QR decode of the page image. Best effort: any
// failure simply yields "".
func decodeQRCode(imageBytes []byte) string {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return ""
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return ""
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil || result == nil {
		return ""
	}
	return strings.TrimSpace(result.GetText())
}
