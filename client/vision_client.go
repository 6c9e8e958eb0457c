package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/vision/v1"
)

// VisionOCRClient recognizes text on a page image. The Vision API is
// tried first; a local Tesseract pass is the fallback when the remote
// service is unreachable or returns nothing. Scanned fiscal guides are
// Portuguese, hence the language default.
type VisionOCRClient struct {
	svc          *vision.Service
	tessdataPath string
	language     string
	logger       *logrus.Logger
}

func NewVisionOCRClient(svc *vision.Service, tessdataPath, language string, logger *logrus.Logger) *VisionOCRClient {
	return &VisionOCRClient{
		svc:          svc,
		tessdataPath: tessdataPath,
		language:     language,
		logger:       logger,
	}
}

func (c *VisionOCRClient) RecognizeText(ctx context.Context, imageBytes []byte) (string, error) {
	text, err := c.recognizeRemote(ctx, imageBytes)
	if err == nil && text != "" {
		return text, nil
	}
	if err != nil {
		c.logger.WithField("error", err.Error()).Warn("vision OCR failed, trying local tesseract")
	}

	localText, localErr := c.recognizeLocal(imageBytes)
	if localErr != nil {
		if err != nil {
			return "", fmt.Errorf("vision: %v; tesseract fallback: %w", err, localErr)
		}
		return "", fmt.Errorf("tesseract: %w", localErr)
	}
	return localText, nil
}

func (c *VisionOCRClient) recognizeRemote(ctx context.Context, imageBytes []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(imageBytes)},
			Features: []*vision.Feature{{Type: "DOCUMENT_TEXT_DETECTION"}},
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("vision returned no responses")
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("vision annotation error: %s", r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return "", nil
	}
	return r.FullTextAnnotation.Text, nil
}

func (c *VisionOCRClient) recognizeLocal(imageBytes []byte) (string, error) {
	tempFile, err := os.CreateTemp("", "ocr-*.img")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(imageBytes); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	tempFile.Close()

	tess := gosseract.NewClient()
	defer tess.Close()

	tess.SetTessdataPrefix(c.tessdataPath)
	if err := tess.SetLanguage(c.language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := tess.SetImage(tempFile.Name()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := tess.Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}
