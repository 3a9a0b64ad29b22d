// Package extractor routes OCR-required files to the extraction backend that
// handles their format: embedded text for PDFs, the HTTP OCR backend for
// images.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/vthnguyen/docstream/internal/core/ports"
)

type Composite struct {
	pdf    ports.OCRExtractor
	images ports.OCRExtractor
}

func New(pdf, images ports.OCRExtractor) *Composite {
	return &Composite{pdf: pdf, images: images}
}

func (c *Composite) ExtractText(ctx context.Context, fileType string, data []byte) (string, error) {
	switch strings.ToLower(fileType) {
	case "pdf":
		return c.pdf.ExtractText(ctx, fileType, data)
	case "png", "jpg", "jpeg":
		return c.images.ExtractText(ctx, fileType, data)
	default:
		return "", fmt.Errorf("no extraction backend for file type %q", fileType)
	}
}
