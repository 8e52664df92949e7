// Package ocr recognizes text in PDFs already stored in Cloud Storage.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-insights/internal/config"
)

// Recognizer returns the OCR'd text of a stored PDF: every detected line in
// document order, joined by "\n".
type Recognizer interface {
	Recognize(ctx context.Context, bucket, key string) (string, error)
	Close() error
}

// New builds the recognizer selected by cfg.OCR.Provider.
func New(ctx context.Context, cfg *config.Config) (Recognizer, error) {
	switch cfg.OCR.Provider {
	case "documentai":
		return NewDocumentAI(ctx, cfg.GCP.ProjectID, cfg.OCR.DocumentAILocation, cfg.OCR.DocumentAIProcessor)
	case "vision":
		return NewVision(ctx, cfg.OCR.VisionMaxPages)
	case "none", "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("ocr: unknown provider %q", cfg.OCR.Provider)
	}
}

// Disabled is a Recognizer that never finds text.
type Disabled struct{}

func (Disabled) Recognize(context.Context, string, string) (string, error) { return "", nil }
func (Disabled) Close() error                                              { return nil }

// joinLines trims every line, drops empty ones and joins the rest with "\n".
func joinLines(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
