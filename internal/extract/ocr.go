package extract

import (
	"context"

	"github.com/dvloznov/statement-insights/internal/ocr"
)

// OCRStrategy delegates to a cloud OCR service that reads the object in place.
type OCRStrategy struct {
	Recognizer ocr.Recognizer
}

func (OCRStrategy) Name() string { return "ocr" }
func (OCRStrategy) Local() bool  { return false }

func (s OCRStrategy) Extract(ctx context.Context, src Source) (string, error) {
	return s.Recognizer.Recognize(ctx, src.Bucket, src.Key)
}
