package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/dvloznov/statement-insights/internal/gcs"
)

const (
	visionTimeout = 2 * time.Minute
	// visionSyncPageLimit is the most pages the synchronous files API accepts.
	visionSyncPageLimit = 5
)

// Vision recognizes text with Cloud Vision's synchronous file annotation.
type Vision struct {
	client   *vision.ImageAnnotatorClient
	maxPages int
}

// NewVision creates a Vision recognizer reading at most maxPages pages per document.
func NewVision(ctx context.Context, maxPages int) (*Vision, error) {
	c, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("ocr: vision client: %w", err)
	}
	if maxPages <= 0 || maxPages > visionSyncPageLimit {
		maxPages = visionSyncPageLimit
	}
	return &Vision{client: c, maxPages: maxPages}, nil
}

func (v *Vision) Recognize(ctx context.Context, bucket, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, visionTimeout)
	defer cancel()

	pages := make([]int32, v.maxPages)
	for i := range pages {
		pages[i] = int32(i + 1)
	}

	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					GcsSource: &visionpb.GcsSource{Uri: gcs.URI(bucket, key)},
					MimeType:  "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				Pages: pages,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ocr: vision BatchAnnotateFiles: %w", err)
	}

	lines, err := visionLines(resp)
	if err != nil {
		return "", err
	}
	return joinLines(lines), nil
}

func (v *Vision) Close() error {
	return v.client.Close()
}

// visionLines splits each page's full-text annotation into lines, in page order.
func visionLines(resp *visionpb.BatchAnnotateFilesResponse) ([]string, error) {
	var lines []string
	for _, file := range resp.GetResponses() {
		if msg := file.GetError().GetMessage(); msg != "" {
			return nil, fmt.Errorf("ocr: vision file error: %s", msg)
		}
		for _, page := range file.GetResponses() {
			if msg := page.GetError().GetMessage(); msg != "" {
				return nil, fmt.Errorf("ocr: vision page error: %s", msg)
			}
			text := page.GetFullTextAnnotation().GetText()
			if text == "" {
				continue
			}
			lines = append(lines, strings.Split(text, "\n")...)
		}
	}
	return lines, nil
}
