package ocr

import (
	"context"
	"fmt"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/dvloznov/statement-insights/internal/gcs"
)

const documentAITimeout = 3 * time.Minute

// DocumentAI recognizes text with a Document AI OCR processor reading straight from GCS.
type DocumentAI struct {
	client    *documentai.DocumentProcessorClient
	processor string
}

// NewDocumentAI connects to the regional Document AI endpoint for location.
func NewDocumentAI(ctx context.Context, projectID, location, processorID string) (*DocumentAI, error) {
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	c, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("ocr: documentai client: %w", err)
	}

	return &DocumentAI{
		client:    c,
		processor: fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID),
	}, nil
}

func (d *DocumentAI) Recognize(ctx context.Context, bucket, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, documentAITimeout)
	defer cancel()

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_GcsDocument{
			GcsDocument: &documentaipb.GcsDocument{
				GcsUri:   gcs.URI(bucket, key),
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ocr: documentai ProcessDocument: %w", err)
	}

	return joinLines(documentLines(resp.GetDocument())), nil
}

func (d *DocumentAI) Close() error {
	return d.client.Close()
}

// documentLines returns the text of every page line in page order.
func documentLines(doc *documentaipb.Document) []string {
	if doc == nil {
		return nil
	}

	var lines []string
	for _, page := range doc.GetPages() {
		for _, line := range page.GetLines() {
			lines = append(lines, textFromAnchor(doc.GetText(), line.GetLayout().GetTextAnchor()))
		}
	}
	return lines
}

// textFromAnchor concatenates the anchor's segments of full, clamping bad offsets.
func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || full == "" {
		return ""
	}

	var out []byte
	for _, seg := range anchor.GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		out = append(out, full[start:end]...)
	}
	return string(out)
}
