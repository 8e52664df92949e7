package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LayoutStrategy reads text row by row, following the page layout.
type LayoutStrategy struct{}

func (LayoutStrategy) Name() string { return "layout" }
func (LayoutStrategy) Local() bool  { return true }

func (LayoutStrategy) Extract(_ context.Context, src Source) (string, error) {
	f, r, err := pdf.Open(src.Path)
	if err != nil {
		return "", fmt.Errorf("layout: open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	pages := min(r.NumPage(), MaxPages)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("layout: page %d: %w", i, err)
		}
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String()), nil
}
