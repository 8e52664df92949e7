package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// LenientStrategy parses the file with relaxed validation and reads the text
// operators of each page's content stream. It copes with files the layout
// reader rejects.
type LenientStrategy struct{}

func (LenientStrategy) Name() string { return "lenient" }
func (LenientStrategy) Local() bool  { return true }

func (LenientStrategy) Extract(_ context.Context, src Source) (string, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	f, err := os.Open(src.Path)
	if err != nil {
		return "", fmt.Errorf("lenient: open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(f, conf)
	if err != nil {
		return "", fmt.Errorf("lenient: read pdf: %w", err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return "", fmt.Errorf("lenient: page count: %w", err)
	}

	var b strings.Builder
	pages := min(pctx.PageCount, MaxPages)
	for i := 1; i <= pages; i++ {
		r, err := pdfcpu.ExtractPageContent(pctx, i)
		if err != nil || r == nil {
			// A broken page does not spoil the others.
			continue
		}
		text, err := contentText(r)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String()), nil
}
