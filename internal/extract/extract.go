// Package extract turns a stored statement PDF into plain text by trying an
// ordered list of strategies until one yields enough text.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/metrics"
	"github.com/dvloznov/statement-insights/internal/ocr"
)

const (
	// MinTextLength is the trimmed length at which a strategy's output is accepted.
	MinTextLength = 50
	// MaxPages caps how many pages the local strategies read.
	MaxPages = 20
	// MaxLocalBytes is the largest object the local strategies are tried on.
	MaxLocalBytes = 20 * 1024 * 1024
)

// Source is the document handed to each strategy. Path is set only when a
// local copy exists.
type Source struct {
	Bucket string
	Key    string
	Size   int64
	Path   string
}

// Strategy is one way of getting text out of a PDF.
type Strategy interface {
	Name() string
	// Local reports whether the strategy reads Source.Path.
	Local() bool
	Extract(ctx context.Context, src Source) (string, error)
}

// Result is the accepted text and the strategy that produced it. Both are
// empty when no strategy reached MinTextLength.
type Result struct {
	Text     string
	Strategy string
}

// Engine runs strategies in order against a stored object.
type Engine struct {
	store      gcs.StorageService
	strategies []Strategy
}

// New creates an Engine that tries strategies in the given order.
func New(store gcs.StorageService, strategies ...Strategy) *Engine {
	return &Engine{store: store, strategies: strategies}
}

// NewDefault wires the layout, lenient and OCR strategies in that order.
func NewDefault(store gcs.StorageService, recognizer ocr.Recognizer) *Engine {
	return New(store, LayoutStrategy{}, LenientStrategy{}, OCRStrategy{Recognizer: recognizer})
}

// Extract returns the first strategy output with at least MinTextLength
// trimmed characters. Strategy failures are logged and treated as empty
// output; only storage errors are returned. Any local copy is removed before
// Extract returns.
func (e *Engine) Extract(ctx context.Context, bucket, key string) (Result, error) {
	log := logger.FromContext(ctx).With().Str("bucket", bucket).Str("key", key).Logger()

	attrs, err := e.store.Attrs(ctx, bucket, key)
	if err != nil {
		return Result{}, fmt.Errorf("extract: stat object: %w", err)
	}

	src := Source{Bucket: bucket, Key: key, Size: attrs.Size}
	if src.Size == 0 {
		log.Info().Msg("object is empty, nothing to extract")
		metrics.ExtractionStrategy("none")
		return Result{}, nil
	}

	tooLarge := src.Size > MaxLocalBytes
	if tooLarge {
		log.Info().Int64("size", src.Size).Msg("object too large for local extraction, using OCR only")
	}

	if !tooLarge && e.needsLocalCopy() {
		path, err := e.store.DownloadToTemp(ctx, bucket, key)
		if err != nil {
			return Result{}, fmt.Errorf("extract: download object: %w", err)
		}
		defer removeTemp(log, path)
		src.Path = path
	}

	return e.run(ctx, log, src), nil
}

// ExtractFile runs the local strategies against a PDF on disk. Remote-only
// strategies such as OCR are skipped.
func (e *Engine) ExtractFile(ctx context.Context, path string) (Result, error) {
	log := logger.FromContext(ctx).With().Str("file", path).Logger()

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("extract: stat file: %w", err)
	}
	return e.run(ctx, log, Source{Size: info.Size(), Path: path}), nil
}

func (e *Engine) run(ctx context.Context, log zerolog.Logger, src Source) Result {
	for _, s := range e.strategies {
		if s.Local() && src.Path == "" {
			continue
		}
		if !s.Local() && src.Bucket == "" {
			continue
		}

		sub := src
		if !s.Local() {
			sub.Path = ""
		}
		text, err := runStrategy(ctx, s, sub)
		if err != nil {
			log.Warn().Err(err).Str("strategy", s.Name()).Msg("extraction strategy failed")
			continue
		}

		text = strings.TrimSpace(text)
		if len(text) >= MinTextLength {
			log.Info().Str("strategy", s.Name()).Int("chars", len(text)).Msg("text extracted")
			metrics.ExtractionStrategy(s.Name())
			return Result{Text: text, Strategy: s.Name()}
		}
		log.Debug().Str("strategy", s.Name()).Int("chars", len(text)).Msg("insufficient text, falling back")
	}

	metrics.ExtractionStrategy("none")
	return Result{}
}

func (e *Engine) needsLocalCopy() bool {
	for _, s := range e.strategies {
		if s.Local() {
			return true
		}
	}
	return false
}

// runStrategy converts a panic inside a PDF engine into an error.
func runStrategy(ctx context.Context, s Strategy, src Source) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%s: panic: %v", s.Name(), r)
		}
	}()
	return s.Extract(ctx, src)
}

func removeTemp(log zerolog.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove temp file")
	}
}
