// Package extract turns managed files into plain text for embedding.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupported is returned for file extensions without an extractor.
var ErrUnsupported = errors.New("extract: unsupported file type")

// Extractor reads a file and returns its textual content.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

// Extract calls f(ctx, path).
func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Registry dispatches extraction by lowercase file extension.
type Registry struct {
	byExt map[string]Extractor
}

// OCROptions configures image text recognition.
type OCROptions struct {
	Enabled  bool
	Command  string
	Language string
}

// NewRegistry returns a registry with every built-in extractor registered.
func NewRegistry(ocr OCROptions) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(ExtractorFunc(extractText), ".txt")
	r.Register(ExtractorFunc(extractMarkdown), ".md")
	r.Register(newHTMLExtractor(), ".html", ".htm")
	r.Register(ExtractorFunc(extractPDF), ".pdf")
	r.Register(ExtractorFunc(extractDOCX), ".docx")
	r.Register(ExtractorFunc(extractPPTX), ".pptx")
	r.Register(&imageExtractor{opts: ocr}, ".png", ".jpg", ".jpeg")
	return r
}

// Register binds e to each extension. Extensions include the leading dot.
func (r *Registry) Register(e Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Supports reports whether the file name has a registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract dispatches to the extractor registered for path's extension.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.Extract(ctx, path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	return text, nil
}
