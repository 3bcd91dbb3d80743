package render

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Renderer produces a downloadable document from a view.
type Renderer interface {
	// Format is the short name used to select the renderer, e.g. "pdf".
	Format() string
	ContentType() string
	Render(v View) ([]byte, error)
}

// Document is a rendered statement held in memory.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ErrUnknownFormat is returned by Lookup for unregistered formats.
var ErrUnknownFormat = errors.New("unknown statement format")

var (
	registryMu sync.RWMutex
	renderers  = map[string]Renderer{}
)

func init() {
	Register(PDFRenderer{})
	Register(XLSXRenderer{})
}

// Register adds or replaces the renderer for r.Format().
func Register(r Renderer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	renderers[r.Format()] = r
}

// Lookup returns the renderer for format.
func Lookup(format string) (Renderer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return r, nil
}

// Formats lists the registered format names in sorted order.
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(renderers))
	for k := range renderers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RenderDocument renders v with r and names the result.
func RenderDocument(r Renderer, v View) (Document, error) {
	body, err := r.Render(v)
	if err != nil {
		return Document{}, fmt.Errorf("render %s: %w", r.Format(), err)
	}
	return Document{
		Filename:    v.Filename(r.Format()),
		ContentType: r.ContentType(),
		Body:        body,
	}, nil
}
