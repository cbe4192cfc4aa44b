// Package embed maps extracted text to fixed-dimension vectors.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Provider names accepted in configuration.
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
)

var (
	ErrProviderFailed = errors.New("embedding provider failed")
	ErrUnknown        = errors.New("unknown embedding provider")
)

// Provider produces an embedding for a piece of text. A nil vector with a nil
// error means the text yielded nothing worth embedding.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
	Dimension() int
}

// Options selects and configures a Provider.
type Options struct {
	Provider  string
	Dimension int
	Model     string
	BaseURL   string
	APIKey    string
	CacheSize int
}

// New builds the configured provider, wrapped in an LRU cache when CacheSize > 0.
func New(opts Options) (Provider, error) {
	var p Provider
	switch opts.Provider {
	case "", ProviderLocal:
		p = NewLocal(opts.Dimension)
	case ProviderOpenAI:
		o, err := NewOpenAI(opts.BaseURL, opts.APIKey, opts.Model, opts.Dimension)
		if err != nil {
			return nil, err
		}
		p = o
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, opts.Provider)
	}
	if opts.CacheSize > 0 {
		p = NewCached(p, opts.CacheSize)
	}
	return p, nil
}

// Normalize scales v to unit length in place. Zero vectors are left unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}
