// Package search fetches search-engine result pages through the scraping
// provider's request API. Two engine variants share one contract.
package search

import (
	"context"
	"errors"

	"github.com/askagent/askagent/internal/httpx"
)

type Engine string

const (
	EngineGoogle Engine = "google"
	EngineBing   Engine = "bing"
)

var ErrUnsupportedEngine = errors.New("unsupported search engine")

// Result is one organic result in a uniform shape regardless of engine.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Page is the extracted portion of a SERP response.
type Page struct {
	Knowledge map[string]any `json:"knowledge"`
	Organic   []Result       `json:"organic"`
}

type Searcher interface {
	Search(ctx context.Context, query string) (*Page, error)
}

// Options carries the scraping-provider settings shared by both engines.
type Options struct {
	APIKey     string
	BaseURL    string
	Zone       string
	MaxResults int
	HTTP       *httpx.Client
}

// New returns a Searcher for the requested engine.
func New(engine Engine, opts Options) (Searcher, error) {
	switch engine {
	case EngineGoogle, EngineBing:
		return newSERPClient(engine, opts), nil
	default:
		return nil, ErrUnsupportedEngine
	}
}
