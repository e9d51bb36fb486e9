package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/askagent/askagent/internal/helpers"
	"github.com/askagent/askagent/internal/httpx"
)

type serpClient struct {
	engine  Engine
	apiKey  string
	baseURL string
	zone    string
	max     int
	http    *httpx.Client
}

func newSERPClient(engine Engine, opts Options) *serpClient {
	c := &serpClient{
		engine:  engine,
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		zone:    opts.Zone,
		max:     opts.MaxResults,
		http:    opts.HTTP,
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.brightdata.com"
	}
	if c.zone == "" {
		c.zone = "ai_agent"
	}
	if c.max <= 0 {
		c.max = 10
	}
	if c.http == nil {
		c.http = httpx.NewClient(30*time.Second, 2, 300*time.Millisecond)
	}
	return c
}

func (c *serpClient) searchURL(query string) string {
	var base string
	switch c.engine {
	case EngineBing:
		base = "https://www.bing.com/search"
	default:
		base = "https://www.google.com/search"
	}
	// brd_json asks the provider to return the parsed SERP instead of HTML.
	return fmt.Sprintf("%s?q=%s&brd_json=1", base, url.QueryEscape(query))
}

func (c *serpClient) Search(ctx context.Context, query string) (*Page, error) {
	payload := map[string]any{
		"zone":   c.zone,
		"url":    c.searchURL(query),
		"format": "raw",
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var raw map[string]any
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/request", headers, payload, &raw); err != nil {
		return nil, fmt.Errorf("%s search request: %w", c.engine, err)
	}

	page := &Page{Knowledge: map[string]any{}}
	if k, ok := raw["knowledge"].(map[string]any); ok {
		page.Knowledge = k
	}
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= c.max {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			page.Organic = append(page.Organic, Result{
				Title:   helpers.Str(m["title"]),
				URL:     helpers.Str(m["link"]),
				Snippet: helpers.Str(m["snippet"]),
			})
		}
	}
	return page, nil
}
