package datasets

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/askagent/askagent/internal/helpers"
	"github.com/askagent/askagent/internal/httpx"
)

// Post is the minimal slice of a discovered discussion post.
type Post struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// PostBatch is the parsed result of a post-discovery job.
type PostBatch struct {
	ParsedPosts []Post `json:"parsed_posts"`
	TotalFound  int    `json:"total_found"`
}

// Comment is the minimal slice of a retrieved post comment.
type Comment struct {
	CommentID string `json:"comment_id"`
	Content   string `json:"content"`
	Date      string `json:"date"`
}

// CommentBatch is the parsed result of a comment-retrieval job.
type CommentBatch struct {
	Comments       []Comment `json:"comments"`
	TotalRetrieved int       `json:"total_retrieved"`
}

// Client drives dataset jobs against the scraping provider.
type Client struct {
	apiKey   string
	baseURL  string
	http     *httpx.Client
	backoff  Backoff
	deadline time.Duration
	logger   *log.Logger

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Options configures a dataset client.
type Options struct {
	APIKey   string
	BaseURL  string
	HTTP     *httpx.Client
	Backoff  Backoff
	Deadline time.Duration
	Logger   *log.Logger
}

func NewClient(opts Options) *Client {
	c := &Client{
		apiKey:   opts.APIKey,
		baseURL:  opts.BaseURL,
		http:     opts.HTTP,
		backoff:  opts.Backoff,
		deadline: opts.Deadline,
		logger:   opts.Logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.brightdata.com"
	}
	if c.http == nil {
		c.http = httpx.NewClient(30*time.Second, 2, 300*time.Millisecond)
	}
	if c.deadline <= 0 {
		c.deadline = 5 * time.Minute
	}
	if c.logger == nil {
		c.logger = log.New(log.Writer(), "[DATASETS] ", log.LstdFlags)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// Trigger starts a dataset collection and returns the tracking job.
func (c *Client) Trigger(ctx context.Context, datasetID string, params url.Values, payload any) (Job, error) {
	params.Set("dataset_id", datasetID)
	params.Set("include_errors", "true")
	endpoint := c.baseURL + "/datasets/v3/trigger?" + params.Encode()

	var resp struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, c.authHeaders(), payload, &resp); err != nil {
		return Job{}, fmt.Errorf("trigger dataset %s: %w", datasetID, err)
	}
	if resp.SnapshotID == "" {
		return Job{}, fmt.Errorf("trigger dataset %s: no snapshot id in response", datasetID)
	}
	return NewJob(resp.SnapshotID, datasetID, c.now(), c.deadline), nil
}

// Poll repeatedly checks snapshot progress until the job reaches a terminal
// phase. Transient poll errors count as attempts and do not abort the loop;
// the wall-clock deadline does. The returned job carries the final phase.
func (c *Client) Poll(ctx context.Context, job Job) (Job, error) {
	for attempt := 0; !job.Terminal(); attempt++ {
		var progress struct {
			Status string `json:"status"`
		}
		endpoint := fmt.Sprintf("%s/datasets/v3/progress/%s", c.baseURL, job.ID)
		if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, c.authHeaders(), nil, &progress); err != nil {
			c.logger.Printf("snapshot %s poll attempt %d: %v", job.ID, attempt+1, err)
			progress.Status = ""
		}
		job = job.Advance(progress.Status, c.now())
		if job.Terminal() {
			break
		}
		if err := c.sleep(ctx, c.backoff.Delay(attempt)); err != nil {
			return job, err
		}
	}
	return job, nil
}

// Download fetches the finished snapshot as a list of records.
func (c *Client) Download(ctx context.Context, job Job) ([]map[string]any, error) {
	if job.Phase != PhaseReady {
		return nil, fmt.Errorf("snapshot %s not ready (phase %s)", job.ID, job.Phase)
	}
	endpoint := fmt.Sprintf("%s/datasets/v3/snapshot/%s?format=json", c.baseURL, job.ID)
	var records []map[string]any
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, c.authHeaders(), nil, &records); err != nil {
		return nil, fmt.Errorf("download snapshot %s: %w", job.ID, err)
	}
	return records, nil
}

// DiscoverPosts runs a keyword-discovery job for the posts dataset and
// returns the parsed batch. A job that times out or fails yields an error
// naming the terminal phase.
func (c *Client) DiscoverPosts(ctx context.Context, keyword, datasetID string) (*PostBatch, error) {
	params := url.Values{}
	params.Set("type", "discover_new")
	params.Set("discover_by", "keyword")
	payload := []map[string]any{{
		"keyword":      keyword,
		"date":         "All time",
		"sort_by":      "Hot",
		"num_of_posts": 75,
	}}

	records, err := c.collect(ctx, datasetID, params, payload)
	if err != nil {
		return nil, err
	}

	batch := &PostBatch{ParsedPosts: []Post{}}
	for _, rec := range records {
		batch.ParsedPosts = append(batch.ParsedPosts, Post{
			Title: fieldOr(rec, "title", "No title"),
			URL:   fieldOr(rec, "url", "No URL"),
		})
	}
	batch.TotalFound = len(batch.ParsedPosts)
	return batch, nil
}

// CollectComments runs a comment-retrieval job for the given post URLs.
func (c *Client) CollectComments(ctx context.Context, urls []string, datasetID string) (*CommentBatch, error) {
	payload := make([]map[string]any, 0, len(urls))
	for _, u := range urls {
		payload = append(payload, map[string]any{
			"url":              u,
			"days_back":        10,
			"load_all_replies": false,
			"comment_limit":    "",
		})
	}

	records, err := c.collect(ctx, datasetID, url.Values{}, payload)
	if err != nil {
		return nil, err
	}

	batch := &CommentBatch{Comments: []Comment{}}
	for _, rec := range records {
		batch.Comments = append(batch.Comments, Comment{
			CommentID: fieldOr(rec, "comment_id", "No ID"),
			Content:   fieldOr(rec, "comment", "No content"),
			Date:      fieldOr(rec, "date_posted", "No date"),
		})
	}
	batch.TotalRetrieved = len(batch.Comments)
	return batch, nil
}

func (c *Client) collect(ctx context.Context, datasetID string, params url.Values, payload any) ([]map[string]any, error) {
	job, err := c.Trigger(ctx, datasetID, params, payload)
	if err != nil {
		return nil, err
	}
	c.logger.Printf("dataset %s triggered, snapshot %s", datasetID, job.ID)

	job, err = c.Poll(ctx, job)
	if err != nil {
		return nil, err
	}
	switch job.Phase {
	case PhaseReady:
	case PhaseTimedOut:
		return nil, fmt.Errorf("snapshot %s timed out before completion", job.ID)
	default:
		return nil, fmt.Errorf("snapshot %s ended in phase %s", job.ID, job.Phase)
	}

	return c.Download(ctx, job)
}

func fieldOr(rec map[string]any, key, fallback string) string {
	if v, ok := rec[key]; ok && v != nil {
		if s := helpers.Str(v); s != "" {
			return s
		}
	}
	return fallback
}
