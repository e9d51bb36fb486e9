package server

import "time"

// HTTPError is the unified error envelope returned by all endpoints.
type HTTPError struct {
	Error string `json:"error"`
}

// ResearchRequest is the POST /api/research payload. Credential fields
// are optional; empty ones fall back to the session settings and then
// to the server config.
type ResearchRequest struct {
	Question          string `json:"question"`
	LLMKey            string `json:"llm_key,omitempty"`
	ScrapingKey       string `json:"scraping_key,omitempty"`
	PostsDatasetID    string `json:"posts_dataset_id,omitempty"`
	CommentsDatasetID string `json:"comments_dataset_id,omitempty"`
}

// ResearchResponse wraps a completed run.
type ResearchResponse struct {
	RunID  string `json:"run_id"`
	Result any    `json:"result"`
}

// SettingsRequest is the POST /api/settings payload.
type SettingsRequest struct {
	LLMKey            string `json:"llm_key,omitempty"`
	ScrapingKey       string `json:"scraping_key,omitempty"`
	PostsDatasetID    string `json:"posts_dataset_id,omitempty"`
	CommentsDatasetID string `json:"comments_dataset_id,omitempty"`
	Model             string `json:"model,omitempty"`
}

// SettingsResponse echoes saved settings with secrets masked.
type SettingsResponse struct {
	LLMKey            string `json:"llm_key"`
	ScrapingKey       string `json:"scraping_key"`
	PostsDatasetID    string `json:"posts_dataset_id"`
	CommentsDatasetID string `json:"comments_dataset_id"`
	Model             string `json:"model"`
}

// TestSettingsResponse reports the preflight verdict for a settings
// payload.
type TestSettingsResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// RunSummaryResponse is one entry in the runs listing.
type RunSummaryResponse struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	HasAnswer bool      `json:"has_answer"`
	CreatedAt time.Time `json:"created_at"`
}

// RunResponse is a stored run with its full result payload.
type RunResponse struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Result    any       `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// ShareResponse carries the minted share id and a resolvable link to
// the public endpoint.
type ShareResponse struct {
	ShareID string `json:"share_id"`
	URL     string `json:"url"`
}

// SearchHitResponse is one full-text search hit over past runs.
type SearchHitResponse struct {
	RunID    string  `json:"run_id"`
	Question string  `json:"question"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}
