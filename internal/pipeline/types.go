// Package pipeline orchestrates the multi-source research flow: parallel
// retrieval from two search engines and a discussion platform, per-source
// LLM analysis, final synthesis, and sanitization of the assembled result.
package pipeline

import "fmt"

// SourceName identifies one retrieval source.
type SourceName string

const (
	SourceGoogle SourceName = "google"
	SourceBing   SourceName = "bing"
	SourceReddit SourceName = "reddit"
)

// sourceOrder fixes the presentation order of sources everywhere order is
// visible (prompt construction, result assembly), independent of completion
// order of the concurrent fetches.
var sourceOrder = []SourceName{SourceGoogle, SourceBing, SourceReddit}

// SourceStatus is the terminal outcome of one source's retrieval.
type SourceStatus string

const (
	StatusOK     SourceStatus = "ok"
	StatusEmpty  SourceStatus = "empty"
	StatusFailed SourceStatus = "failed"
)

// Credentials are the per-request secrets, already resolved by the caller.
type Credentials struct {
	LLMKey      string
	ScrapingKey string
}

// DatasetIDs are the discussion-platform dataset identifiers for the two
// retrieval phases.
type DatasetIDs struct {
	Posts    string
	Comments string
}

// Request is one research request. It is treated as immutable for the
// lifetime of the run.
type Request struct {
	Question    string
	Credentials Credentials
	Datasets    DatasetIDs
}

// SourceResult is the raw outcome of one source's retrieval, owned by the
// orchestrator until the response is assembled.
type SourceResult struct {
	Source SourceName   `json:"source_name"`
	Raw    any          `json:"raw,omitempty"`
	Status SourceStatus `json:"status"`
	Err    string       `json:"error,omitempty"`
}

// SourceAnalysis is the LLM summary derived from exactly one SourceResult.
type SourceAnalysis struct {
	Source  SourceName `json:"source_name"`
	Summary string     `json:"summary"`
}

// Result is the aggregate output of a completed run. Every field holds only
// JSON-serializable values; the sanitizer enforces this before the result
// leaves the pipeline.
type Result struct {
	FinalAnswer    string                      `json:"final_answer"`
	GoogleResults  any                         `json:"google_results,omitempty"`
	BingResults    any                         `json:"bing_results,omitempty"`
	RedditResults  any                         `json:"reddit_results,omitempty"`
	RedditPostData any                         `json:"reddit_post_data,omitempty"`
	GoogleAnalysis string                      `json:"google_analysis,omitempty"`
	BingAnalysis   string                      `json:"bing_analysis,omitempty"`
	RedditAnalysis string                      `json:"reddit_analysis,omitempty"`
	Statuses       map[SourceName]SourceStatus `json:"source_status,omitempty"`
}

// State is a stage of the pipeline state machine.
type State string

const (
	StateCreated      State = "created"
	StateValidating   State = "validating"
	StateFetching     State = "fetching"
	StateAnalyzing    State = "analyzing"
	StateSynthesizing State = "synthesizing"
	StateSanitizing   State = "sanitizing"
	StateCompleted    State = "completed"
	StateRejected     State = "rejected"
)

// PreflightError is the only error kind a run can fail with; everything past
// validation degrades into the result instead of failing the run.
type PreflightError struct {
	Reason string
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight failed: %s", e.Reason)
}
