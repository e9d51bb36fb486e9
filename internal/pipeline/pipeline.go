package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/askagent/askagent/config"
	"github.com/askagent/askagent/internal/datasets"
	"github.com/askagent/askagent/internal/helpers"
	"github.com/askagent/askagent/internal/httpx"
	"github.com/askagent/askagent/internal/llm"
	"github.com/askagent/askagent/internal/search"
)

// Collector is the discussion-platform capability the pipeline depends on.
// *datasets.Client satisfies it.
type Collector interface {
	DiscoverPosts(ctx context.Context, keyword, datasetID string) (*datasets.PostBatch, error)
	CollectComments(ctx context.Context, urls []string, datasetID string) (*datasets.CommentBatch, error)
}

// Orchestrator sequences one research run through the pipeline state machine.
// Capability providers are created per request because credentials arrive with
// the request; the factories are injectable for tests.
type Orchestrator struct {
	cfg    config.PipelineConfig
	logger *log.Logger

	newSearcher  func(engine search.Engine, scrapingKey string) (search.Searcher, error)
	newCollector func(scrapingKey string) Collector
	newLLM       func(llmKey string) (llm.Provider, error)

	onState func(State)
}

// New wires an orchestrator against the real scraping and LLM providers.
func New(cfg *config.Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	httpClient := httpx.NewClient(cfg.Scraping.Timeout, cfg.Scraping.Retries, 300*time.Millisecond)

	return &Orchestrator{
		cfg:    cfg.Pipeline,
		logger: logger,
		newSearcher: func(engine search.Engine, scrapingKey string) (search.Searcher, error) {
			return search.New(engine, search.Options{
				APIKey:     scrapingKey,
				BaseURL:    cfg.Scraping.BaseURL,
				Zone:       cfg.Scraping.Zone,
				MaxResults: cfg.Pipeline.MaxSERPResults,
				HTTP:       httpClient,
			})
		},
		newCollector: func(scrapingKey string) Collector {
			return datasets.NewClient(datasets.Options{
				APIKey:  scrapingKey,
				BaseURL: cfg.Scraping.BaseURL,
				HTTP:    httpClient,
				Backoff: datasets.Backoff{
					Initial: cfg.Datasets.PollInitialDelay,
					Max:     cfg.Datasets.PollMaxDelay,
					Factor:  cfg.Datasets.PollFactor,
				},
				Deadline: cfg.Datasets.PollDeadline,
				Logger:   log.New(logger.Writer(), "[DATASETS] ", log.LstdFlags),
			})
		},
		newLLM: func(llmKey string) (llm.Provider, error) {
			llmCfg := cfg.LLM
			llmCfg.APIKey = llmKey
			return llm.NewProvider(llmCfg)
		},
	}
}

// OnState registers an observer for state transitions.
func (o *Orchestrator) OnState(fn func(State)) {
	o.onState = fn
}

func (o *Orchestrator) setState(s State) {
	o.logger.Printf("state -> %s", s)
	if o.onState != nil {
		o.onState(s)
	}
}

// redditFetch carries both phases of the discussion retrieval so the result
// assembly can expose posts and comments separately.
type redditFetch struct {
	result   SourceResult
	posts    *datasets.PostBatch
	comments *datasets.CommentBatch
}

// Run executes the full pipeline for one request. The only error it can
// return is a *PreflightError; every later failure degrades into the result.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	o.setState(StateCreated)
	o.setState(StateValidating)

	if strings.TrimSpace(req.Question) == "" {
		o.setState(StateRejected)
		return Result{}, &PreflightError{Reason: "question must not be empty"}
	}
	if v := Preflight(req.Credentials, req.Datasets); !v.OK {
		o.setState(StateRejected)
		return Result{}, &PreflightError{Reason: v.Reason}
	}

	o.setState(StateFetching)
	var (
		wg     sync.WaitGroup
		google SourceResult
		bing   SourceResult
		reddit redditFetch
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		google = o.fetchSERP(ctx, search.EngineGoogle, SourceGoogle, req)
	}()
	go func() {
		defer wg.Done()
		bing = o.fetchSERP(ctx, search.EngineBing, SourceBing, req)
	}()
	go func() {
		defer wg.Done()
		reddit = o.fetchReddit(ctx, req)
	}()
	wg.Wait()

	o.setState(StateAnalyzing)
	prov, err := o.newLLM(req.Credentials.LLMKey)
	if err != nil {
		// Preflight vouched for the key's presence; a provider construction
		// failure here degrades like any other model failure.
		o.logger.Printf("llm provider unavailable: %v", err)
		prov = nil
	}

	analyses := make(map[SourceName]SourceAnalysis, len(sourceOrder))
	var (
		analysisMu sync.Mutex
		analysisWG sync.WaitGroup
	)
	analyze := func(source SourceName, res SourceResult, payload any) {
		defer analysisWG.Done()
		a := o.analyzeSource(ctx, prov, req.Question, source, res, payload)
		analysisMu.Lock()
		analyses[source] = a
		analysisMu.Unlock()
	}
	analysisWG.Add(3)
	go analyze(SourceGoogle, google, google.Raw)
	go analyze(SourceBing, bing, bing.Raw)
	go analyze(SourceReddit, reddit.result, map[string]any{
		"posts":    reddit.posts,
		"comments": reddit.comments,
	})
	analysisWG.Wait()

	o.setState(StateSynthesizing)
	final := o.synthesize(ctx, prov, req.Question, analyses)

	o.setState(StateSanitizing)
	res := Result{
		FinalAnswer:    final,
		GoogleResults:  Sanitize(google.Raw),
		BingResults:    Sanitize(bing.Raw),
		RedditResults:  Sanitize(reddit.posts),
		RedditPostData: Sanitize(reddit.comments),
		GoogleAnalysis: analyses[SourceGoogle].Summary,
		BingAnalysis:   analyses[SourceBing].Summary,
		RedditAnalysis: analyses[SourceReddit].Summary,
		Statuses: map[SourceName]SourceStatus{
			SourceGoogle: google.Status,
			SourceBing:   bing.Status,
			SourceReddit: reddit.result.Status,
		},
	}

	o.setState(StateCompleted)
	return res, nil
}

// fetchSERP runs one search-engine retrieval and absorbs every error into the
// source's result.
func (o *Orchestrator) fetchSERP(ctx context.Context, engine search.Engine, source SourceName, req Request) SourceResult {
	res := SourceResult{Source: source}

	s, err := o.newSearcher(engine, req.Credentials.ScrapingKey)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err.Error()
		return res
	}

	o.logger.Printf("%s: searching for %q", source, req.Question)
	page, err := s.Search(ctx, req.Question)
	if err != nil {
		o.logger.Printf("%s: search failed: %v", source, err)
		res.Status = StatusFailed
		res.Err = err.Error()
		return res
	}

	res.Raw = page
	if len(page.Organic) == 0 && len(page.Knowledge) == 0 {
		res.Status = StatusEmpty
		return res
	}
	o.logger.Printf("%s: got %d organic results", source, len(page.Organic))
	res.Status = StatusOK
	return res
}

// fetchReddit runs the two-phase discussion retrieval. Phase 2 only runs when
// Phase 1 produced at least one usable URL; zero URLs is a valid empty
// outcome, not an error.
func (o *Orchestrator) fetchReddit(ctx context.Context, req Request) redditFetch {
	out := redditFetch{result: SourceResult{Source: SourceReddit}}

	col := o.newCollector(req.Credentials.ScrapingKey)

	o.logger.Printf("%s: discovering posts for %q", SourceReddit, req.Question)
	posts, err := col.DiscoverPosts(ctx, req.Question, req.Datasets.Posts)
	if err != nil {
		o.logger.Printf("%s: post discovery failed: %v", SourceReddit, err)
		out.result.Status = StatusFailed
		out.result.Err = err.Error()
		return out
	}
	out.posts = posts
	out.result.Raw = posts

	urls := SelectPostURLs(posts.ParsedPosts, o.cfg.MaxPostURLs)
	if len(urls) == 0 {
		o.logger.Printf("%s: no usable post URLs, skipping comment retrieval", SourceReddit)
		out.result.Status = StatusEmpty
		return out
	}

	o.logger.Printf("%s: retrieving comments for %d posts", SourceReddit, len(urls))
	comments, err := col.CollectComments(ctx, urls, req.Datasets.Comments)
	if err != nil {
		o.logger.Printf("%s: comment retrieval failed: %v", SourceReddit, err)
		out.result.Status = StatusFailed
		out.result.Err = err.Error()
		return out
	}
	out.comments = comments
	out.result.Status = StatusOK
	return out
}

// SelectPostURLs picks up to max candidate post URLs, preserving source
// ordering and skipping malformed or missing entries.
func SelectPostURLs(posts []datasets.Post, max int) []string {
	if max <= 0 {
		max = 3
	}
	urls := make([]string, 0, max)
	for _, p := range posts {
		if !helpers.ValidHTTPURL(p.URL) {
			continue
		}
		urls = append(urls, strings.TrimSpace(p.URL))
		if len(urls) == max {
			break
		}
	}
	return urls
}

func fallbackSummary(source SourceName) string {
	return fmt.Sprintf("No data was retrieved from %s for this question.", sourceLabel(source))
}

// analyzeSource turns one source's outcome into a textual summary. Failures
// never propagate: a failed or empty source, or a failed model call, yields
// the fixed fallback text so every source contributes a summary.
func (o *Orchestrator) analyzeSource(ctx context.Context, prov llm.Provider, question string, source SourceName, res SourceResult, payload any) SourceAnalysis {
	analysis := SourceAnalysis{Source: source, Summary: fallbackSummary(source)}

	if res.Status != StatusOK || prov == nil {
		return analysis
	}

	rendered := renderPayload(payload, o.cfg.AnalysisCharBudget)
	if strings.TrimSpace(rendered) == "" {
		return analysis
	}

	system, user := analysisPrompts(source, question, rendered)
	summary, err := prov.Complete(ctx, system, user)
	if err != nil || strings.TrimSpace(summary) == "" {
		o.logger.Printf("%s: analysis call failed: %v", source, err)
		return analysis
	}
	analysis.Summary = summary
	return analysis
}

// synthesize merges all analyses into the final answer. A failed model call
// produces a clearly degraded answer built from the summaries instead of an
// error: this is the last stage before the caller and must always return.
func (o *Orchestrator) synthesize(ctx context.Context, prov llm.Provider, question string, analyses map[SourceName]SourceAnalysis) string {
	if prov != nil {
		system, user := synthesisPrompts(question, analyses)
		answer, err := prov.Complete(ctx, system, user)
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer
		}
		o.logger.Printf("synthesis call failed: %v", err)
	}

	var b strings.Builder
	b.WriteString("Synthesis was unavailable; per-source findings follow.\n")
	for _, name := range sourceOrder {
		fmt.Fprintf(&b, "\n%s: %s\n", sourceLabel(name), analyses[name].Summary)
	}
	return b.String()
}
