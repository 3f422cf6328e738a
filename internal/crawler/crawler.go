// Package crawler provides the core web crawling functionality.
// It implements a level-synchronized breadth-first crawl: every URL of one
// depth level is fetched by a bounded pool of workers, and the next level is
// only started once all of them have finished.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/masahif/wikicrawl/internal/config"
	"github.com/masahif/wikicrawl/internal/parser"
)

// progressInterval throttles the in-level progress log line
const progressInterval = 5 * time.Second

// DefaultCrawler implements the Crawler interface
type DefaultCrawler struct {
	config     *config.CrawlConfig
	store      LinkStore
	fetcher    PageFetcher
	extractor  LinkExtractor
	observer   Observer
	httpClient *HTTPClient // Set when the crawler owns its fetcher

	// Per-run state
	frontier   *Frontier
	stats      CrawlStats
	statsMutex sync.RWMutex
}

// Option configures a DefaultCrawler
type Option func(*DefaultCrawler)

// WithFetcher replaces the HTTP fetcher
func WithFetcher(f PageFetcher) Option {
	return func(c *DefaultCrawler) {
		c.fetcher = f
	}
}

// WithExtractor replaces the article link extractor
func WithExtractor(e LinkExtractor) Option {
	return func(c *DefaultCrawler) {
		c.extractor = e
	}
}

// WithObserver registers an observer for crawl lifecycle events
func WithObserver(o Observer) Option {
	return func(c *DefaultCrawler) {
		c.observer = o
	}
}

// NewCrawler creates a new crawler instance with the provided configuration and store.
// Unless replaced by options, pages are fetched over HTTP with the configured
// timeout, headers and retry policy, and links are extracted with the
// configured article prefix and namespace separator.
func NewCrawler(cfg *config.CrawlConfig, store LinkStore, opts ...Option) (*DefaultCrawler, error) {
	if cfg == nil {
		return nil, errors.New("configuration is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if store == nil {
		return nil, errors.New("link store is nil")
	}

	c := &DefaultCrawler{
		config:   cfg,
		store:    store,
		observer: NopObserver{},
		frontier: NewFrontier(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		httpClient := NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout)
		if headers := cfg.ParsedHeaders(); len(headers) > 0 {
			httpClient.SetCustomHeaders(headers)
			slog.Debug("Set custom headers", "count", len(headers))
		}
		httpClient.SetRetry(cfg.FetchRetries, cfg.RetryBackoff)
		c.httpClient = httpClient
		c.fetcher = httpClient
	}

	if c.extractor == nil {
		c.extractor = parser.NewArticleExtractor(cfg.ArticlePrefix, cfg.NamespaceSeparator)
	}

	return c, nil
}

// Crawl runs a breadth-first crawl from startURL for at most MaxDepth levels.
//
// It returns nil when the depth limit is reached or the frontier runs dry.
// A LinkStore failure aborts the crawl with a *StoreError. Cancelling ctx stops
// dispatching; tasks already running finish (their fetch is still bounded by the
// request timeout) before Crawl returns ctx.Err().
func (c *DefaultCrawler) Crawl(ctx context.Context, startURL string) error {
	start, err := parser.Normalize(startURL)
	if err != nil {
		return fmt.Errorf("invalid start URL: %w", err)
	}

	runID := uuid.NewString()
	logger := slog.Default().With("run_id", runID)
	c.reset(runID)
	defer c.finish()

	logger.Info("Starting crawl",
		"start_url", start,
		"max_depth", c.config.MaxDepth,
		"max_workers", c.config.MaxWorkers,
		"request_timeout", c.config.RequestTimeout,
	)

	c.frontier.Contribute([]string{start})

	for level := 1; level <= c.config.MaxDepth; level++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("Crawl cancelled", "level", level, "error", err)
			return err
		}

		urls := c.frontier.Advance()
		if len(urls) == 0 {
			logger.Info("Frontier exhausted", "level", level)
			break
		}

		levelStats, err := c.runLevel(ctx, logger, level, urls)
		c.recordLevel(levelStats, err == nil)
		if err != nil {
			logger.Error("Crawl aborted", "level", level, "error", err)
			return fmt.Errorf("level %d/%d aborted: %w", level, c.config.MaxDepth, err)
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("Crawl cancelled", "level", level, "error", err)
			return err
		}
	}

	stats := c.Stats()
	logger.Info("Crawl completed",
		"levels", stats.LevelsCompleted,
		"fetched", stats.PagesFetched,
		"stored", stats.LinksStored,
		"fetch_errors", stats.FetchErrors,
		"skipped_known", stats.SkippedKnown,
		"undispatched", c.frontier.Pending(),
		"duration", stats.Duration,
	)
	return nil
}

// levelTally is updated by workers while a level runs
type levelTally struct {
	dispatched atomic.Int64
	done       atomic.Int64
	fetched    atomic.Int64
	stored     atomic.Int64
	failed     atomic.Int64
	newLinks   atomic.Int64
}

// runLevel dispatches every admissible URL of one level and waits for all of them
func (c *DefaultCrawler) runLevel(ctx context.Context, logger *slog.Logger, level int, urls []string) (LevelStats, error) {
	startTime := time.Now()
	stats := LevelStats{
		Level:        level,
		MaxDepth:     c.config.MaxDepth,
		FrontierSize: len(urls),
	}

	// Order inside a level carries no meaning; sorting keeps logs reproducible.
	sort.Strings(urls)

	logger.Info(fmt.Sprintf("level %d/%d", level, c.config.MaxDepth), "level", level, "frontier", len(urls))
	c.observer.LevelStarted(level, c.config.MaxDepth, len(urls))

	// Store and fetch calls run on a context that outlives cancellation so
	// in-flight tasks drain instead of leaving half-finished writes behind.
	drain := context.WithoutCancel(ctx)

	var tally levelTally
	progress := &rate.Sometimes{Interval: progressInterval}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxWorkers)

	var dispatchErr error
	for _, url := range urls {
		if gctx.Err() != nil {
			break
		}

		if c.frontier.Seen(url) {
			stats.SkippedVisited++
			c.observer.URLSkipped(url, SkipVisited)
			continue
		}

		known, err := c.store.Contains(drain, url)
		if err != nil {
			dispatchErr = &StoreError{Op: "contains", URL: url, Err: err}
			break
		}
		if known {
			stats.SkippedKnown++
			logger.Debug("Skipping known URL", "level", level, "url", url)
			c.observer.URLSkipped(url, SkipKnown)
			continue
		}

		if !c.frontier.Admit(url) {
			stats.SkippedVisited++
			c.observer.URLSkipped(url, SkipVisited)
			continue
		}

		task := CrawlTask{URL: url, Depth: level}
		tally.dispatched.Add(1)
		g.Go(func() error {
			return c.runTask(gctx, drain, logger, task, &tally, progress)
		})
	}

	err := g.Wait()
	if err == nil {
		err = dispatchErr
	}

	stats.Dispatched = int(tally.dispatched.Load())
	stats.Fetched = int(tally.fetched.Load())
	stats.Failed = int(tally.failed.Load())
	stats.NewLinks = int(tally.newLinks.Load())
	stats.Duration = time.Since(startTime)

	c.addStored(int(tally.stored.Load()))

	logger.Info("Level complete",
		"level", level,
		"dispatched", stats.Dispatched,
		"fetched", stats.Fetched,
		"failed", stats.Failed,
		"skipped_known", stats.SkippedKnown,
		"next_frontier", stats.NewLinks,
		"duration", stats.Duration,
	)
	c.observer.LevelFinished(stats)

	return stats, err
}

// runTask fetches, persists and expands a single URL.
// Only a store failure is returned; fetch failures end the task quietly.
func (c *DefaultCrawler) runTask(gctx, drain context.Context, logger *slog.Logger, task CrawlTask, tally *levelTally, progress *rate.Sometimes) error {
	// The level was aborted or the crawl cancelled before this task got a worker
	if gctx.Err() != nil {
		return nil
	}

	c.observer.TaskStarted(task)
	defer func() {
		done := tally.done.Add(1)
		progress.Do(func() {
			logger.Info("Level progress",
				"level", task.Depth,
				"done", done,
				"dispatched", tally.dispatched.Load(),
				"failed", tally.failed.Load(),
			)
		})
	}()

	fetchCtx, cancel := context.WithTimeout(drain, c.fetchBudget())
	defer cancel()

	page, err := c.fetcher.Fetch(fetchCtx, task.URL)
	if err != nil {
		tally.failed.Add(1)
		logger.Warn("Fetch failed", "level", task.Depth, "url", task.URL, "error", err)
		c.observer.TaskFinished(task, err)
		return nil
	}
	tally.fetched.Add(1)

	inserted, err := c.store.InsertIfAbsent(drain, task.URL)
	if err != nil {
		storeErr := &StoreError{Op: "insert", URL: task.URL, Err: err}
		c.observer.TaskFinished(task, storeErr)
		return storeErr
	}
	if inserted {
		tally.stored.Add(1)
	}
	logger.Info("visited", "level", task.Depth, "url", task.URL, "stored", inserted)

	baseURL := page.FinalURL
	if baseURL == "" {
		baseURL = task.URL
	}
	links := c.extractor.Extract(page.Body, baseURL)
	added := c.frontier.Contribute(links)
	tally.newLinks.Add(int64(added))

	logger.Info(fmt.Sprintf("%d new links found", added),
		"level", task.Depth,
		"url", task.URL,
		"links", len(links),
		"new", added,
	)

	c.observer.TaskFinished(task, nil)
	return nil
}

// fetchBudget bounds one task's fetch including configured retries and backoff
func (c *DefaultCrawler) fetchBudget() time.Duration {
	budget := c.config.RequestTimeout
	backoff := c.config.RetryBackoff
	for i := 0; i < c.config.FetchRetries; i++ {
		budget += backoff + c.config.RequestTimeout
		backoff *= 2
	}
	return budget
}

// Stats returns current crawling statistics
func (c *DefaultCrawler) Stats() CrawlStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()

	stats := c.stats
	if stats.Duration == 0 && !stats.StartTime.IsZero() {
		stats.Duration = time.Since(stats.StartTime)
	}
	return stats
}

// Close releases the crawler's own HTTP connections
func (c *DefaultCrawler) Close() error {
	if c.httpClient != nil {
		c.httpClient.Close()
	}
	return nil
}

func (c *DefaultCrawler) reset(runID string) {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()

	c.frontier = NewFrontier()
	c.stats = CrawlStats{
		RunID:     runID,
		StartTime: time.Now(),
	}
}

func (c *DefaultCrawler) finish() {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	c.stats.Duration = time.Since(c.stats.StartTime)
}

func (c *DefaultCrawler) recordLevel(level LevelStats, completed bool) {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()

	if completed {
		c.stats.LevelsCompleted++
	}
	c.stats.PagesFetched += level.Fetched
	c.stats.FetchErrors += level.Failed
	c.stats.SkippedKnown += level.SkippedKnown
}

func (c *DefaultCrawler) addStored(n int) {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	c.stats.LinksStored += n
}
