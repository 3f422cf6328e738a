package crawler

import (
	"context"
)

// Crawler defines the main crawling interface
type Crawler interface {
	Crawl(ctx context.Context, startURL string) error
	Stats() CrawlStats
}

// PageFetcher retrieves raw page content.
// The per-request timeout is carried by ctx. Failures are returned as *FetchError.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// LinkExtractor turns page content into the set of article URLs it references.
// Implementations are pure and never fail; unusable input yields an empty set.
type LinkExtractor interface {
	Extract(body []byte, baseURL string) []string
}

// LinkStore is the durable dedup capability the orchestrator needs.
// InsertIfAbsent must be atomic under concurrent callers.
type LinkStore interface {
	InsertIfAbsent(ctx context.Context, url string) (bool, error)
	Contains(ctx context.Context, url string) (bool, error)
}

// Observer receives crawl lifecycle events. Task events arrive from worker
// goroutines concurrently, so implementations must be safe for concurrent use.
type Observer interface {
	LevelStarted(level, maxDepth, frontierSize int)
	URLSkipped(url string, reason SkipReason)
	TaskStarted(task CrawlTask)
	TaskFinished(task CrawlTask, err error)
	LevelFinished(stats LevelStats)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) LevelStarted(int, int, int) {}
func (NopObserver) URLSkipped(string, SkipReason) {}
func (NopObserver) TaskStarted(CrawlTask) {}
func (NopObserver) TaskFinished(CrawlTask, error) {}
func (NopObserver) LevelFinished(LevelStats) {}
