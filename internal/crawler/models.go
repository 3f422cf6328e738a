package crawler

import "time"

// CrawlTask is one unit of work: fetch, persist and expand a URL
type CrawlTask struct {
	URL   string // Normalized absolute URL
	Depth int    // 1-based BFS level the task belongs to
}

// FetchResult is a successfully retrieved page
type FetchResult struct {
	URL          string        // Requested URL
	FinalURL     string        // After following redirects; base for relative links
	StatusCode   int           // HTTP status code
	ContentType  string        // HTTP Content-Type header
	Body         []byte        // Raw response body
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
	Attempts     int           // Requests made, including retries
}

// SkipReason explains why a frontier URL was not dispatched
type SkipReason string

const (
	SkipVisited SkipReason = "visited" // Already handled in this run
	SkipKnown   SkipReason = "known"   // Stored by a previous run
)

// LevelStats summarizes one BFS level
type LevelStats struct {
	Level          int
	MaxDepth       int
	FrontierSize   int
	Dispatched     int
	SkippedVisited int
	SkippedKnown   int
	Fetched        int
	Failed         int
	NewLinks       int // URLs contributed to the next level's frontier
	Duration       time.Duration
}

// CrawlStats represents crawling statistics
type CrawlStats struct {
	RunID           string
	LevelsCompleted int
	PagesFetched    int
	LinksStored     int
	FetchErrors     int
	SkippedKnown    int
	StartTime       time.Time
	Duration        time.Duration
}
