package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/masahif/wikicrawl/internal/crawler"
)

// progressObserver draws one progress bar per BFS level.
// Every frontier URL advances the bar once, whether it was fetched or skipped.
type progressObserver struct {
	crawler.NopObserver

	out io.Writer
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressObserver(out io.Writer) *progressObserver {
	return &progressObserver{out: out}
}

func (p *progressObserver) LevelStarted(level, maxDepth, frontierSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bar = progressbar.NewOptions(frontierSize,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(fmt.Sprintf("level %d/%d", level, maxDepth)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *progressObserver) URLSkipped(string, crawler.SkipReason) {
	p.advance()
}

func (p *progressObserver) TaskFinished(crawler.CrawlTask, error) {
	p.advance()
}

func (p *progressObserver) LevelFinished(crawler.LevelStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.out)
	p.bar = nil
}

func (p *progressObserver) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}
