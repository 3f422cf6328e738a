package crawler

import (
	"sync"
)

// Frontier tracks the URLs handled in this run (the visited set) and accumulates
// the next BFS level. A single mutex guards both; it is never held across I/O.
type Frontier struct {
	mu      sync.Mutex
	visited map[string]struct{}
	next    map[string]struct{}
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		visited: make(map[string]struct{}),
		next:    make(map[string]struct{}),
	}
}

// Seen reports whether url was already admitted in this run
func (f *Frontier) Seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.visited[url]
	return ok
}

// Admit marks url as visited. It returns false if url was already visited,
// in which case the caller must not dispatch it.
func (f *Frontier) Admit(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[url]; ok {
		return false
	}
	f.visited[url] = struct{}{}
	return true
}

// Contribute adds unvisited urls to the next level and returns how many were new to it
func (f *Frontier) Contribute(urls []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, url := range urls {
		if _, ok := f.visited[url]; ok {
			continue
		}
		if _, ok := f.next[url]; ok {
			continue
		}
		f.next[url] = struct{}{}
		added++
	}
	return added
}

// Advance hands out the accumulated level and starts an empty one.
// URLs admitted after they were contributed are dropped here.
func (f *Frontier) Advance() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	level := make([]string, 0, len(f.next))
	for url := range f.next {
		if _, ok := f.visited[url]; ok {
			continue
		}
		level = append(level, url)
	}
	f.next = make(map[string]struct{})
	return level
}

// Pending returns the size of the level being accumulated
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.next)
}

// VisitedCount returns how many URLs were admitted in this run
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
