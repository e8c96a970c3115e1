package utils

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines, optionally spacing
// job starts by a minimum interval.
type WorkerPool struct {
	semaphore   chan struct{}
	wg          sync.WaitGroup
	interval    time.Duration
	mu          sync.Mutex
	lastStarted time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
// maxWorkers below 1 is treated as 1.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		semaphore: make(chan struct{}, maxWorkers),
		interval:  time.Duration(rateLimitMs) * time.Millisecond,
	}
}

// Submit enqueues a job for execution in the pool. It blocks while all
// workers are busy.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	if wp.interval <= 0 {
		return
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.lastStarted.IsZero() {
		if elapsed := time.Since(wp.lastStarted); elapsed < wp.interval {
			time.Sleep(wp.interval - elapsed)
		}
	}
	wp.lastStarted = time.Now()
}

// SourceSet is a thread-safe set of input sources. Local paths are compared
// after cleaning so "./a.csv" and "a.csv" are the same source.
type SourceSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSourceSet creates an empty SourceSet.
func NewSourceSet() *SourceSet {
	return &SourceSet{seen: make(map[string]struct{})}
}

// Add returns true if the source was newly added, false if already present.
func (s *SourceSet) Add(source string) bool {
	key := normaliseSource(source)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Size returns the number of unique sources tracked.
func (s *SourceSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func normaliseSource(source string) string {
	source = strings.TrimSpace(source)
	if strings.Contains(source, "://") {
		return source
	}
	return filepath.Clean(source)
}
