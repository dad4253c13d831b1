package aggregator

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxErrorSample = 10

// Stats is what a run reports back to its caller: counts plus a bounded
// sample of error messages.
type Stats struct {
	RunID       string        `json:"run_id"`
	Sources     int           `json:"sources"`
	Fetched     int           `json:"fetched"`
	Processed   int           `json:"processed"`
	Skipped     int           `json:"skipped"`
	Updated     int           `json:"updated"`
	Errors      int           `json:"errors"`
	ErrorSample []string      `json:"error_sample,omitempty"`
	Duration    time.Duration `json:"duration"`
}

func newStats() Stats {
	return Stats{RunID: uuid.NewString()}
}

// collector accumulates Stats from concurrent workers.
type collector struct {
	mu    sync.Mutex
	stats Stats
}

func newCollector() *collector {
	return &collector{stats: newStats()}
}

func (c *collector) add(fn func(s *Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.stats)
}

func (c *collector) processed() { c.add(func(s *Stats) { s.Processed++ }) }
func (c *collector) skipped()   { c.add(func(s *Stats) { s.Skipped++ }) }
func (c *collector) updated()   { c.add(func(s *Stats) { s.Updated++ }) }

func (c *collector) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.add(func(s *Stats) { s.recordError(msg) })
}

func (c *collector) result(started time.Time) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Duration = time.Since(started)
	return stats
}

func (s *Stats) recordError(msg string) {
	s.Errors++
	if len(s.ErrorSample) < maxErrorSample {
		s.ErrorSample = append(s.ErrorSample, msg)
	}
}

func (s *Stats) merge(other Stats) {
	s.Fetched += other.Fetched
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Updated += other.Updated
	for _, msg := range other.ErrorSample {
		if len(s.ErrorSample) < maxErrorSample {
			s.ErrorSample = append(s.ErrorSample, msg)
		}
	}
	s.Errors += other.Errors
}
