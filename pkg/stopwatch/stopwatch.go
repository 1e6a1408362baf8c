// Package stopwatch records how long named operations take.
package stopwatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/juju/clock"
)

// Timing aggregates every completed measurement of a name.
type Timing struct {
	Total   time.Duration `json:"total"`
	Count   int           `json:"count"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Average time.Duration `json:"average"`
}

type Stopwatch struct {
	clock clock.Clock

	mu      sync.Mutex
	running map[string]time.Time
	timings map[string]*Timing
	// stops counts every measurement ever taken and is not
	// reset by Clear.
	stops uint64
}

// New creates a Stopwatch. If c is nil the wall clock is used.
func New(c clock.Clock) *Stopwatch {
	if c == nil {
		c = clock.WallClock
	}
	return &Stopwatch{
		clock:   c,
		running: map[string]time.Time{},
		timings: map[string]*Timing{},
	}
}

// Start begins measuring name. Starting a name that is already
// running restarts it.
func (s *Stopwatch) Start(name string) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = now
}

// Stop finishes measuring name and returns the elapsed time. It
// returns zero if name was never started.
func (s *Stopwatch) Stop(name string) time.Duration {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	started, ok := s.running[name]
	if !ok {
		return 0
	}
	delete(s.running, name)
	elapsed := now.Sub(started)

	t, ok := s.timings[name]
	if !ok {
		t = &Timing{Min: elapsed, Max: elapsed}
		s.timings[name] = t
	}
	t.Total += elapsed
	t.Count++
	t.Min = min(t.Min, elapsed)
	t.Max = max(t.Max, elapsed)
	t.Average = t.Total / time.Duration(t.Count)
	s.stops++

	return elapsed
}

// Get returns the timing recorded for name.
func (s *Stopwatch) Get(name string) (Timing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timings[name]
	if !ok {
		return Timing{}, false
	}
	return *t, true
}

// Clear drops every recorded and running measurement.
func (s *Stopwatch) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = map[string]time.Time{}
	s.timings = map[string]*Timing{}
}

// Stops returns the number of measurements taken over the
// lifetime of the Stopwatch.
func (s *Stopwatch) Stops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Report logs every recorded timing, sorted by name.
func (s *Stopwatch) Report(ctx context.Context) {
	log := logr.FromContextOrDiscard(ctx)

	s.mu.Lock()
	names := make([]string, 0, len(s.timings))
	for k := range s.timings {
		names = append(names, k)
	}
	sort.Strings(names)
	timings := make([]Timing, len(names))
	for i, k := range names {
		timings[i] = *s.timings[k]
	}
	s.mu.Unlock()

	for i, name := range names {
		t := timings[i]
		log.Info("timing", "name", name, "count", t.Count, "total", t.Total.String(), "min", t.Min.String(), "max", t.Max.String(), "average", t.Average.String())
	}
}
