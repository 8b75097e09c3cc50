// Package profiler - Stage timing for the inference pipelines.
package profiler

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StageStats summarizes the recorded durations of one stage.
type StageStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Average returns the mean duration of the stage.
func (s StageStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// timeTracker tracks operation timing statistics.
type timeTracker struct {
	order int
	stats StageStats
}

// Timer records how long each named pipeline stage takes.
//
// It is safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	stages map[string]*timeTracker
	now    func() time.Time
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer {
	return &Timer{
		stages: make(map[string]*timeTracker),
		now:    time.Now,
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the stage to track.
//
// Returns:
//   - func(): Call it when the stage completes.
func (t *Timer) StartOperation(name string) func() {
	start := t.now()
	return func() {
		t.Record(name, t.now().Sub(start))
	}
}

// Record adds one duration to a stage.
func (t *Timer) Record(name string, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tracker, exists := t.stages[name]
	if !exists {
		tracker = &timeTracker{
			order: len(t.stages),
			stats: StageStats{Name: name, Min: duration, Max: duration},
		}
		t.stages[name] = tracker
	}

	s := &tracker.stats
	s.Count++
	s.Total += duration
	if duration < s.Min {
		s.Min = duration
	}
	if duration > s.Max {
		s.Max = duration
	}
}

// Stats returns a snapshot of every stage in the order it was first recorded.
func (t *Timer) Stats() []StageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	trackers := make([]*timeTracker, 0, len(t.stages))
	for _, tracker := range t.stages {
		trackers = append(trackers, tracker)
	}
	sort.Slice(trackers, func(i, j int) bool { return trackers[i].order < trackers[j].order })

	out := make([]StageStats, len(trackers))
	for i, tracker := range trackers {
		out[i] = tracker.stats
	}
	return out
}

// Total returns the sum of all recorded stage durations.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, s := range t.Stats() {
		total += s.Total
	}
	return total
}

// Log writes one debug entry per stage.
func (t *Timer) Log(logger logrus.FieldLogger) {
	for _, s := range t.Stats() {
		logger.WithFields(logrus.Fields{
			"stage":    s.Name,
			"count":    s.Count,
			"duration": s.Total.Round(time.Microsecond).String(),
		}).Debug("stage timing")
	}
}
