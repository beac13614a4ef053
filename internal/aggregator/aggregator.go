package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/model"
)

const epsWindow = 5 * time.Second

// Stats holds a point-in-time snapshot of aggregated metrics.
type Stats struct {
	Uptime       string           `json:"uptime"`
	TotalEvents  int64            `json:"total_events"`
	EPS          float64          `json:"eps"`
	LevelCounts  map[string]int64 `json:"level_counts"`
	Unrecognized int64            `json:"unrecognized"`
	Sessions     int              `json:"sessions"`
	DroppedLogs  int64            `json:"dropped_logs"`
	FilesWatched int              `json:"files_watched"`
}

// Aggregator subscribes to the Hub and computes time-windowed metrics.
type Aggregator struct {
	mu           sync.RWMutex
	startTime    time.Time
	totalEvents  int64
	unrecognized int64
	levelCounts  map[string]int64
	sessions     map[string]struct{}
	window       []time.Time // arrival times for EPS calculation
	dropped      func() int64
	fileCount    func() int
	lines        <-chan model.LogLine
	metrics      *Metrics
}

// New creates an Aggregator that reads from the given Hub subscriber channel.
// droppedFn and fileCountFn provide live values from Hub and Watcher respectively.
// metrics may be nil.
func New(lines <-chan model.LogLine, droppedFn func() int64, fileCountFn func() int, metrics *Metrics) *Aggregator {
	return &Aggregator{
		startTime:   time.Now(),
		levelCounts: make(map[string]int64),
		sessions:    make(map[string]struct{}),
		dropped:     droppedFn,
		fileCount:   fileCountFn,
		lines:       lines,
		metrics:     metrics,
	}
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	counts := make(map[string]int64, len(a.levelCounts))
	for k, v := range a.levelCounts {
		counts[k] = v
	}

	cutoff := time.Now().Add(-epsWindow)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Stats{
		Uptime:       time.Since(a.startTime).Truncate(time.Second).String(),
		TotalEvents:  a.totalEvents,
		EPS:          float64(recent) / epsWindow.Seconds(),
		LevelCounts:  counts,
		Unrecognized: a.unrecognized,
		Sessions:     len(a.sessions),
		DroppedLogs:  a.dropped(),
		FilesWatched: a.fileCount(),
	}
}

// Start begins consuming lines and updating metrics. Blocks until context is cancelled.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-a.lines:
			if !ok {
				return
			}
			a.record(line)
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) record(line model.LogLine) {
	level := fwlogs.LevelName(line.Severity)

	a.mu.Lock()
	a.totalEvents++
	a.levelCounts[level]++
	if line.Unrecognized {
		a.unrecognized++
	}
	if line.Session != "" {
		a.sessions[line.Session] = struct{}{}
	}
	a.window = append(a.window, time.Now())
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.LinesTotal.WithLabelValues(level).Inc()
		if line.Unrecognized {
			a.metrics.UnrecognizedTotal.Inc()
		}
		a.metrics.LastTimestamp.WithLabelValues(line.Source).Set(float64(line.Timestamp))
	}
}

// prune removes arrival times older than the EPS window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-epsWindow)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
