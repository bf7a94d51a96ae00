package logger

import (
	"time"
)

// StageTracker reports progress of a long pipeline stage (perimeter load,
// template fill) at fixed intervals instead of per row.
type StageTracker struct {
	logger      Logger
	stage       string
	total       int
	current     int
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
}

// NewStageTracker creates a tracker for a stage processing total items.
// A total of 0 means the item count is unknown up front.
func NewStageTracker(log Logger, stage string, total int) *StageTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	now := time.Now()
	t := &StageTracker{
		logger:      log.WithComponent("progress"),
		stage:       stage,
		total:       total,
		startTime:   now,
		lastLogTime: now,
		logInterval: 5 * time.Second,
	}
	t.logger.WithFields(Fields{
		"stage": stage,
		"total": total,
	}).Info("Starting stage")
	return t
}

// Increment advances the counter by one processed item
func (t *StageTracker) Increment() {
	t.current++
	now := time.Now()
	if now.Sub(t.lastLogTime) >= t.logInterval {
		fields := Fields{
			"stage":   t.stage,
			"done":    t.current,
			"elapsed": now.Sub(t.startTime).Round(time.Second).String(),
		}
		if t.total > 0 {
			fields["total"] = t.total
			fields["percent"] = float64(t.current) * 100.0 / float64(t.total)
		}
		t.logger.WithFields(fields).Info("Stage progress")
		t.lastLogTime = now
	}
}

// Done logs the stage completion with the final count and duration
func (t *StageTracker) Done() {
	t.logger.WithFields(Fields{
		"stage":    t.stage,
		"done":     t.current,
		"duration": time.Since(t.startTime).Round(time.Millisecond).String(),
	}).Info("Stage complete")
}
