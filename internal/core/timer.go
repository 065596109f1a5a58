package core

import "time"

// StepScheduler gates simulation steps to at most one per interval,
// independent of how often frames arrive.
type StepScheduler struct {
	interval time.Duration
	last     time.Time
}

// NewStepScheduler returns a scheduler whose first step is allowed one
// interval after start. An interval <= 0 allows a step on every frame.
func NewStepScheduler(interval time.Duration, start time.Time) StepScheduler {
	if interval < 0 {
		interval = 0
	}
	return StepScheduler{interval: interval, last: start}
}

// ShouldStep reports whether a step may run at now. Only a true result
// records now as the last step time.
func (s *StepScheduler) ShouldStep(now time.Time) bool {
	if now.Sub(s.last) < s.interval {
		return false
	}
	s.last = now
	return true
}

// MarkStep records now as the last step time without checking the interval.
func (s *StepScheduler) MarkStep(now time.Time) { s.last = now }

// Interval returns the minimum time between steps.
func (s StepScheduler) Interval() time.Duration { return s.interval }

// LastStep returns the time of the most recent permitted step.
func (s StepScheduler) LastStep() time.Time { return s.last }
