// Package moderation implements frequency-based spam detection.
// It is called on every message, so the hot path is a mutex-guarded
// map of per-user timestamp slices rather than anything fancier.
package moderation

import (
	"fmt"
	"sync"
	"time"
)

// Strategy thresholds. "heuristic" matches normal chat bursts,
// "strict" is for servers that want earlier intervention.
const (
	StrategyHeuristic = "heuristic"
	StrategyStrict    = "strict"
)

// Tracker detects users sending too many messages inside a sliding window
type Tracker struct {
	mu         sync.Mutex
	timestamps map[string][]time.Time
	window     time.Duration
	threshold  int
}

// NewTracker builds a tracker for the given strategy name
func NewTracker(strategy string) (*Tracker, error) {
	switch strategy {
	case StrategyHeuristic, "":
		return newTracker(10*time.Second, 20), nil
	case StrategyStrict:
		return newTracker(10*time.Second, 10), nil
	default:
		return nil, fmt.Errorf("unknown spam strategy: %q", strategy)
	}
}

func newTracker(window time.Duration, threshold int) *Tracker {
	return &Tracker{
		timestamps: make(map[string][]time.Time),
		window:     window,
		threshold:  threshold,
	}
}

// CheckSpam records one message from the user at the given time and
// reports whether the user exceeded the threshold, along with the number
// of messages currently inside the window.
func (t *Tracker) CheckSpam(userID string, now time.Time) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-t.window)
	kept := t.timestamps[userID][:0]
	for _, ts := range t.timestamps[userID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.timestamps[userID] = kept

	count := len(kept)
	return count > t.threshold, count
}

// ClearUser drops tracking state for a user
func (t *Tracker) ClearUser(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.timestamps, userID)
}
