// Package visit implements the visitor-counting flow: a local throttle
// deciding whether a page load counts, and a syncer that drives the shared
// counter and keeps a live view of it.
package visit

import "time"

// ThrottleWindow is the minimum elapsed time before a repeat visit from the
// same device counts again.
const ThrottleWindow = 2 * time.Hour

// ShouldCountVisit reports whether the current visit should increment the
// shared counter. lastRecorded is the zero time when the device has no
// record. Clock skew or manually cleared local state causes over-counting;
// that is accepted behavior.
func ShouldCountVisit(now, lastRecorded time.Time) bool {
	if lastRecorded.IsZero() {
		return true
	}
	return now.Sub(lastRecorded) > ThrottleWindow
}
