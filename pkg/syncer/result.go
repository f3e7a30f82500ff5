package syncer

import (
	"fmt"
	"strings"
	"time"
)

// Result reports the outcome of a single sync run.
type Result struct {
	// Creation phase counters.
	Created         int `json:"created"`
	SkippedExisting int `json:"skipped_existing"`
	SkippedBlocked  int `json:"skipped_blocked"`

	// Removal phase counters.
	Removed            int `json:"removed"`
	RemovedBlocked     int `json:"removed_blocked"`
	SkippedImmune      int `json:"skipped_immune"`
	SkippedUnavailable int `json:"skipped_unavailable"`

	// TotalUsers is the size of the merged roster.
	TotalUsers int `json:"total_users"`

	// Server availability observed during the probe phase, in
	// configuration order.
	AvailableServers   []string `json:"available_servers"`
	UnavailableServers []string `json:"unavailable_servers,omitempty"`

	// Errors holds per-account failures that did not abort the run.
	Errors []error `json:"-"`

	// Warnings holds non-fatal conditions such as a failed override
	// save.
	Warnings []string `json:"warnings,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`
}

// newResult creates a Result with the start time set.
func newResult() *Result {
	return &Result{StartedAt: time.Now()}
}

// finalize stamps the end time and duration.
func (r *Result) finalize() *Result {
	r.EndedAt = time.Now()
	r.Duration = r.EndedAt.Sub(r.StartedAt)
	return r
}

// addError records a per-account failure without aborting the run.
func (r *Result) addError(err error) {
	r.Errors = append(r.Errors, err)
}

// addWarning records a non-fatal condition.
func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Success reports whether the run completed without per-account errors.
func (r *Result) Success() bool {
	return len(r.Errors) == 0
}

// Summary returns a one-line human-readable digest of the run.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d users from %d servers: %d created, %d existing, %d blocked",
		r.TotalUsers, len(r.AvailableServers), r.Created, r.SkippedExisting, r.SkippedBlocked)
	fmt.Fprintf(&b, ", %d removed", r.Removed+r.RemovedBlocked)
	if r.SkippedImmune > 0 {
		fmt.Fprintf(&b, ", %d immune", r.SkippedImmune)
	}
	if r.SkippedUnavailable > 0 {
		fmt.Fprintf(&b, ", %d protected", r.SkippedUnavailable)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, ", %d errors", len(r.Errors))
	}
	fmt.Fprintf(&b, " in %s", r.Duration.Round(time.Millisecond))
	return b.String()
}
