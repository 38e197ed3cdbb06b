package loader

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// RunState represents the current state of a load run
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCommitted RunState = "committed"
	RunStateAborted   RunState = "aborted"
)

// EntityResult represents the outcome of one entity step
type EntityResult struct {
	Entity            model.Entity   `json:"entity"`
	Success           bool           `json:"success"`
	RowsRead          int            `json:"rows_read"`
	RowsLoaded        int64          `json:"rows_loaded"`
	MissingKeys       int            `json:"missing_keys"`
	DuplicatesDropped int            `json:"duplicates_dropped"`
	Anomalies         map[string]int `json:"anomalies,omitempty"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time"`
	Duration          time.Duration  `json:"duration_ns"`
}

// newEntityResult initializes a result for an entity step
func newEntityResult(entity model.Entity) *EntityResult {
	return &EntityResult{
		Entity:    entity,
		StartTime: time.Now(),
	}
}

// complete marks the step as finished and calculates duration
func (r *EntityResult) complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}

// AnomalyTotal returns the number of anomalies across all reasons
func (r *EntityResult) AnomalyTotal() int {
	total := 0
	for _, n := range r.Anomalies {
		total += n
	}
	return total
}

// RunReport is the outcome of one load run
type RunReport struct {
	RunID     string           `json:"run_id"`
	State     RunState         `json:"state"`
	LoadedAt  time.Time        `json:"loaded_at"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Duration  time.Duration    `json:"duration_ns"`
	Entities  []*EntityResult  `json:"entities"`
	Error     *ErrorDescriptor `json:"error,omitempty"`
}

// Succeeded reports whether the run committed
func (r *RunReport) Succeeded() bool {
	return r.State == RunStateCommitted
}

// TotalRowsLoaded sums rows loaded across entities
func (r *RunReport) TotalRowsLoaded() int64 {
	var total int64
	for _, e := range r.Entities {
		total += e.RowsLoaded
	}
	return total
}

// Summary renders a human-readable report of the run
func (r *RunReport) Summary() string {
	var sb strings.Builder

	sb.WriteString("Load Run Report\n")
	sb.WriteString("===============\n")
	sb.WriteString(fmt.Sprintf("Run ID:   %s\n", r.RunID))
	sb.WriteString(fmt.Sprintf("State:    %s\n", r.State))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", formatDuration(r.Duration)))
	sb.WriteString(fmt.Sprintf("Rows:     %d loaded\n\n", r.TotalRowsLoaded()))

	for _, e := range r.Entities {
		status := "ok"
		if !e.Success {
			status = "FAILED"
		}
		sb.WriteString(fmt.Sprintf("  %-13s %-6s read=%d loaded=%d duplicates=%d missing_keys=%d anomalies=%d (%s)\n",
			e.Entity, status, e.RowsRead, e.RowsLoaded, e.DuplicatesDropped, e.MissingKeys,
			e.AnomalyTotal(), formatDuration(e.Duration)))

		reasons := make([]string, 0, len(e.Anomalies))
		for reason := range e.Anomalies {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			sb.WriteString(fmt.Sprintf("      %-28s %d\n", reason, e.Anomalies[reason]))
		}
	}

	if r.Error != nil {
		sb.WriteString(fmt.Sprintf("\nError: %s (code=%s state=%s)\n", r.Error.Message, r.Error.Code, r.Error.State))
	}

	return sb.String()
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
