// Package view derives what the job board shows from the latest job snapshot:
// filtering, stats, CSV export and printable receipts.
package view

import (
	"strings"

	"github.com/hairizuan-noorazman/repair-desk/job"
)

// StatusAll disables the status filter.
const StatusAll = "All"

// Filter is the board's search box and status dropdown.
type Filter struct {
	Query  string `json:"q"`
	Status string `json:"status"`
}

// Match reports whether j passes both the text query and the status filter.
// Customer name, job number and serial number match case-insensitively; the
// phone number matches as typed.
func (f Filter) Match(j *job.Job) bool {
	return f.matchQuery(j) && f.matchStatus(j)
}

func (f Filter) matchQuery(j *job.Job) bool {
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(j.CustomerName), q) ||
		strings.Contains(strings.ToLower(j.Number), q) ||
		strings.Contains(strings.ToLower(j.SerialNumber), q) ||
		strings.Contains(j.Phone, f.Query)
}

func (f Filter) matchStatus(j *job.Job) bool {
	if f.Status == "" || f.Status == StatusAll {
		return true
	}
	return string(j.Status) == f.Status
}

// SearchOnly returns the filter with the status part cleared.
func (f Filter) SearchOnly() Filter {
	return Filter{Query: f.Query}
}

// StatusOnly returns the filter with the query cleared.
func (f Filter) StatusOnly() Filter {
	return Filter{Status: f.Status}
}

// Apply returns the jobs matching f in their original order.
func Apply(jobs []*job.Job, f Filter) []*job.Job {
	out := make([]*job.Job, 0, len(jobs))
	for _, j := range jobs {
		if f.Match(j) {
			out = append(out, j)
		}
	}
	return out
}

// Stats are the board's header counters.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// ComputeStats counts every job not yet collected as active.
func ComputeStats(jobs []*job.Job) Stats {
	s := Stats{Total: len(jobs)}
	for _, j := range jobs {
		if j.Status != job.StatusCollected {
			s.Active++
		}
		if j.Status == job.StatusCompleted {
			s.Completed++
		}
	}
	return s
}
