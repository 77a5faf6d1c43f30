package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/markethunt/backend/internal/scheduler"
)

// JobRegistry is the read side of *scheduler.Scheduler
type JobRegistry interface {
	GetAllJobs() []string
	NextRun(jobName string) (time.Time, error)
	GetJobStats() map[string]scheduler.JobStats
	GetJobHistory(jobName string) (*scheduler.JobHistory, error)
}

// JobStatus is one entry of GET /api/scheduler/jobs
type JobStatus struct {
	scheduler.JobStats
	NextRun *time.Time `json:"next_run,omitempty"`
}

// SchedulerHandler reports background job state
type SchedulerHandler struct {
	jobs JobRegistry
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(jobs JobRegistry) *SchedulerHandler {
	return &SchedulerHandler{jobs: jobs}
}

// ListJobs returns every registered job with its next run and statistics
// GET /api/scheduler/jobs
func (h *SchedulerHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	stats := h.jobs.GetJobStats()
	names := h.jobs.GetAllJobs()

	out := make([]JobStatus, 0, len(names))
	for _, name := range names {
		st, ok := stats[name]
		if !ok {
			continue
		}
		status := JobStatus{JobStats: st}
		if next, err := h.jobs.NextRun(name); err == nil && !next.IsZero() {
			status.NextRun = &next
		}
		out = append(out, status)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  out,
		"count": len(out),
	})
}

// GetJobHistory returns the recent runs of one job, newest first
// GET /api/scheduler/jobs/{name}/history
func (h *SchedulerHandler) GetJobHistory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	history, err := h.jobs.GetJobHistory(name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	results := make([]scheduler.JobResult, 0, len(history.Results))
	for i := len(history.Results) - 1; i >= 0; i-- {
		results = append(results, history.Results[i])
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job":     name,
		"results": results,
		"count":   len(results),
	})
}
