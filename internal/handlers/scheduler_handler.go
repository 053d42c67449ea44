package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
)

// SchedulerHandler exposes the background job registry
type SchedulerHandler struct {
	scheduler JobScheduler
	logger    arbor.ILogger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler JobScheduler, logger arbor.ILogger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// ListJobsHandler handles GET /jobs
func (h *SchedulerHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": h.scheduler.GetAllJobStatuses(),
	})
}

// TriggerJobHandler handles POST /jobs/{name}/run
func (h *SchedulerHandler) TriggerJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	name := PathID(r, "/jobs/")
	if _, err := h.scheduler.GetJobStatus(name); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.scheduler.TriggerJob(name); err != nil {
		h.logger.Error().Err(err).Str("job", name).Msg("Failed to trigger job")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().Str("job", name).Msg("Job triggered via API")
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"message": "Job " + name + " triggered",
	})
}
