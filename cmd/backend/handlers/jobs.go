package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/repair-desk/archive"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/lifecycle"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/notify"
	"github.com/hairizuan-noorazman/repair-desk/shop"
	"github.com/hairizuan-noorazman/repair-desk/view"
)

// boardWait bounds how long a request waits for the first live snapshot.
const boardWait = 10 * time.Second

// JobHandler handles job board requests for the signed-in session.
type JobHandler struct {
	jobStore job.Store
	archive  *archive.Archive
	shop     shop.Profile
	logger   logger.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobStore job.Store, arc *archive.Archive, profile shop.Profile, log logger.Logger) *JobHandler {
	return &JobHandler{
		jobStore: jobStore,
		archive:  arc,
		shop:     profile,
		logger:   log,
	}
}

// JobView is a job as the board shows it, with its unsaved status if any.
type JobView struct {
	*job.Job
	StagedStatus job.Status `json:"staged_status,omitempty"`
}

// BoardResponse is the filtered board.
type BoardResponse struct {
	Jobs   []JobView   `json:"jobs"`
	Stats  view.Stats  `json:"stats"`
	Filter view.Filter `json:"filter"`
}

// ActionResponse reports the outcome of a job action and its notification.
type ActionResponse struct {
	Job          *job.Job         `json:"job,omitempty"`
	Changed      bool             `json:"changed"`
	Notification *notify.Delivery `json:"notification,omitempty"`
	ComposeURL   string           `json:"compose_url,omitempty"`
}

func newActionResponse(result *lifecycle.Result) ActionResponse {
	if result == nil {
		return ActionResponse{}
	}
	resp := ActionResponse{Job: result.Job, Changed: true, Notification: result.Notice}
	if result.Notice.Fallback() && result.Notice.Compose != nil {
		resp.ComposeURL = result.Notice.Compose.URL
	}
	return resp
}

// StageRequest proposes a new status.
type StageRequest struct {
	Status string `json:"status"`
}

// StageResponse echoes the staged status.
type StageResponse struct {
	JobID        uuid.UUID  `json:"id"`
	StagedStatus job.Status `json:"staged_status"`
}

func waitBoard(ctx context.Context, b *view.Board) error {
	ctx, cancel := context.WithTimeout(ctx, boardWait)
	defer cancel()
	return b.WaitReady(ctx)
}

func viewsOf(jobs []*job.Job, staged map[uuid.UUID]job.Status) []JobView {
	views := make([]JobView, len(jobs))
	for i, j := range jobs {
		views[i] = JobView{Job: j, StagedStatus: staged[j.ID]}
	}
	return views
}

// List applies q and status to the board filter and returns the visible jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	if query.Has("q") || query.Has("status") {
		status := query.Get("status")
		if status == "" {
			status = view.StatusAll
		}
		if status != view.StatusAll && !job.Status(status).IsValid() {
			respondError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		ws.Board.SetFilter(view.Filter{Query: query.Get("q"), Status: status})
	}

	if err := waitBoard(r.Context(), ws.Board); err != nil {
		h.logger.Warn(r.Context(), "board not ready", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusServiceUnavailable, "job list not available yet")
		return
	}

	respondJSON(w, http.StatusOK, BoardResponse{
		Jobs:   viewsOf(ws.Board.Visible(), ws.Controller.StagedChanges()),
		Stats:  ws.Board.Stats(),
		Filter: ws.Board.Filter(),
	})
}

// Create handles job intake.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}

	var in lifecycle.Intake
	if err := parseJSON(r, &in, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := ws.Controller.CreateJob(r.Context(), in)
	if err != nil {
		respondJobError(w, r, err, "create job", h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, newActionResponse(result))
}

// GetByID returns one job.
func (h *JobHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return
	}

	j, err := h.jobStore.GetByID(r.Context(), id)
	if err != nil {
		respondJobError(w, r, err, "get job", h.logger)
		return
	}

	staged, _ := ws.Controller.Staged(id)
	respondJSON(w, http.StatusOK, JobView{Job: j, StagedStatus: staged})
}

// Stage records an unsaved status change.
func (h *JobHandler) Stage(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return
	}

	var req StageRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := job.ParseStatus(req.Status)
	if err != nil {
		respondJobError(w, r, err, "stage status", h.logger)
		return
	}

	ws.Controller.StageStatusChange(id, status)
	respondJSON(w, http.StatusOK, StageResponse{JobID: id, StagedStatus: status})
}

// Discard drops an unsaved status change.
func (h *JobHandler) Discard(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return
	}

	ws.Controller.DiscardStaged(id)
	respondSuccess(w, "staged status discarded")
}

// Commit saves the staged status and notifies the customer.
func (h *JobHandler) Commit(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return
	}

	result, err := ws.Controller.CommitStatusChange(r.Context(), id)
	if err != nil {
		respondJobError(w, r, err, "commit status", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, newActionResponse(result))
}

// Notify re-sends the status update email.
func (h *JobHandler) Notify(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return
	}

	result, err := ws.Controller.Notify(r.Context(), id)
	if err != nil {
		respondJobError(w, r, err, "notify customer", h.logger)
		return
	}

	resp := newActionResponse(result)
	resp.Changed = false
	respondJSON(w, http.StatusOK, resp)
}

// Delete removes a job when the request carries confirm=true.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return
	}

	confirm := lifecycle.NotConfirmed
	if r.URL.Query().Get("confirm") == "true" {
		confirm = lifecycle.Confirmed
	}

	if err := ws.Controller.DeleteJob(r.Context(), id, confirm); err != nil {
		respondJobError(w, r, err, "delete job", h.logger)
		return
	}

	respondSuccess(w, "job deleted")
}

// Receipt renders the printable receipt, as HTML or with format=text as
// plain text.
func (h *JobHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return
	}

	j, err := h.jobStore.GetByID(r.Context(), id)
	if err != nil {
		respondJobError(w, r, err, "load receipt", h.logger)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		text, err := view.RenderReceiptText(h.shop, j)
		if err != nil {
			respondJobError(w, r, err, "render receipt", h.logger)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.RenderReceipt(w, h.shop, j); err != nil {
		h.logger.Error(r.Context(), "failed to render receipt", map[string]interface{}{
			"job_id": id.String(),
			"error":  err.Error(),
		})
	}
}

// ArchiveReceipt stores the receipt in blob storage.
func (h *JobHandler) ArchiveReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "job")
	if !ok {
		return
	}

	j, err := h.jobStore.GetByID(r.Context(), id)
	if err != nil {
		respondJobError(w, r, err, "load receipt", h.logger)
		return
	}

	obj, err := h.archive.SaveReceipt(r.Context(), j)
	if err != nil {
		respondJobError(w, r, err, "archive receipt", h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, obj)
}
