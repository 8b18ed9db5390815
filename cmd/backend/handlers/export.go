package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/repair-desk/archive"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/session"
	"github.com/hairizuan-noorazman/repair-desk/view"
)

// ExportHandler serves CSV exports of the board.
type ExportHandler struct {
	archive *archive.Archive
	now     func() time.Time
	logger  logger.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(arc *archive.Archive, log logger.Logger) *ExportHandler {
	return &ExportHandler{archive: arc, now: time.Now, logger: log}
}

// exportJobs picks the full list, or the visible subset for scope=filtered.
func (h *ExportHandler) exportJobs(w http.ResponseWriter, r *http.Request, ws *session.Workspace) ([]*job.Job, bool) {
	if err := waitBoard(r.Context(), ws.Board); err != nil {
		respondError(w, http.StatusServiceUnavailable, "job list not available yet")
		return nil, false
	}
	if r.URL.Query().Get("scope") == "filtered" {
		return ws.Board.Visible(), true
	}
	return ws.Board.Jobs(), true
}

// Download streams the CSV export.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}
	jobs, ok := h.exportJobs(w, r, ws)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", view.ExportFilename(h.now())))
	w.WriteHeader(http.StatusOK)
	if err := view.WriteCSV(w, jobs); err != nil {
		h.logger.Error(r.Context(), "failed to write csv export", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Save archives the CSV export.
func (h *ExportHandler) Save(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspaceOrRespond(w, r)
	if !ok {
		return
	}
	jobs, ok := h.exportJobs(w, r, ws)
	if !ok {
		return
	}

	obj, err := h.archive.SaveExport(r.Context(), h.now(), jobs)
	if err != nil {
		h.logger.Error(r.Context(), "failed to archive export", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to archive export")
		return
	}

	respondJSON(w, http.StatusCreated, obj)
}

// List returns the archived exports.
func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	objects, err := h.archive.ListExports(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to list exports", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list exports")
		return
	}
	if objects == nil {
		objects = []archive.Object{}
	}

	respondJSON(w, http.StatusOK, objects)
}

// Get streams one archived export.
func (h *ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rc, err := h.archive.OpenExport(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, archive.ErrInvalidKey):
			respondError(w, http.StatusBadRequest, "invalid export name")
		case errors.Is(err, archive.ErrObjectNotFound):
			respondError(w, http.StatusNotFound, "export not found")
		default:
			h.logger.Error(r.Context(), "failed to open export", map[string]interface{}{
				"name":  name,
				"error": err.Error(),
			})
			respondError(w, http.StatusInternalServerError, "failed to open export")
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}
