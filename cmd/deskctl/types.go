package main

import (
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/notify"
	"github.com/hairizuan-noorazman/repair-desk/view"
)

// ErrorResponse matches handlers.ErrorResponse and handlers.ValidationErrorResponse.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// SuccessResponse matches handlers.SuccessResponse.
type SuccessResponse struct {
	Message string `json:"message"`
}

// LoginRequest matches handlers.LoginRequest.
type LoginRequest struct {
	AccessCode string `json:"access_code,omitempty"`
}

// JobView matches handlers.JobView.
type JobView struct {
	job.Job
	StagedStatus job.Status `json:"staged_status,omitempty"`
}

// BoardResponse matches handlers.BoardResponse.
type BoardResponse struct {
	Jobs   []JobView   `json:"jobs"`
	Stats  view.Stats  `json:"stats"`
	Filter view.Filter `json:"filter"`
}

// ActionResponse matches handlers.ActionResponse.
type ActionResponse struct {
	Job          *job.Job         `json:"job,omitempty"`
	Changed      bool             `json:"changed"`
	Notification *notify.Delivery `json:"notification,omitempty"`
	ComposeURL   string           `json:"compose_url,omitempty"`
}

// StageRequest matches handlers.StageRequest.
type StageRequest struct {
	Status string `json:"status"`
}
