// Package lifecycle sequences job store writes with customer notifications
// and holds the per-session staged status changes.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/notify"
	"github.com/hairizuan-noorazman/repair-desk/shop"
)

var (
	ErrDeleteNotConfirmed = errors.New("delete requires confirmation")
	ErrNoEmail            = errors.New("job has no email address")
)

// maxNumberAttempts bounds the job number collision check.
const maxNumberAttempts = 5

// Confirmation is the caller's explicit intent to delete.
type Confirmation bool

const (
	NotConfirmed Confirmation = false
	Confirmed    Confirmation = true
)

// Intake is the new job form.
type Intake struct {
	CustomerName  string `json:"customer_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	DeviceType    string `json:"device_type"`
	DeviceBrand   string `json:"device_brand"`
	DeviceModel   string `json:"device_model"`
	SerialNumber  string `json:"serial_number"`
	ReceivedItems string `json:"received_items"`
	Problem       string `json:"problem"`
	EstimatedCost string `json:"estimated_cost"`
	Notes         string `json:"notes"`
}

// Result is a persisted job plus the outcome of its notification, if one was
// attempted.
type Result struct {
	Job    *job.Job         `json:"job"`
	Notice *notify.Delivery `json:"notification,omitempty"`
}

// Notifier dispatches a customer email. *notify.Dispatcher implements it.
type Notifier interface {
	Dispatch(ctx context.Context, msg notify.Message) *notify.Delivery
}

// Controller runs job actions for one session.
type Controller struct {
	store    job.Store
	notifier Notifier
	shop     shop.Profile
	logger   logger.Logger
	now      func() time.Time
	number   func(prefix string, now time.Time) string

	mu     sync.Mutex
	staged map[uuid.UUID]job.Status
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the clock used for job numbers and received dates.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithNumberGenerator replaces the job number generator.
func WithNumberGenerator(fn func(prefix string, now time.Time) string) Option {
	return func(c *Controller) {
		c.number = fn
	}
}

// NewController creates a controller over a shared store and notifier.
func NewController(store job.Store, notifier Notifier, profile shop.Profile, log logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		notifier: notifier,
		shop:     profile,
		logger:   log,
		now:      time.Now,
		number:   job.NewNumber,
		staged:   make(map[uuid.UUID]job.Status),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateJob validates the intake, stores a new Received job and sends the
// intake email when the customer left an address.
func (c *Controller) CreateJob(ctx context.Context, in Intake) (*Result, error) {
	now := c.now()

	deviceType := job.DeviceType(strings.TrimSpace(in.DeviceType))
	if deviceType == "" {
		deviceType = job.DeviceLaptop
	}

	j := &job.Job{
		CustomerName:  strings.TrimSpace(in.CustomerName),
		Phone:         strings.TrimSpace(in.Phone),
		Email:         strings.TrimSpace(in.Email),
		DeviceType:    deviceType,
		DeviceBrand:   strings.TrimSpace(in.DeviceBrand),
		DeviceModel:   strings.TrimSpace(in.DeviceModel),
		SerialNumber:  strings.TrimSpace(in.SerialNumber),
		ReceivedItems: in.ReceivedItems,
		Problem:       in.Problem,
		EstimatedCost: strings.TrimSpace(in.EstimatedCost),
		Notes:         in.Notes,
		Status:        job.StatusReceived,
		ReceivedDate:  job.ReceivedDate(now),
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}

	number, err := c.allocateNumber(ctx, now)
	if err != nil {
		return nil, err
	}
	j.Number = number

	if err := c.store.Create(ctx, j); err != nil {
		c.logger.Error(ctx, "failed to create job", map[string]interface{}{
			"job_number": j.Number,
			"error":      err.Error(),
		})
		return nil, err
	}

	c.logger.Info(ctx, "job created", map[string]interface{}{
		"job_id":     j.ID.String(),
		"job_number": j.Number,
	})

	result := &Result{Job: j}
	if j.HasEmail() {
		result.Notice = c.dispatch(ctx, notify.KindNewJob, j)
	}
	return result, nil
}

func (c *Controller) allocateNumber(ctx context.Context, now time.Time) (string, error) {
	var number string
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number = c.number(c.shop.JobPrefix, now)
		exists, err := c.store.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}

	c.logger.Warn(ctx, "job number already in use, accepting duplicate", map[string]interface{}{
		"job_number": number,
		"attempts":   maxNumberAttempts,
	})
	return number, nil
}

// StageStatusChange records a proposed status. Nothing is written until commit.
func (c *Controller) StageStatusChange(id uuid.UUID, status job.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[id] = status
}

// Staged returns the staged status for id.
func (c *Controller) Staged(id uuid.UUID) (job.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.staged[id]
	return status, ok
}

// StagedChanges returns a copy of every staged status.
func (c *Controller) StagedChanges() map[uuid.UUID]job.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uuid.UUID]job.Status, len(c.staged))
	for id, status := range c.staged {
		out[id] = status
	}
	return out
}

// DiscardStaged drops the staged status for id, if any.
func (c *Controller) DiscardStaged(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.staged, id)
}

// clearStaged removes the staged entry only if it still holds status, so a
// newer stage made while the write was in flight survives.
func (c *Controller) clearStaged(id uuid.UUID, status job.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staged[id] == status {
		delete(c.staged, id)
	}
}

// CommitStatusChange writes the staged status for id. It returns a nil
// result when nothing is staged or the staged status is already persisted.
// On a store failure the staged status is kept so the commit can be retried.
func (c *Controller) CommitStatusChange(ctx context.Context, id uuid.UUID) (*Result, error) {
	status, ok := c.Staged(id)
	if !ok {
		return nil, nil
	}
	if !status.IsValid() {
		return nil, job.ErrInvalidStatus
	}

	j, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Status == status {
		c.clearStaged(id, status)
		return nil, nil
	}

	if err := c.store.UpdateStatus(ctx, id, status); err != nil {
		c.logger.Error(ctx, "failed to commit status change", map[string]interface{}{
			"job_id": id.String(),
			"status": string(status),
			"error":  err.Error(),
		})
		return nil, err
	}
	c.clearStaged(id, status)

	previous := j.Status
	j.Status = status
	c.logger.Info(ctx, "job status changed", map[string]interface{}{
		"job_id":     id.String(),
		"job_number": j.Number,
		"from":       string(previous),
		"to":         string(status),
	})

	result := &Result{Job: j}
	if j.HasEmail() {
		result.Notice = c.dispatch(ctx, notify.KindStatusUpdate, j)
	}
	return result, nil
}

// DeleteJob permanently removes a job. A job that is already gone counts as
// deleted.
func (c *Controller) DeleteJob(ctx context.Context, id uuid.UUID, confirm Confirmation) error {
	if confirm != Confirmed {
		return ErrDeleteNotConfirmed
	}

	err := c.store.Delete(ctx, id)
	if err != nil && !errors.Is(err, job.ErrJobNotFound) {
		c.logger.Error(ctx, "failed to delete job", map[string]interface{}{
			"job_id": id.String(),
			"error":  err.Error(),
		})
		return err
	}

	c.DiscardStaged(id)
	c.logger.Info(ctx, "job deleted", map[string]interface{}{
		"job_id": id.String(),
	})
	return nil
}

// Notify re-sends the status update email for the job's persisted status.
func (c *Controller) Notify(ctx context.Context, id uuid.UUID) (*Result, error) {
	j, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !j.HasEmail() {
		return nil, ErrNoEmail
	}
	return &Result{Job: j, Notice: c.dispatch(ctx, notify.KindStatusUpdate, j)}, nil
}

func (c *Controller) dispatch(ctx context.Context, kind notify.Kind, j *job.Job) *notify.Delivery {
	msg, err := notify.BuildMessage(kind, c.shop, j)
	if err != nil {
		c.logger.Error(ctx, "failed to build notification", map[string]interface{}{
			"job_id": j.ID.String(),
			"kind":   string(kind),
			"error":  err.Error(),
		})
		return &notify.Delivery{
			Method:  notify.MethodFallback,
			Compose: notify.NewCompose(notify.BasicMessage(c.shop, j)),
			Cause:   err.Error(),
		}
	}
	return c.notifier.Dispatch(ctx, msg)
}
