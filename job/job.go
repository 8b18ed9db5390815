package job

import (
	"errors"
	"fmt"
	"math/rand"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrInvalidStatus    = errors.New("invalid job status")
	ErrStoreUnavailable = errors.New("job store unavailable")
)

// Status is the repair stage of a job. Any status may move to any other.
type Status string

const (
	StatusReceived     Status = "Received"
	StatusInProgress   Status = "In progress"
	StatusWaitingParts Status = "Waiting parts"
	StatusCompleted    Status = "Completed"
	StatusCollected    Status = "Collected"
)

// Statuses lists every status in board order.
var Statuses = []Status{
	StatusReceived,
	StatusInProgress,
	StatusWaitingParts,
	StatusCompleted,
	StatusCollected,
}

func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusInProgress, StatusWaitingParts, StatusCompleted, StatusCollected:
		return true
	}
	return false
}

// ParseStatus converts a user supplied value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.TrimSpace(v))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	return s, nil
}

type DeviceType string

const (
	DeviceLaptop  DeviceType = "Laptop"
	DeviceDesktop DeviceType = "Desktop"
	DevicePhone   DeviceType = "Phone"
	DeviceTablet  DeviceType = "Tablet"
	DevicePrinter DeviceType = "Printer"
	DeviceOther   DeviceType = "Other"
)

func (d DeviceType) IsValid() bool {
	switch d {
	case DeviceLaptop, DeviceDesktop, DevicePhone, DeviceTablet, DevicePrinter, DeviceOther:
		return true
	}
	return false
}

// Job is a repair ticket tracked from intake to collection.
type Job struct {
	ID            uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Number        string     `json:"job_id" gorm:"column:job_number;type:varchar(32);not null;index:idx_repair_jobs_number"`
	CustomerName  string     `json:"customer_name" gorm:"type:varchar(255);not null"`
	Phone         string     `json:"phone" gorm:"type:varchar(64);not null"`
	Email         string     `json:"email" gorm:"type:varchar(255)"`
	DeviceType    DeviceType `json:"device_type" gorm:"type:varchar(20);not null;default:'Laptop'"`
	DeviceBrand   string     `json:"device_brand" gorm:"type:varchar(100)"`
	DeviceModel   string     `json:"device_model" gorm:"type:varchar(255);not null"`
	SerialNumber  string     `json:"serial_number" gorm:"type:varchar(255);not null"`
	ReceivedItems string     `json:"received_items" gorm:"type:text"`
	Problem       string     `json:"problem" gorm:"type:text;not null"`
	EstimatedCost string     `json:"estimated_cost" gorm:"type:varchar(64)"`
	Notes         string     `json:"notes" gorm:"type:text"`
	Status        Status     `json:"status" gorm:"type:varchar(20);not null;default:'Received'"`
	ReceivedDate  string     `json:"received_date" gorm:"type:char(10)"`
	CreatedAt     time.Time  `json:"created_at" gorm:"index:idx_repair_jobs_created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Job) TableName() string {
	return "repair_jobs"
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// HasEmail reports whether the customer left an address for notifications.
func (j *Job) HasEmail() bool {
	return strings.TrimSpace(j.Email) != ""
}

// ValidationError lists intake fields that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid job: " + strings.Join(e.Fields, ", ")
}

// Validate checks required intake fields. Email is optional but must parse
// when present.
func (j *Job) Validate() error {
	var fields []string
	required := []struct {
		name  string
		value string
	}{
		{"customer_name", j.CustomerName},
		{"phone", j.Phone},
		{"device_model", j.DeviceModel},
		{"serial_number", j.SerialNumber},
		{"problem", j.Problem},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields = append(fields, r.name)
		}
	}
	if j.HasEmail() {
		if _, err := mail.ParseAddress(j.Email); err != nil {
			fields = append(fields, "email")
		}
	}
	if !j.DeviceType.IsValid() {
		fields = append(fields, "device_type")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if !j.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// NewNumber builds a human readable job number of the form
// <prefix>-<year><3 digits>. The suffix is random, so numbers can repeat.
func NewNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d%03d", prefix, now.Year(), rand.Intn(1000))
}

// ReceivedDate formats the intake date the way it is stored on a job.
func ReceivedDate(now time.Time) string {
	return now.Format(time.DateOnly)
}
