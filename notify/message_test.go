package notify

import (
	"testing"

	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob() *job.Job {
	return &job.Job{
		Number:        "JOB-2026042",
		CustomerName:  "Jane Perera",
		Phone:         "0771234567",
		Email:         " jane@x.com ",
		DeviceType:    job.DeviceLaptop,
		DeviceModel:   "XPS 13",
		SerialNumber:  "SN001",
		Problem:       "Won't boot",
		EstimatedCost: "15000",
		Status:        job.StatusReceived,
	}
}

func TestNewJobMessage(t *testing.T) {
	msg, err := NewJobMessage(shop.DefaultProfile(), newTestJob())
	require.NoError(t, err)

	assert.Equal(t, "jane@x.com", msg.To)
	assert.Equal(t, "Repair Job Received - #JOB-2026042 - Dream Computer Solutions", msg.Subject)
	assert.Contains(t, msg.Text, "Dear Jane Perera,")
	assert.Contains(t, msg.Text, "Device: XPS 13 (Laptop)")
	assert.Contains(t, msg.Text, "Estimated Cost (LKR): 15000")
	assert.Contains(t, msg.Text, "We build your dream.")
	assert.Contains(t, msg.Text, "94 76 987 3327")
}

func TestStatusUpdateMessage(t *testing.T) {
	j := newTestJob()
	j.Status = job.StatusCompleted

	msg, err := StatusUpdateMessage(shop.DefaultProfile(), j)
	require.NoError(t, err)

	assert.Equal(t, "Update on Repair Job #JOB-2026042 - Completed", msg.Subject)
	assert.Contains(t, msg.Text, "has changed to: Completed.")
	assert.Contains(t, msg.Text, "Device: XPS 13")
}

func TestBuildMessage(t *testing.T) {
	j := newTestJob()

	msg, err := BuildMessage(KindStatusUpdate, shop.DefaultProfile(), j)
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "Update on Repair Job")

	_, err = BuildMessage(Kind("reminder"), shop.DefaultProfile(), j)
	assert.Error(t, err)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"encoded upper", "a%0D%0Ab", "a\nb"},
		{"encoded lower", "a%0d%0ab", "a\nb"},
		{"crlf", "a\r\nb", "a\nb"},
		{"plain", "a\nb", "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestBasicMessage(t *testing.T) {
	j := newTestJob()
	j.Status = job.StatusInProgress

	msg := BasicMessage(shop.DefaultProfile(), j)

	assert.Equal(t, "jane@x.com", msg.To)
	assert.Equal(t, "Repair Job #JOB-2026042 - Dream Computer Solutions", msg.Subject)
	assert.Contains(t, msg.Text, "Dear Jane Perera,")
	assert.Contains(t, msg.Text, "is currently: In progress.")
}
