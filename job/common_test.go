package job

import (
	"testing"
	"time"

	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/testutil"
	"gorm.io/gorm"
)

// setupTestStore creates a test database, feed and job store.
func setupTestStore(t *testing.T) (*gorm.DB, *MySQLStore) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Job{})

	feed := NewFeed()
	t.Cleanup(feed.Close)

	clock := testutil.NewClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	store := NewMySQLStore(db, feed, logger.NewTestLogger(), WithClock(clock.Now))

	return db, store
}

func newTestJob(name string) *Job {
	return &Job{
		Number:       "JOB-2026001",
		CustomerName: name,
		Phone:        "0771234567",
		Email:        "jane@x.com",
		DeviceType:   DeviceLaptop,
		DeviceModel:  "XPS 13",
		SerialNumber: "SN001",
		Problem:      "Won't boot",
		Status:       StatusReceived,
		ReceivedDate: "2026-03-14",
	}
}
