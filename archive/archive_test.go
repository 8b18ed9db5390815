package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupArchive(t *testing.T) (*Archive, string) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)
	return New(backend, shop.DefaultProfile(), logger.NewTestLogger()), dir
}

func testJobs() []*job.Job {
	return []*job.Job{
		{ID: uuid.New(), Number: "JOB-2026001", CustomerName: "Jane Doe", Phone: "0771234567", DeviceType: job.DeviceLaptop, DeviceModel: "XPS 13", SerialNumber: "SN001", Problem: "Won't boot", Status: job.StatusReceived, ReceivedDate: "2026-03-14"},
		{ID: uuid.New(), Number: "JOB-2026002", CustomerName: "Kamal, Silva", Phone: "0719876543", DeviceType: job.DevicePhone, DeviceModel: "Pixel 7", SerialNumber: "PX7", Problem: "Cracked screen", Status: job.StatusCompleted, ReceivedDate: "2026-03-14"},
	}
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"local", Config{Type: "local", BaseDir: t.TempDir()}, false},
		{"default is local", Config{BaseDir: t.TempDir()}, false},
		{"local without dir", Config{Type: "local"}, true},
		{"s3 without bucket", Config{Type: "s3", Region: "ap-south-1"}, true},
		{"s3 without region", Config{Type: "s3", Bucket: "receipts"}, true},
		{"unknown", Config{Type: "ftp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := NewBackend(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, backend)
		})
	}
}

func TestNewS3Backend_Validation(t *testing.T) {
	_, err := NewS3Backend(context.Background(), "", "us-east-1")
	assert.Error(t, err)

	_, err = NewS3Backend(context.Background(), "bucket", "")
	assert.Error(t, err)
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"exports/a.csv", "exports/a.csv", false},
		{"exports//./a.csv", "exports/a.csv", false},
		{"", "", true},
		{"/etc/passwd", "", true},
		{"../secret", "", true},
		{"exports/../../secret", "", true},
		{"..", "", true},
		{`exports\a.csv`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cleanKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalBackend_PutGet(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "receipts/JOB-1.html", strings.NewReader("<p>hi</p>"), "text/html"))

	rc, err := backend.Get(ctx, "receipts/JOB-1.html")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(data))

	_, err = os.Stat(filepath.Join(dir, "receipts", "JOB-1.html"))
	assert.NoError(t, err)
}

func TestLocalBackend_Missing(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = backend.Get(ctx, "exports/none.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	objects, err := backend.List(ctx, "exports/")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalBackend_RejectsTraversal(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	err = backend.Put(context.Background(), "../escape.txt", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestArchive_SaveAndOpenExport(t *testing.T) {
	a, _ := setupArchive(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)

	obj, err := a.SaveExport(ctx, now, testJobs())
	require.NoError(t, err)
	assert.Equal(t, "exports/repair_jobs_2026-03-14.csv", obj.Key)
	assert.Equal(t, "repair_jobs_2026-03-14.csv", obj.Name)

	rc, err := a.OpenExport(ctx, obj.Name)
	require.NoError(t, err)
	defer rc.Close()

	records, err := csv.NewReader(rc).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Kamal, Silva", records[2][1])
}

func TestArchive_ListExports(t *testing.T) {
	a, _ := setupArchive(t)
	ctx := context.Background()

	_, err := a.SaveExport(ctx, time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC), testJobs())
	require.NoError(t, err)
	_, err = a.SaveExport(ctx, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), testJobs()[:1])
	require.NoError(t, err)

	objects, err := a.ListExports(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "repair_jobs_2026-03-14.csv", objects[0].Name)
	assert.Equal(t, "exports/repair_jobs_2026-03-13.csv", objects[1].Key)
	assert.Positive(t, objects[0].Size)
}

func TestArchive_OpenExportRejectsBadNames(t *testing.T) {
	a, _ := setupArchive(t)
	ctx := context.Background()

	for _, name := range []string{"", "../receipts/JOB-1.html", "notes.txt", `..\x.csv`} {
		_, err := a.OpenExport(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidKey, name)
	}

	_, err := a.OpenExport(ctx, "repair_jobs_1999-01-01.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestArchive_SaveReceipt(t *testing.T) {
	a, _ := setupArchive(t)
	ctx := context.Background()
	j := testJobs()[0]

	obj, err := a.SaveReceipt(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, "receipts/JOB-2026001.html", obj.Key)

	rc, err := a.OpenReceipt(ctx, j)
	require.NoError(t, err)
	defer rc.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, rc)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Job Receipt - JOB-2026001")
	assert.Contains(t, buf.String(), "Dream Computer Solutions")
}
