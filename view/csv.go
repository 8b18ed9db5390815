package view

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/hairizuan-noorazman/repair-desk/job"
)

// CSVHeader is the export column order.
var CSVHeader = []string{
	"Job ID", "Customer", "Phone", "Email", "Device Type", "Brand", "Model", "Serial",
	"Received Items", "Problem", "Status", "Cost", "Date",
}

// WriteCSV writes one header row and one row per job. Fields containing
// commas, quotes or line breaks are quoted.
func WriteCSV(w io.Writer, jobs []*job.Job) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, j := range jobs {
		row := []string{
			j.Number,
			j.CustomerName,
			j.Phone,
			j.Email,
			string(j.DeviceType),
			j.DeviceBrand,
			j.DeviceModel,
			j.SerialNumber,
			j.ReceivedItems,
			j.Problem,
			string(j.Status),
			j.EstimatedCost,
			j.ReceivedDate,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", j.Number, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFilename names an export after the date it was taken.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("repair_jobs_%s.csv", now.Format(time.DateOnly))
}
