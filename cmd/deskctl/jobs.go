package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/lifecycle"
	"github.com/spf13/cobra"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage repair jobs",
	}

	cmd.AddCommand(newJobsListCmd())
	cmd.AddCommand(newJobsCreateCmd())
	cmd.AddCommand(newJobsStageCmd())
	cmd.AddCommand(newJobsCommitCmd())
	cmd.AddCommand(newJobsDeleteCmd())
	cmd.AddCommand(newJobsReceiptCmd())
	return cmd
}

func newJobsListCmd() *cobra.Command {
	var query, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			defer client.Close()

			params := url.Values{}
			if query != "" {
				params.Set("q", query)
			}
			if status != "" {
				params.Set("status", status)
			}

			body, err := client.Get("/api/v1/jobs", params)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var resp BoardResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"JOB ID", "CUSTOMER", "PHONE", "DEVICE", "SERIAL", "STATUS", "RECEIVED"}
			var rows [][]string
			for _, j := range resp.Jobs {
				rows = append(rows, []string{
					j.Number,
					truncate(j.CustomerName, 24),
					j.Phone,
					truncate(j.DeviceBrand+" "+j.DeviceModel, 24),
					j.SerialNumber,
					string(j.Status),
					j.ReceivedDate,
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d jobs (total %d, active %d, completed %d)",
				len(resp.Jobs), resp.Stats.Total, resp.Stats.Active, resp.Stats.Completed))
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Search name, job ID, phone or serial")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (All, Received, In progress, Waiting parts, Completed, Collected)")
	return cmd
}

func newJobsCreateCmd() *cobra.Command {
	var in lifecycle.Intake

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Book in a new repair job",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			defer client.Close()

			body, err := client.Post("/api/v1/jobs", in)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var resp ActionResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Job created: %s (%s)", resp.Job.Number, resp.Job.ID))
			printNotification(resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.CustomerName, "name", "", "Customer name (required)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Customer phone (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Customer email")
	cmd.Flags().StringVar(&in.DeviceType, "device-type", string(job.DeviceLaptop), "Device type (Laptop, Desktop, Phone, Tablet, Printer, Other)")
	cmd.Flags().StringVar(&in.DeviceBrand, "brand", "", "Device brand")
	cmd.Flags().StringVar(&in.DeviceModel, "model", "", "Device model (required)")
	cmd.Flags().StringVar(&in.SerialNumber, "serial", "", "Serial number (required)")
	cmd.Flags().StringVar(&in.ReceivedItems, "items", "", "Items received with the device")
	cmd.Flags().StringVar(&in.Problem, "problem", "", "Problem description (required)")
	cmd.Flags().StringVar(&in.EstimatedCost, "cost", "", "Estimated cost")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "Internal notes")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("serial")
	cmd.MarkFlagRequired("problem")
	return cmd
}

// Staged changes live in the server session, which ends with each command.
// stage therefore previews a change; commit stages and saves in one session.
func newJobsStageCmd() *cobra.Command {
	var id, status string

	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Preview a status change without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			defer client.Close()

			current, err := getJob(client, id)
			if err != nil {
				return err
			}
			if _, err := client.Put(fmt.Sprintf("/api/v1/jobs/%s/staged-status", id), StageRequest{Status: status}); err != nil {
				return err
			}

			if current.Status == job.Status(status) {
				printMessage(fmt.Sprintf("%s is already %s; commit would change nothing", current.Number, current.Status))
				return nil
			}
			printMessage(fmt.Sprintf("%s: %s -> %s (not saved; run jobs commit to save)", current.Number, current.Status, status))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Job UUID (required)")
	cmd.Flags().StringVar(&status, "status", "", "New status (required)")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("status")
	return cmd
}

func newJobsCommitCmd() *cobra.Command {
	var id, status string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Save a status change and notify the customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Put(fmt.Sprintf("/api/v1/jobs/%s/staged-status", id), StageRequest{Status: status}); err != nil {
				return err
			}
			body, err := client.Post(fmt.Sprintf("/api/v1/jobs/%s/commit", id), nil)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var resp ActionResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if !resp.Changed {
				printMessage("No change: job already has that status")
				return nil
			}

			printMessage(fmt.Sprintf("Job %s is now %s", resp.Job.Number, resp.Job.Status))
			printNotification(resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Job UUID (required)")
	cmd.Flags().StringVar(&status, "status", "", "New status (required)")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("status")
	return cmd
}

func newJobsDeleteCmd() *cobra.Command {
	var id string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a job permanently",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmAction(fmt.Sprintf("Delete job %s? This cannot be undone.", id), yes) {
				printMessage("Cancelled")
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Delete(fmt.Sprintf("/api/v1/jobs/%s", id), url.Values{"confirm": {"true"}}); err != nil {
				return err
			}

			printMessage("Job deleted")
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Job UUID (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newJobsReceiptCmd() *cobra.Command {
	var id, format, output string
	var archive bool

	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Print a job receipt",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if archive {
				body, err := client.Post(fmt.Sprintf("/api/v1/jobs/%s/receipt/archive", id), nil)
				if err != nil {
					return err
				}
				printRawJSON(body)
				return nil
			}

			query := url.Values{}
			if format == "text" {
				query.Set("format", "text")
			}
			body, err := client.Get(fmt.Sprintf("/api/v1/jobs/%s/receipt", id), query)
			if err != nil {
				return err
			}

			if output == "" {
				printMessage(string(body))
				return nil
			}
			if err := os.WriteFile(output, body, 0644); err != nil {
				return fmt.Errorf("failed to write receipt: %w", err)
			}
			printMessage("Receipt written to " + output)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Job UUID (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Receipt format (text or html)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the receipt to a file")
	cmd.Flags().BoolVar(&archive, "archive", false, "Store the HTML receipt in the server archive")
	cmd.MarkFlagRequired("id")
	return cmd
}

func getJob(client *Client, id string) (*JobView, error) {
	body, err := client.Get(fmt.Sprintf("/api/v1/jobs/%s", id), nil)
	if err != nil {
		return nil, err
	}
	var j JobView
	if err := json.Unmarshal(body, &j); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &j, nil
}

func printNotification(resp ActionResponse) {
	switch {
	case resp.Notification == nil:
		printMessage("No email on file; customer not notified")
	case resp.Notification.Fallback():
		printMessage("Email server unavailable (" + resp.Notification.Cause + "). Send manually:")
		printMessage(resp.ComposeURL)
	default:
		printMessage("Customer notified by email")
	}
}
