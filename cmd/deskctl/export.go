package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/hairizuan-noorazman/repair-desk/archive"
	"github.com/hairizuan-noorazman/repair-desk/view"
	"github.com/spf13/cobra"
)

var timeNow = time.Now

func newExportCmd() *cobra.Command {
	var output, query, status string
	var filtered, save, list bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export jobs as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if list {
				return listExports(client)
			}

			if filtered {
				params := url.Values{}
				if query != "" {
					params.Set("q", query)
				}
				if status != "" {
					params.Set("status", status)
				}
				// Listing sets the session's board filter
				if _, err := client.Get("/api/v1/jobs", params); err != nil {
					return err
				}
			}

			if save {
				path := "/api/v1/exports"
				if filtered {
					path += "?scope=filtered"
				}
				body, err := client.Post(path, nil)
				if err != nil {
					return err
				}
				var obj archive.Object
				if err := json.Unmarshal(body, &obj); err != nil {
					return fmt.Errorf("failed to parse response: %w", err)
				}
				printMessage(fmt.Sprintf("Export archived as %s (%d bytes)", obj.Name, obj.Size))
				return nil
			}

			params := url.Values{}
			if filtered {
				params.Set("scope", "filtered")
			}
			body, err := client.Get("/api/v1/export.csv", params)
			if err != nil {
				return err
			}

			if output == "" {
				output = view.ExportFilename(timeNow())
			}
			if output == "-" {
				fmt.Fprint(stdout, string(body))
				return nil
			}
			if err := os.WriteFile(output, body, 0644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			printMessage("Export written to " + output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default repair_jobs_<date>.csv, - for stdout)")
	cmd.Flags().BoolVar(&filtered, "filtered", false, "Export only jobs matching --query and --status")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search text for --filtered")
	cmd.Flags().StringVar(&status, "status", "", "Status for --filtered")
	cmd.Flags().BoolVar(&save, "archive", false, "Store the export in the server archive instead of downloading")
	cmd.Flags().BoolVar(&list, "list", false, "List archived exports")
	return cmd
}

func listExports(client *Client) error {
	body, err := client.Get("/api/v1/exports", nil)
	if err != nil {
		return err
	}

	if flagJSON {
		printRawJSON(body)
		return nil
	}

	var objects []archive.Object
	if err := json.Unmarshal(body, &objects); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	headers := []string{"NAME", "SIZE", "UPDATED AT"}
	var rows [][]string
	for _, o := range objects {
		rows = append(rows, []string{
			o.Name,
			fmt.Sprintf("%d", o.Size),
			o.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	printTable(headers, rows)
	return nil
}
