package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

type probeResult struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Checks  map[string]struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	} `json:"checks,omitempty"`
}

func newProbeCmd() *cobra.Command {
	var (
		baseURL  string
		endpoint string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Query a running portal's health endpoint",
		Long: `Query a running portal's health endpoint and exit non-zero unless it
answers 200. Useful as a container health check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := resty.New().
				SetBaseURL(strings.TrimRight(baseURL, "/")).
				SetTimeout(timeout)

			var result probeResult
			resp, err := client.R().
				SetContext(contextOrBackground(cmd)).
				SetResult(&result).
				Get("/" + strings.TrimLeft(endpoint, "/"))
			if err != nil {
				return fmt.Errorf("probe %s: %w", baseURL, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", resp.Status(), result.Status)
			for name, c := range result.Checks {
				if c.Error != "" {
					fmt.Fprintf(out, "  %s: %s (%s)\n", name, c.Status, c.Error)
					continue
				}
				fmt.Fprintf(out, "  %s: %s\n", name, c.Status)
			}
			if resp.StatusCode() != http.StatusOK {
				return fmt.Errorf("%s answered %d", endpoint, resp.StatusCode())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&baseURL, "url", "u", "http://localhost:8080", "portal base URL")
	cmd.Flags().StringVar(&endpoint, "endpoint", "/healthz", "health endpoint to query (/healthz, /readyz or /health)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}
