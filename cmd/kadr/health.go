package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/ui"
)

type healthReport struct {
	Status    string `json:"status"`
	Transport string `json:"transport"`
	Endpoint  string `json:"endpoint"`
	LatencyMS int64  `json:"latency_ms"`
}

// endpoint returns the address the active transport talks to.
func endpoint() string {
	if transport == "grpc" {
		return serverAddr
	}
	return httpURL
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the catalog service",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		status, err := catalogClient.Health(ctx)
		if err != nil {
			return fmt.Errorf("%s %s unreachable: %w", transport, endpoint(), err)
		}
		report := healthReport{
			Status:    status,
			Transport: transport,
			Endpoint:  endpoint(),
			LatencyMS: time.Since(start).Milliseconds(),
		}

		if jsonOutput {
			printJSON(report)
		} else {
			mark := ui.RenderOK("✓")
			if status != "ok" {
				mark = ui.RenderWarn("!")
			}
			fmt.Printf("%s %s via %s (%s) in %dms\n", mark, report.Status, report.Transport, report.Endpoint, report.LatencyMS)
		}
		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().Duration("timeout", 5*time.Second, "give up after this long")
}
