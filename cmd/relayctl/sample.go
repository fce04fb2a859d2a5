package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"call-relay/internal/app/server"
	"call-relay/internal/config"
	"call-relay/internal/engine"
)

func newSendSampleCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "send-sample",
		Short: "Probe health and post a filtered and a matching sample call event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			client := &http.Client{Timeout: probeTimeout}
			return sendSamples(cmd.Context(), cmd.OutOrStdout(), client, baseURL, server.Filter(cfg))
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the relay")
	return cmd
}

const probeTimeout = 15 * time.Second

type sample struct {
	name    string
	payload map[string]any
}

func samples(filter engine.FilterConfig) []sample {
	now := time.Now().UTC().Format(time.RFC3339)
	return []sample{
		{
			name: "filtered (wrong campaign)",
			payload: map[string]any{
				"campaignName": "Wrong Campaign",
				"targetName":   "Wrong Target",
				"callerId":     "WRONG_CALLER_456",
				"timestamp":    now,
			},
		},
		{
			name: "in scope (no value)",
			payload: map[string]any{
				"campaignName":          filter.CampaignName,
				"targetName":            filter.TargetName,
				"callerId":              "TEST_CALLER_123",
				"callLengthFromConnect": 0,
				"endCallSource":         "System",
				"timestamp":             now,
			},
		},
	}
}

func sendSamples(ctx context.Context, out io.Writer, client *http.Client, baseURL string, filter engine.FilterConfig) error {
	baseURL = strings.TrimRight(baseURL, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return err
	}
	if err := do(out, client, "health", req); err != nil {
		return err
	}

	for _, s := range samples(filter) {
		body, err := json.Marshal(s.payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", s.name, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/ringba-webhook", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if err := do(out, client, s.name, req); err != nil {
			return err
		}
	}
	return nil
}

func do(out io.Writer, client *http.Client, name string, req *http.Request) error {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	fmt.Fprintf(out, "%s: %d in %s\n  %s\n", name, resp.StatusCode, time.Since(start).Round(time.Millisecond), bytes.TrimSpace(body))
	return nil
}
