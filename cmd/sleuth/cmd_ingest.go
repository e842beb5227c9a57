package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sleuth/internal/incident"
)

var ingestFlags struct {
	title     string
	summary   string
	artifacts []string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Create a case from incident artifacts and index them",
	Long: `Create an investigation case and index its artifacts for retrieval.

Each --artifact takes a spec of the form <type>:<source-id>:<path>, e.g.:

  sleuth ingest --title "API outage" --summary "5xx spike after 14:00" \
    --artifact logs:api-gateway:gateway.log \
    --artifact deploy_history:ci:deploys.txt \
    --artifact alerts:pagerduty:alerts.json

Artifact types: logs, alerts, deploy_history, runbook, metrics_snapshot.`,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestFlags.title, "title", "", "Short case title (required)")
	f.StringVar(&ingestFlags.summary, "summary", "", "Incident or change summary (required)")
	f.StringArrayVar(&ingestFlags.artifacts, "artifact", nil, "Artifact spec <type>:<source-id>:<path> (repeatable, required)")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestFlags.title == "" || ingestFlags.summary == "" {
		return fmt.Errorf("--title and --summary are required")
	}
	if len(ingestFlags.artifacts) == 0 {
		return fmt.Errorf("at least one --artifact is required")
	}

	artifacts := make([]incident.Artifact, 0, len(ingestFlags.artifacts))
	for _, spec := range ingestFlags.artifacts {
		a, err := parseArtifactSpec(spec)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, a)
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	caseID, err := app.engine.CreateCase(ingestFlags.title, ingestFlags.summary)
	if err != nil {
		return err
	}
	chunks, err := app.engine.Ingest(cmd.Context(), caseID, artifacts)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	out := map[string]any{
		"case_id":        caseID,
		"chunks_indexed": chunks,
		"status":         string(incident.StatusIndexed),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func parseArtifactSpec(spec string) (incident.Artifact, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 {
		return incident.Artifact{}, fmt.Errorf("invalid artifact spec %q (want <type>:<source-id>:<path>)", spec)
	}
	content, err := os.ReadFile(parts[2])
	if err != nil {
		return incident.Artifact{}, fmt.Errorf("read artifact %q: %w", parts[2], err)
	}
	return incident.Artifact{
		Type:     incident.ArtifactType(parts[0]),
		SourceID: parts[1],
		Content:  string(content),
	}, nil
}
