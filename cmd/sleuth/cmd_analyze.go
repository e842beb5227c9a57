package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sleuth/internal/display"
	"sleuth/internal/incident"
	"sleuth/internal/investigate"
)

var analyzeFlags struct {
	strict   bool
	topK     int
	hypCount int
	focus    string
	notes    string
	report   bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <case-id>",
	Short: "Generate ranked root-cause hypotheses for a case",
	Long: `Analyze a case: retrieve the most relevant evidence, build the incident
timeline, and generate ranked root-cause hypotheses that cite the evidence.

In strict mode (the default) the engine refuses to speculate when fewer than
two evidence excerpts clear the bar or average relevance is below the
confidence threshold. Pass --strict=false to analyze anyway.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.BoolVar(&analyzeFlags.strict, "strict", true, "Refuse below the evidence floor instead of speculating")
	f.IntVar(&analyzeFlags.topK, "top-k", 0, "Evidence excerpts to retrieve (default from config)")
	f.IntVar(&analyzeFlags.hypCount, "hypotheses", 0, "Ranked hypotheses to request (default from config)")
	f.StringVar(&analyzeFlags.focus, "focus", "", "Focus area: database, auth, network, deployment, performance")
	f.StringVar(&analyzeFlags.notes, "notes", "", "Free-text investigator notes passed to the generator")
	f.BoolVar(&analyzeFlags.report, "report", false, "Render a human-readable report instead of JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.engine.Analyze(cmd.Context(), args[0], investigate.Options{
		StrictMode:      analyzeFlags.strict,
		TopK:            analyzeFlags.topK,
		HypothesisCount: analyzeFlags.hypCount,
		FocusArea:       incident.FocusArea(analyzeFlags.focus),
		UserNotes:       analyzeFlags.notes,
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	return printResult(cmd, res, analyzeFlags.report)
}

func printResult(cmd *cobra.Command, res *incident.AnalysisResult, report bool) error {
	if report {
		fmt.Fprint(cmd.OutOrStdout(), display.Result(display.ASCII, res))
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
