package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sleuth/internal/incident"
	"sleuth/internal/investigate"
)

var rerunFlags struct {
	strict   bool
	topK     int
	hypCount int
	focus    string
	notes    string
	exclude  []string
	pin      string
	report   bool
}

var rerunCmd = &cobra.Command{
	Use:   "rerun <case-id>",
	Short: "Re-analyze a case under constraints",
	Long: `Re-run the analysis with adjusted constraints: exclude noisy sources from
retrieval, pin a prior hypothesis for re-examination, or change limits.

Each rerun produces an independent result appended to the case history;
earlier results are never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runRerun,
}

func init() {
	f := rerunCmd.Flags()
	f.BoolVar(&rerunFlags.strict, "strict", true, "Refuse below the evidence floor instead of speculating")
	f.IntVar(&rerunFlags.topK, "top-k", 0, "Evidence excerpts to retrieve (default from config)")
	f.IntVar(&rerunFlags.hypCount, "hypotheses", 0, "Ranked hypotheses to request (default from config)")
	f.StringVar(&rerunFlags.focus, "focus", "", "Focus area: database, auth, network, deployment, performance")
	f.StringVar(&rerunFlags.notes, "notes", "", "Free-text investigator notes passed to the generator")
	f.StringSliceVar(&rerunFlags.exclude, "exclude", nil, "Source ids to exclude from retrieval")
	f.StringVar(&rerunFlags.pin, "pin", "", "Prior hypothesis title to weigh in this rerun")
	f.BoolVar(&rerunFlags.report, "report", false, "Render a human-readable report instead of JSON")
}

func runRerun(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.engine.Rerun(cmd.Context(), args[0], investigate.Constraints{
		StrictMode:      rerunFlags.strict,
		TopK:            rerunFlags.topK,
		HypothesisCount: rerunFlags.hypCount,
		FocusArea:       incident.FocusArea(rerunFlags.focus),
		UserNotes:       rerunFlags.notes,
		ExcludeSources:  rerunFlags.exclude,
		PinHypothesis:   rerunFlags.pin,
	})
	if err != nil {
		return fmt.Errorf("rerun: %w", err)
	}

	return printResult(cmd, res, rerunFlags.report)
}
