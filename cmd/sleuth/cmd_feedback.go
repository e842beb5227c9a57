package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sleuth/internal/incident"
)

var feedbackFlags struct {
	rank int
	kind string
	note string
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <case-id>",
	Short: "Record a reviewer verdict on a hypothesis",
	Long: `Record whether a hypothesis from the last analysis was confirmed, rejected,
or remains uncertain. Feedback is kept with the case for later review.`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedback,
}

func init() {
	f := feedbackCmd.Flags()
	f.IntVar(&feedbackFlags.rank, "rank", 1, "Rank of the hypothesis being reviewed")
	f.StringVar(&feedbackFlags.kind, "type", "", "Verdict: confirmed, rejected, or uncertain (required)")
	f.StringVar(&feedbackFlags.note, "note", "", "Optional reviewer note")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if feedbackFlags.kind == "" {
		return fmt.Errorf("--type is required (confirmed, rejected, uncertain)")
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	err = app.engine.Feedback(args[0], incident.Feedback{
		HypothesisRank: feedbackFlags.rank,
		Type:           incident.FeedbackType(feedbackFlags.kind),
		Note:           feedbackFlags.note,
	})
	if err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "feedback recorded")
	return nil
}
