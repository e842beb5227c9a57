package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sleuth/internal/display"
	"sleuth/internal/incident"
)

var casesFlags struct {
	jsonOut bool
}

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List investigation cases",
	RunE:  runCases,
}

var showCmd = &cobra.Command{
	Use:   "show <case-id>",
	Short: "Show a case with its artifacts, history and feedback",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <case-id>",
	Short: "Delete a case and its index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	casesCmd.Flags().BoolVar(&casesFlags.jsonOut, "json", false, "Output JSON instead of a table")
}

func runCases(cmd *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	cases, err := app.store.ListCases()
	if err != nil {
		return fmt.Errorf("list cases: %w", err)
	}

	if casesFlags.jsonOut {
		data, err := json.MarshalIndent(cases, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), display.Cases(display.ASCII, cases))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	c, err := app.store.GetCase(args[0])
	if err != nil {
		return fmt.Errorf("get case: %w", err)
	}
	if c == nil {
		return fmt.Errorf("%w: %s", incident.ErrUnknownCase, args[0])
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.engine.DeleteCase(args[0]); err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted case %s\n", args[0])
	return nil
}
