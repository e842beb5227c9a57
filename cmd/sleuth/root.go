package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "sleuth",
	Short: "Evidence-grounded root-cause hypotheses for production incidents",
	Long: "Sleuth ingests incident artifacts (logs, alerts, deploy history, runbooks,\n" +
		"metrics snapshots), builds a timeline and a similarity index over them, and\n" +
		"generates ranked root-cause hypotheses that cite the retrieved evidence.\n" +
		"When the evidence is too weak it refuses rather than speculating.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to config file (YAML or JSON)")
	pf.StringVar(&rootFlags.dbPath, "db", "", "Case store DB path (overrides config)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rerunCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
