package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rdecal",
	Short: "Baseline correction, plateau detection and calibration of RDE current traces",
	Long: `rdecal analyses chronoamperometric traces recorded with a rotating disk
electrode.

Every CSV export below the source directory is baseline corrected, searched
for current plateaus and optionally plotted. The calibrate command then fits a
standard curve from known concentrations, and predict inverts that curve for
new measurements.

Settings come from RDE_* environment variables, an optional .env file and the
flags below, in increasing order of precedence.`,
	SilenceUsage: true,
}

// Execute runs the command named on the command line and exits with
// status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&flagEnvFile, "env-file", "", "Read settings from this file instead of ./.env")
	f.StringVarP(&flagSource, "source", "s", "", "Directory searched recursively for CSV traces")
	f.StringVarP(&flagOutput, "output", "o", "", "Directory for plots and result files")
	f.StringVar(&flagTimeColumn, "time-column", "", "Header of the time column")
	f.StringVar(&flagCurrentColumn, "current-column", "", "Header of the current column")
	f.Float64Var(&flagBaselineStart, "baseline-start", 0, "Baseline window start in seconds")
	f.Float64Var(&flagBaselineEnd, "baseline-end", 0, "Baseline window end in seconds")
	f.StringVar(&flagBaselineMode, "baseline-mode", "", "Drift removal: slope or line")
	f.IntVar(&flagMinDistance, "min-distance", 0, "Minimum samples between plateaus")
	f.IntVar(&flagSmoothing, "smoothing", 0, "Moving average width before plateau search (0 disables)")
	f.StringVar(&flagRowPolicy, "row-policy", "", "Malformed rows: abort or skip")
	f.StringVar(&flagFilePolicy, "file-policy", "", "Failing files: fail-fast or skip")
	f.StringVar(&flagArchive, "archive", "", "SQLite archive for runs and curves")
	f.StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus textfile metrics here")
	f.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(predictCmd)
}
