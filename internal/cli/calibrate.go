package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-rde/internal/export"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <concentration>...",
	Short: "Fit a standard curve from the first plateau of each trace",
	Long: `Analyse the traces like analyze, then pair the given concentrations with the
traces in sorted file order and fit current = slope*concentration + intercept
using the first plateau of every trace.

Every trace must have a plateau; none is skipped, so the pairing can never
shift.`,
	Example: `  rdecal calibrate --source ./standards 0 10 20 40`,
	Args:    cobra.MinimumNArgs(2),
	RunE:    runCalibrate,
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	conc, err := parseFloats(args, "concentration")
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	res, err := s.run(cmd)
	if err != nil {
		return err
	}

	curve, err := s.analyzer.Calibrate(res, conc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "slope:     %.6g A per unit\n", curve.Slope)
	fmt.Fprintf(out, "intercept: %.6g A\n", curve.Intercept)
	fmt.Fprintf(out, "r_squared: %.6f\n", curve.RSquared)

	if s.cfg.OutputDir != "" {
		path := filepath.Join(s.cfg.OutputDir, export.CalibrationJSON)
		if err := export.SaveCalibration(path, curve); err != nil {
			return err
		}
		s.log.Infof("Calibration written to %s", path)

		if _, err := s.analyzer.PlotCalibration(curve); err != nil {
			return err
		}
	}

	store, err := s.openArchive()
	if err != nil {
		return err
	}
	defer closeStore(store, s.log)

	if store != nil {
		runs, err := store.Runs(cmd.Context())
		if err != nil {
			return err
		}

		runID := ""
		if len(runs) > 0 {
			runID = runs[0].ID
		}

		if _, err := store.SaveCalibration(cmd.Context(), runID, curve); err != nil {
			return err
		}
	}

	return s.writeMetrics()
}
