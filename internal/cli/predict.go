package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-rde/internal/export"
	"github.com/cwbudde/algo-rde/internal/store/sqlite"
	"github.com/cwbudde/algo-rde/measure/calibration"
)

var flagCalibration string

var predictCmd = &cobra.Command{
	Use:   "predict <current>...",
	Short: "Convert plateau currents to concentrations with a standard curve",
	Long: `Invert a fitted standard curve. The curve is read from --calibration, or
else the newest curve in the archive is used.`,
	Example: `  rdecal predict --calibration out/calibration.json 4.2e-7 5.1e-7`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&flagCalibration, "calibration", "c", "", "Calibration JSON written by calibrate")
}

func runPredict(cmd *cobra.Command, args []string) error {
	currents, err := parseFloats(args, "current")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var curve calibration.Curve

	switch {
	case flagCalibration != "":
		curve, err = export.LoadCalibration(flagCalibration)
	case cfg.ArchivePath != "":
		var store *sqlite.Store
		store, err = sqlite.Open(cfg.ArchivePath)
		if err == nil {
			curve, err = store.LatestCalibration(cmd.Context())
			_ = store.Close()
		}
	default:
		err = errors.New("no standard curve: pass --calibration or configure an archive")
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CURRENT (A)\tCONCENTRATION")

	for _, c := range currents {
		conc, err := curve.Predict(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%g\t%.6g\n", c, conc)
	}

	return w.Flush()
}
