package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-rde/internal/analysis"
	"github.com/cwbudde/algo-rde/internal/export"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Correct baselines and detect plateaus in every trace",
	Long: `Load every CSV trace below the source directory, remove the baseline drift
fitted inside the baseline window, and detect current plateaus.

With an output directory, one plot per trace plus analysis.json and
analysis.csv are written there.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	res, err := s.run(cmd)
	if err != nil {
		return err
	}

	printTraces(cmd, res)

	return s.writeMetrics()
}

// run analyses, plots, exports and archives one batch of traces.
func (s *session) run(cmd *cobra.Command) (*analysis.Result, error) {
	res, err := s.analyzer.Run()
	if err != nil {
		return nil, err
	}

	if _, err := s.analyzer.Plot(res); err != nil {
		return nil, err
	}

	if s.cfg.OutputDir != "" {
		paths, err := export.SaveAnalysis(s.cfg.OutputDir, res)
		if err != nil {
			return nil, err
		}
		s.log.Infof("Results written to %v", paths)
	}

	store, err := s.openArchive()
	if err != nil {
		return nil, err
	}
	defer closeStore(store, s.log)

	if _, err := s.archiveRun(cmd.Context(), store, res); err != nil {
		return nil, err
	}

	return res, nil
}

func printTraces(cmd *cobra.Command, res *analysis.Result) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSAMPLES\tSLOPE (A/s)\tPLATEAUS\tFIRST PLATEAU (A)")

	for _, tr := range res.Traces {
		b, _ := res.Baseline(tr)

		first := "-"
		if cur := tr.PlateauCurrents(); len(cur) > 0 {
			first = fmt.Sprintf("%.6g", cur[0])
		}

		fmt.Fprintf(w, "%s\t%d\t%.6g\t%d\t%s\n", res.Source(tr), tr.Len(), b.Slope, len(tr.Plateaus), first)
	}

	for _, f := range res.Failures {
		fmt.Fprintf(w, "%s\tFAILED\t%s\t-\t%v\n", f.File, f.Stage, f.Err)
	}

	_ = w.Flush()
}
