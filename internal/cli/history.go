package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/numscan/internal/extract"
	"github.com/ppiankov/numscan/internal/model"
	"github.com/ppiankov/numscan/internal/pipeline"
)

var (
	runsLimit     int
	runsDelete    string
	findRunID     string
	findTolerance float64
)

// runsCmd lists archived runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived scan runs",
	Long: `List the runs saved with 'numscan scan --save' or 'numscan batch --save',
newest first.

Example:
  numscan runs --limit 5
  numscan runs --delete latest`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

// findCmd looks up a value in an archived run
var findCmd = &cobra.Command{
	Use:   "find <value>",
	Short: "Look up a value in an archived run",
	Long: `Find reports every deduplicated occurrence of an archived run whose value
lies within the tolerance of <value>. Unscaled matches compare the raw
number, scaled matches compare the scaled value.

Example:
  numscan find 6,000,000
  numscan find 30704100000 --run 6f1c... --tolerance 1`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(findCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs listed (0 for all)")
	runsCmd.Flags().StringVar(&runsDelete, "delete", "", "delete the run with this ID (or \"latest\") instead of listing")

	findCmd.Flags().StringVar(&findRunID, "run", "latest", "run ID to search")
	findCmd.Flags().Float64Var(&findTolerance, "tolerance", 0.5, "absolute tolerance")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	out := cmd.OutOrStdout()

	if runsDelete != "" {
		run, err := st.GetRun(cmd.Context(), runsDelete)
		if err != nil {
			return err
		}
		if run == nil {
			return eris.Errorf("no archived run %q", runsDelete)
		}
		if err := st.DeleteRun(cmd.Context(), run.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s (%s)\n", run.ID, run.Source)
		return nil
	}

	runs, err := st.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No archived runs.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tGENERATED\tPAGES\tUNSCALED\tSCALED\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.GeneratedAt.Format("2006-01-02 15:04"), r.PageCount,
			r.Summary.UnscaledDeduplicated, r.Summary.ScaledDeduplicated, r.Source)
	}
	return w.Flush()
}

func runFind(cmd *cobra.Command, args []string) error {
	target, err := extract.ParseNumber(args[0])
	if err != nil {
		return eris.Wrapf(err, "invalid value %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	run, err := st.GetRun(cmd.Context(), findRunID)
	if err != nil {
		return err
	}
	if run == nil {
		return eris.Errorf("no archived run %q", findRunID)
	}

	matches, err := st.FindValue(cmd.Context(), run.ID, target, findTolerance)
	if err != nil {
		return err
	}

	counts, err := st.CountOccurrences(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (run %s, %d unscaled and %d scaled values archived)\n",
		run.Source, run.ID, counts[model.SetUnscaled], counts[model.SetScaled])
	if len(matches) == 0 {
		fmt.Fprintf(out, "%s ± %s: not found\n", pipeline.FormatValue(target), pipeline.FormatValue(findTolerance))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SET\tVALUE\tTEXT\tPAGE\tSCALE\tCONTEXT")
	for _, m := range matches {
		occ := m.Occurrence
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			m.Set, pipeline.FormatValue(occ.RankValue(m.Set)), occ.OriginalText, occ.Page,
			occ.ScaleFactor, occ.Context)
	}
	return w.Flush()
}
