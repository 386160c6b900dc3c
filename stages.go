package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kartoza/match-odds/internal/funnel"
	"github.com/kartoza/match-odds/internal/server"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Print the active stage table and evaluation order",
	Long: `Prints the stage table in the same YAML form STAGE_TABLE_PATH accepts,
followed by the order stages run in. Use it to start a custom table, or with
--stage-table to check one.`,
	RunE: runStages,
}

func init() {
	rootCmd.AddCommand(stagesCmd)
}

func runStages(cmd *cobra.Command, _ []string) error {
	estimator, err := server.LoadEstimator(cfg.StageTablePath)
	if err != nil {
		return eris.Wrap(err, "stages: load stage table")
	}

	data, err := yaml.Marshal(estimator.Table())
	if err != nil {
		return eris.Wrap(err, "stages: encode stage table")
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))
	fmt.Fprintln(out, "\n# evaluation order")
	for i, s := range funnel.Stages() {
		var note string
		switch {
		case s.Question == funnel.NoQuestion:
			note = " (final estimate only)"
		case s.FinalOnly:
			note = fmt.Sprintf(" (question %d, final estimate only)", s.Question+1)
		default:
			note = fmt.Sprintf(" (question %d)", s.Question+1)
		}
		fmt.Fprintf(out, "# %d. %s%s\n", i+1, s.Key, note)
	}
	return nil
}
