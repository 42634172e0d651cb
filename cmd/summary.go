package cmd

import (
	"github.com/KaramelBytes/datalens-cli/internal/clean"
	"github.com/KaramelBytes/datalens-cli/internal/session"
	"github.com/KaramelBytes/datalens-cli/internal/summary"
	"github.com/spf13/cobra"
)

var (
	sumInput  inputFlags
	sumOutput outputFlags
)

// summaryOutput is the structured form of the summary command.
type summaryOutput struct {
	Cleaning []clean.Report  `json:"cleaning,omitempty" yaml:"cleaning,omitempty"`
	Summary  *summary.Report `json:"summary" yaml:"summary"`
}

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Summarize a CSV/TSV/XLSX file: shape, types, missing values, statistics, head and tail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sumInput.openSession(cmd, args[0])
		if err != nil {
			return err
		}
		v := session.Render(s)
		if v.LoadErr != nil {
			return v.LoadErr
		}
		if v.SummaryErr != nil {
			return v.SummaryErr
		}
		return sumOutput.write(cmd.OutOrStdout(), v.Summary.Markdown, summaryOutput{Cleaning: v.Cleaning, Summary: v.Summary})
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	sumInput.register(summaryCmd)
	sumOutput.register(summaryCmd)
}
