package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/session"
	"github.com/spf13/cobra"
)

var (
	vcInput  inputFlags
	vcOutput outputFlags
	vcCharts chartFlags
	vcColumn string
	vcTop    int
	vcDraw   bool
)

var valueCountsCmd = &cobra.Command{
	Use:     "value-counts <file>",
	Aliases: []string{"counts"},
	Short:   "Count the most frequent values of a column and chart them",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := vcInput.openSession(cmd, args[0])
		if err != nil {
			return err
		}
		g, err := settings()
		if err != nil {
			return err
		}
		k := g.TopValues
		if cmd.Flags().Changed("top") {
			k = vcTop
		}
		if k < 1 {
			return fmt.Errorf("--top must be at least 1, got %d", k)
		}
		if s, err = s.Dispatch(session.SelectColumn{Column: vcColumn, K: k}); err != nil {
			return err
		}
		if vcDraw {
			if s, err = s.Dispatch(session.TriggerCount{}); err != nil {
				return err
			}
		}
		v := session.Render(s)
		if v.LoadErr != nil {
			return v.LoadErr
		}
		if v.CountErr != nil {
			return v.CountErr
		}
		w := cmd.OutOrStdout()
		if err := vcOutput.write(w, func() string { return countsMarkdown(v.Counts) }, v.Counts); err != nil {
			return err
		}
		if vcDraw {
			if _, err := vcCharts.writeCharts(w, v); err != nil {
				return err
			}
		}
		return nil
	},
}

func countsMarkdown(r *aggregate.ValueCountResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[VALUE COUNTS: %s]\n", r.Column)
	fmt.Fprintf(&b, "Counted: %d non-missing, %d distinct, showing %d\n\n", r.Counted, r.Distinct, len(r.Entries))
	r.Table().WriteMarkdown(&b)
	return b.String()
}

func init() {
	rootCmd.AddCommand(valueCountsCmd)
	vcInput.register(valueCountsCmd)
	vcOutput.register(valueCountsCmd)
	vcCharts.register(valueCountsCmd)
	valueCountsCmd.Flags().StringVarP(&vcColumn, "column", "c", "", "column to count (default: first column)")
	valueCountsCmd.Flags().IntVarP(&vcTop, "top", "k", 5, "number of values to keep (default from config top_values)")
	valueCountsCmd.Flags().BoolVar(&vcDraw, "charts", true, "render bar, line and pie charts to --out-dir")
}
