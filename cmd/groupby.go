package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/chart"
	"github.com/KaramelBytes/datalens-cli/internal/session"
	"github.com/spf13/cobra"
)

var (
	gbInput   inputFlags
	gbOutput  outputFlags
	gbCharts  chartFlags
	gbBy      []string
	gbTarget  string
	gbOp      string
	gbKind    string
	gbNoChart bool
	gbPath    []string
)

// gbBind holds the single-column role flags, keyed by role.
var gbBind = map[chart.Role]*string{}

// groupbyOutput is the structured form of the groupby command.
type groupbyOutput struct {
	Result *aggregate.AggregationResult `json:"result" yaml:"result"`
	Chart  *chart.Spec                  `json:"chart,omitempty" yaml:"chart,omitempty"`
}

var groupbyCmd = &cobra.Command{
	Use:   "groupby <file>",
	Short: "Group rows, aggregate a target column into newcol and chart the result",
	Long: `Group rows by one or more columns and aggregate a target column with sum,
max, min, mean, median or count. The result is written to the column "newcol"
and charted as a line, bar, scatter, pie or sunburst chart.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := gbInput.openSession(cmd, args[0])
		if err != nil {
			return err
		}
		events := []session.Event{
			session.SetAggregation{By: gbBy, Target: gbTarget, Op: aggregate.Op(strings.ToLower(gbOp))},
			session.SelectChartKind{Kind: chart.Kind(strings.ToLower(gbKind))},
		}
		for _, role := range chart.Roles {
			name := string(role)
			if !cmd.Flags().Changed(name) {
				continue
			}
			cols := gbPath
			if role != chart.RolePath {
				cols = []string{*gbBind[role]}
			}
			events = append(events, session.BindAxis{Role: role, Columns: cols})
		}
		for _, ev := range events {
			if s, err = s.Dispatch(ev); err != nil {
				return err
			}
		}
		if len(s.Options.GroupBy) == 0 {
			return fmt.Errorf("--by: %w", aggregate.ErrNoGroupColumns)
		}
		v := session.Render(s)
		if v.LoadErr != nil {
			return v.LoadErr
		}
		if v.GroupErr != nil {
			return v.GroupErr
		}
		if v.ChartErr != nil && !gbNoChart {
			return v.ChartErr
		}
		w := cmd.OutOrStdout()
		md := func() string { return groupbyMarkdown(v.Groups) }
		if err := gbOutput.write(w, md, groupbyOutput{Result: v.Groups, Chart: v.Chart}); err != nil {
			return err
		}
		if gbNoChart {
			return nil
		}
		// Only the group-by chart is drawn here.
		v.CountCharts = nil
		_, err = gbCharts.writeCharts(w, v)
		return err
	},
}

func groupbyMarkdown(r *aggregate.AggregationResult) string {
	var b strings.Builder
	target := r.Spec.Target
	fmt.Fprintf(&b, "[GROUP BY: %s]\n", strings.Join(r.Spec.By, ", "))
	fmt.Fprintf(&b, "%s = %s(%s), %d groups from %d rows\n\n", aggregate.ResultColumn, r.Spec.Op, target, r.Table.NumRows(), r.SizeTotal())
	r.Table.WriteMarkdown(&b)
	return b.String()
}

func init() {
	rootCmd.AddCommand(groupbyCmd)
	gbInput.register(groupbyCmd)
	gbOutput.register(groupbyCmd)
	gbCharts.register(groupbyCmd)
	fs := groupbyCmd.Flags()
	fs.StringSliceVar(&gbBy, "by", nil, "comma-separated columns to group by")
	fs.StringVar(&gbTarget, "target", "", "column to aggregate (default: first column)")
	fs.StringVar(&gbOp, "op", string(aggregate.Sum), "aggregation: sum | max | min | mean | median | count")
	fs.StringVar(&gbKind, "chart", string(chart.Line), "chart kind: line | bar | scatter | pie | sunburst")
	fs.BoolVar(&gbNoChart, "no-chart", false, "skip chart rendering")
	for _, role := range chart.Roles {
		if role == chart.RolePath {
			fs.StringSliceVar(&gbPath, string(role), nil, "sunburst: comma-separated hierarchy columns (default: --by)")
			continue
		}
		v := new(string)
		gbBind[role] = v
		fs.StringVar(v, string(role), "", fmt.Sprintf("column bound to the chart's %s role", role))
	}
}
