package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/chart"
	"github.com/KaramelBytes/datalens-cli/internal/clean"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/session"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

var (
	exInput  inputFlags
	exCharts chartFlags
)

const exploreHelp = `Commands:
  load <file>                      upload a CSV/TSV/XLSX file
  dedup on|off                     toggle duplicate removal
  missing keep|drop|fill [value]   missing-value policy
  rows <head> <tail>               rows shown in the summary (0 hides)
  counts [column] [k]              value-count column and limit
  draw                             enable the value-count charts
  group <a,b,...> <target> [op]    group-by columns, target and sum|max|min|mean|median|count
  kind line|bar|scatter|pie|sunburst
  bind <role> [columns...]         bind x|y|color|size|facet|values|names|path; no columns unbinds
  show [summary|counts|groups|chart|options|all]
  render                           write the charts to the output directory
  help                             this text
  quit                             leave the shell
Quote names that contain spaces: counts "Unit Price" 3`

var exploreCmd = &cobra.Command{
	Use:   "explore [file]",
	Short: "Interactive shell: load a file and explore it step by step",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := settings()
		if err != nil {
			return err
		}
		opt, err := exInput.loaderOptions(cmd, g)
		if err != nil {
			return err
		}
		sh := &shell{
			s:   session.New(opt),
			out: cmd.OutOrStdout(),
			err: cmd.ErrOrStderr(),
		}
		sh.s.OutlierThreshold = g.OutlierThreshold
		head, tail := exInput.rows(cmd, g)
		for _, ev := range []session.Event{
			session.ToggleDedup{On: exInput.dedup},
			session.SetMissingPolicy{Policy: clean.Policy(strings.ToLower(exInput.missing)), FillValue: exInput.fillValue},
			session.SetRows{Head: head, Tail: tail},
			session.SelectColumn{K: g.TopValues},
		} {
			if err := sh.dispatch(ev); err != nil {
				return err
			}
		}
		fmt.Fprintf(sh.out, "DataLens session %s. Type 'help' for commands.\n", sh.s.ID)
		if len(args) == 1 {
			if err := sh.exec(replCommand{name: "load", args: args}); err != nil {
				fmt.Fprintln(sh.err, "✗ Error:", err)
			}
		}
		return sh.run(cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exInput.register(exploreCmd)
	exCharts.register(exploreCmd)
}

// replCommand is one parsed input line. State changes carry an event;
// everything else is handled by the shell.
type replCommand struct {
	name  string
	event session.Event
	args  []string
}

var errQuit = errors.New("quit")

// parseCommand turns an input line into a command. Words are split with
// shell quoting rules, so quoted column names may contain spaces. Blank
// lines and comments yield an empty name.
func parseCommand(line string) (replCommand, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return replCommand{}, dataset.Usagef("cannot parse %q: %v", line, err)
	}
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return replCommand{}, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	c := replCommand{name: name, args: args}
	switch name {
	case "load", "upload":
		if len(args) != 1 {
			return c, dataset.Usagef("usage: load <file>")
		}
		c.name = "load"
	case "dedup":
		if len(args) != 1 {
			return c, dataset.Usagef("usage: dedup on|off")
		}
		on, err := parseSwitch(args[0])
		if err != nil {
			return c, err
		}
		c.event = session.ToggleDedup{On: on}
	case "missing":
		if len(args) == 0 {
			return c, dataset.Usagef("usage: missing keep|drop|fill [value]")
		}
		c.event = session.SetMissingPolicy{
			Policy:    clean.Policy(strings.ToLower(args[0])),
			FillValue: strings.Join(args[1:], " "),
		}
	case "rows":
		if len(args) != 2 {
			return c, dataset.Usagef("usage: rows <head> <tail>")
		}
		head, err1 := strconv.Atoi(args[0])
		tail, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return c, dataset.Usagef("rows: expected two integers, got %q %q", args[0], args[1])
		}
		c.event = session.SetRows{Head: head, Tail: tail}
	case "counts":
		ev := session.SelectColumn{}
		if len(args) > 2 {
			return c, dataset.Usagef("usage: counts [column] [k]")
		}
		if len(args) > 0 {
			ev.Column = args[0]
		}
		if len(args) == 2 {
			k, err := strconv.Atoi(args[1])
			if err != nil || k < 1 {
				return c, dataset.Usagef("counts: k must be a positive integer, got %q", args[1])
			}
			ev.K = k
		}
		c.event = ev
	case "draw":
		c.event = session.TriggerCount{}
	case "group", "groupby":
		if len(args) < 2 || len(args) > 3 {
			return c, dataset.Usagef("usage: group <a,b,...> <target> [op]")
		}
		ev := session.SetAggregation{By: splitList(args[0]), Target: args[1]}
		if len(args) == 3 {
			ev.Op = aggregate.Op(strings.ToLower(args[2]))
		}
		c.event = ev
	case "kind", "chart":
		if len(args) != 1 {
			return c, dataset.Usagef("usage: kind line|bar|scatter|pie|sunburst")
		}
		c.event = session.SelectChartKind{Kind: chart.Kind(strings.ToLower(args[0]))}
	case "bind":
		if len(args) == 0 {
			return c, dataset.Usagef("usage: bind <role> [columns...]")
		}
		role, err := chart.ParseRole(args[0])
		if err != nil {
			return c, err
		}
		var cols []string
		for _, a := range args[1:] {
			cols = append(cols, splitList(a)...)
		}
		c.event = session.BindAxis{Role: role, Columns: cols}
	case "show", "render", "help", "?":
		if name == "?" {
			c.name = "help"
		}
	case "quit", "exit", "q":
		c.name = "quit"
	default:
		return c, dataset.Usagef("unknown command %q (type 'help')", fields[0])
	}
	return c, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, dataset.Usagef("expected on or off, got %q", s)
}

// shell holds the current session. Each event replaces it; errors leave
// it untouched.
type shell struct {
	s   session.Session
	out io.Writer
	err io.Writer
}

func (sh *shell) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(sh.out, "datalens> ")
		if !sc.Scan() {
			break
		}
		c, err := parseCommand(sc.Text())
		if err != nil {
			fmt.Fprintln(sh.err, "✗ Error:", err)
			continue
		}
		if c.name == "" {
			continue
		}
		if err := sh.exec(c); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintln(sh.out)
				return nil
			}
			fmt.Fprintln(sh.err, "✗ Error:", err)
		}
	}
	fmt.Fprintln(sh.out)
	return sc.Err()
}

func (sh *shell) exec(c replCommand) error {
	switch c.name {
	case "quit":
		return errQuit
	case "help":
		fmt.Fprintln(sh.out, exploreHelp)
		return nil
	case "load":
		data, err := os.ReadFile(c.args[0])
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if err := sh.dispatch(session.Upload{Name: c.args[0], Data: data}); err != nil {
			return err
		}
		v := session.Render(sh.s)
		if v.LoadErr != nil {
			return v.LoadErr
		}
		fmt.Fprintf(sh.out, "✓ Loaded %s: %d rows, %d columns (%s)\n", v.Source, v.Table.NumRows(), v.Table.NumCols(), strings.Join(v.Table.Names(), ", "))
		return nil
	case "show":
		what := "all"
		if len(c.args) > 0 {
			what = strings.ToLower(c.args[0])
		}
		return sh.show(what)
	case "render":
		v := session.Render(sh.s)
		if v.LoadErr != nil {
			return v.LoadErr
		}
		paths, err := exCharts.writeCharts(sh.out, v)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintln(sh.out, "⚠ Nothing to render: use 'draw' for value-count charts or 'group' for a group-by chart")
		}
		reportSectionErrors(sh.err, v)
		return nil
	}
	if c.event == nil {
		return dataset.Usagef("unknown command %q", c.name)
	}
	if err := sh.dispatch(c.event); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "✓ ok")
	return nil
}

func (sh *shell) dispatch(ev session.Event) error {
	next, err := sh.s.Dispatch(ev)
	if err != nil {
		return err
	}
	slog.Debug("event applied", "session", next.ID, "event", fmt.Sprintf("%T", ev))
	sh.s = next
	return nil
}

func (sh *shell) show(what string) error {
	if what == "options" {
		b, err := utils.YAML(sh.s.Options)
		if err != nil {
			return err
		}
		_, err = sh.out.Write(b)
		return err
	}
	v := session.Render(sh.s)
	if v.LoadErr != nil {
		return v.LoadErr
	}
	all := what == "all"
	switch {
	case what == "summary" || all:
		if v.Summary != nil {
			fmt.Fprintln(sh.out, v.Summary.Markdown())
		}
		if !all {
			return v.SummaryErr
		}
		fallthrough
	case what == "counts":
		if v.Counts != nil {
			fmt.Fprintln(sh.out, countsMarkdown(v.Counts))
		}
		if !all {
			return v.CountErr
		}
		fallthrough
	case what == "groups":
		if v.Groups != nil {
			fmt.Fprintln(sh.out, groupbyMarkdown(v.Groups))
		} else if !all && v.GroupErr == nil {
			fmt.Fprintln(sh.out, "⚠ No grouping selected: use 'group <a,b,...> <target> [op]'")
		}
		if !all {
			return v.GroupErr
		}
		fallthrough
	case what == "chart":
		if v.Chart != nil {
			fmt.Fprintf(sh.out, "[CHART: %s]\n", v.Chart.Kind)
			b, err := utils.YAML(v.Chart.Bindings)
			if err != nil {
				return err
			}
			_, _ = sh.out.Write(b)
		}
		if !all {
			if v.Chart == nil && v.ChartErr == nil && v.GroupErr == nil {
				fmt.Fprintln(sh.out, "⚠ No chart: select a grouping first")
			}
			if v.ChartErr != nil {
				return v.ChartErr
			}
			return v.GroupErr
		}
	default:
		return dataset.Usagef("show: unknown section %q (summary, counts, groups, chart, options, all)", what)
	}
	reportSectionErrors(sh.err, v)
	return nil
}

// reportSectionErrors prints the error of every failed section.
func reportSectionErrors(w io.Writer, v *session.View) {
	for _, sec := range []struct {
		name string
		err  error
	}{
		{"summary", v.SummaryErr},
		{"counts", v.CountErr},
		{"groups", v.GroupErr},
		{"chart", v.ChartErr},
	} {
		if sec.err != nil {
			fmt.Fprintf(w, "⚠ %s: %v\n", sec.name, sec.err)
		}
	}
}
