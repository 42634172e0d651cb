package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/chart"
	"github.com/KaramelBytes/datalens-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/session"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/spf13/cobra"
)

// inputFlags are the parsing and cleaning flags shared by every command
// that reads a file.
type inputFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	naValues   []string
	sheetName  string
	sheetIndex int

	dedup     bool
	missing   string
	fillValue string

	head int
	tail int
}

func (f *inputFlags) register(c *cobra.Command) {
	fs := c.Flags()
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (by extension if omitted)")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	fs.StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	fs.StringSliceVar(&f.naValues, "na-values", nil, "comma-separated tokens read as missing values")
	fs.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	fs.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fs.BoolVar(&f.dedup, "dedup", false, "remove duplicate rows")
	fs.StringVar(&f.missing, "missing", "keep", "missing values: keep | drop | fill")
	fs.StringVar(&f.fillValue, "fill-value", "", "replacement for missing cells with --missing fill")
	fs.IntVar(&f.head, "head", 5, "rows shown from the top (0 hides the section)")
	fs.IntVar(&f.tail, "tail", 5, "rows shown from the bottom (0 hides the section)")
}

// loaderOptions merges the flags with the configuration; flags win when set.
func (f *inputFlags) loaderOptions(c *cobra.Command, g *cfgpkg.Global) (loader.Options, error) {
	fs := c.Flags()
	pick := func(name, flagVal, cfgVal string) string {
		if fs.Changed(name) {
			return flagVal
		}
		return cfgVal
	}
	var opt loader.Options
	var err error
	if opt.Delimiter, err = cfgpkg.Rune(pick("delimiter", f.delimiter, g.Delimiter)); err != nil {
		return opt, fmt.Errorf("unsupported --delimiter: %w", err)
	}
	if opt.Parse.DecimalSeparator, err = cfgpkg.Rune(pick("decimal", f.decimal, g.Decimal)); err != nil {
		return opt, fmt.Errorf("unsupported --decimal: %w", err)
	}
	if opt.Parse.ThousandsSeparator, err = cfgpkg.Rune(pick("thousands", f.thousands, g.Thousands)); err != nil {
		return opt, fmt.Errorf("unsupported --thousands: %w", err)
	}
	switch {
	case fs.Changed("na-values"):
		opt.Parse.NAValues = append(append([]string(nil), f.naValues...), dataset.DefaultNAValues...)
	case len(g.NAValues) > 0:
		opt.Parse.NAValues = append(append([]string(nil), g.NAValues...), dataset.DefaultNAValues...)
	}
	opt.SheetName = pick("sheet-name", f.sheetName, g.SheetName)
	opt.SheetIndex = g.SheetIndex
	if fs.Changed("sheet-index") || opt.SheetIndex < 1 {
		opt.SheetIndex = f.sheetIndex
	}
	return opt, nil
}

func (f *inputFlags) rows(c *cobra.Command, g *cfgpkg.Global) (head, tail int) {
	head, tail = g.HeadRows, g.TailRows
	if c.Flags().Changed("head") {
		head = f.head
	}
	if c.Flags().Changed("tail") {
		tail = f.tail
	}
	return head, tail
}

// openSession reads path and returns a session with the file uploaded and
// the cleaning and row options applied.
func (f *inputFlags) openSession(c *cobra.Command, path string) (session.Session, error) {
	g, err := settings()
	if err != nil {
		return session.Session{}, err
	}
	opt, err := f.loaderOptions(c, g)
	if err != nil {
		return session.Session{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return session.Session{}, fmt.Errorf("read input: %w", err)
	}
	s := session.New(opt)
	s.OutlierThreshold = g.OutlierThreshold
	head, tail := f.rows(c, g)
	events := []session.Event{
		session.Upload{Name: path, Data: data},
		session.ToggleDedup{On: f.dedup},
		session.SetMissingPolicy{Policy: clean.Policy(strings.ToLower(f.missing)), FillValue: f.fillValue},
		session.SetRows{Head: head, Tail: tail},
	}
	for _, ev := range events {
		if s, err = s.Dispatch(ev); err != nil {
			return session.Session{}, err
		}
	}
	slog.Debug("session opened", "session", s.ID, "file", path, "bytes", len(data))
	return s, nil
}

// outputFlags select how a command prints its result.
type outputFlags struct {
	format string
	output string
}

func (f *outputFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.format, "format", "markdown", "output format: markdown | json | yaml")
	c.Flags().StringVarP(&f.output, "output", "o", "", "optional path to write the result instead of stdout")
}

// write renders v in the selected format. markdown is called only for the
// markdown format.
func (f *outputFlags) write(w io.Writer, markdown func() string, v any) error {
	var b []byte
	var err error
	switch strings.ToLower(f.format) {
	case "", "markdown", "md":
		b = []byte(markdown())
	case "json":
		b, err = utils.PrettyJSON(v)
	case "yaml", "yml":
		b, err = utils.YAML(v)
	default:
		return dataset.Usagef("unsupported --format: %s (use markdown, json or yaml)", f.format)
	}
	if err != nil {
		return err
	}
	if f.output != "" {
		if err := utils.SafeWriteFile(f.output, b); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(w, "✓ Wrote %s\n", f.output)
		return nil
	}
	_, err = w.Write(b)
	if err == nil && len(b) > 0 && b[len(b)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// chartFlags control chart rendering.
type chartFlags struct {
	outDir      string
	imageFormat string
	width       int
	height      int
}

func (f *chartFlags) register(c *cobra.Command) {
	fs := c.Flags()
	fs.StringVar(&f.outDir, "out-dir", "", "directory for chart images (default from config output_dir)")
	fs.StringVar(&f.imageFormat, "image-format", "", "chart image format: svg | png (default from config)")
	fs.IntVar(&f.width, "width", 0, "chart width in pixels (default from config)")
	fs.IntVar(&f.height, "height", 0, "chart height in pixels (default from config)")
}

func (f *chartFlags) renderer() (chart.Renderer, string, error) {
	g, err := settings()
	if err != nil {
		return chart.Renderer{}, "", err
	}
	r := chart.DefaultRenderer()
	format := g.ChartFormat
	if f.imageFormat != "" {
		format = f.imageFormat
	}
	if format != "" {
		if r.Format, err = chart.ParseFormat(format); err != nil {
			return r, "", err
		}
	}
	if g.ChartWidth > 0 {
		r.Width = g.ChartWidth
	}
	if g.ChartHeight > 0 {
		r.Height = g.ChartHeight
	}
	if f.width > 0 {
		r.Width = f.width
	}
	if f.height > 0 {
		r.Height = f.height
	}
	dir := g.OutputDir
	if f.outDir != "" {
		dir = f.outDir
	}
	if dir == "" {
		dir = "charts"
	}
	return r, dir, nil
}

// writeCharts renders the view's charts into dir/<session>, one file per
// image, and reports each written path.
func (f *chartFlags) writeCharts(w io.Writer, v *session.View) ([]string, error) {
	r, dir, err := f.renderer()
	if err != nil {
		return nil, err
	}
	imgs, err := v.Images(r)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, nil
	}
	return saveImages(w, filepath.Join(dir, sessionDir(v.SessionID)), imgs)
}

func saveImages(w io.Writer, dir string, imgs []chart.Image) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var paths []string
	for _, img := range imgs {
		path := utils.UniquePath(dir, img.FileName())
		if err := utils.SafeWriteFile(path, img.Data); err != nil {
			return paths, err
		}
		slog.Debug("chart written", "path", path, "bytes", len(img.Data))
		fmt.Fprintf(w, "✓ Wrote chart %s\n", path)
		paths = append(paths, path)
	}
	return paths, nil
}

// sessionDir names the per-session chart directory.
func sessionDir(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
