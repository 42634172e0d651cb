package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataLens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "head_rows: %d\n", c.HeadRows)
		fmt.Fprintf(w, "tail_rows: %d\n", c.TailRows)
		fmt.Fprintf(w, "top_values: %d\n", c.TopValues)
		fmt.Fprintf(w, "outlier_threshold: %.3f\n", c.OutlierThreshold)
		fmt.Fprintf(w, "chart_format: %s\n", c.ChartFormat)
		fmt.Fprintf(w, "chart_width: %d\n", c.ChartWidth)
		fmt.Fprintf(w, "chart_height: %d\n", c.ChartHeight)
		fmt.Fprintf(w, "output_dir: %s\n", c.OutputDir)
		if c.Delimiter != "" {
			fmt.Fprintf(w, "delimiter: %q\n", c.Delimiter)
		}
		if c.Decimal != "" {
			fmt.Fprintf(w, "decimal: %q\n", c.Decimal)
		}
		if c.Thousands != "" {
			fmt.Fprintf(w, "thousands: %q\n", c.Thousands)
		}
		if len(c.NAValues) > 0 {
			fmt.Fprintf(w, "na_values: %s\n", strings.Join(c.NAValues, ","))
		}
		if c.SheetName != "" {
			fmt.Fprintf(w, "sheet_name: %s\n", c.SheetName)
		}
		fmt.Fprintf(w, "sheet_index: %d\n", c.SheetIndex)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := settings()
		if err != nil {
			return err
		}
		switch key {
		case "head_rows", "tail_rows", "top_values", "chart_width", "chart_height", "sheet_index":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			if i == 0 && (key == "top_values" || key == "chart_width" || key == "chart_height" || key == "sheet_index") {
				return fmt.Errorf("%s must be at least 1", key)
			}
			switch key {
			case "head_rows":
				c.HeadRows = i
			case "tail_rows":
				c.TailRows = i
			case "top_values":
				c.TopValues = i
			case "chart_width":
				c.ChartWidth = i
			case "chart_height":
				c.ChartHeight = i
			case "sheet_index":
				c.SheetIndex = i
			}
		case "outlier_threshold":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid float for outlier_threshold: %v", val)
			}
			c.OutlierThreshold = f
		case "chart_format":
			f, err := chart.ParseFormat(val)
			if err != nil {
				return err
			}
			c.ChartFormat = string(f)
		case "output_dir":
			c.OutputDir = val
		case "delimiter", "decimal", "thousands":
			if _, err := cfgpkg.Rune(val); err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			switch key {
			case "delimiter":
				c.Delimiter = val
			case "decimal":
				c.Decimal = val
			case "thousands":
				c.Thousands = val
			}
		case "na_values":
			c.NAValues = splitList(val)
		case "sheet_name":
			c.SheetName = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
