package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yashubustudio/mbtidash/internal/chart"
	"yashubustudio/mbtidash/internal/report"
	"yashubustudio/mbtidash/internal/server"
	"yashubustudio/mbtidash/mbti"
)

func (c *cli) averageCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "average",
		Short: "Print the global average share of every type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			avgs, err := c.svc.Averages()
			if err != nil {
				return err
			}
			if len(avgs) == 0 {
				printWarning(c.out, "no MBTI type columns found in %s", c.cfg.DataPath)
				return nil
			}
			common := mbti.MostCommon(avgs, c.cfg.MostCommon)
			if limit > 0 {
				avgs = mbti.MostCommon(avgs, limit)
			}
			f := c.svc.Formatter()
			t := newTextTable("Global average", "#", "Type", "Average", "Countries").alignRight(0, 2, 3)
			for i, a := range avgs {
				t.add(strconv.Itoa(i+1), string(a.Type), f.Format(a.Average), strconv.Itoa(a.Countries))
			}
			t.print(c.out)
			names := make([]string, len(common))
			for i, a := range common {
				names[i] = string(a.Type)
			}
			printNote(c.out, "Most common: %s", strings.Join(names, ", "))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Only print the first N types")
	return cmd
}

func (c *cli) topCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "top TYPE",
		Short: "Rank countries by the share of one type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := mbti.ParseTypeCode(args[0])
			if err != nil {
				return err
			}
			ranked, err := c.svc.TopN(code, n)
			if err != nil {
				return err
			}
			f := c.svc.Formatter()
			t := newTextTable(fmt.Sprintf("Top %d countries for %s", len(ranked), code), "Rank", "Country", string(code)).alignRight(0, 2)
			for _, r := range ranked {
				t.add(strconv.Itoa(r.Rank), r.Country, f.Format(r.Value))
			}
			t.print(c.out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 0, "Number of countries (default: config top_n)")
	return cmd
}

func (c *cli) compareCmd() *cobra.Command {
	var reference, shape string
	cmd := &cobra.Command{
		Use:   "compare [TARGET]",
		Short: "Compare a target country with the reference country",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if shape != "wide" && shape != "long" {
				return fmt.Errorf("--shape must be wide or long, got %q", shape)
			}
			target := ""
			if len(args) == 1 {
				target = strings.TrimSpace(args[0])
			}
			if target == "" {
				var err error
				if target, err = c.svc.DefaultTarget(); err != nil {
					return err
				}
			}
			if reference == "" {
				reference = c.cfg.ReferenceCountry
			}
			res, err := c.svc.CompareWith(reference, target)
			if err != nil {
				return err
			}
			f := c.svc.Formatter()
			title := fmt.Sprintf("%s vs %s", res.Reference, res.Target)
			if shape == "long" {
				t := newTextTable(title, "Country", "Type", "Value").alignRight(2)
				for _, r := range res.Long() {
					t.add(r.Country, string(r.Type), f.Format(r.Value))
				}
				t.print(c.out)
				return nil
			}
			t := newTextTable(title, "Type", res.Reference, res.Target).alignRight(1, 2)
			for _, r := range res.Wide() {
				t.add(string(r.Type), f.Format(r.Reference), f.Format(r.Target))
			}
			t.print(c.out)
			return nil
		},
	}
	cmd.Flags().StringVar(&reference, "reference", "", "Reference country (default: config reference_country)")
	cmd.Flags().StringVar(&shape, "shape", "wide", "Output shape: wide or long")
	return cmd
}

func (c *cli) countriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List the countries in the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := c.svc.Table()
			if err != nil {
				return err
			}
			for _, country := range table.Countries() {
				if country == c.cfg.ReferenceCountry {
					fmt.Fprintf(c.out, "%s %s\n", country, mutedStyle.Render("(reference)"))
					continue
				}
				fmt.Fprintln(c.out, country)
			}
			if _, ok := table.Row(c.cfg.ReferenceCountry); !ok {
				printWarning(c.out, "reference country %q is not in the dataset", c.cfg.ReferenceCountry)
			}
			return nil
		},
	}
}

func (c *cli) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the detected column layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := c.svc.Table()
			if err != nil {
				return err
			}
			schema := table.Schema()
			src := table.Source()
			printNote(c.out, "%s (%d bytes, sha1 %s)", src.Path, src.Size, src.Digest)
			fmt.Fprintf(c.out, "layout: %s, country column #%d, %d countries\n", schema.Variant, schema.CountryColumn, table.Len())
			t := newTextTable("", "Type", "Kind", "Columns")
			for _, b := range schema.Bindings {
				cols := fmt.Sprintf("#%d", b.Merged)
				if b.Kind == mbti.BindSplit {
					cols = fmt.Sprintf("#%d + #%d", b.Assertive, b.Turbulent)
				}
				t.add(string(b.Type), b.Kind.String(), cols)
			}
			t.print(c.out)
			return nil
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var format, out, code, target, view string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dashboard views as xlsx or csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "xlsx" && format != "csv" {
				return fmt.Errorf("--format must be xlsx or csv, got %q", format)
			}
			snap, err := c.snapshot(code, target)
			if err != nil {
				return err
			}
			path, err := resolveOutputPath(out, "exports", "mbti_", "."+format)
			if err != nil {
				return err
			}
			views := report.FromSnapshot(snap)
			if format == "xlsx" {
				err = report.WriteWorkbook(path, views)
			} else {
				err = writeCSVFile(path, views, report.Kind(view))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "Output format: xlsx or csv")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: exports/mbti_<timestamp>.<format>)")
	cmd.Flags().StringVar(&code, "type", "", "Type for the ranking view (default: first type)")
	cmd.Flags().StringVar(&target, "target", "", "Comparison target (default: last or configured target)")
	cmd.Flags().StringVar(&view, "view", string(report.KindAverage), "View for csv output: average, top, compare or compare-long")
	return cmd
}

func (c *cli) chartCmd() *cobra.Command {
	var dir, code, target string
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the dashboard views as PNG charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := c.snapshot(code, target)
			if err != nil {
				return err
			}
			paths, err := chart.WriteAll(dir, snap, chart.DefaultSize)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(c.out, "wrote %s\n", p)
			}
			if snap.ReferenceMissing {
				printWarning(c.out, "reference country %q missing, comparison chart skipped", snap.Reference)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "out-dir", "charts", "Directory for the PNG files")
	cmd.Flags().StringVar(&code, "type", "", "Type for the ranking chart (default: first type)")
	cmd.Flags().StringVar(&target, "target", "", "Comparison target (default: last or configured target)")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the views as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if _, err := c.svc.Table(); err != nil {
				c.logger.Warn("initial load failed", zap.Error(err))
			}
			if c.cfg.Watch {
				if err := c.svc.Watch(ctx, nil); err != nil {
					c.logger.Warn("watch disabled", zap.Error(err))
				}
			}
			return server.New(c.svc, c.logger).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: config server.addr)")
	return cmd
}

func (c *cli) snapshot(code, target string) (*mbti.Snapshot, error) {
	var typ mbti.TypeCode
	if strings.TrimSpace(code) != "" {
		var err error
		if typ, err = mbti.ParseTypeCode(code); err != nil {
			return nil, err
		}
	}
	return c.svc.Snapshot(typ, strings.TrimSpace(target))
}

func writeCSVFile(path string, views report.Views, kind report.Kind) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteCSV(f, views, kind); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func resolveOutputPath(path, dir, prefix, ext string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("%s%s%s", prefix, time.Now().Format("20060102150405"), ext)
	return filepath.Join(absDir, filename), nil
}

