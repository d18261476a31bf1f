package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yashubustudio/mbtidash/mbti"
)

type cli struct {
	out        io.Writer
	configPath string
	dataPath   string
	verbose    bool

	logger *zap.Logger
	cfg    mbti.Config
	svc    *mbti.Service
}

func main() {
	c := newCLI(os.Stdout)
	if err := c.command().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mbti-cli: %v\n", err)
		os.Exit(1)
	}
}

func newCLI(out io.Writer) *cli {
	return &cli{out: out}
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "mbti-cli",
		Short: "Query per-country MBTI distributions",
		Long: `mbti-cli loads a per-country MBTI distribution table (CSV or TSV) and
prints the global average, per-type country rankings and a two-country
comparison. Split "-A"/"-T" columns are merged into one percentage per type.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config.json or config.yaml (default: ./config.json)")
	root.PersistentFlags().StringVar(&c.dataPath, "data", "", "Dataset path overriding the configured data_path")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		c.averageCmd(),
		c.topCmd(),
		c.compareCmd(),
		c.countriesCmd(),
		c.schemaCmd(),
		c.exportCmd(),
		c.chartCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := mbti.LoadConfig(strings.TrimSpace(c.configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if path := strings.TrimSpace(c.dataPath); path != "" {
		cfg.DataPath = path
	}
	if c.logger == nil {
		if c.logger, err = buildLogger(cfg.Log, c.verbose); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}
	loader := mbti.NewLoader(mbti.LoaderOptions{Columns: cfg.Columns, Logger: c.logger})
	svc, err := mbti.NewService(cfg, loader, c.logger)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	c.cfg = svc.Config()
	c.svc = svc
	return nil
}

func (c *cli) teardown() {
	if c.svc != nil {
		_ = c.svc.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func buildLogger(cfg mbti.LogConfig, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}
