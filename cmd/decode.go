package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/gmailurl/internal/config"
	"github.com/teemow/gmailurl/internal/instrumentation"
	"github.com/teemow/gmailurl/internal/logging"
	"github.com/teemow/gmailurl/internal/output"
	"github.com/teemow/gmailurl/internal/pattern"
	"github.com/teemow/gmailurl/internal/record"
	"github.com/teemow/gmailurl/internal/scan"
	"github.com/teemow/gmailurl/internal/source"
)

type decodeOptions struct {
	text, raw   bool
	legacyOnly  bool
	newOnly     bool
	input       string
	output      string
	verbose     bool
	compact     bool
	debug       bool
	workers     int
	configFile  string
	metricsFile string
}

func newDecodeCmd() *cobra.Command {
	var opts decodeOptions

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Extract and decode Gmail URLs from an input file",
		Long: `Scan the input for Gmail URLs and write one JSON record per URL.

Text input (--text) is read line by line and each line must start with the
URL. Raw input (--raw) is searched exhaustively; greedy captures of tokens
that run into adjacent bytes are repaired before decoding.

Use "-" as input or output to read stdin or write stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.text, "text", "t", false, "Input is text with one URL per line")
	cmd.Flags().BoolVarP(&opts.raw, "raw", "r", false, "Input is raw binary data")
	cmd.Flags().BoolVarP(&opts.legacyOnly, "legacy", "l", false, "Match only legacy hexadecimal tokens")
	cmd.Flags().BoolVarP(&opts.newOnly, "new", "n", false, "Match only new-format tokens")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input file path")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output JSON file path")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print each record as it is found")
	cmd.Flags().BoolVarP(&opts.compact, "compact", "c", false, "Write compact JSON")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "Number of concurrent record builders. Can also use GMAILURL_WORKERS env var.")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the run ends. Can also use METRICS_TEXTFILE env var.")

	cmd.MarkFlagsOneRequired("text", "raw")
	cmd.MarkFlagsMutuallyExclusive("text", "raw")
	cmd.MarkFlagsMutuallyExclusive("legacy", "new")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// resolveConfig layers environment, config file and flags.
func resolveConfig(cmd *cobra.Command, opts decodeOptions) (config.Config, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return cfg, err
	}
	if opts.configFile != "" {
		if cfg, err = config.LoadFile(cfg, opts.configFile); err != nil {
			return cfg, err
		}
	}

	switch {
	case opts.legacyOnly:
		cfg.Mode = string(pattern.ModeLegacy)
	case opts.newOnly:
		cfg.Mode = string(pattern.ModeNew)
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = opts.workers
	}
	if opts.compact {
		cfg.Compact = true
	}
	if opts.metricsFile != "" {
		cfg.MetricsFile = opts.metricsFile
	}

	return cfg, cfg.Validate()
}

func runDecode(cmd *cobra.Command, opts decodeOptions) (err error) {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runID := uuid.NewString()
	base := logging.New(cmd.ErrOrStderr(), opts.debug).With(logging.RunID(runID))
	slog.SetDefault(base)
	logger := logging.WithOperation(base, "decode")

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Diagnostics = cmd.ErrOrStderr()
	if cfg.MetricsFile != "" {
		instrConfig.Enabled = true
		instrConfig.MetricsExporter = instrumentation.ExporterPrometheus
		instrConfig.MetricsTextfile = cfg.MetricsFile
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	if provider.Enabled() {
		logger.Debug("instrumentation enabled",
			"metrics_exporter", instrConfig.MetricsExporter,
			"tracing_exporter", instrConfig.TracingExporter,
			"metrics_file", instrConfig.MetricsTextfile)
	}
	defer func() {
		// The run context may already be cancelled; telemetry still gets flushed.
		if serr := provider.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(serr))
		}
	}()

	src := record.SourceText
	if opts.raw {
		src = record.SourceRaw
	}

	scanner, err := scan.New(scan.Options{
		Mode:     cfg.ParsedMode(),
		Correct:  cfg.CorrectOptions(),
		Timebase: cfg.Timebase,
		Workers:  cfg.Workers,
		Recorder: provider.Metrics(),
		Logger:   logging.NewSlogAdapter(logging.WithOperation(base, "scan")),
		RunID:    runID,
		Input:    opts.input,
	})
	if err != nil {
		return err
	}

	w, err := openOutput(cmd, opts, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if aerr := w.Abort(); aerr != nil {
				logger.Warn("failed to discard partial output", logging.Err(aerr))
			}
			return
		}
		if cerr := w.Close(); cerr != nil {
			err = cerr
		}
	}()

	emit := func(rec *record.Record) error { return w.Write(rec) }

	var stats scan.Stats
	switch src {
	case record.SourceRaw:
		stats, err = decodeRaw(ctx, logger, scanner, opts.input, emit)
	default:
		stats, err = decodeText(ctx, scanner, opts.input, emit)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", opts.input, err)
	}

	logger.Info("decode finished",
		logging.Source(string(src)),
		logging.Mode(string(scanner.Mode())),
		logging.Input(opts.input),
		"matches", stats.Matches,
		"records", w.Count(),
		logging.KeyDuration, stats.Duration)
	return nil
}

func openOutput(cmd *cobra.Command, opts decodeOptions, cfg config.Config) (*output.Writer, error) {
	var echo io.Writer
	if opts.verbose {
		echo = cmd.OutOrStdout()
		if opts.output == output.Stdout {
			echo = cmd.ErrOrStderr()
		}
	}
	outOpts := output.Options{Compact: cfg.Compact, Echo: echo}

	if opts.output == output.Stdout {
		return output.NewWriter(cmd.OutOrStdout(), outOpts), nil
	}
	return output.Create(opts.output, outOpts)
}

func decodeText(ctx context.Context, s *scan.Scanner, path string, emit scan.EmitFunc) (scan.Stats, error) {
	r, err := source.OpenText(path)
	if err != nil {
		return scan.Stats{}, err
	}
	defer r.Close()
	return s.Text(ctx, r, emit)
}

func decodeRaw(ctx context.Context, logger *slog.Logger, s *scan.Scanner, path string, emit scan.EmitFunc) (scan.Stats, error) {
	m, err := source.OpenRaw(path)
	if err != nil {
		return scan.Stats{}, err
	}
	defer m.Close()
	logger.Debug("raw input opened",
		logging.Input(path),
		"bytes", m.Len(),
		"mapped", m.Mapped())
	return s.Raw(ctx, m.Bytes(), emit)
}
