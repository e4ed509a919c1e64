// package main is the asngap command line tool
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"paepcke.de/asngap"
	"paepcke.de/asngap/artifact"
	"paepcke.de/asngap/config"
	"paepcke.de/asngap/metrics"
)

// app is the state shared by all commands of one run
type app struct {
	// flags
	configPath  string
	country     string
	spoofer     string
	outDir      string
	timeout     time.Duration
	metricsFile string

	cfg     *config.Config
	log     *logrus.Entry
	metrics *metrics.Metrics
	recon   *asngap.Recon
	store   *artifact.Store
	out     io.Writer
}

// main ..
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&app{out: os.Stdout}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd ...
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asngap",
		Short: "Find registry asns missing from caida and categorize them by spoofer results",
		Long: `asngap collects the asns the regional internet registries delegate to a
country, compares them with the caida as rank dataset and classifies asn lists
by their most recent caida spoofer test.

env vars
  ASNGAP_CONFIG           config file (yaml)
  ASNGAP_COUNTRY          registry country code
  ASNGAP_SPOOFER_COUNTRY  spoofer country filter (three letters)
  ASNGAP_OUTDIR           artifact directory
  HTTPS_PROXY, SSL_CERT_[FILE|DIR]`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.writeMetrics()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "config file path (yaml)")
	f.StringVar(&a.country, "country", "", "registry country code, overrides the config")
	f.StringVar(&a.spoofer, "spoofer-country", "", "spoofer three letter country filter, overrides the config")
	f.StringVarP(&a.outDir, "out", "o", "", "artifact directory, overrides the config")
	f.DurationVar(&a.timeout, "timeout", 0, "abort the run after this duration (0 = none)")
	f.StringVar(&a.metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")

	cmd.AddCommand(
		newRirCmd(a),
		newCaidaCmd(a),
		newDiffCmd(a),
		newClassifyCmd(a),
		newCategorizeCmd(a),
		newScrapeCmd(a),
		newPrefixesCmd(a),
	)
	return cmd
}

// setup loads the config and wires logger, metrics, pipeline and store
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.country != "" {
		cfg.Country = a.country
	}
	if a.spoofer != "" {
		cfg.Spoofer.Country = a.spoofer
	}
	if a.outDir != "" {
		cfg.Output.Dir = a.outDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	a.log = logger.WithField("run", uuid.NewString())
	a.metrics = metrics.New()
	a.store = &artifact.Store{Dir: cfg.Output.Dir, Compress: cfg.Output.Compress, Stamp: cfg.Output.Stamp}
	a.recon, err = asngap.NewFromConfig(cfg, a.log, a.metrics)
	return err
}

// context derives the command context, bounded by --timeout
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

// writeMetrics ...
func (a *app) writeMetrics() error {
	if a.metricsFile == "" {
		return nil
	}
	if err := a.metrics.WriteFile(a.metricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// newLogger builds the run logger from the log config
func newLogger(cfg config.LogCfg, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format [%s]", cfg.Format)
	}
	return logger, nil
}
