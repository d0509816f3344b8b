// azicorr runs the centrality-binned azimuthal correlation analysis.
//
// Usage:
//
//	azicorr run --input events.hepmc.gz --output azicorr.yoda
//	azicorr run --synthetic 10000 --addr :9080 --serve
//	azicorr validate --config analysis.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/okian/azicorr/internal/adapters/http/api"
	"github.com/okian/azicorr/internal/adapters/output"
	"github.com/okian/azicorr/internal/adapters/source"
	app "github.com/okian/azicorr/internal/app"
	"github.com/okian/azicorr/internal/config"
	"github.com/okian/azicorr/internal/domain/correlation"
	"github.com/okian/azicorr/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "azicorr",
		Short: "Centrality-binned two-particle azimuthal correlations",
		Long: `azicorr reads heavy-ion collision events, classifies them by centrality,
pairs high-pt photon or neutral-pion triggers with charged hadrons and writes
the per-trigger normalized delta-phi, I_AA and I_AA(z) distributions.

Configuration is layered: defaults, AZICORR_CONFIG (YAML), AZICORR_* env
variables, then command-line flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logger.Init()
		},
	}

	root.AddCommand(runCmd())
	root.AddCommand(validateCmd())
	return root
}

// runFlags are the command-line overrides of the loaded configuration.
type runFlags struct {
	config    string
	inputs    []string
	synthetic int
	seed      uint64
	output    string
	addr      string
	workers   int
	logLevel  string
	serve     bool
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.config, "config", "c", "", "YAML configuration file (overrides "+config.EnvConfig+")")
	fs.StringSliceVarP(&f.inputs, "input", "i", nil, "HepMC input file, repeatable; .gz is decompressed")
	fs.IntVar(&f.synthetic, "synthetic", 0, "generate this many toy events instead of reading inputs")
	fs.Uint64Var(&f.seed, "seed", 1, "seed of the synthetic generator")
	fs.StringVarP(&f.output, "output", "o", "", "YODA output file")
	fs.StringVar(&f.addr, "addr", "", "HTTP listen address for metrics and results")
	fs.IntVarP(&f.workers, "workers", "w", 0, "correlation workers; 0 means one per CPU")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
}

// apply copies the flags the user set onto cfg.
func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("input") {
		cfg.Inputs = f.inputs
		cfg.SyntheticEvents = 0
	}
	if fs.Changed("synthetic") {
		cfg.SyntheticEvents = f.synthetic
		if !fs.Changed("input") {
			cfg.Inputs = nil
		}
	}
	if fs.Changed("seed") {
		cfg.SyntheticSeed = f.seed
	}
	if fs.Changed("output") {
		cfg.Output = f.output
	}
	if fs.Changed("addr") {
		cfg.Addr = f.addr
	}
	if fs.Changed("workers") {
		cfg.WorkerCount = f.workers
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

// load builds the effective configuration and validates it.
func (f *runFlags) load(cmd *cobra.Command) (*config.Config, error) {
	if f.config != "" {
		if err := os.Setenv(config.EnvConfig, f.config); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	f.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the analysis over an event source",
		Long: `Run the analysis over HepMC files or synthetic events.

Examples:
  # Two HepMC files, results to a YODA file
  azicorr run -i minbias-1.hepmc.gz -i minbias-2.hepmc.gz -o azicorr.yoda

  # Toy events, results browsable over HTTP until interrupted
  azicorr run --synthetic 20000 --addr :9080 --serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return runAnalysis(cmd.Context(), cfg, f.serve, cmd.OutOrStdout())
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().BoolVar(&f.serve, "serve", false, "keep serving results over HTTP after the run until interrupted")
	return cmd
}

func validateCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without reading events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			s, err := cfg.Settings()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: %d centrality bins, %d trigger bands, source %s\n",
				len(s.CentralityBins), len(s.TriggerBands), describeSource(cfg))
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func runAnalysis(ctx context.Context, cfg *config.Config, serve bool, stdout io.Writer) error {
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Error(ctx, "error closing source", logger.Error(err))
		}
	}()

	var sinks []output.Sink
	if cfg.Output != "" {
		yoda, err := output.NewYODA(cfg.Output)
		if err != nil {
			return err
		}
		defer func() {
			if err := yoda.Close(); err != nil {
				log.Error(ctx, "error closing output", logger.String("path", yoda.Path()), logger.Error(err))
			}
		}()
		sinks = append(sinks, yoda)
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithSettings(settings),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSinks(sinks...),
	)

	var srv *http.Server
	if cfg.Addr != "" {
		srv = newHTTPServer(ctx, cfg.Addr, svc)
		go func() {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "HTTP server failed", logger.Error(err))
			}
		}()
		defer shutdownHTTPServer(ctx, srv)
	}

	rep, err := svc.Run(ctx, src)
	if err != nil {
		return err
	}
	if err := printSummary(stdout, rep, svc.GetStats()); err != nil {
		return err
	}

	if srv != nil && serve {
		log.Info(ctx, "serving results until interrupted", logger.String("addr", cfg.Addr))
		<-ctx.Done()
	}
	return nil
}

func openSource(cfg *config.Config) (source.Source, error) {
	if cfg.SyntheticEvents > 0 {
		return source.NewSynthetic(cfg.SyntheticEvents, cfg.SyntheticSeed)
	}
	return source.NewHepMC(cfg.Inputs)
}

func describeSource(cfg *config.Config) string {
	if cfg.SyntheticEvents > 0 {
		return fmt.Sprintf("synthetic(%d events, seed %d)", cfg.SyntheticEvents, cfg.SyntheticSeed)
	}
	return "hepmc(" + strings.Join(cfg.Inputs, ", ") + ")"
}

func newHTTPServer(ctx context.Context, addr string, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc.Results(), svc).Register(ctx, mux)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func shutdownHTTPServer(ctx context.Context, srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Get().Error(ctx, "server shutdown failed", logger.Error(err))
	}
}

// printSummary writes the per-bin trigger and pair counts of a finished run.
func printSummary(w io.Writer, rep correlation.Report, stats map[string]any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BIN\tCENTRALITY\tTRIGGERS\tPAIRS\tSTATUS")
	for _, b := range rep.Bins {
		status := "ok"
		if !b.Valid {
			status = "no triggers, not normalized"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", b.Bin.Index, b.Bin.Range, b.Triggers, b.Pairs, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nevents read %v, accepted %d, source errors %v\n", stats["eventsRead"], rep.Accepted, stats["sourceErrors"])
	reasons := make([]string, 0, len(rep.Vetoes))
	for r := range rep.Vetoes {
		reasons = append(reasons, r)
	}
	slices.Sort(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "vetoed %-14s %d\n", r, rep.Vetoes[r])
	}
	_, err := fmt.Fprintf(w, "%d distributions written\n", len(rep.Results))
	return err
}
