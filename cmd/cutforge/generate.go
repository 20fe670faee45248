package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/cutforge/cutforge/internal/align"
	"github.com/cutforge/cutforge/internal/config"
	"github.com/cutforge/cutforge/internal/dataset"
	"github.com/cutforge/cutforge/internal/health"
	"github.com/cutforge/cutforge/internal/marker"
	"github.com/cutforge/cutforge/internal/observe"
	"github.com/cutforge/cutforge/internal/pipeline"
	"github.com/cutforge/cutforge/pkg/provider/vad"
)

var noProgress bool

var generateCmd = &cobra.Command{
	Use:   "generate <wav-file-or-dir>...",
	Short: "Process recordings into splice datapoints",
	Long: `Generate runs the full pipeline over the given WAV files. Directory
arguments are walked recursively for .wav files. Datapoints land under the
configured output directory, one subdirectory per cut.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %q not found, copy configs/example.yaml to get started", configPath)
		}
		return err
	}
	setupLogging(cfg.Run.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	deps, catalog, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	if catalog != nil {
		defer catalog.Close()
	}

	if cfg.Run.MetricsAddr != "" {
		srv := startMetricsServer(cfg, catalog, deps.Metrics)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	paths, err := collectRecordings(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no .wav files found in the given paths")
	}

	p, err := pipeline.New(cfg, deps)
	if err != nil {
		return err
	}

	slog.Info("batch starting",
		"recordings", len(paths),
		"concurrency", cfg.Run.Concurrency,
		"output_dir", cfg.Dataset.OutputDir,
	)

	progress := func(string, *pipeline.Summary, error) {}
	var bars *mpb.Progress
	if !noProgress && !quiet {
		bars = mpb.New(mpb.WithWidth(64))
		bar := bars.AddBar(int64(len(paths)),
			mpb.PrependDecorators(
				decor.Name("Recordings: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
			),
		)
		progress = func(string, *pipeline.Summary, error) { bar.Increment() }
	}

	bs, err := p.Batch(ctx, paths, progress)
	if bars != nil {
		bars.Wait()
	}
	if err != nil {
		return err
	}

	slog.Info("batch finished",
		"recordings", bs.Recordings,
		"failed", bs.Failed,
		"cuts_detected", bs.CutsDetected,
		"cuts_written", bs.CutsWritten,
		"cuts_skipped", bs.CutsSkipped,
	)
	if bs.Failed > 0 {
		return fmt.Errorf("%d of %d recordings failed", bs.Failed, bs.Recordings)
	}
	return nil
}

// buildDeps instantiates every external service the pipeline needs from the
// configuration. The returned catalog is nil when no DSN is configured.
func buildDeps(ctx context.Context, cfg *config.Config) (pipeline.Deps, *dataset.Catalog, error) {
	reg := config.DefaultRegistry()

	llmProv, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return pipeline.Deps{}, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	sttProv, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return pipeline.Deps{}, nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	vadEngine, err := vad.NewRMSEngine(cfg.VAD)
	if err != nil {
		return pipeline.Deps{}, nil, fmt.Errorf("create vad engine: %w", err)
	}
	aligner, err := align.NewMFA(cfg.Align)
	if err != nil {
		return pipeline.Deps{}, nil, fmt.Errorf("create aligner: %w", err)
	}

	var catalog *dataset.Catalog
	if dsn := cfg.Dataset.PostgresDSN; dsn != "" {
		catalog, err = dataset.NewCatalog(ctx, dsn)
		if err != nil {
			return pipeline.Deps{}, nil, err
		}
		slog.Info("dataset catalog connected")
	}

	return pipeline.Deps{
		STT:     sttProv,
		Marker:  marker.New(llmProv),
		VAD:     vadEngine,
		Aligner: aligner,
		Catalog: catalog,
		Metrics: observe.DefaultMetrics(),
	}, catalog, nil
}

// startMetricsServer serves /metrics plus health endpoints on the
// configured address. Failures to listen are logged, not fatal; a batch run
// without metrics is still a batch run.
func startMetricsServer(cfg *config.Config, catalog *dataset.Catalog, metrics *observe.Metrics) *http.Server {
	var pinger health.Pinger
	if catalog != nil {
		pinger = catalog
	}
	h := health.New(
		health.Database(pinger),
		health.OutputDir(cfg.Dataset.OutputDir),
	)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	h.Register(mux)

	srv := &http.Server{
		Addr:    cfg.Run.MetricsAddr,
		Handler: observe.Middleware(metrics)(mux),
	}
	go func() {
		slog.Info("metrics endpoint listening", "addr", cfg.Run.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server error", "err", err)
		}
	}()
	return srv
}

// collectRecordings expands the command arguments into a sorted list of WAV
// file paths. Directories are walked recursively.
func collectRecordings(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".wav") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}
