package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/fwloom/internal/aggregator"
	"github.com/atikulmunna/fwloom/internal/hub"
	"github.com/atikulmunna/fwloom/internal/output"
	"github.com/atikulmunna/fwloom/internal/server"
	"github.com/atikulmunna/fwloom/internal/tailer"
	"github.com/atikulmunna/fwloom/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dumps...]",
	Short: "Watch raw log dumps for new records",
	Long: `Watch one or more raw log dumps (or glob patterns) that a device
poller appends to, and stream newly decoded lines to the terminal in real
time. A recreated or truncated dump starts a new timestamp session.

Examples:
  fwloom watch /captures/hkr.bin --schema HKRParser.xml
  fwloom watch "/captures/**/*.bin" -s defs.xml --source 0 --port 8080
  fwloom watch fw.bin -s HKRParser.xml --redis localhost:6379 -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringP("port", "p", "", "serve the live dashboard on this port")
	f.String("checkpoint", ".fwloom-state.json", "file recording how far each dump was decoded")
	f.Bool("from-start", false, "decode existing records of dumps without a checkpoint")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	// --- Set up context with graceful shutdown ---
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nfwloom shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	repo, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	filter, err := newFilter(cfg, repo)
	if err != nil {
		return err
	}
	renderer, err := output.New(cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// --- Initialize watcher ---
	w, err := watcher.New(args, logger.Named("watcher"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	watchedPaths := w.Paths()
	if len(watchedPaths) == 0 {
		return fmt.Errorf("no files matched the given patterns: %v", args)
	}

	fmt.Fprintf(os.Stderr, "fwloom watching %d dump(s):\n", len(watchedPaths))
	for _, p := range watchedPaths {
		fmt.Fprintf(os.Stderr, "   - %s\n", p)
	}
	fmt.Fprintln(os.Stderr)

	// --- Initialize checkpoint and tailer ---
	ckpt, err := tailer.NewCheckpoint(cfg.Checkpoint)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	t := tailer.New(w, ckpt, tailer.Options{
		HeaderSize: int64(cfg.HeaderSize),
		FromStart:  cfg.FromStart,
	}, logger.Named("tailer"))

	// --- Decode and fan out ---
	h := hub.New(t.Chunks(), newParser(cfg, repo), logger.Named("hub"))
	display := h.Subscribe()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	agg := aggregator.New(h.Subscribe(), h.Dropped, func() int { return len(w.Paths()) },
		aggregator.NewMetrics(reg, h.Dropped))

	redisSink, closeSink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()
	if redisSink != nil {
		go redisSink.Start(ctx, h.Subscribe())
	}

	if cfg.Port != "" {
		srv := server.New(h, agg, server.Options{Port: cfg.Port, Schema: repo, Gatherer: reg}, logger.Named("server"))
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("dashboard stopped", zap.Error(err))
			}
		}()
		fmt.Fprintf(os.Stderr, "dashboard on http://localhost:%s\n\n", cfg.Port)
	}

	// --- Start pipeline ---
	go w.Start(ctx)
	go t.Start(ctx)
	go h.Start(ctx)
	go agg.Start(ctx)

	// --- Render output ---
	for line := range display {
		if !filter.Show(line) {
			continue
		}
		if err := renderer.Render(line); err != nil {
			logger.Warn("render error", zap.Error(err))
		}
	}

	if redisSink != nil {
		logger.Info("redis sink summary",
			zap.Int64("written", redisSink.Written()), zap.Int64("failed", redisSink.Failed()))
	}
	logger.Info("decoded", zap.Int64("lines", h.Decoded()), zap.Int64("dropped", h.Dropped()))
	return nil
}
