package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gpulife/internal/backend"
	_ "gpulife/internal/backend/cpu"
	_ "gpulife/internal/backend/kage"
	_ "gpulife/internal/backend/opencl"
	_ "gpulife/internal/backend/webgpu"
	"gpulife/internal/config"
	"gpulife/internal/gpu"
	"gpulife/internal/logging"
	"gpulife/internal/metrics"
	"gpulife/internal/render"
	"gpulife/internal/sim"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logging.New(logging.Config{
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
		ServiceName: "gpulife",
		Backend:     cfg.Backend,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		if errors.Is(err, gpu.ErrUnsupportedPlatform) || errors.Is(err, gpu.ErrAdapterUnavailable) {
			fmt.Fprintf(os.Stderr, "gpulife: %v\n", err)
			fmt.Fprintf(os.Stderr, "try -backend cpu (available: %v)\n", backend.Names())
			os.Exit(2)
		}
		log.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := backend.Open(cfg.Backend, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	rec := metrics.NewRecorder(b.Name())
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, rec)
		go func() {
			if err := metrics.Serve(ctx, srv, log); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	orch, err := sim.NewOrchestrator(b.Device(), b.Surface(), b.Resources(), gpu.ColorFrom(cfg.BackgroundColor()))
	if err != nil {
		return err
	}
	driver := sim.NewDriver(orch, rec, log)
	loop := sim.NewLoop(driver, sim.NewState(cfg.Interval, time.Now()), sim.Info{
		Backend:       b.Name(),
		Grid:          b.Resources().Grid,
		WorkgroupSize: b.Resources().WorkgroupSize,
		Workgroups:    orch.Workgroups(),
	})
	if in, ok := b.(backend.Interactive); ok {
		in.Attach(loop)
	}

	log.Info("running",
		zap.Int("grid", cfg.GridSize),
		zap.Duration("interval", cfg.Interval),
		zap.Uint32("workgroups", orch.Workgroups()),
		zap.Int("frames", cfg.Frames))
	if err := b.Run(ctx, loop.Frame); err != nil {
		return err
	}
	st := loop.State()
	log.Info("stopped", zap.Uint64("step", st.Step), zap.Uint64("frames", st.Frames))

	if cfg.Snapshot == "" {
		return nil
	}
	snap, ok := b.(backend.Snapshotter)
	if !ok {
		log.Warn("backend cannot snapshot", zap.String("path", cfg.Snapshot))
		return nil
	}
	img, err := snap.Snapshot()
	if err != nil {
		return err
	}
	if err := render.WritePNG(cfg.Snapshot, img); err != nil {
		return err
	}
	log.Info("snapshot written", zap.String("path", cfg.Snapshot))
	return nil
}
