package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ringkv/internal/config"
	"ringkv/internal/httpapi"
	"ringkv/pkg/clientpool"
	"ringkv/pkg/clock"
	"ringkv/pkg/cluster"
	"ringkv/pkg/coordinator"
	"ringkv/pkg/lsm"
	"ringkv/pkg/workerpool"
)

const (
	foregroundPoolSize = 8
	foregroundQueue    = 64
	repairPoolSize     = 4
	repairQueue        = 256
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to node config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	initLogger(cfg)

	if err := run(ctx, cfg); err != nil {
		slog.Error("ringkv exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	topo, err := cluster.NewTopology(cfg.Replication.Peers, cfg.Server.Addr)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return err
	}
	engine, err := lsm.Open(cfg.Storage.DataDir, lsm.WithFlushThreshold(cfg.Storage.FlushThresholdBytes))
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Error("failed to close engine", "err", err)
		}
	}()

	pools := make([]*clientpool.Pool, topo.Size())
	for i := 0; i < topo.Size(); i++ {
		if topo.IsSelf(i) {
			continue
		}
		pools[i] = clientpool.New("http://"+topo.Endpoint(i), clientpool.DefaultSize, clientpool.DefaultTimeout)
	}

	repair := workerpool.New(ctx, repairPoolSize, repairQueue)
	coord := coordinator.New(topo, engine, pools, clock.System{}, repair, slog.Default())

	foreground := workerpool.New(ctx, foregroundPoolSize, foregroundQueue)
	ack, from := config.DefaultQuorum(topo.Size())
	server := httpapi.New(cfg.Server.Addr, coord, foreground, topo.Size(), ack, from, slog.Default())

	if err := server.Start(); err != nil {
		return err
	}
	slog.Info("ringkv node started", "addr", cfg.Server.Addr, "peers", cfg.Replication.Peers)

	<-ctx.Done()
	slog.Info("ringkv node stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return err
	}
	repair.Stop()

	slog.Info("ringkv node stopped")
	return nil
}

func initLogger(cfg config.Config) {
	var handler slog.Handler
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	}
	slog.SetDefault(slog.New(handler))
}
