package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/koopa0/shortcore/internal/alias"
	"github.com/koopa0/shortcore/internal/allocator"
	"github.com/koopa0/shortcore/internal/applog"
	"github.com/koopa0/shortcore/internal/bloom"
	"github.com/koopa0/shortcore/internal/codegen"
	"github.com/koopa0/shortcore/internal/config"
	"github.com/koopa0/shortcore/internal/httpapi"
	"github.com/koopa0/shortcore/internal/resolver"
	"github.com/koopa0/shortcore/internal/store"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		panic("configuration error: " + err.Error())
	}

	logger, err := applog.New(cfg.LogEnv)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting shortcore",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("base_url", cfg.BaseURL),
		zap.String("engine", cfg.ShortenerEngineKind),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ps, err := store.NewPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer ps.Close()

	filter, restored, err := bloom.Warm(ctx, ps, cfg.BloomSnapshotName, cfg.BloomTargetCapacity, cfg.BloomFalsePositiveRate, logger)
	if err != nil {
		logger.Fatal("failed to warm bloom filter", zap.Error(err))
	}
	logger.Info("bloom filter ready", zap.Bool("restored_from_snapshot", restored))

	sequenceStart, err := recoverSequenceStart(ctx, ps, cfg.ShortenerAlphabet)
	if err != nil {
		logger.Fatal("failed to recover sequence counter", zap.Error(err))
	}

	generator, err := codegen.Build(codegen.Config{
		Length:        cfg.ShortenerLength,
		AlphabetSpec:  cfg.ShortenerAlphabet,
		EngineKind:    cfg.ShortenerEngineKind,
		SequenceStart: sequenceStart,
	})
	if err != nil {
		logger.Fatal("failed to build code generator", zap.Error(err))
	}

	al := allocator.New(allocator.Config{
		Store:       ps,
		Filter:      filter,
		Generator:   generator,
		Validator:   alias.NewValidator(cfg.AliasMaxLength, cfg.AliasReserved),
		RetryBudget: cfg.ShortenerRetryBudget,
		DedupOn:     cfg.DedupEnabled,
		Logger:      logger,
	})
	rs := resolver.New(ps, filter, logger)

	h := httpapi.NewHandler(httpapi.Config{
		Allocator:    al,
		Resolver:     rs,
		Store:        ps,
		Logger:       logger,
		MaxURLLength: cfg.StoreMaxURLLength,
	})
	router := httpapi.NewRouter(h)

	var wg sync.WaitGroup
	snapshotDone := make(chan struct{})
	wg.Add(1)
	go runSnapshotWorker(ctx, &wg, snapshotDone, ps, filter, cfg.BloomSnapshotName, time.Duration(cfg.BloomSnapshotIntervalSec)*time.Second, logger)

	server := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", cfg.ServerAddress))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	close(snapshotDone)
	wg.Wait()

	if err := ps.SaveSnapshot(shutdownCtx, cfg.BloomSnapshotName, filter.Snapshot()); err != nil {
		logger.Warn("final bloom snapshot failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// recoverSequenceStart implements the sequence engine's startup recovery
// from §4.2: decode the current maximum primary code with the configured
// alphabet and take +1 as the next counter value, or 1 if no codes exist.
func recoverSequenceStart(ctx context.Context, ps *store.Postgres, alphabetSpec string) (uint64, error) {
	table, err := codegen.ParseAlphabet(alphabetSpec)
	if err != nil {
		return 0, err
	}

	code, ok, err := ps.MaxPrimaryCode(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}

	v, decodeOK := codegen.DecodeFixedWidth(code, table)
	if !decodeOK {
		// The existing maximum code contains a character outside the
		// configured alphabet (it was issued under a different one);
		// start the sequence fresh rather than fail startup.
		return 1, nil
	}
	return v + 1, nil
}

// runSnapshotWorker periodically persists the bloom filter, following the
// teacher's ticker/select/shutdown-channel worker shape.
func runSnapshotWorker(ctx context.Context, wg *sync.WaitGroup, done <-chan struct{}, sink bloom.SnapshotSink, filter *bloom.Filter, name string, interval time.Duration, logger *zap.Logger) {
	defer wg.Done()

	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sink.SaveSnapshot(ctx, name, filter.Snapshot()); err != nil {
				logger.Warn("periodic bloom snapshot failed", zap.Error(err))
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
