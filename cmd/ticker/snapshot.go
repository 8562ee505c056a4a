package main

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tickerScope/internal/chain"
	"tickerScope/internal/config"
	"tickerScope/internal/model"
	"tickerScope/internal/storage"
	"tickerScope/internal/storage/postgres"
)

var passwordField = regexp.MustCompile(`password=\S+`)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	head, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	var sinks []storage.Storage
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	svc, pairs, err := newSummaryService(cfg.Config, chainClient, new(big.Int).SetUint64(head), logger)
	if err != nil {
		return err
	}

	if indexed, err := pairs.LatestBlock(ctx); err != nil {
		logger.Warn("subgraph head unavailable", zap.Error(err))
	} else if indexed < head {
		logger.Info("subgraph lag", zap.Uint64("chain_head", head), zap.Uint64("subgraph_head", indexed))
	}

	logger.Info("snapshot start",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Uint64("block", head),
		zap.Int("limit", cfg.Limit),
		zap.String("out", cfg.Out),
		zap.String("pg", redactDSN(cfg.PGDSN)),
	)

	start := time.Now()
	tickers, err := svc.Summary(ctx)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}

	snapshot := model.Snapshot{
		ChainID:     chainID.Uint64(),
		BlockNumber: head,
		TakenAt:     time.Now().UTC(),
		Tickers:     tickers,
	}
	for _, sink := range sinks {
		if err := sink.PutSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	logger.Info("snapshot done",
		zap.Int("pairs", len(tickers)),
		zap.Int("sinks", len(sinks)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if !strings.Contains(dsn, "://") {
		return passwordField.ReplaceAllString(dsn, "password=xxxxx")
	}
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.User == nil {
		return dsn
	}
	if _, ok := parsed.User.Password(); ok {
		parsed.User = url.UserPassword(parsed.User.Username(), "xxxxx")
	}
	return parsed.String()
}
