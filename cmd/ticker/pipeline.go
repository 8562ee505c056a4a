package main

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tickerScope/internal/chain"
	"tickerScope/internal/config"
	"tickerScope/internal/dex"
	"tickerScope/internal/subgraph"
	"tickerScope/internal/summary"
	"tickerScope/internal/ticker"
)

// newSummaryService wires the subgraph pair source, the on-chain reserve
// reader and the synthesizer. A non-nil block pins every reserve read.
func newSummaryService(cfg config.Config, chainClient *chain.Client, block *big.Int, logger *zap.Logger) (*summary.Service, *subgraph.Client, error) {
	fractions, err := config.ParseDepthFractions(cfg.DepthFractions)
	if err != nil {
		return nil, nil, err
	}

	pairs := subgraph.NewClient(subgraph.Config{
		URL:          cfg.SubgraphURL,
		APIKey:       cfg.SubgraphAPIKey,
		BlocksPerDay: cfg.BlocksPerDay,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		MaxDelay:     cfg.RetryMaxDelay,
		Timeout:      cfg.RequestTimeout,
	}, logger)

	reserves := dex.NewReserveReader(dex.ReaderConfig{
		Factory:      common.HexToAddress(cfg.Factory),
		Method:       cfg.ReserveMethod,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		MaxDelay:     cfg.RetryMaxDelay,
		Block:        block,
	}, chainClient, logger)

	synth := ticker.NewSynthesizer(fractions)
	logger.Debug("depth schedule", zap.Int("levels", len(synth.Fractions())))

	svc := summary.NewService(summary.Config{
		Limit:       cfg.Limit,
		Concurrency: cfg.Concurrency,
	}, pairs, reserves, synth, logger)
	return svc, pairs, nil
}
