// Package summary builds the keyed ticker summary for the top pairs of a DEX.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tickerScope/internal/model"
	"tickerScope/internal/ticker"
)

// PairSource lists the pairs to summarize.
type PairSource interface {
	TopPairs(ctx context.Context, limit int) ([]model.PairMeta, error)
}

// ReserveSource reads a pair's reserves ordered as (tokenA, tokenB).
type ReserveSource interface {
	Reserves(ctx context.Context, tokenA, tokenB common.Address) (model.Reserves, error)
}

// TokenSource resolves token metadata. A ReserveSource that also implements
// it is used to fill in symbols the pair source left empty.
type TokenSource interface {
	TokenMeta(ctx context.Context, token common.Address) (model.TokenRef, error)
}

// Provider produces a complete summary or an error.
type Provider interface {
	Summary(ctx context.Context) (model.Summary, error)
}

// Config holds runtime settings for the summary service.
type Config struct {
	Limit int
	// Concurrency caps in-flight pair pipelines; zero runs them all at once.
	Concurrency int
}

// Service fans out one reserve read per pair and merges the ticker records.
type Service struct {
	cfg      Config
	pairs    PairSource
	reserves ReserveSource
	synth    *ticker.Synthesizer
	logger   *zap.Logger
}

// NewService builds a Service. A nil synthesizer uses the default depth schedule.
func NewService(cfg Config, pairs PairSource, reserves ReserveSource, synth *ticker.Synthesizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if synth == nil {
		synth = ticker.NewSynthesizer(nil)
	}
	return &Service{
		cfg:      cfg,
		pairs:    pairs,
		reserves: reserves,
		synth:    synth,
		logger:   logger,
	}
}

type keyedRecord struct {
	key    string
	record model.TickerRecord
}

// Summary returns the ticker records of the top pairs keyed by
// "{token0}_{token1}". Any failed pair fails the whole call.
func (s *Service) Summary(ctx context.Context) (model.Summary, error) {
	start := time.Now()

	pairs, err := s.pairs.TopPairs(ctx, s.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}

	results := make([]keyedRecord, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Concurrency > 0 {
		g.SetLimit(s.cfg.Concurrency)
	}
	for i, pair := range pairs {
		g.Go(func() error {
			key, record, err := s.buildPair(gctx, pair)
			if err != nil {
				return fmt.Errorf("pair %s: %w", pair.ID, err)
			}
			results[i] = keyedRecord{key: key, record: record}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("summary failed", zap.Int("pairs", len(pairs)), zap.Error(err))
		return nil, err
	}

	out := make(model.Summary, len(results))
	for _, result := range results {
		out.Merge(model.Summary{result.key: result.record})
	}

	s.logger.Debug("summary built",
		zap.Int("pairs", len(pairs)),
		zap.Int("records", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (s *Service) buildPair(ctx context.Context, pair model.PairMeta) (string, model.TickerRecord, error) {
	token0, err := parseAddress(pair.Token0.ID)
	if err != nil {
		return "", model.TickerRecord{}, err
	}
	token1, err := parseAddress(pair.Token1.ID)
	if err != nil {
		return "", model.TickerRecord{}, err
	}
	pair.Token0.ID = token0.Hex()
	pair.Token1.ID = token1.Hex()

	if tokens, ok := s.reserves.(TokenSource); ok {
		if pair.Token0, err = fillSymbol(ctx, tokens, token0, pair.Token0); err != nil {
			return "", model.TickerRecord{}, err
		}
		if pair.Token1, err = fillSymbol(ctx, tokens, token1, pair.Token1); err != nil {
			return "", model.TickerRecord{}, err
		}
	}

	reserves, err := s.reserves.Reserves(ctx, token0, token1)
	if err != nil {
		return "", model.TickerRecord{}, fmt.Errorf("read reserves: %w", err)
	}

	key, record := ticker.BuildRecord(pair, reserves, s.synth)
	return key, record, nil
}

func fillSymbol(ctx context.Context, tokens TokenSource, address common.Address, ref model.TokenRef) (model.TokenRef, error) {
	if ref.Symbol != "" {
		return ref, nil
	}
	meta, err := tokens.TokenMeta(ctx, address)
	if err != nil {
		return ref, fmt.Errorf("token meta %s: %w", address.Hex(), err)
	}
	ref.Symbol = meta.Symbol
	return ref, nil
}

func parseAddress(id string) (common.Address, error) {
	if !common.IsHexAddress(id) {
		return common.Address{}, fmt.Errorf("invalid token id: %q", id)
	}
	return common.HexToAddress(id), nil
}
