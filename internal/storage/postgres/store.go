package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tickerScope/internal/model"
)

const schema = `
	CREATE TABLE IF NOT EXISTS pair_tickers (
		pair_key text NOT NULL,
		taken_at timestamptz NOT NULL,
		chain_id bigint NOT NULL,
		block_number bigint NOT NULL,
		trading_pairs text NOT NULL,
		last_price numeric NOT NULL,
		lowest_ask numeric NOT NULL,
		highest_bid numeric NOT NULL,
		base_volume numeric NOT NULL,
		quote_volume numeric NOT NULL,
		price_change_percent_24h numeric NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (pair_key, taken_at)
	)
`

const upsertTicker = `
	INSERT INTO pair_tickers (
		pair_key, taken_at, chain_id, block_number, trading_pairs, last_price, lowest_ask,
		highest_bid, base_volume, quote_volume, price_change_percent_24h, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
	ON CONFLICT (pair_key, taken_at)
	DO UPDATE SET
		chain_id = EXCLUDED.chain_id,
		block_number = EXCLUDED.block_number,
		trading_pairs = EXCLUDED.trading_pairs,
		last_price = EXCLUDED.last_price,
		lowest_ask = EXCLUDED.lowest_ask,
		highest_bid = EXCLUDED.highest_bid,
		base_volume = EXCLUDED.base_volume,
		quote_volume = EXCLUDED.quote_volume,
		price_change_percent_24h = EXCLUDED.price_change_percent_24h,
		updated_at = now()
`

// Store provides Postgres persistence for ticker snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the pair_tickers table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create pair_tickers: %w", err)
	}
	return nil
}

// PutSnapshot upserts one row per ticker record of the snapshot.
func (s *Store) PutSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	batch := snapshotBatch(snapshot)
	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert pair ticker: %w", err)
		}
	}
	return nil
}

func snapshotBatch(snapshot model.Snapshot) *pgx.Batch {
	keys := make([]string, 0, len(snapshot.Tickers))
	for key := range snapshot.Tickers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	batch := &pgx.Batch{}
	for _, key := range keys {
		record := snapshot.Tickers[key]
		batch.Queue(upsertTicker,
			key,
			snapshot.TakenAt,
			int64(snapshot.ChainID),
			int64(snapshot.BlockNumber),
			record.TradingPairs,
			record.LastPrice,
			record.LowestAsk,
			record.HighestBid,
			record.BaseVolume,
			record.QuoteVolume,
			record.PriceChangePercent24h,
		)
	}
	return batch
}
