// Package history persists completed trades to a relational database for
// querying outside the hot path. It supports sqlite for single-node
// deployments and postgres for shared ones, and plugs into the engine as
// an event sink.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver
)

// Trade is one settled sale.
type Trade struct {
	OfferID       uint64
	AssetContract string
	AssetID       uint64
	Seller        string
	Buyer         string
	Amount        uint64

	// Kind is how the sale settled: "buy" or "claim".
	Kind string

	OccurredAt time.Time
}

// Store writes and queries trade history.
type Store struct {
	db     *sql.DB
	driver string
	log    *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id             BIGINT NOT NULL,
	asset_contract TEXT   NOT NULL,
	asset_id       BIGINT NOT NULL,
	seller         TEXT   NOT NULL,
	buyer          TEXT   NOT NULL,
	amount         BIGINT NOT NULL,
	kind           TEXT   NOT NULL,
	occurred_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_asset ON trades (asset_contract, asset_id);
CREATE INDEX IF NOT EXISTS trades_seller ON trades (seller);
CREATE INDEX IF NOT EXISTS trades_buyer ON trades (buyer);
`

// Open connects to the history database and initializes the schema.
// Supported drivers are "sqlite" and "postgres".
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("history: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: driver, log: log}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// rebind converts ? placeholders to the driver's positional form.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RecordTrade appends a trade row.
func (s *Store) RecordTrade(ctx context.Context, trade Trade) error {
	query := s.rebind(`INSERT INTO trades
		(id, asset_contract, asset_id, seller, buyer, amount, kind, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		trade.OfferID, trade.AssetContract, trade.AssetID,
		trade.Seller, trade.Buyer, trade.Amount, trade.Kind,
		trade.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("history: failed to record trade: %w", err)
	}

	s.log.Debug("recorded trade",
		zap.Uint64("offer", trade.OfferID),
		zap.String("buyer", trade.Buyer),
		zap.Uint64("amount", trade.Amount))
	return nil
}

// TradesByAsset returns the sale history of one asset, newest first.
func (s *Store) TradesByAsset(ctx context.Context, contract string, assetID uint64) ([]Trade, error) {
	query := s.rebind(`SELECT id, asset_contract, asset_id, seller, buyer, amount, kind, occurred_at
		FROM trades WHERE asset_contract = ? AND asset_id = ?
		ORDER BY occurred_at DESC`)
	return s.queryTrades(ctx, query, contract, assetID)
}

// TradesByParty returns every trade a party took part in, newest first.
func (s *Store) TradesByParty(ctx context.Context, party string) ([]Trade, error) {
	query := s.rebind(`SELECT id, asset_contract, asset_id, seller, buyer, amount, kind, occurred_at
		FROM trades WHERE seller = ? OR buyer = ?
		ORDER BY occurred_at DESC`)
	return s.queryTrades(ctx, query, party, party)
}

func (s *Store) queryTrades(ctx context.Context, query string, args ...any) ([]Trade, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.OfferID, &t.AssetContract, &t.AssetID,
			&t.Seller, &t.Buyer, &t.Amount, &t.Kind, &t.OccurredAt); err != nil {
			return nil, fmt.Errorf("history: scan failed: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
