package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// TradeEvent is one applied simulator trade.
type TradeEvent struct {
	Wallet      string    `json:"wallet"`
	Timestamp   time.Time `json:"timestamp"`
	Side        string    `json:"side"` // "buy" (SOL in) or "sell" (token in)
	AmountSOL   float64   `json:"amount_sol"`
	AmountToken float64   `json:"amount_token"`
	Price       float64   `json:"price"`
	TokenMint   string    `json:"token_mint"`
}

// CandleRow is one persisted OHLC point.
type CandleRow struct {
	TokenMint string    `json:"token_mint"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// Config holds ClickHouse connection settings.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// Store persists applied trades and derived candles for later analysis.
type Store struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// NewStore opens a ClickHouse connection and verifies it with a ping.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &Store{conn: conn, logger: cfg.Logger}, nil
}

// InsertTrade records one applied trade.
func (s *Store) InsertTrade(ctx context.Context, ev *TradeEvent) error {
	query := `
		INSERT INTO trades (
			wallet, timestamp, side, amount_sol, amount_token, price, token_mint
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		ev.Wallet,
		ev.Timestamp,
		ev.Side,
		ev.AmountSOL,
		ev.AmountToken,
		ev.Price,
		ev.TokenMint,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

// InsertCandle records one OHLC point.
func (s *Store) InsertCandle(ctx context.Context, row *CandleRow) error {
	query := `
		INSERT INTO candles (
			token_mint, timestamp, open, high, low, close
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		row.TokenMint,
		row.Timestamp,
		row.Open,
		row.High,
		row.Low,
		row.Close,
	)
	if err != nil {
		return fmt.Errorf("failed to insert candle: %w", err)
	}

	return nil
}

// RecentTrades returns the latest trades, newest first.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]TradeEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT wallet, timestamp, side, amount_sol, amount_token, price, token_mint
		FROM trades
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeEvent
	for rows.Next() {
		var ev TradeEvent
		if err := rows.Scan(
			&ev.Wallet, &ev.Timestamp, &ev.Side,
			&ev.AmountSOL, &ev.AmountToken, &ev.Price, &ev.TokenMint,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		out = append(out, ev)
	}

	return out, rows.Err()
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
