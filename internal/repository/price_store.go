package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

// BarStore persists daily bars per symbol.
type BarStore interface {
	Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	SaveBars(ctx context.Context, symbol string, bars []models.Bar) error
}

// CHPriceStore implements BarStore backed by a ClickHouse
// ReplacingMergeTree, so rewriting a day replaces it.
type CHPriceStore struct {
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

// NewCHPriceStore creates the store on database.daily_bars.
func NewCHPriceStore(ch *pkgch.Client, l *applogger.Logger) *CHPriceStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHPriceStore{ch: ch, table: ch.Database() + ".daily_bars", l: l}
}

// PriceStoreSchema returns the DDL the store needs.
func PriceStoreSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_bars (
            symbol LowCardinality(String),
            date Date,
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            inserted_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(inserted_at)
        ORDER BY (symbol, date)`, database),
	}
}

// Bars returns stored bars of symbol within [from, to], oldest first.
func (s *CHPriceStore) Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	const qtpl = `
        SELECT date, open, high, low, close
        FROM %s FINAL
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	rows, err := s.ch.DB().QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, from, to)
	if err != nil {
		s.l.Error("clickhouse bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	out, err := scanBars(rows)
	if err != nil {
		s.l.Error("clickhouse bars scan error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, err
	}
	s.l.Debug("clickhouse bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func scanBars(rows *sql.Rows) ([]models.Bar, error) {
	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// SaveBars writes bars as one insert block.
func (s *CHPriceStore) SaveBars(ctx context.Context, symbol string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close)", s.table)
	err := s.ch.InBatch(ctx, q, func(stmt *sql.Stmt) error {
		for _, b := range bars {
			if _, err := stmt.ExecContext(ctx, symbol, b.Date, b.Open, b.High, b.Low, b.Close); err != nil {
				return fmt.Errorf("append bar: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save bars %s: %w", symbol, err)
	}
	return nil
}
