package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Result is one completed test cycle.
type Result struct {
	ID          int64
	At          time.Time
	Mode        uint8
	Gateways    int
	Lat         float64
	Lng         float64
	MinRSSI     int
	MaxRSSI     int
	MaxSNR      int
	RxRSSI      int
	RxSNR       int
	MinDistance int
	MaxDistance int
	DemodMargin int
	Lost        int
	TxDatarate  int
}

type ResultRepo struct {
	db *sql.DB
}

func NewResultRepo(db *sql.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

func (r *ResultRepo) Insert(ctx context.Context, res Result) (int64, error) {
	out, err := r.db.ExecContext(ctx, `
		INSERT INTO results(
			at, mode, gateways, lat, lng, min_rssi, max_rssi, max_snr,
			rx_rssi, rx_snr, min_distance, max_distance, demod_margin, lost, tx_datarate
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		encodeResultTime(res.At),
		int(res.Mode),
		res.Gateways,
		res.Lat,
		res.Lng,
		res.MinRSSI,
		res.MaxRSSI,
		res.MaxSNR,
		res.RxRSSI,
		res.RxSNR,
		res.MinDistance,
		res.MaxDistance,
		res.DemodMargin,
		res.Lost,
		res.TxDatarate,
	)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}

	id, err := out.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("result id: %w", err)
	}

	return id, nil
}

// List returns results oldest first. A non-positive limit returns all rows.
func (r *ResultRepo) List(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, at, mode, gateways, lat, lng, min_rssi, max_rssi, max_snr,
			rx_rssi, rx_snr, min_distance, max_distance, demod_margin, lost, tx_datarate
		FROM results
		ORDER BY at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Result
	for rows.Next() {
		var (
			res  Result
			at   int64
			mode int
		)
		if err := rows.Scan(
			&res.ID, &at, &mode, &res.Gateways, &res.Lat, &res.Lng,
			&res.MinRSSI, &res.MaxRSSI, &res.MaxSNR, &res.RxRSSI, &res.RxSNR,
			&res.MinDistance, &res.MaxDistance, &res.DemodMargin, &res.Lost, &res.TxDatarate,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.At = decodeResultTime(at)
		res.Mode = uint8(mode)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return out, nil
}

func (r *ResultRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}

	return n, nil
}

// Result times are stored as unix milliseconds; 0 means unknown (no RTC fix).
func encodeResultTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func decodeResultTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}
