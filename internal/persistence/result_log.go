package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DumpHeader is the first line of a result dump.
const DumpHeader = "time,mode,gw,lat,lng,min_rssi,max_rssi,max_snr,rx_rssi,rx_snr,min_dst,max_dst,demod,lost,tx_dr"

// ResultLog is the field-test log: writes go through the queue, dumps and clears are synchronous.
type ResultLog struct {
	logger *slog.Logger
	db     *sql.DB
	repo   *ResultRepo
	writer *WriterQueue
}

func NewResultLog(logger *slog.Logger, db *sql.DB, writer *WriterQueue) *ResultLog {
	return &ResultLog{
		logger: logger,
		db:     db,
		repo:   NewResultRepo(db),
		writer: writer,
	}
}

// Record queues a result for insertion.
func (l *ResultLog) Record(res Result) {
	l.writer.Enqueue("insert_result", func(ctx context.Context) error {
		id, err := l.repo.Insert(ctx, res)
		if err != nil {
			return err
		}
		l.logger.Debug("result stored", "id", id, "mode", res.Mode, "tx_dr", res.TxDatarate)

		return nil
	})
}

func (l *ResultLog) Results(ctx context.Context) ([]Result, error) {
	if err := l.writer.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush pending results: %w", err)
	}

	return l.repo.List(ctx, 0)
}

// Dump returns the header and one CSV line per stored result.
func (l *ResultLog) Dump(ctx context.Context) ([]string, error) {
	results, err := l.Results(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(results)+1)
	lines = append(lines, DumpHeader)
	for _, res := range results {
		lines = append(lines, FormatResult(res))
	}
	l.logger.Info("result log dumped", "rows", len(results))

	return lines, nil
}

func (l *ResultLog) Clear(ctx context.Context) error {
	if err := l.writer.Flush(ctx); err != nil {
		return fmt.Errorf("flush pending results: %w", err)
	}
	if err := ClearDatabase(ctx, l.db); err != nil {
		return err
	}
	l.logger.Info("result log cleared")

	return nil
}

func FormatResult(res Result) string {
	return fmt.Sprintf("%s,%d,%d,%.6f,%.6f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d",
		res.At.Format(time.DateTime),
		res.Mode,
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
}
