package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register sqlite driver
)

// connPragmas run on every pooled connection: busy_timeout is per connection and the
// writer queue races LOGS dumps for the file.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Open opens the result log at path, creating the file and its directory on first use,
// and brings the schema up to date.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping results db %s: %w", path, err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, pragma := range connPragmas {
		q.Add("_pragma", pragma)
	}

	return path + "?" + q.Encode()
}
