package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
)

// Open connects to the database named by dsn and returns the handle with
// the matching RepositoryManager. The dialect is chosen by the scheme:
// postgres:// and postgresql:// use pgx; sqlite: and file: use SQLite.
// Migrations are not applied.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		driver string
		m      RepositoryManager
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver, m = "pgx", NewPostgresRepositoryManager()
	case strings.HasPrefix(dsn, "sqlite:"), strings.HasPrefix(dsn, "file:"):
		driver, m = "sqlite", NewSQLiteRepositoryManager()
		dsn = sqliteDSN(dsn)
	default:
		return nil, nil, fmt.Errorf("%w: unsupported database dsn scheme", common.ErrorImproperlyConfigured)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer at a time; shared-cache memory databases also need it
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, m, nil
}

// sqliteDSN turns "sqlite:<path>" into a "file:" DSN and turns on foreign
// keys and the ISO time format unless the caller set them.
func sqliteDSN(dsn string) string {
	if rest, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		dsn = "file:" + strings.TrimPrefix(rest, "//")
	}

	path, rawQuery, _ := strings.Cut(dsn, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dsn
	}
	hasFK := false
	for _, p := range q["_pragma"] {
		if strings.HasPrefix(p, "foreign_keys") {
			hasFK = true
		}
	}
	if !hasFK {
		q.Add("_pragma", "foreign_keys(1)")
	}
	if q.Get("_time_format") == "" {
		q.Set("_time_format", "sqlite")
	}
	return path + "?" + q.Encode()
}
