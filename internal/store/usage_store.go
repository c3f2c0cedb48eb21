package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/prabalesh/droidinsight/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	tableName = "usage_stats"
)

const createTable = `CREATE TABLE IF NOT EXISTS usage_stats (
	date BIGINT NOT NULL,
	packageName TEXT NOT NULL,
	appName TEXT NOT NULL,
	usageTime BIGINT NOT NULL,
	lastTimeUsed BIGINT NOT NULL,
	PRIMARY KEY (date, packageName)
)`

// UsageStore caches ranked usage rows keyed by (date, packageName).
type UsageStore struct {
	db     *sql.DB
	driver string
}

// Open connects with driver "sqlite" or "postgres" and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*UsageStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported cache driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// single writer; also keeps ":memory:" databases on one connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := New(db, driver)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB, driver string) *UsageStore {
	return &UsageStore{db: db, driver: driver}
}

func (s *UsageStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("migrate %s: %w", tableName, err)
	}
	return nil
}

func (s *UsageStore) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// InsertUsageStats upserts all records in one statement. Existing rows for
// the same (date, packageName) are replaced.
func (s *UsageStore) InsertUsageStats(ctx context.Context, records []models.UsageRecord) error {
	records = dedupe(records)
	if len(records) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(tableName)
	b.WriteString(" (date, packageName, appName, usageTime, lastTimeUsed) VALUES ")

	args := make([]any, 0, len(records)*5)
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		fmt.Fprintf(&b, "(%s,%s,%s,%s,%s)",
			s.placeholder(n+1), s.placeholder(n+2), s.placeholder(n+3), s.placeholder(n+4), s.placeholder(n+5))
		args = append(args, r.Date, r.PackageName, r.AppName, r.UsageTime, r.LastTimeUsed)
	}

	b.WriteString(" ON CONFLICT (date, packageName) DO UPDATE SET" +
		" appName = excluded.appName, usageTime = excluded.usageTime, lastTimeUsed = excluded.lastTimeUsed")

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert %s: %w", tableName, err)
	}
	return nil
}

// dedupe keeps the last record per key; one statement may not touch a row twice.
func dedupe(records []models.UsageRecord) []models.UsageRecord {
	type key struct {
		date int64
		pkg  string
	}
	index := make(map[key]int, len(records))
	out := make([]models.UsageRecord, 0, len(records))
	for _, r := range records {
		k := key{r.Date, r.PackageName}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// UsageStatsByDate returns the cached rows for date, most used first.
func (s *UsageStore) UsageStatsByDate(ctx context.Context, date int64) ([]models.UsageRecord, error) {
	query := "SELECT date, packageName, appName, usageTime, lastTimeUsed FROM " + tableName +
		" WHERE date = " + s.placeholder(1) + " ORDER BY usageTime DESC"

	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.Date, &r.PackageName, &r.AppName, &r.UsageTime, &r.LastTimeUsed); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tableName, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *UsageStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+tableName); err != nil {
		return fmt.Errorf("clear %s: %w", tableName, err)
	}
	return nil
}

func (s *UsageStore) Close() error {
	return s.db.Close()
}
