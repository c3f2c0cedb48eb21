package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/prabalesh/droidinsight/internal/models"
)

func TestInsertUsageStatsPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := New(db, DriverPostgres)
	records := []models.UsageRecord{
		{Date: 1000, PackageName: "com.a", AppName: "A", UsageTime: 60_000, LastTimeUsed: 1500},
		{Date: 1000, PackageName: "com.b", AppName: "B", UsageTime: 30_000, LastTimeUsed: 1600},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO usage_stats (date, packageName, appName, usageTime, lastTimeUsed) VALUES ($1,$2,$3,$4,$5),($6,$7,$8,$9,$10) ON CONFLICT (date, packageName) DO UPDATE SET")
	mock.ExpectExec(expectedQuery).
		WithArgs(int64(1000), "com.a", "A", int64(60_000), int64(1500), int64(1000), "com.b", "B", int64(30_000), int64(1600)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := s.InsertUsageStats(context.Background(), records); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertUsageStatsSQLitePlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := New(db, DriverSQLite)
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?,?,?,?,?) ON CONFLICT")).
		WithArgs(int64(1), "com.a", "A", int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = s.InsertUsageStats(context.Background(), []models.UsageRecord{
		{Date: 1, PackageName: "com.a", AppName: "old", UsageTime: 1, LastTimeUsed: 1},
		{Date: 1, PackageName: "com.a", AppName: "A", UsageTime: 5, LastTimeUsed: 2},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertUsageStatsNoRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	if err := New(db, DriverPostgres).InsertUsageStats(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertUsageStatsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO usage_stats").WillReturnError(boom)

	err = New(db, DriverPostgres).InsertUsageStats(context.Background(), []models.UsageRecord{{Date: 1, PackageName: "x", UsageTime: 1}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestUsageStatsByDatePostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"date", "packageName", "appName", "usageTime", "lastTimeUsed"}).
		AddRow(int64(7), "com.a", "A", int64(90), int64(3)).
		AddRow(int64(7), "com.b", "B", int64(10), int64(4))
	mock.ExpectQuery(regexp.QuoteMeta("FROM usage_stats WHERE date = $1 ORDER BY usageTime DESC")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := New(db, DriverPostgres).UsageStatsByDate(context.Background(), 7)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].PackageName != "com.a" || got[1].UsageTime != 10 {
		t.Fatalf("rows = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLiteUpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	first := []models.UsageRecord{
		{Date: 100, PackageName: "com.a", AppName: "A", UsageTime: 1_000, LastTimeUsed: 1},
		{Date: 100, PackageName: "com.b", AppName: "B", UsageTime: 5_000, LastTimeUsed: 2},
	}
	if err := s.InsertUsageStats(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := []models.UsageRecord{
		{Date: 100, PackageName: "com.a", AppName: "A", UsageTime: 9_000, LastTimeUsed: 3},
	}
	if err := s.InsertUsageStats(ctx, second); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	got, err := s.UsageStatsByDate(ctx, 100)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(got), got)
	}
	if got[0].PackageName != "com.a" || got[0].UsageTime != 9_000 || got[0].LastTimeUsed != 3 {
		t.Fatalf("upserted row = %+v", got[0])
	}

	if other, _ := s.UsageStatsByDate(ctx, 200); len(other) != 0 {
		t.Fatalf("unexpected rows for another day: %+v", other)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := s.UsageStatsByDate(ctx, 100); len(got) != 0 {
		t.Fatalf("rows after clear: %+v", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
