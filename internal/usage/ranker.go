package usage

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/prabalesh/droidinsight/internal/models"
)

// Store persists ranked rows. Implemented by store.UsageStore.
type Store interface {
	InsertUsageStats(ctx context.Context, records []models.UsageRecord) error
}

// Ranker turns raw platform stats into a ranked, display-ready list.
type Ranker struct {
	Source Source
	Names  *NameResolver
	Icons  IconResolver
	Store  Store // optional
	Logger *slog.Logger

	// OnCacheError is called when persisting a batch fails.
	OnCacheError func(error)
}

func (r *Ranker) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// HasPermission reports whether the source grants usage access. Rank must
// not be called without it.
func (r *Ranker) HasPermission(ctx context.Context) bool {
	return r.Source.HasPermission(ctx)
}

// TodayUsageStats ranks usage from local midnight to now.
func (r *Ranker) TodayUsageStats(ctx context.Context, now time.Time) ([]models.UsageEntry, error) {
	start, end := DayWindow(now)
	return r.Rank(ctx, start, end)
}

// Rank returns apps with positive foreground time in [start, end), sorted by
// time descending. Fraction is relative to the top entry, so the first
// element always has 1.0.
func (r *Ranker) Rank(ctx context.Context, start, end time.Time) ([]models.UsageEntry, error) {
	raw, err := r.Source.QueryUsageStats(ctx, start, end)
	if err != nil {
		return nil, err
	}

	entries := Transform(raw, r.name, r.Icons.Resolve)
	if r.Store != nil && len(entries) > 0 {
		r.persist(ctx, start.UnixMilli(), entries)
	}
	return entries, nil
}

func (r *Ranker) name(pkg string) string {
	if r.Names == nil {
		return FormatAppName(pkg, pkg)
	}
	return r.Names.Resolve(pkg)
}

// persist writes the batch. A cache failure never fails the ranking.
func (r *Ranker) persist(ctx context.Context, date int64, entries []models.UsageEntry) {
	records := make([]models.UsageRecord, len(entries))
	for i, e := range entries {
		records[i] = models.UsageRecord{
			Date:         date,
			PackageName:  e.PackageName,
			AppName:      e.AppName,
			UsageTime:    e.UsageTime,
			LastTimeUsed: e.LastTimeUsed,
		}
	}
	if err := r.Store.InsertUsageStats(ctx, records); err != nil {
		r.logger().Warn("usage cache write failed", "rows", len(records), "error", err)
		if r.OnCacheError != nil {
			r.OnCacheError(err)
		}
	}
}

// Transform filters, sorts and normalises raw stats. name and icon may be nil.
func Transform(raw []models.RawUsageStats, name, icon func(pkg string) string) []models.UsageEntry {
	entries := make([]models.UsageEntry, 0, len(raw))
	for _, s := range raw {
		if s.TotalTimeInForeground <= 0 {
			continue
		}
		e := models.UsageEntry{
			PackageName:  s.PackageName,
			AppName:      s.PackageName,
			UsageTime:    s.TotalTimeInForeground,
			LastTimeUsed: s.LastTimeUsed,
		}
		if name != nil {
			e.AppName = name(s.PackageName)
		}
		if icon != nil {
			e.IconPath = icon(s.PackageName)
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UsageTime > entries[j].UsageTime
	})

	max := int64(1)
	if len(entries) > 0 {
		max = entries[0].UsageTime
	}
	for i := range entries {
		entries[i].Fraction = float64(entries[i].UsageTime) / float64(max)
	}
	return entries
}
