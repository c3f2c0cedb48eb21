package usage

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/prabalesh/droidinsight/internal/models"
)

// ErrNoPermission is returned when the platform refuses usage access.
var ErrNoPermission = errors.New("usage access not granted")

// Source is a platform per-app usage statistics API.
type Source interface {
	// HasPermission reports whether QueryUsageStats may be called.
	HasPermission(ctx context.Context) bool
	QueryUsageStats(ctx context.Context, start, end time.Time) ([]models.RawUsageStats, error)
}

// NewSource picks a source by kind: "dumpsys", "process" or "auto", which
// prefers dumpsys when it is on PATH.
func NewSource(kind string) (Source, error) {
	switch kind {
	case "dumpsys":
		return NewDumpsysSource(), nil
	case "process":
		return NewProcessSource(), nil
	case "auto", "":
		if _, err := exec.LookPath("dumpsys"); err == nil {
			return NewDumpsysSource(), nil
		}
		return NewProcessSource(), nil
	}
	return nil, fmt.Errorf("unknown usage source %q", kind)
}

// merge folds duplicate package rows into one.
func merge(stats []models.RawUsageStats) []models.RawUsageStats {
	index := make(map[string]int, len(stats))
	out := make([]models.RawUsageStats, 0, len(stats))
	for _, s := range stats {
		i, ok := index[s.PackageName]
		if !ok {
			index[s.PackageName] = len(out)
			out = append(out, s)
			continue
		}
		out[i].TotalTimeInForeground += s.TotalTimeInForeground
		if s.LastTimeUsed > out[i].LastTimeUsed {
			out[i].LastTimeUsed = s.LastTimeUsed
		}
	}
	return out
}
