package usage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prabalesh/droidinsight/internal/models"
)

const lastTimeLayout = "2006-01-02 15:04:05"

var attrPattern = regexp.MustCompile(`(\w+)=(?:"([^"]*)"|(\S+))`)

// DumpsysSource reads the Android usage stats service through dumpsys.
// It needs the PACKAGE_USAGE_STATS or DUMP permission, which adb shell has.
type DumpsysSource struct {
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
	loc *time.Location
}

func NewDumpsysSource() *DumpsysSource {
	return &DumpsysSource{run: runCommand, loc: time.Local}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (d *DumpsysSource) HasPermission(ctx context.Context) bool {
	out, err := d.run(ctx, "dumpsys", "usagestats", "--help")
	if err != nil {
		return false
	}
	return !bytes.Contains(out, []byte("Permission Denial"))
}

func (d *DumpsysSource) QueryUsageStats(ctx context.Context, start, end time.Time) ([]models.RawUsageStats, error) {
	out, err := d.run(ctx, "dumpsys", "usagestats")
	if err != nil {
		return nil, fmt.Errorf("dumpsys usagestats: %w", err)
	}
	if bytes.Contains(out, []byte("Permission Denial")) {
		return nil, ErrNoPermission
	}

	stats, err := parseDailyStats(bytes.NewReader(out), d.loc)
	if err != nil {
		return nil, err
	}

	startMs := start.UnixMilli()
	filtered := stats[:0]
	for _, s := range stats {
		if s.LastTimeUsed < startMs {
			continue
		}
		filtered = append(filtered, s)
	}
	return merge(filtered), nil
}

// parseDailyStats reads the package rows of the first "In-memory daily
// stats" block, which covers the current day for the primary user.
func parseDailyStats(r io.Reader, loc *time.Location) ([]models.RawUsageStats, error) {
	var stats []models.RawUsageStats
	inDaily := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "In-memory daily stats"):
			inDaily = true
			continue
		case strings.HasPrefix(line, "In-memory "):
			if inDaily {
				return stats, nil
			}
			continue
		}
		if !inDaily || !strings.HasPrefix(line, "package=") {
			continue
		}

		attrs := parseAttrs(line)
		pkg := attrs["package"]
		if pkg == "" {
			continue
		}
		used, err := parseElapsed(attrs["totalTimeUsed"])
		if err != nil {
			continue
		}
		var last int64
		if ts, err := time.ParseInLocation(lastTimeLayout, attrs["lastTimeUsed"], loc); err == nil {
			last = ts.UnixMilli()
		}
		stats = append(stats, models.RawUsageStats{
			PackageName:           pkg,
			TotalTimeInForeground: used,
			LastTimeUsed:          last,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan usagestats: %w", err)
	}
	return stats, nil
}

func parseAttrs(line string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(line, -1) {
		if m[2] != "" {
			attrs[m[1]] = m[2]
		} else {
			attrs[m[1]] = m[3]
		}
	}
	return attrs
}

// parseElapsed converts "MM:SS" or "H:MM:SS" into milliseconds.
func parseElapsed(v string) (int64, error) {
	parts := strings.Split(v, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("elapsed time %q", v)
	}
	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("elapsed time %q", v)
		}
		total = total*60 + n
	}
	return total * 1000, nil
}
