package models

// UsageEntry is one ranked app for the current day window.
type UsageEntry struct {
	PackageName  string  `json:"package_name"`
	AppName      string  `json:"app_name"`
	UsageTime    int64   `json:"usage_time"`     // foreground ms
	LastTimeUsed int64   `json:"last_time_used"` // unix ms
	IconPath     string  `json:"icon_path,omitempty"`
	Fraction     float64 `json:"fraction"` // share of the top entry, 0-1
}

// UsageRecord is the cached row for one app on one day.
type UsageRecord struct {
	Date         int64  `json:"date"` // local midnight, unix ms
	PackageName  string `json:"package_name"`
	AppName      string `json:"app_name"`
	UsageTime    int64  `json:"usage_time"`
	LastTimeUsed int64  `json:"last_time_used"`
}

// RawUsageStats is what a platform usage source reports per app.
type RawUsageStats struct {
	PackageName           string `json:"package_name"`
	TotalTimeInForeground int64  `json:"total_time_in_foreground"`
	LastTimeUsed          int64  `json:"last_time_used"`
}
