package models

// SystemInfo describes the device and its memory and storage totals.
type SystemInfo struct {
	ModelName    string `json:"model_name"`
	OSVersion    string `json:"os_version"`
	Manufacturer string `json:"manufacturer"`

	// bytes
	TotalRAM         uint64 `json:"total_ram"`
	AvailableRAM     uint64 `json:"available_ram"`
	TotalStorage     uint64 `json:"total_storage"`
	AvailableStorage uint64 `json:"available_storage"`
}

// NewSystemInfo returns the placeholder shown before the first probe completes.
func NewSystemInfo() SystemInfo {
	return SystemInfo{ModelName: "Loading..."}
}

// RAMUsagePercent returns the used share of RAM as a ratio in [0, 1].
func (s SystemInfo) RAMUsagePercent() float64 {
	return usageRatio(s.TotalRAM, s.AvailableRAM)
}

// StorageUsagePercent returns the used share of storage as a ratio in [0, 1].
func (s SystemInfo) StorageUsagePercent() float64 {
	return usageRatio(s.TotalStorage, s.AvailableStorage)
}

func usageRatio(total, available uint64) float64 {
	if total == 0 || available > total {
		return 0
	}
	return float64(total-available) / float64(total)
}

type DeviceInfo struct {
	ModelName    string `json:"model_name"`
	OSVersion    string `json:"os_version"`
	Manufacturer string `json:"manufacturer"`
}
