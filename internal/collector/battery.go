package collector

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prabalesh/droidinsight/internal/models"
)

const defaultPowerSupplyPath = "/sys/class/power_supply"

// GetBatteryInfo reads the first battery under the power supply class.
// Hosts without a battery get the default record.
func (s *StatsCollector) GetBatteryInfo() models.BatteryInfo {
	batteryDir := s.findBatteryDir()
	if batteryDir == "" {
		return models.NewBatteryInfo()
	}

	status := readSysString(filepath.Join(batteryDir, "status"))
	info := models.BatteryInfo{
		Level:       s.readBatteryLevel(batteryDir),
		IsCharging:  status == "Charging" || status == "Full",
		Temperature: float64(readSysInt(filepath.Join(batteryDir, "temp"))) / 10,
		Voltage:     int(readSysInt(filepath.Join(batteryDir, "voltage_now")) / 1000),
		Technology:  readSysString(filepath.Join(batteryDir, "technology")),
		Health:      healthLabel(readSysString(filepath.Join(batteryDir, "health"))),
	}
	if info.Technology == "" {
		info.Technology = unknown
	}
	return info
}

// BatteryLevel returns the charge percentage, 0 without a battery.
func (s *StatsCollector) BatteryLevel(ctx context.Context) int {
	batteryDir := s.findBatteryDir()
	if batteryDir == "" {
		return 0
	}
	return s.readBatteryLevel(batteryDir)
}

// ObserveBattery emits the current battery state immediately and then again
// whenever a poll sees it change. sysfs attributes do not raise inotify
// events, so change detection is done by polling.
func (s *StatsCollector) ObserveBattery(ctx context.Context, interval time.Duration) <-chan models.BatteryInfo {
	out := make(chan models.BatteryInfo)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := s.GetBatteryInfo()
		select {
		case out <- last:
		case <-ctx.Done():
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			current := s.GetBatteryInfo()
			if current == last {
				continue
			}
			last = current
			select {
			case out <- current:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *StatsCollector) findBatteryDir() string {
	entries, err := os.ReadDir(s.powerSupplyPath)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		dir := filepath.Join(s.powerSupplyPath, entry.Name())
		if strings.EqualFold(readSysString(filepath.Join(dir, "type")), "battery") {
			return dir
		}
	}
	return ""
}

func (s *StatsCollector) readBatteryLevel(batteryDir string) int {
	if level, ok := readSysIntOK(filepath.Join(batteryDir, "capacity")); ok {
		return clampPercent(level)
	}
	now := readSysInt(filepath.Join(batteryDir, "charge_now"))
	full := readSysInt(filepath.Join(batteryDir, "charge_full"))
	if now <= 0 || full <= 0 {
		now = readSysInt(filepath.Join(batteryDir, "energy_now"))
		full = readSysInt(filepath.Join(batteryDir, "energy_full"))
	}
	if full <= 0 {
		return 0
	}
	return clampPercent(now * 100 / full)
}

func healthLabel(raw string) string {
	switch strings.ToLower(raw) {
	case "good":
		return models.HealthGood
	case "overheat":
		return models.HealthOverheat
	case "dead":
		return models.HealthDead
	case "over voltage", "overvoltage":
		return models.HealthOverVoltage
	}
	return models.HealthUnknown
}

func clampPercent(v int64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}

func readSysString(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

func readSysInt(path string) int64 {
	v, _ := readSysIntOK(path)
	return v
}

func readSysIntOK(path string) (int64, bool) {
	v, err := strconv.ParseInt(readSysString(path), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
