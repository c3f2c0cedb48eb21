package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prabalesh/droidinsight/internal/models"
)

func writeSupply(t *testing.T, root, name string, attrs map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for k, v := range attrs {
		if err := os.WriteFile(filepath.Join(dir, k), []byte(v+"\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", k, err)
		}
	}
	return dir
}

func newTestCollector(powerSupply string) *StatsCollector {
	return NewStatsCollector(Options{PowerSupplyPath: powerSupply})
}

func TestGetBatteryInfoAndroidLayout(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "ac", map[string]string{"type": "Mains", "online": "1"})
	writeSupply(t, root, "battery", map[string]string{
		"type":        "Battery",
		"capacity":    "87",
		"status":      "Charging",
		"temp":        "312",
		"voltage_now": "4123000",
		"technology":  "Li-ion",
		"health":      "Good",
	})

	got := newTestCollector(root).GetBatteryInfo()
	want := models.BatteryInfo{
		Level:       87,
		IsCharging:  true,
		Temperature: 31.2,
		Voltage:     4123,
		Technology:  "Li-ion",
		Health:      models.HealthGood,
	}
	if got != want {
		t.Fatalf("GetBatteryInfo() = %+v, want %+v", got, want)
	}
}

func TestGetBatteryInfoChargingStates(t *testing.T) {
	tests := []struct {
		status   string
		charging bool
	}{
		{"Charging", true},
		{"Full", true},
		{"Discharging", false},
		{"Not charging", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			root := t.TempDir()
			writeSupply(t, root, "BAT0", map[string]string{"type": "Battery", "capacity": "50", "status": tt.status})
			if got := newTestCollector(root).GetBatteryInfo().IsCharging; got != tt.charging {
				t.Fatalf("status %q: charging = %v, want %v", tt.status, got, tt.charging)
			}
		})
	}
}

func TestHealthLabel(t *testing.T) {
	tests := map[string]string{
		"Good":         models.HealthGood,
		"Overheat":     models.HealthOverheat,
		"Dead":         models.HealthDead,
		"Over voltage": models.HealthOverVoltage,
		"Cold":         models.HealthUnknown,
		"":             models.HealthUnknown,
	}
	for raw, want := range tests {
		if got := healthLabel(raw); got != want {
			t.Errorf("healthLabel(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestBatteryLevelFromChargeCounters(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT1", map[string]string{
		"type":        "Battery",
		"charge_now":  "2500000",
		"charge_full": "5000000",
	})
	if got := newTestCollector(root).BatteryLevel(context.Background()); got != 50 {
		t.Fatalf("BatteryLevel() = %d, want 50", got)
	}
}

func TestGetBatteryInfoWithoutBattery(t *testing.T) {
	got := newTestCollector(filepath.Join(t.TempDir(), "missing")).GetBatteryInfo()
	if got != models.NewBatteryInfo() {
		t.Fatalf("expected default battery record, got %+v", got)
	}
}

func TestObserveBatteryEmitsOnChangeOnly(t *testing.T) {
	root := t.TempDir()
	dir := writeSupply(t, root, "battery", map[string]string{"type": "Battery", "capacity": "40", "status": "Discharging"})
	c := newTestCollector(root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := c.ObserveBattery(ctx, 10*time.Millisecond)

	first := <-ch
	if first.Level != 40 {
		t.Fatalf("expected initial level 40, got %d", first.Level)
	}

	select {
	case v := <-ch:
		t.Fatalf("unexpected emission without change: %+v", v)
	case <-time.After(60 * time.Millisecond):
	}

	if err := os.WriteFile(filepath.Join(dir, "capacity"), []byte("41\n"), 0o644); err != nil {
		t.Fatalf("update capacity: %v", err)
	}
	select {
	case v := <-ch:
		if v.Level != 41 {
			t.Fatalf("expected level 41, got %d", v.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no emission after change")
	}

	cancel()
	for range ch {
	}
}
