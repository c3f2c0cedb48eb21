package models

// Battery health labels.
const (
	HealthGood        = "Good"
	HealthOverheat    = "Overheat"
	HealthDead        = "Dead"
	HealthOverVoltage = "Over Voltage"
	HealthUnknown     = "Unknown"
)

type BatteryInfo struct {
	Level       int     `json:"level"` // 0-100
	IsCharging  bool    `json:"is_charging"`
	Temperature float64 `json:"temperature"` // °C
	Voltage     int     `json:"voltage"`     // mV
	Technology  string  `json:"technology"`
	Health      string  `json:"health"`
}

func NewBatteryInfo() BatteryInfo {
	return BatteryInfo{
		Technology: "Unknown",
		Health:     HealthUnknown,
	}
}
