package settings

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// DeviceMode decides which log type a kiosk emits. BOTH omits an explicit
// type on the remote write and toggles the local log off the last entry.
type DeviceMode string

const (
	DeviceModeIn   DeviceMode = "IN"
	DeviceModeOut  DeviceMode = "OUT"
	DeviceModeBoth DeviceMode = "BOTH"
)

// Settings are the operator-tunable knobs of the attendance pipeline. They
// are re-read at the start of every detection cycle so changes apply without
// a restart.
type Settings struct {
	DeviceMode             DeviceMode `validate:"required,oneof=IN OUT BOTH"`
	CooldownSeconds        int        `validate:"min=1,max=300"`
	ReMarkThresholdSeconds int        `validate:"min=5,max=86400"`
	LivenessEnabled        bool
	SettleDelayMs          int `validate:"min=0,max=10000"`
	TickIntervalMs         int `validate:"min=100,max=5000"`
}

var validate = validator.New()

func Defaults() Settings {
	return Settings{
		DeviceMode:             DeviceModeBoth,
		CooldownSeconds:        5,
		ReMarkThresholdSeconds: 60,
		LivenessEnabled:        true,
		SettleDelayMs:          1500,
		TickIntervalMs:         500,
	}
}

// Load reads settings from the environment on top of the defaults and
// validates the result.
func Load() (*Settings, error) {
	loaded := Defaults()

	if mode := os.Getenv("DEVICE_MODE"); mode != "" {
		loaded.DeviceMode = DeviceMode(mode)
	}
	loaded.CooldownSeconds = intFromEnv("DEDUP_COOLDOWN_SECONDS", loaded.CooldownSeconds)
	loaded.ReMarkThresholdSeconds = intFromEnv("REMARK_THRESHOLD_SECONDS", loaded.ReMarkThresholdSeconds)
	loaded.SettleDelayMs = intFromEnv("SETTLE_DELAY_MS", loaded.SettleDelayMs)
	loaded.TickIntervalMs = intFromEnv("TICK_INTERVAL_MS", loaded.TickIntervalMs)
	if enabled := os.Getenv("LIVENESS_ENABLED"); enabled != "" {
		loaded.LivenessEnabled = enabled != "false" && enabled != "0"
	}

	if err := validate.Struct(loaded); err != nil {
		return nil, fmt.Errorf("invalid kiosk settings: %w", err)
	}
	return &loaded, nil
}

func intFromEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
