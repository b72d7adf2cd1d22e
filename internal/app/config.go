package app

import (
	"strconv"
	"strings"
	"time"

	"snake-arena/server/internal/net/codec"
	"snake-arena/server/internal/observability"
	"snake-arena/server/internal/sim"
	"snake-arena/server/internal/telemetry"
	"snake-arena/server/internal/world"
	"snake-arena/server/logging"
)

type Config struct {
	Addr               string
	TickRate           int
	NetworkRate        int
	ManagementInterval time.Duration
	// MinBots overrides the population floor when positive.
	MinBots         int
	WorldRadius     float64
	LogLevel        logging.Severity
	LogColor        bool
	LogJSONPath     string
	DeadlockTimeout time.Duration
	Observability   observability.Config
	ClientDir       string
	Codec           string
	DebugTelemetry  bool

	Logger telemetry.Logger
}

func DefaultConfig() Config {
	loop := sim.DefaultLoopConfig()
	return Config{
		Addr:               ":8080",
		TickRate:           loop.TickRate,
		NetworkRate:        loop.NetworkRate,
		ManagementInterval: loop.ManagementInterval,
		WorldRadius:        world.DefaultConfig().WorldRadius,
		LogLevel:           logging.SeverityInfo,
		DeadlockTimeout:    30 * time.Second,
		ClientDir:          "client",
		Codec:              codec.NameJSON,
	}
}

// LoadConfig overlays environment values on DefaultConfig. Invalid values
// are logged and ignored.
func LoadConfig(getenv func(string) string, logger telemetry.Logger) Config {
	cfg := DefaultConfig()
	if getenv == nil {
		return cfg
	}
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	env := envReader{getenv: getenv, logger: logger}

	if raw := getenv("ADDR"); raw != "" {
		cfg.Addr = raw
	}
	env.positiveInt("TICK_RATE", &cfg.TickRate)
	env.positiveInt("NETWORK_RATE", &cfg.NetworkRate)
	env.millis("MANAGEMENT_INTERVAL_MS", &cfg.ManagementInterval)
	env.positiveInt("BOT_COUNT", &cfg.MinBots)
	env.positiveFloat("WORLD_RADIUS", &cfg.WorldRadius)
	if raw := getenv("LOG_LEVEL"); raw != "" {
		if level, ok := logging.ParseSeverity(raw); ok {
			cfg.LogLevel = level
		} else {
			logger.Printf("invalid LOG_LEVEL=%q", raw)
		}
	}
	env.boolean("LOG_COLOR", &cfg.LogColor)
	if raw := getenv("LOG_JSON_PATH"); raw != "" {
		cfg.LogJSONPath = raw
	}
	if raw := getenv("DEADLOCK_TIMEOUT_MS"); raw != "" {
		// Zero disables lock-order detection.
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.DeadlockTimeout = time.Duration(value) * time.Millisecond
		} else {
			logger.Printf("invalid DEADLOCK_TIMEOUT_MS=%q", raw)
		}
	}
	env.boolean("ENABLE_PPROF", &cfg.Observability.EnablePprof)
	if raw := getenv("CLIENT_DIR"); raw != "" {
		cfg.ClientDir = raw
	}
	if raw := getenv("CODEC"); raw != "" {
		if _, ok := codec.ForName(raw); ok {
			cfg.Codec = strings.ToLower(strings.TrimSpace(raw))
		} else {
			logger.Printf("invalid CODEC=%q, using %s", raw, cfg.Codec)
		}
	}
	env.boolean("DEBUG_TELEMETRY", &cfg.DebugTelemetry)
	return cfg
}

type envReader struct {
	getenv func(string) string
	logger telemetry.Logger
}

func (e envReader) positiveInt(key string, dst *int) {
	raw := e.getenv(key)
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		e.logger.Printf("invalid %s=%q", key, raw)
		return
	}
	*dst = value
}

func (e envReader) positiveFloat(key string, dst *float64) {
	raw := e.getenv(key)
	if raw == "" {
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		e.logger.Printf("invalid %s=%q", key, raw)
		return
	}
	*dst = value
}

func (e envReader) millis(key string, dst *time.Duration) {
	var value int
	e.positiveInt(key, &value)
	if value > 0 {
		*dst = time.Duration(value) * time.Millisecond
	}
}

func (e envReader) boolean(key string, dst *bool) {
	raw := e.getenv(key)
	if raw == "" {
		return
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		e.logger.Printf("invalid %s=%q: %v", key, raw, err)
		return
	}
	*dst = value
}
