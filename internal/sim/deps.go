package sim

import (
	"snake-arena/server/internal/telemetry"
	"snake-arena/server/logging"
)

// Deps carries shared infrastructure dependencies required by the simulation engine.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
}

func (d Deps) normalized() Deps {
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock
	}
	if d.Logger == nil {
		d.Logger = telemetry.LoggerFunc(nil)
	}
	return d
}
