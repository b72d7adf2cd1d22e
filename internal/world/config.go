package world

import (
	"math"
	"time"
)

// Config carries every simulation tuning constant. Distances are world units,
// speeds are units per simulation tick.
type Config struct {
	Seed string `json:"seed"`

	WorldRadius   float64 `json:"worldRadius"`
	AgentCellSize float64 `json:"agentCellSize"`
	FoodCellSize  float64 `json:"foodCellSize"`

	InitialLength   float64 `json:"initialLength"`
	InitialRadius   float64 `json:"initialRadius"`
	InitialSpeed    float64 `json:"initialSpeed"`
	InitialTurnRate float64 `json:"initialTurnRate"`

	BaseSpeedMin       float64 `json:"baseSpeedMin"`
	BaseSpeedMax       float64 `json:"baseSpeedMax"`
	SpeedLengthDivisor float64 `json:"speedLengthDivisor"`
	TurnRateMin        float64 `json:"turnRateMin"`
	TurnRateMax        float64 `json:"turnRateMax"`
	TurnLengthDivisor  float64 `json:"turnLengthDivisor"`
	SpeedInterpolation float64 `json:"speedInterpolation"`

	BoostMultiplier   float64 `json:"boostMultiplier"`
	BoostCost         float64 `json:"boostCost"`
	BoostMinLength    float64 `json:"boostMinLength"`
	BoostDropInterval int     `json:"boostDropInterval"`
	BoostDropDistance float64 `json:"boostDropDistance"`

	HistorySize   int     `json:"historySize"`
	BodyChunkSize int     `json:"bodyChunkSize"`
	SegmentRadius float64 `json:"segmentRadius"`

	MaxRadius          float64 `json:"maxRadius"`
	RadiusGain         float64 `json:"radiusGain"`
	FoodQueryBuffer    float64 `json:"foodQueryBuffer"`
	ColorBlendPerScore float64 `json:"colorBlendPerScore"`
	HeadOnAngle        float64 `json:"headOnAngle"`

	DeathDropMin     float64 `json:"deathDropMin"`
	DeathDropJitter  float64 `json:"deathDropJitter"`
	DeathDropStep    int     `json:"deathDropStep"`
	DeathDropOffset  float64 `json:"deathDropOffset"`
	DeathFoodMaxType int     `json:"deathFoodMaxType"`

	SpawnBuffer   float64 `json:"spawnBuffer"`
	SpawnMargin   float64 `json:"spawnMargin"`
	SpawnAttempts int     `json:"spawnAttempts"`

	FoodExpiry          time.Duration `json:"foodExpiry"`
	WanderChance        float64       `json:"wanderChance"`
	WanderSpeed         float64       `json:"wanderSpeed"`
	WanderTurnChance    float64       `json:"wanderTurnChance"`
	WanderTurnAmount    float64       `json:"wanderTurnAmount"`
	WanderBoundaryInset float64       `json:"wanderBoundaryInset"`

	MagnetRadius         float64 `json:"magnetRadius"`
	MagnetPull           float64 `json:"magnetPull"`
	SpeedBoostMultiplier float64 `json:"speedBoostMultiplier"`
}

// DefaultConfig returns the stock arena tuning.
func DefaultConfig() Config {
	return Config{
		Seed: DefaultSeed,

		WorldRadius:   15000,
		AgentCellSize: 200,
		FoodCellSize:  40,

		InitialLength:   30,
		InitialRadius:   12,
		InitialSpeed:    4,
		InitialTurnRate: 0.1,

		BaseSpeedMin:       3,
		BaseSpeedMax:       4,
		SpeedLengthDivisor: 1000,
		TurnRateMin:        0.05,
		TurnRateMax:        0.1,
		TurnLengthDivisor:  1000,
		SpeedInterpolation: 0.1,

		BoostMultiplier:   1.8,
		BoostCost:         0.05,
		BoostMinLength:    5,
		BoostDropInterval: 3,
		BoostDropDistance: 10,

		HistorySize:   30,
		BodyChunkSize: 8,
		SegmentRadius: 6,

		MaxRadius:          100,
		RadiusGain:         0.02,
		FoodQueryBuffer:    2,
		ColorBlendPerScore: 0.03,
		HeadOnAngle:        math.Pi / 2,

		DeathDropMin:     0.6,
		DeathDropJitter:  0.15,
		DeathDropStep:    3,
		DeathDropOffset:  20,
		DeathFoodMaxType: 3,

		SpawnBuffer:   800,
		SpawnMargin:   100,
		SpawnAttempts: 50,

		FoodExpiry:          30 * time.Second,
		WanderChance:        0.01,
		WanderSpeed:         2.5,
		WanderTurnChance:    0.05,
		WanderTurnAmount:    1.5,
		WanderBoundaryInset: 20,

		MagnetRadius:         200,
		MagnetPull:           0.5,
		SpeedBoostMultiplier: 1.5,
	}
}

// Normalized fills zero or invalid fields from DefaultConfig.
func (cfg Config) Normalized() Config {
	def := DefaultConfig()
	n := cfg
	if n.Seed == "" {
		n.Seed = def.Seed
	}
	positive := func(v *float64, fallback float64) {
		if *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = fallback
		}
	}
	positiveInt := func(v *int, fallback int) {
		if *v <= 0 {
			*v = fallback
		}
	}
	positive(&n.WorldRadius, def.WorldRadius)
	positive(&n.AgentCellSize, def.AgentCellSize)
	positive(&n.FoodCellSize, def.FoodCellSize)
	positive(&n.InitialLength, def.InitialLength)
	positive(&n.InitialRadius, def.InitialRadius)
	positive(&n.InitialSpeed, def.InitialSpeed)
	positive(&n.InitialTurnRate, def.InitialTurnRate)
	positive(&n.BaseSpeedMin, def.BaseSpeedMin)
	positive(&n.BaseSpeedMax, def.BaseSpeedMax)
	positive(&n.SpeedLengthDivisor, def.SpeedLengthDivisor)
	positive(&n.TurnRateMin, def.TurnRateMin)
	positive(&n.TurnRateMax, def.TurnRateMax)
	positive(&n.TurnLengthDivisor, def.TurnLengthDivisor)
	positive(&n.SpeedInterpolation, def.SpeedInterpolation)
	positive(&n.BoostMultiplier, def.BoostMultiplier)
	positive(&n.BoostMinLength, def.BoostMinLength)
	positiveInt(&n.BoostDropInterval, def.BoostDropInterval)
	positiveInt(&n.HistorySize, def.HistorySize)
	positiveInt(&n.BodyChunkSize, def.BodyChunkSize)
	positive(&n.SegmentRadius, def.SegmentRadius)
	positive(&n.MaxRadius, def.MaxRadius)
	positive(&n.HeadOnAngle, def.HeadOnAngle)
	positiveInt(&n.DeathDropStep, def.DeathDropStep)
	positiveInt(&n.SpawnAttempts, def.SpawnAttempts)
	positive(&n.MagnetRadius, def.MagnetRadius)
	positive(&n.SpeedBoostMultiplier, def.SpeedBoostMultiplier)
	if n.SpeedInterpolation > 1 {
		n.SpeedInterpolation = 1
	}
	if n.BaseSpeedMax < n.BaseSpeedMin {
		n.BaseSpeedMax = n.BaseSpeedMin
	}
	if n.TurnRateMax < n.TurnRateMin {
		n.TurnRateMax = n.TurnRateMin
	}
	if n.InitialLength < n.BoostMinLength {
		n.InitialLength = n.BoostMinLength
	}
	if n.DeathFoodMaxType < 0 || n.DeathFoodMaxType >= len(FoodTypes) {
		n.DeathFoodMaxType = def.DeathFoodMaxType
	}
	return n
}
