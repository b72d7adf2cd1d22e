package world

import (
	"math"
	"math/rand"
)

// FoodType describes one entry of the food catalog.
type FoodType struct {
	Radius  float64
	Score   float64
	Glow    bool
	Effect  string
	Wanders bool
}

// FoodTypes is ordered by score; death drops draw from the low end.
var FoodTypes = []FoodType{
	{Radius: 4, Score: 1},
	{Radius: 6, Score: 2},
	{Radius: 8, Score: 3},
	{Radius: 10, Score: 4},
	{Radius: 12, Score: 5, Glow: true, Effect: "speed_boost"},
	{Radius: 14, Score: 6, Glow: true, Effect: "shield"},
	{Radius: 15, Score: 25, Glow: true, Wanders: true},
}

// WanderingFoodType is the catalog index of the rare moving food.
const WanderingFoodType = 6

// TrailFoodType is the catalog index dropped behind boosting agents.
const TrailFoodType = 0

func foodColor(rng *rand.Rand, score float64) RGB {
	hue := rng.Float64() * 360
	saturation := math.Min(100, 50+score/4*40)
	lightness := math.Min(95, 40+score/4*30)
	return HSL(hue, saturation, lightness)
}

// HSL converts hue in degrees and saturation/lightness percentages to RGB.
func HSL(hue, saturation, lightness float64) RGB {
	h := math.Mod(hue, 360)
	if h < 0 {
		h += 360
	}
	s := math.Max(0, math.Min(100, saturation)) / 100
	l := math.Max(0, math.Min(100, lightness)) / 100

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	channel := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v+m)) * 255))
	}
	return RGB{R: channel(r), G: channel(g), B: channel(b)}
}

// RandomAgentColor picks a saturated colour for a new agent.
func RandomAgentColor(rng *rand.Rand) RGB {
	return HSL(rng.Float64()*360, 80, 55)
}

func (w *World) randomFoodType() int {
	if w.rng.Float64() < w.cfg.WanderChance {
		return WanderingFoodType
	}
	return w.rng.Intn(WanderingFoodType)
}
