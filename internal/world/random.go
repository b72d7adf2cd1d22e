package world

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// DefaultSeed roots the RNG hierarchy when no seed is configured.
const DefaultSeed = "snake-arena"

// RNGFactory produces deterministic RNG instances for world subsystems.
type RNGFactory func(rootSeed, label string) *rand.Rand

func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

func RandomAngle(rng *rand.Rand) float64 {
	return rng.Float64() * 2 * math.Pi
}

// RandomDistance samples uniformly in [min, max).
func RandomDistance(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}

// RandomPointInDisc samples uniformly inside a disc of the given radius
// centred on the origin.
func RandomPointInDisc(rng *rand.Rand, radius float64) Point {
	if radius <= 0 {
		return Point{}
	}
	r := radius * math.Sqrt(rng.Float64())
	theta := RandomAngle(rng)
	return Point{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

// NormalizeAngle maps an angle into [-π, π).
func NormalizeAngle(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	angle = math.Mod(angle+math.Pi, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle - math.Pi
}

// AngleDiff returns the shortest signed rotation from a to b.
func AngleDiff(a, b float64) float64 {
	return math.Atan2(math.Sin(b-a), math.Cos(b-a))
}
