package world

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// PowerupType describes one entry of the powerup catalog.
type PowerupType struct {
	Kind     PowerupKind
	Radius   float64
	Color    RGB
	Duration time.Duration
}

// PowerupTypes lists every kind the arena spawns.
var PowerupTypes = []PowerupType{
	{Kind: PowerupMagnet, Radius: 12, Color: RGB{R: 255, G: 255, B: 255}},
	{Kind: PowerupSpeed, Radius: 15, Color: RGB{R: 255, G: 165, B: 0}, Duration: 10 * time.Second},
}

func powerupType(kind PowerupKind) (PowerupType, bool) {
	for _, def := range PowerupTypes {
		if def.Kind == kind {
			return def, true
		}
	}
	return PowerupType{}, false
}

// Powerup looks up a powerup by id.
func (w *World) Powerup(id string) (*Powerup, bool) {
	p, ok := w.powerups[id]
	return p, ok
}

// Powerups returns every registered powerup sorted by id.
func (w *World) Powerups() []*Powerup {
	out := make([]*Powerup, 0, len(w.powerups))
	for _, p := range w.powerups {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PowerupCount reports the number of registered powerups.
func (w *World) PowerupCount() int { return len(w.powerups) }

// CreatePowerup registers a powerup of the given kind at (x, y).
func (w *World) CreatePowerup(kind PowerupKind, x, y float64) (*Powerup, error) {
	def, ok := powerupType(kind)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPowerup, "create powerup %q", kind)
	}
	w.nextPowerupID++
	p := &Powerup{
		ID:       "p" + strconv.FormatUint(w.nextPowerupID, 36),
		X:        x,
		Y:        y,
		Radius:   def.Radius,
		Kind:     def.Kind,
		Color:    def.Color,
		Duration: def.Duration,
	}
	w.powerups[p.ID] = p
	return p, nil
}

// SpawnPowerup places a random powerup kind at a random point in the arena.
func (w *World) SpawnPowerup() *Powerup {
	def := PowerupTypes[w.rng.Intn(len(PowerupTypes))]
	pt := RandomPointInDisc(w.rng, math.Max(0, w.cfg.WorldRadius-w.cfg.SpawnMargin))
	p, _ := w.CreatePowerup(def.Kind, pt.X, pt.Y)
	return p
}

// RemovePowerup deregisters a powerup.
func (w *World) RemovePowerup(id string) bool {
	if _, ok := w.powerups[id]; !ok {
		return false
	}
	delete(w.powerups, id)
	return true
}

// Activate applies a collected powerup to the agent.
func (a *Agent) Activate(p *Powerup, now time.Time) {
	switch p.Kind {
	case PowerupMagnet:
		a.Effects.Magnet = true
	case PowerupSpeed:
		a.Effects.SpeedUntil = now.Add(p.Duration)
	}
}
