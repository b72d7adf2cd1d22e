package delta

// Apply patches b with d the way a client mirror does. Applying every delta
// produced by Diff to a fresh baseline reproduces the diffed baseline.
func (b *Baseline) Apply(d Delta) {
	if d.Full {
		b.Reset()
		b.ready = true
	}
	for _, s := range d.Players.Added {
		b.agents[s.ID] = s
	}
	for _, u := range d.Players.Updated {
		if s, ok := b.agents[u.ID]; ok {
			b.agents[u.ID] = applyAgentUpdate(s, u)
		}
	}
	for _, id := range d.Players.Removed {
		delete(b.agents, id)
	}

	for _, s := range d.Food.Added {
		b.food[s.ID] = s
	}
	for _, u := range d.Food.Updated {
		if s, ok := b.food[u.ID]; ok {
			setFloat(&s.X, u.X)
			setFloat(&s.Y, u.Y)
			b.food[u.ID] = s
		}
	}
	for _, id := range d.Food.Removed {
		delete(b.food, id)
	}

	for _, s := range d.Powerups.Added {
		b.powerups[s.ID] = s
	}
	for _, u := range d.Powerups.Updated {
		if s, ok := b.powerups[u.ID]; ok {
			setFloat(&s.X, u.X)
			setFloat(&s.Y, u.Y)
			b.powerups[u.ID] = s
		}
	}
	for _, id := range d.Powerups.Removed {
		delete(b.powerups, id)
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// applyAgentUpdate copies the fields carried by u onto s.
func applyAgentUpdate(s AgentState, u AgentUpdate) AgentState {
	setFloat(&s.X, u.X)
	setFloat(&s.Y, u.Y)
	setFloat(&s.Angle, u.Angle)
	setFloat(&s.Length, u.Length)
	setFloat(&s.Radius, u.Radius)
	if u.Boosting != nil {
		s.Boosting = *u.Boosting
	}
	if u.Ping != nil {
		s.Ping = *u.Ping
	}
	if u.Color != nil {
		s.Color = *u.Color
	}
	return s
}
