package sensor

import (
	"math/rand"
	"time"
)

// displacementGroup models a crack meter (mm), an inclinometer (degrees)
// and an extensometer (mm). Displacement is cumulative: background creep
// accrues slowly, events add their total displacement spread across the
// event duration, and nothing ever recovers.
type displacementGroup struct {
	rng   *rand.Rand
	event *envelope
	// total displacement the active event contributes in millimetres
	eventTotal float64
	applied    float64
	cumulative float64
	lastSample time.Time
}

const creepRatePerHour = 0.01 // mm

func newDisplacementGroup(rng *rand.Rand) *displacementGroup {
	return &displacementGroup{rng: rng}
}

func (g *displacementGroup) trigger(now time.Time, totalMM float64, duration time.Duration) {
	// An event replaces a still-running one; bank what it applied so far
	g.cumulative += g.applied
	g.event = &envelope{start: now, duration: duration}
	g.eventTotal = totalMM
	g.applied = 0
}

func (g *displacementGroup) active(now time.Time) bool {
	return g.event.active(now)
}

func (g *displacementGroup) sample(now time.Time) map[string]float64 {
	if !g.lastSample.IsZero() {
		hours := now.Sub(g.lastSample).Hours()
		if hours > 0 {
			g.cumulative += creepRatePerHour * hours
		}
	}
	g.lastSample = now

	if g.event != nil {
		progress := float64(now.Sub(g.event.start)) / float64(g.event.duration)
		progress = clamp(progress, 0, 1)
		g.applied = g.eventTotal * progress
		if progress >= 1 {
			g.cumulative += g.applied
			g.event = nil
			g.applied = 0
		}
	}

	crack := g.cumulative + g.applied + g.rng.NormFloat64()*0.01

	return map[string]float64{
		"crack_sensor": crack,
		"inclinometer": crack*0.05 + g.rng.NormFloat64()*0.005,
		"extensometer": crack*1.2 + g.rng.NormFloat64()*0.02,
	}
}
