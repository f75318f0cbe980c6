package sensor

import (
	"math/rand"
	"time"
)

// hydroGroup models soil moisture (percent) and pore water pressure
// (piezometer, kPa). Moisture drifts as a bounded random walk and rises
// toward saturation during rain events; pressure tracks moisture.
type hydroGroup struct {
	rng       *rand.Rand
	event     *envelope
	intensity float64
	moisture  float64
}

func newHydroGroup(rng *rand.Rand) *hydroGroup {
	return &hydroGroup{
		rng:      rng,
		moisture: 25 + rng.Float64()*10,
	}
}

func (g *hydroGroup) trigger(now time.Time, intensity float64, duration time.Duration) {
	g.event = &envelope{start: now, duration: duration}
	g.intensity = intensity
}

func (g *hydroGroup) active(now time.Time) bool {
	return g.event.active(now)
}

func (g *hydroGroup) sample(now time.Time) map[string]float64 {
	// Dry-out drift with a little measurement jitter
	g.moisture += g.rng.NormFloat64()*0.05 - 0.002

	if g.event.active(now) {
		// Saturation rate scales with rain intensity
		g.moisture += g.intensity * 0.004 * g.event.amplitude(now)
	}
	g.moisture = clamp(g.moisture, 5, 95)

	pressure := 5 + g.moisture*0.25 + g.rng.NormFloat64()*0.3

	return map[string]float64{
		"moisture_sensor": g.moisture,
		"piezometer":      pressure,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
