package sensor

import (
	"math"
	"math/rand"
	"time"
)

// seismicGroup models a geophone, an accelerometer and a seismometer.
// Background microseisms are gaussian noise with occasional cultural
// spikes; events superimpose an oscillation scaled by magnitude.
type seismicGroup struct {
	rng       *rand.Rand
	event     *envelope
	magnitude float64
	prevVel   float64
}

const (
	microseismAmp    = 0.02
	culturalProb     = 0.02
	culturalAmp      = 0.15
	sampleIntervalS  = 0.05 // 20 Hz nominal
	eventOscillation = 8.0  // Hz
)

func newSeismicGroup(rng *rand.Rand) *seismicGroup {
	return &seismicGroup{rng: rng}
}

func (g *seismicGroup) trigger(now time.Time, magnitude float64, duration time.Duration) {
	g.event = &envelope{start: now, duration: duration}
	g.magnitude = magnitude
}

func (g *seismicGroup) active(now time.Time) bool {
	return g.event.active(now)
}

func (g *seismicGroup) sample(now time.Time) map[string]float64 {
	velocity := g.rng.NormFloat64() * microseismAmp
	if g.rng.Float64() < culturalProb {
		velocity += (g.rng.Float64() - 0.5) * 2 * culturalAmp
	}

	if g.event.active(now) {
		t := now.Sub(g.event.start).Seconds()
		osc := math.Sin(2 * math.Pi * eventOscillation * t)
		velocity += g.magnitude * g.event.amplitude(now) * osc * 0.4
	}

	// Acceleration approximated by finite differencing successive
	// velocity samples at the nominal sampling interval.
	accel := (velocity - g.prevVel) / sampleIntervalS
	g.prevVel = velocity

	return map[string]float64{
		"geophone":      velocity,
		"accelerometer": accel,
		"seismometer":   velocity*0.85 + g.rng.NormFloat64()*microseismAmp*0.5,
	}
}
