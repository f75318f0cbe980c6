// Package sensor simulates the monitored slope's instrument suite. There
// is no hardware behind it; readings are synthesized from background noise
// plus coordinated event envelopes.
package sensor

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Reading is one flat, timestamped sample across all instruments
type Reading map[string]interface{}

// Supported trigger scenarios
const (
	EventRockfall  = "rockfall"
	EventRainfall  = "rainfall"
	EventLandslide = "landslide"
)

// ValidEvent reports whether name is a known trigger scenario
func ValidEvent(name string) bool {
	switch name {
	case EventRockfall, EventRainfall, EventLandslide:
		return true
	}
	return false
}

// Suite aggregates the four instrument groups and produces combined
// readings. The master label is 1 while any primary risk group (seismic,
// hydro, displacement) has an active event; environmental data is
// contextual only.
type Suite struct {
	mu            sync.Mutex
	rng           *rand.Rand
	seismic       *seismicGroup
	hydro         *hydroGroup
	displacement  *displacementGroup
	environmental *environmentalGroup
}

// NewSuite creates a sensor suite seeded for reproducible runs
func NewSuite(seed int64) *Suite {
	rng := rand.New(rand.NewSource(seed))
	return &Suite{
		rng:           rng,
		seismic:       newSeismicGroup(rng),
		hydro:         newHydroGroup(rng),
		displacement:  newDisplacementGroup(rng),
		environmental: newEnvironmentalGroup(rng),
	}
}

// Trigger starts a coordinated scenario across the relevant groups,
// mirroring how the physical processes couple.
func (s *Suite) Trigger(event string, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	switch event {
	case EventRockfall:
		// Sharp seismic signal with moderate, slower displacement
		s.seismic.trigger(now, 2.5, duration)
		s.displacement.trigger(now, 3.0, 2*duration)
	case EventRainfall:
		// Heavy rain, saturation, and a small slow creep
		s.hydro.trigger(now, 25.0, duration)
		s.environmental.triggerRain(now, 25.0, duration)
		s.displacement.trigger(now, 0.5, 5*duration)
	case EventLandslide:
		// Strong long seismic signal, saturated ground, major displacement
		s.seismic.trigger(now, 3.5, duration)
		s.hydro.trigger(now, 15.0, duration)
		s.environmental.triggerRain(now, 15.0, duration)
		s.displacement.trigger(now, 10.0, duration)
	default:
		return fmt.Errorf("unknown event type: %s", event)
	}
	return nil
}

// Readings gathers one combined sample from every group
func (s *Suite) Readings(now time.Time) Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	seismic := s.seismic.sample(now)
	hydro := s.hydro.sample(now)
	displacement := s.displacement.sample(now)
	environmental := s.environmental.sample(now)

	label := 0
	if s.seismic.active(now) || s.hydro.active(now) || s.displacement.active(now) {
		label = 1
	}

	r := Reading{
		"timestamp": now.UTC().Format(time.RFC3339Nano),
		"label":     label,
	}
	for _, group := range []map[string]float64{seismic, hydro, displacement, environmental} {
		for k, v := range group {
			r[k] = v
		}
	}
	return r
}

// envelope shapes an event between 0 and 1 of its progress: a fast rise
// followed by an exponential-like decay.
type envelope struct {
	start    time.Time
	duration time.Duration
}

func (e *envelope) active(now time.Time) bool {
	if e == nil || e.duration <= 0 {
		return false
	}
	elapsed := now.Sub(e.start)
	return elapsed >= 0 && elapsed < e.duration
}

// amplitude returns the envelope strength in [0, 1]
func (e *envelope) amplitude(now time.Time) float64 {
	if !e.active(now) {
		return 0
	}
	progress := float64(now.Sub(e.start)) / float64(e.duration)
	if progress < 0.15 {
		return progress / 0.15
	}
	return (1 - progress) / 0.85
}
