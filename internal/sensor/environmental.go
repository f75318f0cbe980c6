package sensor

import (
	"math"
	"math/rand"
	"time"
)

// environmentalGroup models rain rate (mm/hr), air temperature (celsius)
// and relative humidity (percent). Temperature follows a diurnal cycle,
// humidity runs inverse to it, and rain is zero outside rain events save
// for occasional drizzle.
type environmentalGroup struct {
	rng       *rand.Rand
	rain      *envelope
	intensity float64
}

func newEnvironmentalGroup(rng *rand.Rand) *environmentalGroup {
	return &environmentalGroup{rng: rng}
}

func (g *environmentalGroup) triggerRain(now time.Time, intensity float64, duration time.Duration) {
	g.rain = &envelope{start: now, duration: duration}
	g.intensity = intensity
}

func (g *environmentalGroup) sample(now time.Time) map[string]float64 {
	hour := float64(now.Hour()) + float64(now.Minute())/60
	// Peak mid-afternoon, trough before dawn
	temp := 15 + 8*math.Sin(2*math.Pi*(hour-9)/24) + g.rng.NormFloat64()*0.3

	rain := 0.0
	if g.rain.active(now) {
		rain = g.intensity*g.rain.amplitude(now) + g.rng.NormFloat64()*0.5
		rain = math.Max(rain, 0)
	} else if g.rng.Float64() < 0.005 {
		rain = g.rng.Float64() * 0.8 // drizzle
	}

	humidity := 80 - 1.5*(temp-15) + rain*0.5 + g.rng.NormFloat64()*1.5
	humidity = clamp(humidity, 10, 100)

	return map[string]float64{
		"rain_sensor_mmhr":    rain,
		"temperature_celsius": temp,
		"humidity_percent":    humidity,
	}
}
