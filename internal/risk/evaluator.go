// Package risk derives an alert level from a sensor frame using simple
// threshold rules. It stands in for a predictive model; there is none.
package risk

import (
	"math"
	"sort"
	"strconv"
)

// Level is the assessed hazard level
type Level string

const (
	LevelSafe      Level = "safe"
	LevelWarning   Level = "warning"
	LevelEmergency Level = "emergency"
)

// Thresholds holds the per-field warning and emergency cut-offs
type Thresholds struct {
	GeophoneWarn   float64
	GeophoneEmerg  float64
	MoistureWarn   float64
	MoistureEmerg  float64
	CrackWarn      float64
	CrackEmerg     float64
	RainWarn       float64
	RainEmerg      float64
}

// DefaultThresholds returns the demo rule set
func DefaultThresholds() Thresholds {
	return Thresholds{
		GeophoneWarn:  0.3,
		GeophoneEmerg: 0.8,
		MoistureWarn:  60,
		MoistureEmerg: 85,
		CrackWarn:     2,
		CrackEmerg:    6,
		RainWarn:      10,
		RainEmerg:     20,
	}
}

// Assessment is the evaluator's verdict for one frame
type Assessment struct {
	Level    Level    `json:"level"`
	Score    float64  `json:"score"`    // 0..1
	Triggers []string `json:"triggers"` // fields that breached a threshold
}

// Evaluator applies threshold rules to frames
type Evaluator struct {
	t Thresholds
}

// NewEvaluator creates an evaluator with the given thresholds
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{t: t}
}

type rule struct {
	field string
	warn  float64
	emerg float64
	abs   bool
}

// Evaluate scores one frame. Missing or non-numeric fields simply do not
// contribute; an empty frame assesses as safe.
func (e *Evaluator) Evaluate(frame map[string]interface{}) Assessment {
	rules := []rule{
		{field: "geophone", warn: e.t.GeophoneWarn, emerg: e.t.GeophoneEmerg, abs: true},
		{field: "moisture_sensor", warn: e.t.MoistureWarn, emerg: e.t.MoistureEmerg},
		{field: "crack_sensor", warn: e.t.CrackWarn, emerg: e.t.CrackEmerg},
		{field: "rain_sensor_mmhr", warn: e.t.RainWarn, emerg: e.t.RainEmerg},
	}

	level := LevelSafe
	score := 0.0
	var triggers []string

	for _, r := range rules {
		value, ok := toFloat64(frame[r.field])
		if !ok {
			continue
		}
		if r.abs {
			value = math.Abs(value)
		}
		switch {
		case value >= r.emerg:
			level = LevelEmergency
			score = math.Max(score, 1)
			triggers = append(triggers, r.field)
		case value >= r.warn:
			if level == LevelSafe {
				level = LevelWarning
			}
			// Scale within the warning band
			score = math.Max(score, 0.4+0.6*(value-r.warn)/(r.emerg-r.warn))
			triggers = append(triggers, r.field)
		}
	}

	sort.Strings(triggers)
	return Assessment{Level: level, Score: score, Triggers: triggers}
}

// toFloat64 coerces the JSON-decoded value kinds that appear in frames
func toFloat64(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		f, err := strconv.ParseFloat(value, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
