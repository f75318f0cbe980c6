// Package forecast produces a mock weather nowcast from recent
// observations. It extrapolates a linear trend per feature; the original
// system used a learned model here, which this demo deliberately omits.
package forecast

// Features per observation: rain (mm/hr), temperature (celsius),
// humidity (percent).
const NumFeatures = 3

// Nowcaster keeps a sliding window of observations and extrapolates the
// next horizon steps once the window is full.
type Nowcaster struct {
	window  int
	horizon int
	samples [][NumFeatures]float64
}

// NewNowcaster creates a nowcaster. Window and horizon must be positive;
// zero values get the demo defaults (50 observations, 5 steps).
func NewNowcaster(window, horizon int) *Nowcaster {
	if window <= 0 {
		window = 50
	}
	if horizon <= 0 {
		horizon = 5
	}
	return &Nowcaster{window: window, horizon: horizon}
}

// Observe appends one observation, evicting the oldest when full
func (n *Nowcaster) Observe(rain, temp, humidity float64) {
	n.samples = append(n.samples, [NumFeatures]float64{rain, temp, humidity})
	if len(n.samples) > n.window {
		n.samples = n.samples[1:]
	}
}

// Ready reports whether the window holds enough observations to forecast
func (n *Nowcaster) Ready() bool {
	return len(n.samples) == n.window
}

// Forecast returns horizon rows of [rain, temperature, humidity] obtained
// by least-squares linear extrapolation over the window. Returns nil until
// Ready.
func (n *Nowcaster) Forecast() [][]float64 {
	if !n.Ready() {
		return nil
	}

	out := make([][]float64, n.horizon)
	for step := range out {
		out[step] = make([]float64, NumFeatures)
	}

	for f := 0; f < NumFeatures; f++ {
		slope, intercept := n.fit(f)
		for step := 0; step < n.horizon; step++ {
			x := float64(len(n.samples) + step)
			value := intercept + slope*x
			if f == 0 && value < 0 {
				value = 0 // rain rate cannot be negative
			}
			out[step][f] = value
		}
	}
	return out
}

// fit computes the least-squares line through the window for one feature
func (n *Nowcaster) fit(feature int) (slope, intercept float64) {
	count := float64(len(n.samples))
	var sumX, sumY, sumXY, sumXX float64
	for i, s := range n.samples {
		x := float64(i)
		y := s[feature]
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := count*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / count
	}
	slope = (count*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / count
	return slope, intercept
}
