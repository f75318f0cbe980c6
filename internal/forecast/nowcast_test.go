package forecast

import (
	"math"
	"testing"
)

func TestNotReadyUntilWindowFull(t *testing.T) {
	n := NewNowcaster(10, 5)

	for i := 0; i < 9; i++ {
		n.Observe(0, 15, 80)
		if n.Ready() {
			t.Fatalf("Ready() = true after %d of 10 observations", i+1)
		}
		if n.Forecast() != nil {
			t.Fatal("Forecast() returned rows before the window filled")
		}
	}

	n.Observe(0, 15, 80)
	if !n.Ready() {
		t.Error("Ready() = false with a full window")
	}
}

func TestForecastShape(t *testing.T) {
	n := NewNowcaster(10, 5)
	for i := 0; i < 10; i++ {
		n.Observe(1, 15, 80)
	}

	rows := n.Forecast()
	if len(rows) != 5 {
		t.Fatalf("forecast rows = %d, want 5", len(rows))
	}
	for i, row := range rows {
		if len(row) != NumFeatures {
			t.Errorf("row %d has %d features, want %d", i, len(row), NumFeatures)
		}
	}
}

func TestForecastConstantSeries(t *testing.T) {
	n := NewNowcaster(20, 3)
	for i := 0; i < 20; i++ {
		n.Observe(2, 18, 75)
	}

	for _, row := range n.Forecast() {
		want := []float64{2, 18, 75}
		for f, v := range row {
			if math.Abs(v-want[f]) > 1e-9 {
				t.Errorf("feature %d = %f, want %f", f, v, want[f])
			}
		}
	}
}

func TestForecastLinearTrend(t *testing.T) {
	n := NewNowcaster(10, 2)
	// Temperature climbing one degree per step
	for i := 0; i < 10; i++ {
		n.Observe(0, float64(10+i), 80)
	}

	rows := n.Forecast()
	if math.Abs(rows[0][1]-20) > 1e-6 {
		t.Errorf("first forecast temperature = %f, want 20", rows[0][1])
	}
	if math.Abs(rows[1][1]-21) > 1e-6 {
		t.Errorf("second forecast temperature = %f, want 21", rows[1][1])
	}
}

func TestForecastClampsNegativeRain(t *testing.T) {
	n := NewNowcaster(10, 5)
	// Rain tapering off fast enough to extrapolate below zero
	for i := 0; i < 10; i++ {
		n.Observe(math.Max(9-float64(i)*2, 0), 15, 80)
	}

	for i, row := range n.Forecast() {
		if row[0] < 0 {
			t.Errorf("forecast step %d rain = %f, want >= 0", i, row[0])
		}
	}
}

func TestWindowSlides(t *testing.T) {
	n := NewNowcaster(5, 1)
	for i := 0; i < 5; i++ {
		n.Observe(0, 10, 80)
	}
	// New regime entirely replaces the window
	for i := 0; i < 5; i++ {
		n.Observe(0, 30, 80)
	}

	row := n.Forecast()[0]
	if math.Abs(row[1]-30) > 1e-9 {
		t.Errorf("forecast temperature = %f, want 30 after window slid", row[1])
	}
}
