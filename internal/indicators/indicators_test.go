package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Errorf("warm-up values = %v, want NaN", got[:2])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !approx(got[i+2], w) {
			t.Errorf("SMA[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}

	if SMA([]float64{1}, 0) != nil {
		t.Error("SMA with period 0 should return nil")
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3, 4}, 2); !approx(got, 3.5) {
		t.Errorf("Mean = %v, want 3.5", got)
	}
	if got := Mean([]float64{1}, 2); !math.IsNaN(got) {
		t.Errorf("Mean with short input = %v, want NaN", got)
	}
}

func TestEMASeededWithFirstPrice(t *testing.T) {
	got := EMASeries([]float64{10, 20, 30}, 3)
	// k = 0.5
	want := []float64{10, 15, 22.5}
	for i, w := range want {
		if !approx(got[i], w) {
			t.Errorf("EMA[%d] = %v, want %v", i, got[i], w)
		}
	}

	e := NewEMA(3)
	e.Next(10)
	e.Reset()
	if v := e.Next(40); v != 40 {
		t.Errorf("EMA after Reset = %v, want 40", v)
	}
}

func TestMACDStreamingMatchesSeries(t *testing.T) {
	prices := []float64{10, 10.5, 10.2, 11, 11.4, 10.9, 10.1, 9.8, 10.4, 11.2, 11.8, 12.1}
	dif, dea, hist := MACDSeries(prices, 12, 26, 9)

	m := NewMACD(12, 26, 9)
	for i, p := range prices {
		d, s, h := m.Next(p)
		if !approx(d, dif[i]) || !approx(s, dea[i]) || !approx(h, hist[i]) {
			t.Fatalf("step %d: streaming (%v,%v,%v) != series (%v,%v,%v)", i, d, s, h, dif[i], dea[i], hist[i])
		}
		if !approx(h, 2*(d-s)) {
			t.Fatalf("step %d: hist %v != 2*(dif-dea) %v", i, h, 2*(d-s))
		}
	}
	if dif[0] != 0 || hist[0] != 0 {
		t.Errorf("first MACD point = (%v, %v), want zeros", dif[0], hist[0])
	}
}

func TestRSI(t *testing.T) {
	// Strictly rising prices have no losses.
	up := RSI([]float64{1, 2, 3, 4}, 3)
	if !math.IsNaN(up[2]) {
		t.Errorf("RSI[2] = %v, want NaN", up[2])
	}
	if up[3] != 100 {
		t.Errorf("RSI[3] = %v, want 100", up[3])
	}

	// Changes: +2, -1, +1 => avgGain 1, avgLoss 1/3, rs 3, rsi 75.
	mixed := RSI([]float64{10, 12, 11, 12}, 3)
	if !approx(mixed[3], 75) {
		t.Errorf("RSI = %v, want 75", mixed[3])
	}

	down := RSI([]float64{4, 3, 2, 1}, 3)
	if !approx(down[3], 0) {
		t.Errorf("RSI falling = %v, want 0", down[3])
	}
}

func TestDerive(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	var bars []domain.Bar
	for i := 1; i <= 6; i++ {
		bars = append(bars, domain.Bar{Symbol: "000001.SZ", Date: day(i), Volume: 100})
	}
	bars[5].Volume = 300

	inds := Derive(bars)
	if len(inds) != len(bars) {
		t.Fatalf("Derive returned %d rows, want %d", len(inds), len(bars))
	}
	for i := 0; i < 5; i++ {
		if inds[i].VolumeRatio != 0 {
			t.Errorf("row %d VolumeRatio = %v, want 0", i, inds[i].VolumeRatio)
		}
		if !inds[i].Date.Equal(bars[i].Date) || inds[i].Symbol != bars[i].Symbol {
			t.Errorf("row %d not aligned with its bar", i)
		}
	}
	if !approx(inds[5].VolumeRatio, 3) {
		t.Errorf("VolumeRatio = %v, want 3", inds[5].VolumeRatio)
	}
}
