// Package indicators implements the price-series math used by the built-in
// strategies. Series functions return a slice aligned to the input with NaN
// for warm-up positions.
package indicators

import "math"

// SMA is the simple moving average over the trailing p points.
func SMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= p {
			sum -= x[i-p]
		}
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(p)
	}
	return out
}

// Mean returns the arithmetic mean of the last p points of x, or NaN when x
// holds fewer than p points.
func Mean(x []float64, p int) float64 {
	if p <= 0 || len(x) < p {
		return math.NaN()
	}
	var sum float64
	for _, v := range x[len(x)-p:] {
		sum += v
	}
	return sum / float64(p)
}

// EMA is an exponential moving average with smoothing k = 2/(p+1), seeded
// with the first observation. Unlike SMA it produces a value from the first
// point on.
type EMA struct {
	k      float64
	value  float64
	seeded bool
}

// NewEMA creates an EMA over period p.
func NewEMA(p int) *EMA {
	return &EMA{k: 2.0 / float64(p+1)}
}

// Next folds v into the average and returns the updated value.
func (e *EMA) Next(v float64) float64 {
	if !e.seeded {
		e.value = v
		e.seeded = true
		return e.value
	}
	e.value = v*e.k + e.value*(1-e.k)
	return e.value
}

// Value returns the current average.
func (e *EMA) Value() float64 { return e.value }

// Reset clears the seed so the next observation starts a new series.
func (e *EMA) Reset() {
	e.value = 0
	e.seeded = false
}

// EMASeries applies an EMA over p to every point of x.
func EMASeries(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	e := NewEMA(p)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = e.Next(v)
	}
	return out
}

// MACD holds the streaming state for the moving average convergence
// divergence: DIF = fast EMA - slow EMA, DEA = signal EMA of DIF, and the
// histogram 2*(DIF-DEA).
type MACD struct {
	fast, slow, signal *EMA
}

// NewMACD creates a MACD with the given fast, slow and signal periods.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

// Next folds a closing price into the MACD and returns DIF, DEA and the
// histogram.
func (m *MACD) Next(price float64) (dif, dea, hist float64) {
	dif = m.fast.Next(price) - m.slow.Next(price)
	dea = m.signal.Next(dif)
	return dif, dea, 2 * (dif - dea)
}

// Reset clears all three averages.
func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
}

// MACDSeries computes DIF, DEA and histogram series over x.
func MACDSeries(x []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	m := NewMACD(fast, slow, signal)
	dif = make([]float64, len(x))
	dea = make([]float64, len(x))
	hist = make([]float64, len(x))
	for i, v := range x {
		dif[i], dea[i], hist[i] = m.Next(v)
	}
	return dif, dea, hist
}

// RSI computes the relative strength index over the trailing p day-over-day
// changes. Average gain and loss are plain means over the window. The index
// is 100 when the window holds no losses; positions before index p are NaN.
func RSI(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	for i := range x {
		if i < p {
			out[i] = math.NaN()
			continue
		}
		var gain, loss float64
		for j := i - p + 1; j <= i; j++ {
			d := x[j] - x[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		avgGain := gain / float64(p)
		avgLoss := loss / float64(p)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// Last returns the final element of x, or NaN for an empty slice.
func Last(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return x[len(x)-1]
}
