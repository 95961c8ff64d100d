package indicators

import "github.com/Svanik-yan/trading-backtest/internal/domain"

// VolumeRatioWindow is the number of prior sessions averaged for the volume
// ratio.
const VolumeRatioWindow = 5

// Derive builds one indicator row per bar from the bars alone, for sources
// (such as raw quote files) that carry no indicator series. VolumeRatio is
// the bar's volume over the mean volume of the previous VolumeRatioWindow
// bars of the same symbol, 0 while that history is missing. Fundamental
// fields stay zero.
func Derive(bars []domain.Bar) []domain.Indicator {
	out := make([]domain.Indicator, len(bars))
	history := make(map[string][]float64)
	for i, b := range bars {
		ind := domain.Indicator{Symbol: b.Symbol, Date: b.Date}
		vols := history[b.Symbol]
		if avg := Mean(vols, VolumeRatioWindow); avg > 0 {
			ind.VolumeRatio = b.Volume / avg
		}
		vols = append(vols, b.Volume)
		if len(vols) > VolumeRatioWindow {
			vols = vols[1:]
		}
		history[b.Symbol] = vols
		out[i] = ind
	}
	return out
}
