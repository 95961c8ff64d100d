package backtest

import (
	"math"
	"sort"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

const (
	// TradingDaysPerYear annualises daily statistics.
	TradingDaysPerYear = 252

	// RiskFreeRate is the annual risk-free rate used by the Sharpe and
	// Sortino ratios.
	RiskFreeRate = 0.03

	// ProfitFactorUnbounded is reported as the profit factor when there
	// were winning round trips and no losing ones.
	ProfitFactorUnbounded = -1.0

	// stdEpsilon treats a deviation this small as zero.
	stdEpsilon = 1e-12
)

// Result is the full report of one backtest run. It never contains NaN or
// infinite values.
type Result struct {
	Strategy  string               `json:"strategy"`
	Trades    []domain.Trade       `json:"trades"`
	Positions []domain.Position    `json:"positions"`
	Cash      float64              `json:"cash"`
	Equity    []domain.EquityPoint `json:"equity_curve"`

	TotalValue   float64 `json:"total_value"`
	TotalProfit  float64 `json:"total_profit"`
	ProfitRatio  float64 `json:"profit_ratio"`
	AnnualReturn float64 `json:"annual_return"`

	MaxDrawdown          float64 `json:"max_drawdown"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	CalmarRatio          float64 `json:"calmar_ratio"`
	Volatility           float64 `json:"volatility"`
	VaR95                float64 `json:"var_95"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`

	RoundTrips    []RoundTrip `json:"round_trips"`
	TradeCount    int         `json:"trade_count"`
	WinRate       float64     `json:"win_rate"`
	AvgWinAmount  float64     `json:"avg_win_amount"`
	AvgLossAmount float64     `json:"avg_loss_amount"`
	MaxSingleWin  float64     `json:"max_single_win"`
	MaxSingleLoss float64     `json:"max_single_loss"`
	ProfitFactor  float64     `json:"profit_factor"`
}

// Summarize computes the performance report from a finished run.
func Summarize(name string, trades []domain.Trade, positions []domain.Position, cash float64, equity []domain.EquityPoint, cfg Config) *Result {
	res := &Result{
		Strategy:   name,
		Trades:     trades,
		Positions:  positions,
		Cash:       cash,
		Equity:     equity,
		TradeCount: len(trades),
	}

	if len(equity) > 0 {
		res.TotalValue = equity[len(equity)-1].Value
	} else {
		res.TotalValue = cash
		for _, p := range positions {
			res.TotalValue += p.Value
		}
	}
	res.TotalProfit = res.TotalValue - cfg.InitialCapital
	if cfg.InitialCapital > 0 {
		res.ProfitRatio = res.TotalProfit / cfg.InitialCapital
	}

	returns := DailyReturns(equity)
	res.MaxDrawdown = maxDrawdownFrom(cfg.InitialCapital, equity)
	res.SharpeRatio = SharpeRatio(returns)
	res.SortinoRatio = SortinoRatio(returns)
	res.Volatility = Volatility(returns)
	res.VaR95 = ValueAtRisk(returns, 0.95)
	res.MaxConsecutiveLosses = MaxConsecutiveLosses(returns)
	res.AnnualReturn = annualReturn(res.ProfitRatio, years(cfg, equity))
	if res.MaxDrawdown > 0 {
		res.CalmarRatio = res.AnnualReturn / res.MaxDrawdown
	}

	res.RoundTrips = MatchRoundTrips(trades)
	applyTradeStats(res, res.RoundTrips)
	return res
}

// ---------------------------------------------------------------------------
// Equity-curve statistics
// ---------------------------------------------------------------------------

// DailyReturns returns (v[i]-v[i-1])/v[i-1] for consecutive equity points.
// A non-positive previous value yields a zero return.
func DailyReturns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev > 0 {
			out[i-1] = (equity[i].Value - prev) / prev
		}
	}
	return out
}

// MaxDrawdown returns the largest peak-to-trough decline of the curve as a
// fraction of the running peak.
func MaxDrawdown(equity []domain.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	return maxDrawdownFrom(equity[0].Value, equity)
}

// maxDrawdownFrom is MaxDrawdown with the running peak seeded at start. A run
// seeds it with the initial capital, so fees paid on the first bar count.
func maxDrawdownFrom(start float64, equity []domain.EquityPoint) float64 {
	peak, maxDD := start, 0.0
	for _, pt := range equity {
		if pt.Value > peak {
			peak = pt.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - pt.Value) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// SharpeRatio is the annualised mean excess daily return over its sample
// standard deviation. It is 0 with fewer than two returns or no deviation.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := sampleStd(returns)
	if std < stdEpsilon {
		return 0
	}
	excess := mean(returns) - RiskFreeRate/TradingDaysPerYear
	return excess / std * math.Sqrt(TradingDaysPerYear)
}

// SortinoRatio is the annualised mean excess daily return over the downside
// deviation, the root mean square of the negative returns. It is 0 when no
// return is negative.
func SortinoRatio(returns []float64) float64 {
	var sq float64
	var n int
	for _, r := range returns {
		if r < 0 {
			sq += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	down := math.Sqrt(sq / float64(n))
	if down < stdEpsilon {
		return 0
	}
	excess := mean(returns) - RiskFreeRate/TradingDaysPerYear
	return excess / down * math.Sqrt(TradingDaysPerYear)
}

// Volatility is the annualised sample standard deviation of daily returns.
func Volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return sampleStd(returns) * math.Sqrt(TradingDaysPerYear)
}

// ValueAtRisk is the historical one-day value at risk at the given
// confidence, as a positive fraction of equity. It is 0 when the quantile
// return is not a loss.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	idx = max(0, min(idx, len(sorted)-1))
	if sorted[idx] >= 0 {
		return 0
	}
	return -sorted[idx]
}

// MaxConsecutiveLosses returns the longest run of strictly negative returns.
func MaxConsecutiveLosses(returns []float64) int {
	var run, longest int
	for _, r := range returns {
		if r < 0 {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

func annualReturn(profitRatio, years float64) float64 {
	if years <= 0 {
		return 0
	}
	v := math.Pow(1+profitRatio, 1/years) - 1
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// years is the length of the configured window in 365-day years, falling
// back to the span of the equity curve when a bound is unset.
func years(cfg Config, equity []domain.EquityPoint) float64 {
	start, end := cfg.StartDate, cfg.EndDate
	if len(equity) > 0 {
		if start.IsZero() {
			start = equity[0].Date
		}
		if end.IsZero() {
			end = equity[len(equity)-1].Date
		}
	}
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return end.Sub(start).Hours() / 24 / 365
}

// ---------------------------------------------------------------------------
// Trade statistics
// ---------------------------------------------------------------------------

func applyTradeStats(res *Result, trips []RoundTrip) {
	if len(trips) == 0 {
		return
	}
	var wins, losses int
	var grossWin, grossLoss float64
	for _, rt := range trips {
		if rt.Profit > 0 {
			wins++
			grossWin += rt.Profit
			res.MaxSingleWin = max(res.MaxSingleWin, rt.Profit)
		} else {
			losses++
			grossLoss += rt.Profit
			res.MaxSingleLoss = min(res.MaxSingleLoss, rt.Profit)
		}
	}

	res.WinRate = float64(wins) / float64(len(trips))
	if wins > 0 {
		res.AvgWinAmount = grossWin / float64(wins)
	}
	if losses > 0 {
		res.AvgLossAmount = grossLoss / float64(losses)
	}

	switch {
	case grossLoss < 0:
		res.ProfitFactor = grossWin / -grossLoss
	case grossWin > 0:
		res.ProfitFactor = ProfitFactorUnbounded
	}
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func sampleStd(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	m := mean(x)
	var ss float64
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)-1))
}
