// Package report renders backtest results for terminals and exports them as
// CSV or JSON.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Options controls Render.
type Options struct {
	// MaxTrades limits the trade table to the last MaxTrades fills;
	// 0 shows every trade.
	MaxTrades int
}

// signStyle colours gains green and losses red.
func signStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return gainStyle
	case v < 0:
		return lossStyle
	default:
		return valueStyle
	}
}

type row struct {
	label string
	value string
	style lipgloss.Style
}

// Render writes a styled summary of res followed by its trade table.
func Render(w io.Writer, res *backtest.Result, opts Options) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("  %s  ", res.Strategy)))
	if n := len(res.Equity); n > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s → %s  %d bars",
			res.Equity[0].Date.Format(time.DateOnly),
			res.Equity[n-1].Date.Format(time.DateOnly), n)))
	}
	b.WriteString("\n\n")

	section(&b, "Performance", []row{
		{"Total value", FormatMoney(res.TotalValue), valueStyle},
		{"Total profit", FormatSignedMoney(res.TotalProfit), signStyle(res.TotalProfit)},
		{"Profit ratio", FormatPct(res.ProfitRatio), signStyle(res.ProfitRatio)},
		{"Annual return", FormatPct(res.AnnualReturn), signStyle(res.AnnualReturn)},
		{"Cash", FormatMoney(res.Cash), valueStyle},
	})
	section(&b, "Risk", []row{
		{"Max drawdown", FormatPct(-res.MaxDrawdown), signStyle(-res.MaxDrawdown)},
		{"Sharpe ratio", FormatRatio(res.SharpeRatio), signStyle(res.SharpeRatio)},
		{"Sortino ratio", FormatRatio(res.SortinoRatio), signStyle(res.SortinoRatio)},
		{"Calmar ratio", FormatRatio(res.CalmarRatio), signStyle(res.CalmarRatio)},
		{"Volatility", FormatPct(res.Volatility), valueStyle},
		{"VaR (95%)", FormatPct(-res.VaR95), signStyle(-res.VaR95)},
		{"Max losing streak", fmt.Sprintf("%d days", res.MaxConsecutiveLosses), valueStyle},
	})
	section(&b, "Trades", []row{
		{"Fills", FormatInt(int64(res.TradeCount)), valueStyle},
		{"Round trips", FormatInt(int64(len(res.RoundTrips))), valueStyle},
		{"Win rate", FormatPct(res.WinRate), valueStyle},
		{"Avg win", FormatSignedMoney(res.AvgWinAmount), signStyle(res.AvgWinAmount)},
		{"Avg loss", FormatSignedMoney(res.AvgLossAmount), signStyle(res.AvgLossAmount)},
		{"Best trade", FormatSignedMoney(res.MaxSingleWin), signStyle(res.MaxSingleWin)},
		{"Worst trade", FormatSignedMoney(res.MaxSingleLoss), signStyle(res.MaxSingleLoss)},
		{"Profit factor", FormatProfitFactor(res.ProfitFactor), valueStyle},
	})

	if len(res.Positions) > 0 {
		b.WriteString(sectionStyle.Render("Open positions"))
		b.WriteString("\n")
		b.WriteString(colHeaderStyle.Render(fmt.Sprintf("  %-10s %10s %14s %14s %14s", "Symbol", "Qty", "Cost", "Value", "P&L")))
		b.WriteString("\n")
		for _, p := range res.Positions {
			fmt.Fprintf(&b, "  %-10s %10s %14s %14s ", p.Symbol, FormatInt(p.Quantity), FormatMoney(p.Cost), FormatMoney(p.Value))
			b.WriteString(signStyle(p.Profit()).Render(fmt.Sprintf("%14s", FormatSignedMoney(p.Profit()))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	renderTrades(&b, res.Trades, opts.MaxTrades)

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string, rows []row) {
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-18s", r.label)))
		b.WriteString(r.style.Render(fmt.Sprintf("%16s", r.value)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderTrades(b *strings.Builder, trades []domain.Trade, limit int) {
	if len(trades) == 0 {
		b.WriteString(dimStyle.Render("  (no trades)"))
		b.WriteString("\n")
		return
	}
	shown := trades
	if limit > 0 && len(trades) > limit {
		shown = trades[len(trades)-limit:]
	}

	header := fmt.Sprintf("Trade log (%s)", FormatInt(int64(len(trades))))
	if len(shown) < len(trades) {
		header = fmt.Sprintf("Trade log (last %d of %s)", len(shown), FormatInt(int64(len(trades))))
	}
	b.WriteString(sectionStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("  %-10s %-10s %-4s %10s %10s %14s %10s",
		"Date", "Symbol", "Side", "Price", "Qty", "Amount", "Fee")))
	b.WriteString("\n")
	for _, t := range shown {
		side := gainStyle
		if t.Side == domain.SideSell {
			side = lossStyle
		}
		fmt.Fprintf(b, "  %-10s %-10s ", t.Date.Format(time.DateOnly), t.Symbol)
		b.WriteString(side.Render(fmt.Sprintf("%-4s", t.Side)))
		fmt.Fprintf(b, " %10s %10s %14s %10s\n",
			FormatMoney(t.Price), FormatInt(t.Quantity), FormatMoney(t.Amount), FormatMoney(t.Fee))
	}
}

// RenderComparison writes one line per result, in the given order.
func RenderComparison(w io.Writer, results []*backtest.Result) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  Strategy comparison  "))
	b.WriteString("\n\n")
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("  %-12s %16s %10s %10s %9s %8s %8s %7s",
		"Strategy", "Total value", "Return", "Annual", "Max DD", "Sharpe", "Win", "Fills")))
	b.WriteString("\n")
	for _, r := range results {
		fmt.Fprintf(&b, "  %-12s %16s ", r.Strategy, FormatMoney(r.TotalValue))
		b.WriteString(signStyle(r.ProfitRatio).Render(fmt.Sprintf("%10s", FormatPct(r.ProfitRatio))))
		b.WriteString(" ")
		b.WriteString(signStyle(r.AnnualReturn).Render(fmt.Sprintf("%10s", FormatPct(r.AnnualReturn))))
		fmt.Fprintf(&b, " %9s %8s %8s %7s\n",
			FormatPct(-r.MaxDrawdown), FormatRatio(r.SharpeRatio), FormatPct(r.WinRate), FormatInt(int64(r.TradeCount)))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
