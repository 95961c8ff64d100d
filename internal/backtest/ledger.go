package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

// Ledger tracks available cash and one open position per symbol. Its
// mutators are unexported; only the Engine changes it.
type Ledger struct {
	cash      float64
	positions map[string]*domain.Position
}

// NewLedger creates a ledger holding cash and no positions.
func NewLedger(cash float64) *Ledger {
	return &Ledger{
		cash:      cash,
		positions: make(map[string]*domain.Position),
	}
}

// Cash returns the available cash.
func (l *Ledger) Cash() float64 { return l.cash }

// Position returns a copy of the open position in symbol.
func (l *Ledger) Position(symbol string) (domain.Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Positions returns copies of all open positions sorted by symbol.
func (l *Ledger) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(l.positions))
	for _, sym := range l.symbols() {
		out = append(out, *l.positions[sym])
	}
	return out
}

// Equity returns cash plus the value of every open position. Positions are
// summed in symbol order so the result does not depend on map iteration.
func (l *Ledger) Equity() float64 {
	total := l.cash
	for _, sym := range l.symbols() {
		total += l.positions[sym].Value
	}
	return total
}

func (l *Ledger) symbols() []string {
	syms := make([]string, 0, len(l.positions))
	for s := range l.positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// mark revalues the position in symbol at price.
func (l *Ledger) mark(symbol string, price float64) {
	if p, ok := l.positions[symbol]; ok {
		p.Value = float64(p.Quantity) * price
	}
}

// buy fills a buy of qty shares at price. A qty of 0 means as many shares as
// cash allows after commission. When the fill plus transaction cost exceeds
// cash the quantity is clipped; the buy is dropped if nothing is affordable.
func (l *Ledger) buy(symbol string, date time.Time, price float64, qty int64, cfg Config) (domain.Trade, bool) {
	if !(price > 0) {
		return domain.Trade{}, false
	}
	if qty <= 0 {
		qty = int64(math.Floor(l.cash / (price * (1 + cfg.CommissionRate))))
	}
	if qty <= 0 {
		return domain.Trade{}, false
	}

	fee := price * float64(qty) * cfg.feeRate()
	if price*float64(qty)+fee > l.cash {
		qty = int64(math.Floor((l.cash - fee) / price))
		fee = price * float64(qty) * cfg.feeRate()
	}
	// Rounding can leave the clipped total a hair above cash.
	for qty > 0 && price*float64(qty)+fee > l.cash {
		qty--
		fee = price * float64(qty) * cfg.feeRate()
	}
	if qty <= 0 {
		return domain.Trade{}, false
	}

	amount := price * float64(qty)
	l.cash -= amount + fee

	p, ok := l.positions[symbol]
	if !ok {
		p = &domain.Position{Symbol: symbol}
		l.positions[symbol] = p
	}
	p.Quantity += qty
	p.Cost += amount + fee
	p.Value = float64(p.Quantity) * price

	return domain.Trade{
		Symbol:   symbol,
		Date:     date,
		Side:     domain.SideBuy,
		Price:    price,
		Quantity: qty,
		Amount:   amount,
		Fee:      fee,
	}, true
}

// sell fills a sell of qty shares at price. A qty of 0 closes the whole
// position. Selling more than is held, or selling with no position, is a
// no-op. Cost basis is left unchanged by partial sells.
func (l *Ledger) sell(symbol string, date time.Time, price float64, qty int64, cfg Config) (domain.Trade, bool) {
	p, ok := l.positions[symbol]
	if !ok || !(price > 0) {
		return domain.Trade{}, false
	}
	if qty <= 0 {
		qty = p.Quantity
	}
	if p.Quantity < qty {
		return domain.Trade{}, false
	}

	amount := price * float64(qty)
	fee := amount * cfg.feeRate()
	l.cash += amount - fee

	p.Quantity -= qty
	if p.Quantity == 0 {
		delete(l.positions, symbol)
	} else {
		p.Value = float64(p.Quantity) * price
	}

	return domain.Trade{
		Symbol:   symbol,
		Date:     date,
		Side:     domain.SideSell,
		Price:    price,
		Quantity: qty,
		Amount:   amount,
		Fee:      fee,
	}, true
}
