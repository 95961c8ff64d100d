// Package strategy defines the Strategy interface consumed by the backtest
// engine, the Signal it returns, and a Registry of named strategy factories.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
// A strategy sees one bar and its aligned indicator row at a time and keeps
// whatever price history it needs itself. It never sees the ledger.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init clears any state left over from a previous run. The engine calls
	// it once before the first bar.
	Init(ctx context.Context) error

	// OnBar is called for every simulated day and returns the action to take
	// at the bar's closing price.
	OnBar(bar domain.Bar, ind domain.Indicator) Signal
}

// FillObserver is implemented by strategies that track their own position.
// The engine calls OnFill after each executed trade, before the next bar.
type FillObserver interface {
	OnFill(tr domain.Trade)
}

// Params carries numeric strategy parameters such as moving-average periods.
type Params map[string]float64

// Int returns the named parameter as an int, or def when it is unset or not
// positive.
func (p Params) Int(name string, def int) int {
	if v, ok := p[name]; ok && v > 0 {
		return int(v)
	}
	return def
}

// Float returns the named parameter, or def when it is unset.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Factory builds a fresh strategy instance from its parameters.
type Factory func(params Params) (Strategy, error)

// Registry holds a named collection of strategy factories for lookup and
// enumeration. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry under name, replacing any factory
// already registered with that name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get retrieves a factory by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// New builds a new instance of the named strategy.
func (r *Registry) New(name string, params Params) (Strategy, error) {
	f, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	s, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("building strategy %q: %w: %w", name, ErrInvalidParams, err)
	}
	return s, nil
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
