package chain

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrPriceUnavailable is returned when the oracle has no price for a symbol.
var ErrPriceUnavailable = errors.New("price unavailable")

// StaticOracle serves operator-supplied USD prices. Stablecoin and gas-token
// prices move slowly enough that a configured value refreshed out of band is
// sufficient for treasury valuation; prices can be replaced at runtime.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStaticOracle builds an oracle from an initial symbol->price table.
func NewStaticOracle(prices map[string]float64) *StaticOracle {
	copied := make(map[string]float64, len(prices))
	for symbol, price := range prices {
		copied[symbol] = price
	}
	return &StaticOracle{prices: copied}
}

// PriceUSD returns the configured price for a symbol.
func (o *StaticOracle) PriceUSD(symbol string) (float64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}
	return price, nil
}

// SetPrice installs or replaces a price. Non-finite and non-positive prices
// are rejected.
func (o *StaticOracle) SetPrice(symbol string, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("%w: invalid price %f for %s", ErrPriceUnavailable, price, symbol)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[symbol] = price
	return nil
}
