package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aristath/marketdoctor/internal/domain"
)

// MockBarRepository is an in-memory implementation of marketdata.BarRepository
// for testing. It keeps bars sorted ascending by timestamp per (symbol,
// timeframe) and supports error injection.
type MockBarRepository struct {
	mu   sync.RWMutex
	bars map[string][]domain.Bar
	err  error
}

// NewMockBarRepository creates a new mock bar repository
func NewMockBarRepository() *MockBarRepository {
	return &MockBarRepository{
		bars: make(map[string][]domain.Bar),
	}
}

// SetError sets the error to return from every method
func (m *MockBarRepository) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetBars replaces the bars stored for (symbol, timeframe)
func (m *MockBarRepository) SetBars(symbol string, tf domain.Timeframe, bars []domain.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]domain.Bar, len(bars))
	copy(cp, bars)
	sort.Slice(cp, func(i, j int) bool { return cp[i].TS < cp[j].TS })
	m.bars[barsKey(symbol, tf)] = cp
}

// LastN returns the last n bars ascending by time
func (m *MockBarRepository) LastN(_ context.Context, symbol string, tf domain.Timeframe, n int) ([]domain.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	all := m.bars[barsKey(symbol, tf)]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]domain.Bar, len(all))
	copy(out, all)
	return out, nil
}

// BarsBetween returns bars with fromMS <= ts <= toMS ascending by time
func (m *MockBarRepository) BarsBetween(_ context.Context, symbol string, tf domain.Timeframe, fromMS, toMS int64) ([]domain.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Bar
	for _, b := range m.bars[barsKey(symbol, tf)] {
		if b.TS >= fromMS && b.TS <= toMS {
			out = append(out, b)
		}
	}
	return out, nil
}

// LastTS returns the newest stored timestamp or nil when empty
func (m *MockBarRepository) LastTS(_ context.Context, symbol string, tf domain.Timeframe) (*int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	all := m.bars[barsKey(symbol, tf)]
	if len(all) == 0 {
		return nil, nil
	}
	ts := all[len(all)-1].TS
	return &ts, nil
}

// UpsertBar inserts or replaces a single bar
func (m *MockBarRepository) UpsertBar(ctx context.Context, symbol string, tf domain.Timeframe, bar domain.Bar) error {
	return m.UpsertBars(ctx, symbol, tf, []domain.Bar{bar})
}

// UpsertBars inserts or replaces a batch of bars, keeping timestamps unique
func (m *MockBarRepository) UpsertBars(_ context.Context, symbol string, tf domain.Timeframe, bars []domain.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	key := barsKey(symbol, tf)
	byTS := make(map[int64]domain.Bar, len(m.bars[key])+len(bars))
	for _, b := range m.bars[key] {
		byTS[b.TS] = b
	}
	for _, b := range bars {
		byTS[b.TS] = b
	}
	merged := make([]domain.Bar, 0, len(byTS))
	for _, b := range byTS {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].TS < merged[j].TS })
	m.bars[key] = merged
	return nil
}

func barsKey(symbol string, tf domain.Timeframe) string {
	return fmt.Sprintf("%s|%s", symbol, tf)
}

// MockDerivativesProvider is a mock implementation of
// marketdata.DerivativesProvider for testing
type MockDerivativesProvider struct {
	mu     sync.RWMutex
	derivs map[string]*domain.Derivatives
	err    error
}

// NewMockDerivativesProvider creates a new mock derivatives provider
func NewMockDerivativesProvider() *MockDerivativesProvider {
	return &MockDerivativesProvider{
		derivs: make(map[string]*domain.Derivatives),
	}
}

// SetDerivatives sets the snapshot returned for a symbol
func (m *MockDerivativesProvider) SetDerivatives(symbol string, d *domain.Derivatives) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.derivs[symbol] = d
}

// SetError sets the error to return
func (m *MockDerivativesProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetDerivatives returns the configured snapshot (nil when unknown)
func (m *MockDerivativesProvider) GetDerivatives(_ context.Context, symbol string) (*domain.Derivatives, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.derivs[symbol], nil
}

// MockPriceSource is a mock implementation of marketdata.PriceSource for testing
type MockPriceSource struct {
	mu     sync.RWMutex
	prices map[string]float64
	err    error
}

// NewMockPriceSource creates a new mock price source
func NewMockPriceSource() *MockPriceSource {
	return &MockPriceSource{
		prices: make(map[string]float64),
	}
}

// SetPrice sets the spot price returned for a symbol
func (m *MockPriceSource) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// SetError sets the error to return
func (m *MockPriceSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SpotPrice returns the configured price or nil when unknown
func (m *MockPriceSource) SpotPrice(_ context.Context, symbol string) (*float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.prices[symbol]
	if !ok {
		return nil, nil
	}
	price := p
	return &price, nil
}
