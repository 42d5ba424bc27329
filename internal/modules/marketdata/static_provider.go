package marketdata

import (
	"context"
	"strings"
	"sync"

	"github.com/aristath/marketdoctor/internal/domain"
)

// StaticProvider is a DerivativesProvider backed by a fixed in-memory map.
// It serves offline runs and tests; the live exchange fetcher is an external
// collaborator and stays out of this repository.
type StaticProvider struct {
	mu     sync.RWMutex
	derivs map[string]domain.Derivatives
}

// NewStaticProvider creates a provider with no data; Set adds snapshots.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{derivs: make(map[string]domain.Derivatives)}
}

// Set stores the derivatives snapshot returned for a symbol.
func (p *StaticProvider) Set(symbol string, d domain.Derivatives) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.derivs[normalizeSymbol(symbol)] = d
}

// GetDerivatives returns the stored snapshot, nil when the symbol is unknown.
func (p *StaticProvider) GetDerivatives(_ context.Context, symbol string) (*domain.Derivatives, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.derivs[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return nil, nil
	}
	cp := d
	return &cp, nil
}
