package tokens

import (
	"sync"

	"github.com/shopspring/decimal"

	"eviltwitter/internal/config"
	"eviltwitter/internal/model"
	"eviltwitter/internal/util"
)

// DefaultDecimals applies to mints the registry does not know.
const DefaultDecimals = 9

type Type string

const (
	BLING      Type = "BLING"
	USDC       Type = "USDC"
	STABLECOIN Type = "STABLECOIN"
)

// Metadata describes how a token is displayed.
type Metadata struct {
	Type     Type
	Mint     string
	Symbol   string
	Emoji    string
	Decimals int
}

// Registry resolves token mints to metadata.
type Registry struct {
	mu     sync.RWMutex
	byMint map[string]Metadata
}

// NewRegistry builds a registry from the configured mints. Empty mints are skipped.
func NewRegistry(cfg config.TokensConfig) *Registry {
	r := &Registry{byMint: make(map[string]Metadata)}
	r.add(Metadata{Type: BLING, Mint: cfg.BlingMint, Symbol: "BLING", Emoji: "✨", Decimals: 9})
	r.add(Metadata{Type: USDC, Mint: cfg.USDCMint, Symbol: "USDC", Emoji: "💵", Decimals: 6})
	r.add(Metadata{Type: STABLECOIN, Mint: cfg.StablecoinMint, Symbol: "STABLECOIN", Emoji: "🪙", Decimals: 6})
	return r
}

func (r *Registry) add(m Metadata) {
	if m.Mint == "" {
		return
	}
	r.byMint[m.Mint] = m
}

// Lookup returns the metadata for mint.
func (r *Registry) Lookup(mint string) (Metadata, bool) {
	if r == nil {
		return Metadata{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byMint[mint]
	return m, ok
}

// Learn adopts the decimals the server reports for each payment token and
// registers mints the config did not name. Configured symbols are kept.
func (r *Registry) Learn(payments []model.ValidPayment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range payments {
		if p.TokenMint == "" {
			continue
		}
		m, ok := r.byMint[p.TokenMint]
		if !ok {
			m = Metadata{Mint: p.TokenMint, Symbol: p.Symbol, Decimals: DefaultDecimals}
			if m.Symbol == "" {
				m.Symbol = util.ShortenMiddle(p.TokenMint, 4)
			}
		}
		if p.Decimals > 0 {
			m.Decimals = p.Decimals
		}
		r.byMint[p.TokenMint] = m
	}
}

// Decimals returns the decimal count for mint, DefaultDecimals when unknown.
func (r *Registry) Decimals(mint string) int {
	if m, ok := r.Lookup(mint); ok {
		return m.Decimals
	}
	return DefaultDecimals
}

// Symbol returns a display symbol, falling back to a shortened mint.
func (r *Registry) Symbol(mint string) string {
	if m, ok := r.Lookup(mint); ok {
		return m.Symbol
	}
	return util.ShortenMiddle(mint, 4)
}

// FromBaseUnits converts an integer base-unit amount into whole tokens.
// Unparseable amounts count as zero.
func FromBaseUnits(amount string, decimals int) decimal.Decimal {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(int32(-decimals))
}

// ToBaseUnits converts a whole-token amount into integer base units, truncating.
func ToBaseUnits(amount decimal.Decimal, decimals int) string {
	return amount.Shift(int32(decimals)).Truncate(0).String()
}
