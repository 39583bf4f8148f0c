package tokens

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"eviltwitter/internal/config"
	"eviltwitter/internal/model"
)

func TestRegistryDecimals(t *testing.T) {
	r := NewRegistry(config.TokensConfig{BlingMint: "bling", USDCMint: "usdc"})
	assert.Equal(t, 9, r.Decimals("bling"))
	assert.Equal(t, 6, r.Decimals("usdc"))
	assert.Equal(t, DefaultDecimals, r.Decimals("unknown"))
	_, ok := r.Lookup("")
	assert.False(t, ok, "empty stablecoin mint must not register")
}

func TestLearnFromValidPayments(t *testing.T) {
	r := NewRegistry(config.TokensConfig{BlingMint: "bling", USDCMint: "usdc"})
	r.Learn([]model.ValidPayment{
		{TokenMint: "usdc", Symbol: "usdc-server", Decimals: 8, Enabled: true},
		{TokenMint: "evl", Symbol: "EVL", Decimals: 4, Enabled: true},
		{TokenMint: "bling", Decimals: 0},
		{TokenMint: ""},
	})
	assert.Equal(t, 8, r.Decimals("usdc"))
	assert.Equal(t, "USDC", r.Symbol("usdc"), "configured symbol wins")
	assert.Equal(t, 4, r.Decimals("evl"))
	assert.Equal(t, "EVL", r.Symbol("evl"))
	assert.Equal(t, 9, r.Decimals("bling"), "missing decimals keep the configured value")
	_, ok := r.Lookup("")
	assert.False(t, ok)
}

func TestSymbolFallback(t *testing.T) {
	r := NewRegistry(config.TokensConfig{BlingMint: "bling"})
	assert.Equal(t, "BLING", r.Symbol("bling"))
	assert.Equal(t, "So11…1112", r.Symbol("So11111111111111111111111111111111111111112"))
	assert.Equal(t, "abc", r.Symbol("abc"))
}

func TestBaseUnitConversion(t *testing.T) {
	got := FromBaseUnits("1500000000", 9)
	assert.True(t, got.Equal(decimal.RequireFromString("1.5")), got.String())
	assert.True(t, FromBaseUnits("garbage", 9).IsZero())
	assert.Equal(t, "2500000", ToBaseUnits(decimal.RequireFromString("2.5"), 6))
}
