package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQuoteCache_Update(t *testing.T) {
	qc := NewQuoteCache("xauusd", time.Minute)

	t.Run("EmptyUntilFirstTick", func(t *testing.T) {
		_, ok := qc.Current()
		assert.False(t, ok)
	})

	t.Run("SymbolMatchIsCaseInsensitive", func(t *testing.T) {
		qc.Update(Quote{Symbol: "XAUUSD", Bid: dec("2650"), Ask: dec("2655"), MarketStatus: MarketTradeable})
		q, ok := qc.Current()
		require.True(t, ok)
		assert.True(t, q.Bid.Equal(dec("2650")))
	})

	t.Run("ForeignSymbolIgnored", func(t *testing.T) {
		qc.Update(Quote{Symbol: "XAGUSD", Bid: dec("30"), Ask: dec("31")})
		q, ok := qc.Current()
		require.True(t, ok)
		assert.True(t, q.Bid.Equal(dec("2650")), "silver tick must not replace the gold quote")
	})

	t.Run("NewTickReplacesWholesale", func(t *testing.T) {
		qc.Update(Quote{Symbol: "xauusd", Bid: dec("2660"), Ask: dec("2666"), MarketStatus: "CLOSED"})
		q, ok := qc.Current()
		require.True(t, ok)
		assert.True(t, q.Bid.Equal(dec("2660")))
		assert.Equal(t, "CLOSED", q.MarketStatus)
		assert.False(t, q.Tradeable())
	})
}

func TestQuoteCache_StaleAfterTickGap(t *testing.T) {
	qc := NewQuoteCache("XAUUSD", 30*time.Millisecond)
	qc.Update(Quote{Symbol: "XAUUSD", Bid: dec("2650"), Ask: dec("2655")})

	_, ok := qc.Current()
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = qc.Current()
	assert.False(t, ok, "a quiet feed must read as no quote, not frozen prices")
}

func TestDerivations(t *testing.T) {
	q := Quote{Bid: dec("2650.00"), Ask: dec("2655.00")}
	spread := dec("2.00")

	assert.True(t, EffectiveBid(q, spread).Equal(dec("2648.00")))
	assert.True(t, EffectiveAsk(q, spread).Equal(dec("2657.00")))

	perGram, _ := PerGram(dec("31.103")).Float64()
	assert.InDelta(t, 1.0, perGram, 1e-9)
}
