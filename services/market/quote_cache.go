package market

import (
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// MarketTradeable is the status under which buy/sell intents may be quoted.
const MarketTradeable = "TRADEABLE"

// GramsPerTroyOunce converts a troy-ounce price to a per-gram price.
var GramsPerTroyOunce = decimal.NewFromFloat(31.103)

const quoteKey = "latest"

// Quote is one wholesale tick. It is never partially merged; a new tick
// replaces the previous one entirely.
type Quote struct {
	Symbol       string
	Bid          decimal.Decimal
	Ask          decimal.Decimal
	MarketStatus string
	Timestamp    time.Time
}

// Tradeable reports whether the market accepts orders at this tick.
func (q Quote) Tradeable() bool {
	return q.MarketStatus == MarketTradeable
}

// QuoteCache holds the most recent tick for one tracked symbol. The entry
// expires after the configured tick gap, so a feed that goes quiet reads as
// "no quote" rather than serving frozen prices.
type QuoteCache struct {
	symbol string
	c      *cache.Cache
}

// NewQuoteCache tracks the given symbol; tickGap bounds how long a tick may
// be served before it is considered stale.
func NewQuoteCache(symbol string, tickGap time.Duration) *QuoteCache {
	return &QuoteCache{
		symbol: strings.ToUpper(symbol),
		c:      cache.New(tickGap, 2*tickGap),
	}
}

// Symbol returns the tracked symbol.
func (qc *QuoteCache) Symbol() string {
	return qc.symbol
}

// Update replaces the held quote wholesale. Ticks for other symbols are
// ignored.
func (qc *QuoteCache) Update(q Quote) {
	if !strings.EqualFold(q.Symbol, qc.symbol) {
		return
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now()
	}
	qc.c.Set(quoteKey, q, cache.DefaultExpiration)
}

// Current returns the latest quote, or ok=false when no fresh tick is held.
// Consumers must treat the absent case as "loading", never as zero pricing.
func (qc *QuoteCache) Current() (Quote, bool) {
	v, found := qc.c.Get(quoteKey)
	if !found {
		return Quote{}, false
	}
	return v.(Quote), true
}

// EffectiveBid is the customer-facing sell-side price: bid minus spread.
func EffectiveBid(q Quote, spread decimal.Decimal) decimal.Decimal {
	return q.Bid.Sub(spread)
}

// EffectiveAsk is the customer-facing buy-side price: ask plus spread.
func EffectiveAsk(q Quote, spread decimal.Decimal) decimal.Decimal {
	return q.Ask.Add(spread)
}

// PerGram converts a troy-ounce price to a per-gram price.
func PerGram(price decimal.Decimal) decimal.Decimal {
	return price.Div(GramsPerTroyOunce)
}
