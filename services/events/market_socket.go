package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// MarketDataEvent is the envelope type carried by market feed frames.
const MarketDataEvent = "market-data"

// MarketTick is one market feed frame. Some feeds report the ask under
// "offer", others under "price"; Ask() resolves whichever is present.
type MarketTick struct {
	Symbol       string           `json:"symbol"`
	Bid          *decimal.Decimal `json:"bid,omitempty"`
	Offer        *decimal.Decimal `json:"offer,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	MarketStatus string           `json:"marketStatus"`
}

// Ask returns the offer-side price regardless of which field carried it.
func (t MarketTick) Ask() decimal.Decimal {
	if t.Offer != nil {
		return *t.Offer
	}
	if t.Price != nil {
		return *t.Price
	}
	return decimal.Zero
}

// BidPrice returns the bid, zero when absent.
func (t MarketTick) BidPrice() decimal.Decimal {
	if t.Bid != nil {
		return *t.Bid
	}
	return decimal.Zero
}

type wsConn struct {
	ws *websocket.Conn
}

// MarketChannel subscribes to the market data feed over WebSocket,
// authenticated by a shared secret query parameter. Every frame is
// dispatched under the market-data envelope type.
func MarketChannel(feedURL string, secret string) ChannelConfig {
	return ChannelConfig{
		Name: "market-data",
		Dial: func(ctx context.Context) (Conn, error) {
			return dialMarket(ctx, feedURL, secret)
		},
	}
}

func dialMarket(ctx context.Context, feedURL string, secret string) (Conn, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("bad market feed URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

func (c *wsConn) Read() (Envelope, error) {
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return Envelope{}, err
	}

	// Frames arrive as bare ticks; wrap them in the portal envelope so the
	// shared dispatch path applies.
	return Envelope{Type: MarketDataEvent, Data: json.RawMessage(raw)}, nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
