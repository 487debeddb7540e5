package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// sseConn reads one text/event-stream response and yields envelopes. The
// backend writes the {type, message, data} envelope as the event data.
type sseConn struct {
	resp    *http.Response
	scanner *bufio.Scanner
	cancel  context.CancelFunc
}

// CustomerChannel subscribes to GET {base}/api/user/events/{customerId}.
func CustomerChannel(baseURL string, customerID int64, token string) ChannelConfig {
	url := fmt.Sprintf("%s/api/user/events/%d", baseURL, customerID)
	return ChannelConfig{
		Name: fmt.Sprintf("customer-%d", customerID),
		Dial: func(ctx context.Context) (Conn, error) {
			return dialSSE(ctx, url, token)
		},
	}
}

func dialSSE(ctx context.Context, url string, token string) (Conn, error) {
	// The stream must outlive the dial call; it is torn down via Close.
	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// No client timeout: the stream stays open until closed or dropped.
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("event stream returned %s", resp.Status)
	}

	// Honor the dial context only while dialing; after this point the
	// connection belongs to the handle.
	select {
	case <-ctx.Done():
		resp.Body.Close()
		cancel()
		return nil, ctx.Err()
	default:
	}

	return &sseConn{
		resp:    resp,
		scanner: bufio.NewScanner(resp.Body),
		cancel:  cancel,
	}, nil
}

// Read blocks until a complete event arrives. Comment lines and event/id
// fields are skipped; consecutive data lines are joined per the SSE spec.
func (c *sseConn) Read() (Envelope, error) {
	var data []string
	for c.scanner.Scan() {
		line := c.scanner.Text()

		if line == "" {
			if len(data) == 0 {
				continue
			}
			var env Envelope
			payload := strings.Join(data, "\n")
			if err := json.Unmarshal([]byte(payload), &env); err != nil {
				// Malformed event; skip it rather than killing the stream.
				data = data[:0]
				continue
			}
			return env, nil
		}

		if strings.HasPrefix(line, "data:") {
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := c.scanner.Err(); err != nil {
		return Envelope{}, err
	}
	return Envelope{}, fmt.Errorf("event stream closed")
}

func (c *sseConn) Close() error {
	c.cancel()
	return c.resp.Body.Close()
}
