package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AurumGate/AurumGate-Portal/providers/backend"
	"github.com/redis/go-redis/v9"
)

var ErrNoSession = fmt.Errorf("no persisted session")

const sessionTTL = 30 * 24 * time.Hour

// Session is the persisted sign-in state: the backend-issued token plus a
// customer summary, enough to route authenticated vs. anonymous on start.
// Everything else is re-fetched. The token is opaque to the portal.
type Session struct {
	Token      string `json:"token"`
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	KYCStatus  string `json:"kyc_status"`
}

type StoreConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Store persists sessions in redis, replacing the ambient browser-storage
// global with an injected object with an explicit lifecycle.
type Store struct {
	client *redis.Client
}

func NewStore(config *StoreConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &Store{client: client}, nil
}

func key(sessionID string) string {
	return "portal:session:" + sessionID
}

// Save persists one session under the given session id.
func (s *Store) Save(ctx context.Context, sessionID string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, key(sessionID), raw, sessionTTL).Err()
}

// LoadFromPersistence restores a session, ErrNoSession when absent.
func (s *Store) LoadFromPersistence(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrNoSession
	} else if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Clear wipes the persisted session on logout.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, key(sessionID)).Err()
}

// SummaryOf trims a full customer snapshot down to what is worth
// persisting.
func SummaryOf(token string, cust *backend.Customer) *Session {
	return &Session{
		Token:      token,
		CustomerID: cust.ID,
		Name:       cust.Name,
		Username:   cust.Username,
		KYCStatus:  cust.KYCStatus,
	}
}

// Close releases the redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
