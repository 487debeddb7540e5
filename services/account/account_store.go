package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/AurumGate/AurumGate-Portal/providers/backend"
	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
	"github.com/AurumGate/AurumGate-Portal/services/notification"
	"github.com/shopspring/decimal"
)

// CustomerFetcher is the slice of the backend client the store depends on.
type CustomerFetcher interface {
	FetchCustomer(ctx context.Context, customerID int64) (*backend.Customer, error)
}

// Store is the single source of truth for the signed-in customer. Balances
// are only ever replaced wholesale by a completed Refresh; the store never
// applies optimistic arithmetic, so a rejected request can never leave a
// client-predicted balance behind.
type Store struct {
	fetcher  CustomerFetcher
	notifier notification.Notifier
	logger   *logging.Logger

	mu         sync.RWMutex
	customerID int64
	snapshot   *backend.Customer
	gen        uint64 // bind generation, bumped by Bind and Clear
	issued     uint64 // refresh sequence, next to hand out
	applied    uint64 // refresh sequence of the held snapshot
}

func NewStore(fetcher CustomerFetcher, notifier notification.Notifier, logger *logging.Logger) *Store {
	return &Store{
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logger,
	}
}

// Bind ties the store to a signed-in customer. It does not fetch; callers
// follow up with Refresh.
func (s *Store) Bind(customerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerID = customerID
	s.gen++
}

// Refresh fetches the full customer record and replaces the snapshot
// wholesale. Overlapping refreshes are resolved last-completed-wins: a slow
// earlier fetch that completes after a newer one is discarded rather than
// overwriting fresher data.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.customerID == 0 {
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	id := s.customerID
	gen := s.gen
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	snap, err := s.fetcher.FetchCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("refresh customer %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// Signed out or rebound while the fetch was in flight. The id alone
		// is not enough: the same customer may have signed back in, and a
		// pre-logout fetch must not masquerade as fresh data.
		return nil
	}
	if seq < s.applied {
		s.logger.Debug(fmt.Sprintf("discarding stale refresh %d (applied %d)", seq, s.applied))
		return nil
	}
	s.snapshot = snap
	s.applied = seq
	return nil
}

// Snapshot returns the held customer record, or ErrNoSnapshot before the
// first completed refresh.
func (s *Store) Snapshot() (*backend.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	snap := *s.snapshot
	return &snap, nil
}

// CashBalance is a convenience read over the snapshot.
func (s *Store) CashBalance() (decimal.Decimal, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return decimal.Zero, err
	}
	return snap.CashBalance, nil
}

// GoldBalance returns the gold quantity held at one branch, zero when the
// customer has no assignment there.
func (s *Store) GoldBalance(branchID int64) (decimal.Decimal, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return decimal.Zero, err
	}
	for _, ba := range snap.Branches {
		if ba.Branch.ID == branchID {
			return ba.GoldBalance, nil
		}
	}
	return decimal.Zero, nil
}

// Clear wipes the snapshot on logout. In-flight refreshes for the previous
// customer are dropped when they complete.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerID = 0
	s.snapshot = nil
	s.gen++
	s.issued = 0
	s.applied = 0
}

// Event types delivered over the customer channel.
const (
	EvConnectionEstablished = "CONNECTION_ESTABLISHED"
	EvKYCApproved           = "KYC_STATUS_APPROVED"
	EvKYCRejected           = "KYC_STATUS_REJECTED"
	EvKYCReversed           = "KYC_STATUS_REVERSED"
	EvReqFormApproved       = "REQFORM_STATUS_APPROVED"
	EvReqFormRejected       = "REQFORM_STATUS_REJECTED"
	EvReqFormReversed       = "REQFORM_STATUS_REVERSED"
	EvKYCChanged            = "KYC_STATUS_CHANGED"
	EvRequestChanged        = "REQUEST_STATUS_CHANGED"
	EvNotification          = "NOTIFICATION"
)

// refreshEvents is the whitelist of event types that invalidate the held
// snapshot. Everything else is notification-only.
var refreshEvents = map[string]bool{
	EvKYCApproved:     true,
	EvKYCRejected:     true,
	EvKYCReversed:     true,
	EvReqFormApproved: true,
	EvReqFormRejected: true,
	EvReqFormReversed: true,
}

// ApplyEvent reacts to one customer-channel event: whitelisted status
// changes trigger a refresh plus a notification, informational types notify
// only, and unknown types are logged and dropped.
func (s *Store) ApplyEvent(ctx context.Context, eventType string, message string) {
	switch {
	case refreshEvents[eventType]:
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error(fmt.Sprintf("event-driven refresh failed: %v", err))
		}
		s.notifyFor(eventType, message)
	case eventType == EvConnectionEstablished:
		s.logger.Info("customer event channel established")
	case eventType == EvKYCChanged || eventType == EvRequestChanged || eventType == EvNotification:
		s.notifier.Info("Update", message)
	default:
		s.logger.Info(fmt.Sprintf("ignoring unknown event type %q", eventType))
	}
}

func (s *Store) notifyFor(eventType string, message string) {
	switch eventType {
	case EvKYCApproved, EvReqFormApproved:
		s.notifier.Success("Approved", message)
	case EvKYCRejected, EvReqFormRejected:
		s.notifier.Error("Rejected", message)
	default:
		s.notifier.Info("Update", message)
	}
}
