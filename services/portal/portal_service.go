package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AurumGate/AurumGate-Portal/providers/backend"
	"github.com/AurumGate/AurumGate-Portal/services/account"
	"github.com/AurumGate/AurumGate-Portal/services/events"
	"github.com/AurumGate/AurumGate-Portal/services/intent"
	"github.com/AurumGate/AurumGate-Portal/services/market"
	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
	"github.com/AurumGate/AurumGate-Portal/services/notification"
	"github.com/AurumGate/AurumGate-Portal/services/registration"
	"github.com/AurumGate/AurumGate-Portal/utils"
	"github.com/google/uuid"
)

// CustomerContext is one signed-in customer's live state: the account
// store plus the event channel feeding it.
type CustomerContext struct {
	Store  *account.Store
	Handle *events.Handle
	Token  string
}

// Service coordinates the portal core: it owns the market feed
// subscription, one customer context per signed-in customer, and the
// pre-auth registration flows.
type Service struct {
	config    *utils.Config
	logger    *logging.Logger
	backend   *backend.BackendProvider
	events    *events.Client
	quotes    *market.QuoteCache
	validator *intent.Validator
	notifier  notification.Notifier
	phone     registration.PhoneValidator

	mu           sync.Mutex
	customers    map[int64]*CustomerContext
	flows        map[string]*FlowContext
	marketHandle *events.Handle
}

// FlowContext pairs a registration wizard with its availability checker.
type FlowContext struct {
	Flow    *registration.Flow
	Checker *registration.AvailabilityChecker
}

func NewService(config *utils.Config, logger *logging.Logger, b *backend.BackendProvider, notifier notification.Notifier) *Service {
	return &Service{
		config:    config,
		logger:    logger,
		backend:   b,
		events:    events.NewClient(logger),
		quotes:    market.NewQuoteCache(config.MarketSymbol, time.Duration(config.MarketTickGapSecs)*time.Second),
		validator: intent.NewValidator(),
		notifier:  notifier,
		phone:     registration.NewPhoneValidator(),
		customers: make(map[int64]*CustomerContext),
		flows:     make(map[string]*FlowContext),
	}
}

// Quotes exposes the read-only quote cache.
func (s *Service) Quotes() *market.QuoteCache {
	return s.quotes
}

// StartMarketFeed opens the global market channel. Ticks for other symbols
// are filtered by the cache; frames the cache rejects cost nothing.
func (s *Service) StartMarketFeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marketHandle != nil {
		return
	}

	h := s.events.Subscribe(events.MarketChannel(s.config.MarketFeedURL, s.config.MarketFeedSecret))
	h.On(events.MarketDataEvent, func(env events.Envelope) {
		var tick events.MarketTick
		if err := json.Unmarshal(env.Data, &tick); err != nil {
			s.logger.Error(fmt.Sprintf("bad market frame: %v", err))
			return
		}
		s.quotes.Update(market.Quote{
			Symbol:       tick.Symbol,
			Bid:          tick.BidPrice(),
			Ask:          tick.Ask(),
			MarketStatus: tick.MarketStatus,
			Timestamp:    time.Now(),
		})
	})
	s.marketHandle = h
}

// StopMarketFeed tears the market channel down.
func (s *Service) StopMarketFeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marketHandle != nil {
		s.marketHandle.Close()
		s.marketHandle = nil
	}
}

// Attach brings a signed-in customer online: binds an account store,
// refreshes it, and opens the customer event channel that keeps it fresh.
func (s *Service) Attach(ctx context.Context, customerID int64, token string) (*CustomerContext, error) {
	s.mu.Lock()
	if cc, ok := s.customers[customerID]; ok {
		s.mu.Unlock()
		return cc, nil
	}
	s.mu.Unlock()

	client := s.backend.WithToken(token)
	store := account.NewStore(client, s.notifier, s.logger)
	store.Bind(customerID)
	if err := store.Refresh(ctx); err != nil {
		return nil, err
	}

	handle := s.events.Subscribe(events.CustomerChannel(s.backend.BaseURL, customerID, token))
	for _, evType := range []string{
		account.EvConnectionEstablished,
		account.EvKYCApproved, account.EvKYCRejected, account.EvKYCReversed,
		account.EvReqFormApproved, account.EvReqFormRejected, account.EvReqFormReversed,
		account.EvKYCChanged, account.EvRequestChanged, account.EvNotification,
	} {
		evType := evType
		handle.On(evType, func(env events.Envelope) {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			store.ApplyEvent(refreshCtx, evType, env.Message)
		})
	}

	cc := &CustomerContext{Store: store, Handle: handle, Token: token}
	s.mu.Lock()
	s.customers[customerID] = cc
	s.mu.Unlock()
	return cc, nil
}

// Customer returns the live context for a signed-in customer.
func (s *Service) Customer(customerID int64) (*CustomerContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc, ok := s.customers[customerID]
	return cc, ok
}

// Detach signs a customer out: the event channel is closed and the
// snapshot cleared.
func (s *Service) Detach(customerID int64) {
	s.mu.Lock()
	cc, ok := s.customers[customerID]
	delete(s.customers, customerID)
	s.mu.Unlock()

	if ok {
		cc.Handle.Close()
		cc.Store.Clear()
	}
}

// QuoteDraft evaluates a transaction draft against the live snapshot and
// quote, returning the decision and figures without submitting anything.
func (s *Service) QuoteDraft(customerID int64, draft intent.Draft) (intent.Decision, error) {
	cc, ok := s.Customer(customerID)
	if !ok {
		return intent.Decision{}, account.ErrNotSignedIn
	}

	snap, err := cc.Store.Snapshot()
	if err != nil {
		return intent.Decision{}, err
	}

	sourceBranch, err := s.resolveSourceBranch(cc, draft)
	if err != nil {
		return intent.Decision{}, err
	}

	quote, quoteOK := s.quotes.Current()
	return s.validator.Evaluate(draft, snap, sourceBranch, quote, quoteOK)
}

// resolveSourceBranch loads the charge-bearing branch record from the
// catalog. The customer's own assignment list lacks charge tables, so the
// lookup goes through the authenticated branch endpoint.
func (s *Service) resolveSourceBranch(cc *CustomerContext, draft intent.Draft) (*backend.Branch, error) {
	if draft.Kind != intent.Swap || draft.SourceBranchID == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	branches, err := s.backend.WithToken(cc.Token).FetchBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve source branch: %w", err)
	}
	for i := range branches {
		if branches[i].ID == draft.SourceBranchID {
			return &branches[i], nil
		}
	}
	return nil, nil
}

// SubmitDraft validates a draft and, when submittable, files it with the
// backend and refreshes the account snapshot. The decision is returned
// either way; a rejected draft is reported via the notifier and preserved
// by the caller for correction.
func (s *Service) SubmitDraft(ctx context.Context, customerID int64, draft intent.Draft) (intent.Decision, *backend.RequestFormRecord, error) {
	decision, err := s.QuoteDraft(customerID, draft)
	if err != nil {
		return intent.Decision{}, nil, err
	}
	if !decision.Submittable {
		s.notifier.Error("Request not submitted", decision.Reason)
		return decision, nil, nil
	}

	cc, _ := s.Customer(customerID)
	client := s.backend.WithToken(cc.Token)

	var record *backend.RequestFormRecord
	switch draft.Kind {
	case intent.Buy, intent.Sell:
		record, err = client.SubmitGoldRequestForm(ctx, customerID, backend.GoldRequestParams{
			Type:      string(draft.Kind),
			Quantity:  draft.Quantity,
			BranchID:  draft.SourceBranchID,
			UnitPrice: decision.Figures.UnitPrice,
		})
	default:
		record, err = client.SubmitRequestForm(ctx, customerID, backend.RequestFormParams{
			Type:          requestType(draft.Kind),
			AssetType:     string(draft.Asset),
			Amount:        draft.Quantity,
			BranchID:      draft.SourceBranchID,
			ToBranchID:    draft.DestBranchID,
			PaymentMethod: string(draft.PayChargeWith),
		})
	}
	if err != nil {
		s.notifier.Error("Request failed", err.Error())
		return decision, nil, err
	}

	s.notifier.Success("Request submitted", "Your request is pending approval")

	// Balances change only when the backend says so.
	if err := cc.Store.Refresh(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("post-submit refresh failed: %v", err))
	}

	return decision, record, nil
}

func requestType(k intent.Kind) string {
	if k == intent.Swap {
		return backend.ReqSwapping
	}
	return string(k)
}

// KYCBackend returns a token-bound backend client for KYC uploads.
func (s *Service) KYCBackend(token string) *backend.BackendProvider {
	return s.backend.WithToken(token)
}

// History returns the customer's request-form records.
func (s *Service) History(ctx context.Context, customerID int64) ([]backend.RequestFormRecord, error) {
	cc, ok := s.Customer(customerID)
	if !ok {
		return nil, account.ErrNotSignedIn
	}
	return s.backend.WithToken(cc.Token).FetchRequestForms(ctx, customerID)
}

// NewFlow opens a registration wizard and begins loading the branch list.
func (s *Service) NewFlow(ctx context.Context) (string, *FlowContext) {
	fc := &FlowContext{
		Flow:    registration.NewFlow(s.backend, s.phone, s.logger),
		Checker: registration.NewAvailabilityChecker(s.backend, s.logger),
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.flows[id] = fc
	s.mu.Unlock()

	go fc.Flow.LoadBranches(ctx)
	return id, fc
}

// Flow retrieves an in-progress registration wizard.
func (s *Service) Flow(id string) (*FlowContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc, ok := s.flows[id]
	return fc, ok
}

// DropFlow discards a wizard on cancel or completion, cancelling any
// pending availability checks.
func (s *Service) DropFlow(id string) {
	s.mu.Lock()
	fc, ok := s.flows[id]
	delete(s.flows, id)
	s.mu.Unlock()

	if ok {
		fc.Checker.Cancel()
	}
}
