package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AurumGate/AurumGate-Portal/providers"
	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.Handler) *BackendProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBackendProvider(srv.URL, logging.NewTestLogger())
}

func TestFetchCustomer(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user/customers/7", r.URL.Path)
		assert.Equal(t, "Bearer tok-7", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"success": true,
			"customer": {
				"id": 7,
				"name": "Amal Haddad",
				"kyc_status": "verified",
				"cash_balance": "2500.50",
				"spread": "1.25",
				"branches": [
					{"branch": {"id": 1, "name": "Head Office"}, "gold_balance": "12.5"}
				]
			}
		}`))
	}))

	cust, err := p.WithToken("tok-7").FetchCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cust.ID)
	assert.Equal(t, KYCVerified, cust.KYCStatus)
	assert.True(t, cust.CashBalance.Equal(decimal.RequireFromString("2500.50")))
	require.Len(t, cust.Branches, 1)
	assert.True(t, cust.Branches[0].GoldBalance.Equal(decimal.RequireFromString("12.5")))
}

func TestFetchCustomer_UpstreamFailure(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := p.FetchCustomer(context.Background(), 7)
	assert.ErrorContains(t, err, "failed to fetch customer")
}

func TestWithTokenDoesNotMutateBase(t *testing.T) {
	p := NewBackendProvider("http://backend.local", logging.NewTestLogger())

	baseKey := p.APIKey
	bound := p.WithToken("tok-1")
	assert.Equal(t, "tok-1", bound.APIKey)
	assert.Equal(t, baseKey, p.APIKey, "the shared base client must keep the service key")
}

func TestFetchPublicBranches_FallbackOnError(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	branches, err := p.FetchPublicBranches(context.Background())
	assert.Error(t, err)
	assert.Equal(t, FallbackBranches, branches, "an outage still yields the minimal catalog")
}

func TestFetchPublicBranches(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/external/branches", r.URL.Path)
		w.Write([]byte(`{"success": true, "branches": [
			{"id": 1, "name": "Head Office", "code": "HO"},
			{"id": 2, "name": "Marina", "code": "MA"}
		]}`))
	}))

	branches, err := p.FetchPublicBranches(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "Marina", branches[1].Name)
}

func TestCheckUsername(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/external/check-username/amal", r.URL.Path)
		w.Write([]byte(`{"available": false, "message": "Username is taken"}`))
	}))

	available, msg, err := p.CheckUsername(context.Background(), "amal")
	require.NoError(t, err)
	assert.False(t, available)
	assert.Equal(t, "Username is taken", msg)
}

func TestRegister_RejectionMessageSurfaces(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "amal", r.FormValue("username"))
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success": false, "message": "phone already registered"}`))
	}))

	_, err := p.Register(context.Background(), map[string]string{"username": "amal"}, nil)
	assert.ErrorContains(t, err, "phone already registered")
}

func TestRegister(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "/api/external/register", r.URL.Path)

		_, header, err := r.FormFile("identity_front")
		require.NoError(t, err)
		assert.Equal(t, "front.png", header.Filename)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success": true, "token": "tok-42", "customer": {"id": 42}}`))
	}))

	result, err := p.Register(context.Background(),
		map[string]string{"username": "amal"},
		[]providers.Attachment{{Field: "identity_front", FileName: "front.png", Content: []byte{1, 2, 3}}},
	)
	require.NoError(t, err)
	assert.Equal(t, "tok-42", result.Token)
	assert.Equal(t, int64(42), result.Customer.ID)
}

func TestSubmitRequestForm(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user/reqform/7", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success": true, "request": {"id": 91, "type": "swapping", "status": "pending"}}`))
	}))

	record, err := p.SubmitRequestForm(context.Background(), 7, RequestFormParams{
		Type:       ReqSwapping,
		AssetType:  "gold",
		Amount:     decimal.RequireFromString("2.5"),
		BranchID:   1,
		ToBranchID: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(91), record.ID)
	assert.Equal(t, ReqStatusPending, record.Status)
}

func TestSubmitRequestForm_Rejected(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success": false, "message": "insufficient balance"}`))
	}))

	_, err := p.SubmitRequestForm(context.Background(), 7, RequestFormParams{Type: ReqWithdraw})
	assert.ErrorContains(t, err, "insufficient balance")
}

func TestFetchRequestForms(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user/reqform/customer/7", r.URL.Path)
		w.Write([]byte(`{"success": true, "requests": [
			{"id": 2, "type": "buy", "status": "approved"},
			{"id": 1, "type": "deposit", "status": "rejected"}
		]}`))
	}))

	records, err := p.FetchRequestForms(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ReqStatusApproved, records[0].Status)
}

func TestChargeFor(t *testing.T) {
	b := Branch{
		ID: 1,
		ChargeTo: []TransferCharge{
			{ToBranchID: 2, Amount: decimal.RequireFromString("10")},
			{ToBranchID: 3, Amount: decimal.RequireFromString("25")},
		},
	}

	charge, ok := b.ChargeFor(3)
	require.True(t, ok)
	assert.True(t, charge.Amount.Equal(decimal.RequireFromString("25")))

	_, ok = b.ChargeFor(9)
	assert.False(t, ok, "an unconfigured destination has no charge")
}
