package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/AurumGate/AurumGate-Portal/providers"
	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
	"github.com/AurumGate/AurumGate-Portal/utils"
)

// FallbackBranches is served when the public branch catalog cannot be
// reached, so registration is never blocked outright on a backend outage.
var FallbackBranches = []Branch{
	{ID: 1, Name: "Head Office", Code: "HO", Address: "Main St."},
}

// BackendProvider is the typed client for the upstream banking backend. The
// portal never persists anything the backend owns; every read here replaces
// local state wholesale.
type BackendProvider struct {
	providers.BaseProvider
	logger *logging.Logger
}

// BackendConfig is the provider-scoped portion of the environment. The
// service key authenticates the portal itself on pre-auth endpoints; it is
// replaced by the customer token after sign-in via WithToken.
type BackendConfig struct {
	ServiceKey string `mapstructure:"BACKEND_SERVICE_KEY"`
}

func NewBackendProvider(baseURL string, logger *logging.Logger) *BackendProvider {

	var c BackendConfig

	err := utils.LoadCustomConfig(utils.EnvPath, &c)
	if err != nil {
		panic(fmt.Sprintf("Could not load config: %v", err))
	}

	return &BackendProvider{
		BaseProvider: providers.BaseProvider{
			Name:    providers.AurumBackend,
			BaseURL: baseURL,
			APIKey:  c.ServiceKey,
			Client:  &http.Client{Timeout: 10 * time.Second},
		},
		logger: logger,
	}
}

// WithToken returns a shallow copy bound to a customer's bearer token.
func (p *BackendProvider) WithToken(token string) *BackendProvider {
	c := *p
	c.APIKey = token
	return &c
}

// FetchPublicBranches serves the registration branch dropdown. On any
// failure the built-in fallback catalog is returned alongside the error so
// the caller can surface a retry affordance without blocking the flow.
func (p *BackendProvider) FetchPublicBranches(ctx context.Context) ([]Branch, error) {
	reqURL := fmt.Sprintf("%s/api/external/branches", p.BaseURL)

	response, err := p.MakeRequest(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		p.logger.Error(fmt.Sprintf("branch catalog unreachable, serving fallback: %v", err))
		return FallbackBranches, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		p.logger.Error(fmt.Sprintf("branch catalog returned %s, serving fallback", response.Status))
		return FallbackBranches, fmt.Errorf("failed to fetch branches: %s", response.Status)
	}

	var result branchesResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return FallbackBranches, fmt.Errorf("failed to decode branches: %w", err)
	}

	if !result.Success {
		return FallbackBranches, fmt.Errorf("branch catalog request unsuccessful")
	}

	return result.Branches, nil
}

// CheckUsername reports whether a username is still free.
func (p *BackendProvider) CheckUsername(ctx context.Context, username string) (bool, string, error) {
	reqURL := fmt.Sprintf("%s/api/external/check-username/%s", p.BaseURL, url.PathEscape(username))

	response, err := p.MakeRequest(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return false, "", fmt.Errorf("failed to make request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("availability check failed: %s", response.Status)
	}

	var result availabilityResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return false, "", fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Available, result.Message, nil
}

// CheckEmail reports whether an email address is still free.
func (p *BackendProvider) CheckEmail(ctx context.Context, email string) (bool, string, error) {
	reqURL := fmt.Sprintf("%s/api/external/check-email?email=%s", p.BaseURL, url.QueryEscape(email))

	response, err := p.MakeRequest(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return false, "", fmt.Errorf("failed to make request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("availability check failed: %s", response.Status)
	}

	var result availabilityResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return false, "", fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Available, result.Message, nil
}

// Register submits the assembled multipart registration payload.
func (p *BackendProvider) Register(ctx context.Context, fields map[string]string, files []providers.Attachment) (*RegisterResult, error) {
	reqURL := fmt.Sprintf("%s/api/external/register", p.BaseURL)

	response, err := p.MakeMultipartRequest(ctx, reqURL, fields, files, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer response.Body.Close()

	var result registerResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		if result.Message != "" {
			return nil, fmt.Errorf("registration rejected: %s", result.Message)
		}
		return nil, fmt.Errorf("registration failed: %s", response.Status)
	}

	if !result.Success {
		return nil, fmt.Errorf("registration rejected: %s", result.Message)
	}

	return &RegisterResult{Token: result.Token, Customer: result.Customer, KYCForm: result.KYCForm}, nil
}

// FetchCustomer retrieves the full authoritative snapshot for one customer.
func (p *BackendProvider) FetchCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	reqURL := fmt.Sprintf("%s/api/user/customers/%d", p.BaseURL, customerID)

	response, err := p.MakeRequest(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch customer: %s", response.Status)
	}

	var result customerResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Customer == nil {
		return nil, fmt.Errorf("customer payload missing")
	}

	return result.Customer, nil
}

// FetchBranches returns the full branch catalog, charge tables included.
func (p *BackendProvider) FetchBranches(ctx context.Context) ([]Branch, error) {
	reqURL := fmt.Sprintf("%s/api/user/branches", p.BaseURL)

	response, err := p.MakeRequest(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch branches: %s", response.Status)
	}

	var result branchesResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Branches, nil
}

// SubmitRequestForm files a cash/gold deposit, withdraw or swap intent.
func (p *BackendProvider) SubmitRequestForm(ctx context.Context, customerID int64, params RequestFormParams) (*RequestFormRecord, error) {
	reqURL := fmt.Sprintf("%s/api/user/reqform/%d", p.BaseURL, customerID)
	return p.submitForm(ctx, reqURL, params)
}

// SubmitGoldRequestForm files a buy/sell gold intent priced at UnitPrice.
func (p *BackendProvider) SubmitGoldRequestForm(ctx context.Context, customerID int64, params GoldRequestParams) (*RequestFormRecord, error) {
	reqURL := fmt.Sprintf("%s/api/user/reqformgold/%d", p.BaseURL, customerID)
	return p.submitForm(ctx, reqURL, params)
}

func (p *BackendProvider) submitForm(ctx context.Context, reqURL string, body interface{}) (*RequestFormRecord, error) {
	response, err := p.MakeRequest(ctx, http.MethodPost, reqURL, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer response.Body.Close()

	var result submitResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		if result.Message != "" {
			return nil, fmt.Errorf("request rejected: %s", result.Message)
		}
		return nil, fmt.Errorf("request failed: %s", response.Status)
	}

	if !result.Success {
		return nil, fmt.Errorf("request rejected: %s", result.Message)
	}

	return result.Request, nil
}

// FetchRequestForms returns the customer's transaction history.
func (p *BackendProvider) FetchRequestForms(ctx context.Context, customerID int64) ([]RequestFormRecord, error) {
	reqURL := fmt.Sprintf("%s/api/user/reqform/customer/%d", p.BaseURL, customerID)

	response, err := p.MakeRequest(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch history: %s", response.Status)
	}

	var result requestFormsResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Requests, nil
}

// SubmitKYC uploads an individual KYC submission.
func (p *BackendProvider) SubmitKYC(ctx context.Context, fields map[string]string, files []providers.Attachment) error {
	return p.submitKYC(ctx, fmt.Sprintf("%s/api/user/kyc", p.BaseURL), fields, files)
}

// SubmitCompanyKYC uploads a company KYC submission.
func (p *BackendProvider) SubmitCompanyKYC(ctx context.Context, fields map[string]string, files []providers.Attachment) error {
	return p.submitKYC(ctx, fmt.Sprintf("%s/api/user/company-kyc", p.BaseURL), fields, files)
}

func (p *BackendProvider) submitKYC(ctx context.Context, reqURL string, fields map[string]string, files []providers.Attachment) error {
	response, err := p.MakeMultipartRequest(ctx, reqURL, fields, files, nil)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		var result submitResponse
		if err := json.NewDecoder(response.Body).Decode(&result); err == nil && result.Message != "" {
			return fmt.Errorf("kyc submission rejected: %s", result.Message)
		}
		return fmt.Errorf("kyc submission failed: %s", response.Status)
	}

	return nil
}
