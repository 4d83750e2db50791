package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-funnel"
)

const (
	defaultStatusPath  = "/v1/orders/status"
	defaultConfirmPath = "/v1/orders/confirm"
)

// Config holds checkout API configuration.
type Config struct {
	BaseURL string
	APIKey  string

	StatusPath  string
	ConfirmPath string

	// ManualConfirm enables the settle-on-return call for processors that
	// accept it. Most report status only.
	ManualConfirm bool

	HTTPClient *http.Client
}

// Provider implements funnel.OrderStatusProvider against the hosted
// checkout's order API.
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New creates a new checkout provider.
func New(cfg Config) *Provider {
	if cfg.StatusPath == "" {
		cfg.StatusPath = defaultStatusPath
	}
	if cfg.ConfirmPath == "" {
		cfg.ConfirmPath = defaultConfirmPath
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// Name identifies the provider.
func (p *Provider) Name() string {
	return "checkout"
}

// OrderStatus implements funnel.OrderStatusProvider.
func (p *Provider) OrderStatus(ctx context.Context, id string) (funnel.StatusReport, error) {
	endpoint := p.config.BaseURL + p.config.StatusPath + "?" + url.Values{"ref": {id}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return funnel.StatusReport{}, err
	}
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return funnel.StatusReport{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return funnel.StatusReport{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return funnel.StatusReport{}, providerError("order_status", resp.StatusCode, body)
	}

	var report statusResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return funnel.StatusReport{}, providerError("order_status", resp.StatusCode, body)
	}

	return funnel.StatusReport{
		Status:  report.Status,
		Message: report.Message,
	}, nil
}

// ConfirmOrder implements funnel.OrderStatusProvider.
func (p *Provider) ConfirmOrder(ctx context.Context, id string) (funnel.ConfirmReport, error) {
	payload, err := json.Marshal(confirmRequest{Ref: id})
	if err != nil {
		return funnel.ConfirmReport{}, err
	}

	endpoint := p.config.BaseURL + p.config.ConfirmPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return funnel.ConfirmReport{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return funnel.ConfirmReport{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return funnel.ConfirmReport{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return funnel.ConfirmReport{}, providerError("confirm_order", resp.StatusCode, body)
	}

	var report confirmResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return funnel.ConfirmReport{}, providerError("confirm_order", resp.StatusCode, body)
	}

	out := funnel.ConfirmReport{Success: report.Success}
	if report.Order != nil {
		out.Order = &funnel.Order{
			Ref:           report.Order.Ref,
			Status:        funnel.NormalizeOrderStatus(report.Order.Status),
			Amount:        report.Order.Amount,
			Currency:      report.Order.Currency,
			CustomerEmail: report.Order.CustomerEmail,
			Message:       report.Order.Message,
		}
	}

	return out, nil
}

// SupportsManualConfirm implements funnel.OrderStatusProvider.
func (p *Provider) SupportsManualConfirm() bool {
	return p.config.ManualConfirm
}

func (p *Provider) authorize(req *http.Request) {
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type confirmRequest struct {
	Ref string `json:"ref"`
}

type confirmResponse struct {
	Success bool        `json:"success"`
	Order   *orderEntry `json:"order"`
}

type orderEntry struct {
	Ref           string `json:"ref"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	Message       string `json:"message"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ProviderError is a classified checkout API failure.
type ProviderError struct {
	Operation string
	Status    int
	Code      string
	Message   string
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "checkout request failed"
	}
	return fmt.Sprintf("checkout: %s [%d] %s", e.Operation, e.Status, msg)
}

func providerError(operation string, status int, body []byte) *ProviderError {
	perr := &ProviderError{
		Operation: operation,
		Status:    status,
	}

	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil {
		perr.Code = parsed.Error
		perr.Message = parsed.Message
	}

	if perr.Message == "" {
		perr.Message = strings.TrimSpace(string(body))
	}

	return perr
}

var _ funnel.OrderStatusProvider = (*Provider)(nil)
