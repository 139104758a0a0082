package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrGateway is wrapped by every failed gateway call
var ErrGateway = errors.New("payment gateway error")

// Gateway is the payment provider the checkout and verify flows talk to
type Gateway interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

type InitializeRequest struct {
	Email       string
	AmountKobo  int64
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
	Raw              []byte
}

// VerifyResult is the gateway's view of a transaction
type VerifyResult struct {
	Status     string // success, failed, abandoned, ...
	AmountKobo int64
	Reference  string
	GatewayID  string
	PaidAt     *time.Time
	Raw        []byte
}

func (r *VerifyResult) Succeeded() bool {
	return r.Status == "success"
}

// Paystack talks to the Paystack transaction API
type Paystack struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystack(secretKey, baseURL string, timeout time.Duration) *Paystack {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Paystack{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *Paystack) Name() string {
	return "paystack"
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	ID        int64      `json:"id"`
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	PaidAt    *time.Time `json:"paid_at"`
}

func (p *Paystack) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := map[string]any{
		"email":        req.Email,
		"amount":       req.AmountKobo,
		"reference":    req.Reference,
		"callback_url": req.CallbackURL,
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize payload: %w", err)
	}

	raw, env, err := p.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var data paystackInitData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode initialize data: %v", ErrGateway, err)
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize returned no authorization url", ErrGateway)
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
		Raw:              raw,
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	raw, env, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var data paystackVerifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode verify data: %v", ErrGateway, err)
	}
	res := &VerifyResult{
		Status:     data.Status,
		AmountKobo: data.Amount,
		Reference:  data.Reference,
		PaidAt:     data.PaidAt,
		Raw:        raw,
	}
	if data.ID != 0 {
		res.GatewayID = fmt.Sprint(data.ID)
	}
	return res, nil
}

// do sends one authenticated request and unwraps the status envelope
func (p *Paystack) do(ctx context.Context, method, path string, body io.Reader) ([]byte, *paystackEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response: %v", ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, nil, fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, truncate(raw, 200))
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw, nil, fmt.Errorf("%w: failed to decode response: %v", ErrGateway, err)
	}
	if !env.Status {
		return raw, nil, fmt.Errorf("%w: %s", ErrGateway, env.Message)
	}
	return raw, &env, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
