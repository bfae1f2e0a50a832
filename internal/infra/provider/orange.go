package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"adspace/internal/app/policies"
	"adspace/internal/domain/payment"
)

const orangeName = "orange_money"

// Orange implements the Orange Money web payment flow. Unlike MoMo the
// transaction id is assigned by the provider and returned from the initiate
// call.
type Orange struct {
	BaseURL   string
	AuthToken string
	HTTP      *http.Client
}

func NewOrange(baseURL, authToken string, timeout time.Duration) *Orange {
	return &Orange{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AuthToken: authToken,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

func (o *Orange) Name() string { return orangeName }

type orangePaymentRequest struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Payer    string `json:"payer,omitempty"`
}

type orangePaymentResponse struct {
	PayToken string `json:"pay_token"`
	Status   string `json:"status"`
}

func (o *Orange) Initiate(ctx context.Context, req policies.InitiateRequest) (policies.InitiateResult, error) {
	body := orangePaymentRequest{
		OrderID:  req.Reference,
		Amount:   req.Amount.Amount,
		Currency: req.Amount.Currency,
		Payer:    strings.TrimPrefix(strings.TrimSpace(req.PayerContact), "+"),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return policies.InitiateResult{}, fmt.Errorf("%w: orange encode: %v", policies.ErrProvider, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/dev/v1/webpayment", bytes.NewReader(payload))
	if err != nil {
		return policies.InitiateResult{}, fmt.Errorf("%w: orange request: %v", policies.ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.AuthToken)
	resp, err := o.HTTP.Do(httpReq)
	if err != nil {
		return policies.InitiateResult{}, fmt.Errorf("%w: orange webpayment: %v", policies.ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return policies.InitiateResult{}, fmt.Errorf("%w: orange webpayment status %d", policies.ErrProvider, resp.StatusCode)
	}
	var out orangePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return policies.InitiateResult{}, fmt.Errorf("%w: orange decode: %v", policies.ErrProvider, err)
	}
	if out.PayToken == "" {
		return policies.InitiateResult{}, fmt.Errorf("%w: orange webpayment returned no pay token", policies.ErrProvider)
	}
	return policies.InitiateResult{TransactionID: out.PayToken, Status: NormalizeOrangeStatus(out.Status)}, nil
}

type orangeStatusResponse struct {
	Status string `json:"status"`
}

func (o *Orange) CheckStatus(ctx context.Context, transactionID string) (payment.Status, error) {
	url := o.BaseURL + "/dev/v1/transactionstatus/" + transactionID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: orange request: %v", policies.ErrProvider, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.AuthToken)
	resp, err := o.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: orange status: %v", policies.ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: orange status %d", policies.ErrProvider, resp.StatusCode)
	}
	var out orangeStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: orange decode: %v", policies.ErrProvider, err)
	}
	return NormalizeOrangeStatus(out.Status), nil
}

// NormalizeOrangeStatus folds Orange's vocabulary into the engine's three
// states. INITIATED and PENDING are both in flight; EXPIRED counts as failed.
func NormalizeOrangeStatus(raw string) payment.Status {
	switch strings.ToUpper(raw) {
	case "SUCCESS", "SUCCESSFULL":
		return payment.StatusSuccess
	case "FAILED", "EXPIRED", "CANCELLED":
		return payment.StatusFailed
	default:
		return payment.StatusPending
	}
}

var _ policies.PaymentProvider = (*Orange)(nil)
