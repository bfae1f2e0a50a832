package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"adspace/internal/app/policies"
	"adspace/internal/domain/payment"
)

const mtnName = "mtn_momo"

// MTN implements the MoMo Collections request-to-pay flow. The transaction
// id is client-generated and passed as X-Reference-Id; status checks poll
// the same reference.
type MTN struct {
	BaseURL         string
	SubscriptionKey string
	TargetEnv       string
	DialPrefix      string
	HTTP            *http.Client
}

func NewMTN(baseURL, subscriptionKey, targetEnv, dialPrefix string, timeout time.Duration) *MTN {
	return &MTN{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		SubscriptionKey: subscriptionKey,
		TargetEnv:       targetEnv,
		DialPrefix:      dialPrefix,
		HTTP:            &http.Client{Timeout: timeout},
	}
}

func (m *MTN) Name() string { return mtnName }

type mtnRequestToPay struct {
	Amount     string   `json:"amount"`
	Currency   string   `json:"currency"`
	ExternalID string   `json:"externalId"`
	Payer      mtnPayer `json:"payer"`
}

type mtnPayer struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

func (m *MTN) Initiate(ctx context.Context, req policies.InitiateRequest) (policies.InitiateResult, error) {
	refID := uuid.NewString()
	body := mtnRequestToPay{
		Amount:     strconv.FormatInt(req.Amount.Amount, 10),
		Currency:   req.Amount.Currency,
		ExternalID: req.Reference,
		Payer:      mtnPayer{PartyIDType: "MSISDN", PartyID: m.normalizeMSISDN(req.PayerContact)},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return policies.InitiateResult{}, fmt.Errorf("%w: mtn encode: %v", policies.ErrProvider, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(payload))
	if err != nil {
		return policies.InitiateResult{}, fmt.Errorf("%w: mtn request: %v", policies.ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Reference-Id", refID)
	httpReq.Header.Set("X-Target-Environment", m.TargetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", m.SubscriptionKey)
	resp, err := m.HTTP.Do(httpReq)
	if err != nil {
		return policies.InitiateResult{}, fmt.Errorf("%w: mtn requesttopay: %v", policies.ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return policies.InitiateResult{}, fmt.Errorf("%w: mtn requesttopay status %d", policies.ErrProvider, resp.StatusCode)
	}
	return policies.InitiateResult{TransactionID: refID, Status: payment.StatusPending}, nil
}

type mtnStatusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (m *MTN) CheckStatus(ctx context.Context, transactionID string) (payment.Status, error) {
	url := m.BaseURL + "/collection/v1_0/requesttopay/" + transactionID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: mtn request: %v", policies.ErrProvider, err)
	}
	httpReq.Header.Set("X-Target-Environment", m.TargetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", m.SubscriptionKey)
	resp, err := m.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: mtn status: %v", policies.ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: mtn status %d", policies.ErrProvider, resp.StatusCode)
	}
	var out mtnStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: mtn decode: %v", policies.ErrProvider, err)
	}
	return NormalizeMTNStatus(out.Status), nil
}

// NormalizeMTNStatus folds MoMo's vocabulary into the engine's three states.
// Unknown values are treated as still pending rather than failed.
func NormalizeMTNStatus(raw string) payment.Status {
	switch strings.ToUpper(raw) {
	case "SUCCESSFUL":
		return payment.StatusSuccess
	case "FAILED", "REJECTED", "TIMEOUT":
		return payment.StatusFailed
	default:
		return payment.StatusPending
	}
}

// normalizeMSISDN strips a leading plus and prepends the country dial prefix
// to local numbers.
func (m *MTN) normalizeMSISDN(contact string) string {
	msisdn := strings.TrimPrefix(strings.TrimSpace(contact), "+")
	if m.DialPrefix != "" && !strings.HasPrefix(msisdn, m.DialPrefix) {
		msisdn = m.DialPrefix + msisdn
	}
	return msisdn
}

var _ policies.PaymentProvider = (*MTN)(nil)
