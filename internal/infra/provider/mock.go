package provider

import (
	"context"
	"hash/fnv"

	"github.com/google/uuid"

	"adspace/internal/app/policies"
	"adspace/internal/domain/payment"
)

const mockName = "mock"

// Mock simulates a provider for dev and test runs. Initiation always leaves
// the charge pending; CheckStatus resolves deterministically from a hash of
// the transaction id, so repeated polls of the same transaction agree.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (Mock) Name() string { return mockName }

func (Mock) Initiate(ctx context.Context, req policies.InitiateRequest) (policies.InitiateResult, error) {
	return policies.InitiateResult{
		TransactionID: "mock-" + uuid.NewString(),
		Status:        payment.StatusPending,
	}, nil
}

func (Mock) CheckStatus(ctx context.Context, transactionID string) (payment.Status, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(transactionID))
	switch h.Sum32() % 10 {
	case 0:
		return payment.StatusPending, nil
	case 1:
		return payment.StatusFailed, nil
	default:
		return payment.StatusSuccess, nil
	}
}

var _ policies.PaymentProvider = Mock{}
