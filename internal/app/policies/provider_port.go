package policies

import (
	"context"
	"errors"

	"adspace/internal/domain/payment"
	"adspace/internal/domain/shared/money"
)

// ErrProvider wraps every adapter failure (transport error, timeout,
// provider-side rejection of the call itself). Callers decide whether to
// absorb it (booking creation) or surface it (reconciliation poll).
var ErrProvider = errors.New("policies: provider call failed")

type InitiateRequest struct {
	Reference    string
	Amount       money.Money
	PayerContact string
}

type InitiateResult struct {
	TransactionID string
	Status        payment.Status
}

// PaymentProvider is the uniform client over heterogeneous mobile-money and
// card providers. Implementations normalize provider-native status
// vocabularies into {PENDING, SUCCESS, FAILED} before returning.
type PaymentProvider interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	CheckStatus(ctx context.Context, transactionID string) (payment.Status, error)
}

// ProviderRegistry resolves the adapter for a payment method or a provider
// name carried in a webhook path.
type ProviderRegistry interface {
	ForMethod(method payment.Method) (PaymentProvider, error)
	ByName(name string) (PaymentProvider, error)
}
