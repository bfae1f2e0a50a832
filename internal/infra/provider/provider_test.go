package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adspace/internal/app/policies"
	"adspace/internal/domain/payment"
	"adspace/internal/domain/shared/money"
)

func TestNormalizeMTNStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want payment.Status
	}{
		{"SUCCESSFUL", payment.StatusSuccess},
		{"successful", payment.StatusSuccess},
		{"FAILED", payment.StatusFailed},
		{"REJECTED", payment.StatusFailed},
		{"TIMEOUT", payment.StatusFailed},
		{"PENDING", payment.StatusPending},
		{"CREATED", payment.StatusPending},
		{"", payment.StatusPending},
		{"SOMETHING_NEW", payment.StatusPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMTNStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeOrangeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want payment.Status
	}{
		{"SUCCESS", payment.StatusSuccess},
		{"SUCCESSFULL", payment.StatusSuccess},
		{"FAILED", payment.StatusFailed},
		{"EXPIRED", payment.StatusFailed},
		{"CANCELLED", payment.StatusFailed},
		{"INITIATED", payment.StatusPending},
		{"PENDING", payment.StatusPending},
		{"", payment.StatusPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeOrangeStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestMockDeterministic(t *testing.T) {
	mock := NewMock()
	res, err := mock.Initiate(context.Background(), policies.InitiateRequest{
		Reference: "bk-1",
		Amount:    money.Must(100000, "XAF"),
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, res.Status)
	assert.NotEmpty(t, res.TransactionID)

	first, err := mock.CheckStatus(context.Background(), res.TransactionID)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := mock.CheckStatus(context.Background(), res.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, first, again, "mock status must not change between polls")
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	mock := NewMock()
	registry.Register(payment.MethodMTNMoMo, mock)

	p, err := registry.ForMethod(payment.MethodMTNMoMo)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = registry.ForMethod(payment.MethodOrangeMoney)
	assert.ErrorIs(t, err, payment.ErrUnknownMethod)

	p, err = registry.ByName("mock")
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = registry.ByName("stripe")
	assert.ErrorIs(t, err, payment.ErrUnknownMethod)
}
