package provider

import (
	"fmt"

	"adspace/internal/app/policies"
	"adspace/internal/domain/payment"
)

// Registry maps payment methods and webhook provider names to adapters.
type Registry struct {
	byMethod map[payment.Method]policies.PaymentProvider
	byName   map[string]policies.PaymentProvider
}

func NewRegistry() *Registry {
	return &Registry{
		byMethod: make(map[payment.Method]policies.PaymentProvider),
		byName:   make(map[string]policies.PaymentProvider),
	}
}

func (r *Registry) Register(method payment.Method, p policies.PaymentProvider) {
	r.byMethod[method] = p
	r.byName[p.Name()] = p
}

func (r *Registry) ForMethod(method payment.Method) (policies.PaymentProvider, error) {
	p, ok := r.byMethod[method]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for method %q", payment.ErrUnknownMethod, method)
	}
	return p, nil
}

func (r *Registry) ByName(name string) (policies.PaymentProvider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter named %q", payment.ErrUnknownMethod, name)
	}
	return p, nil
}

var _ policies.ProviderRegistry = (*Registry)(nil)
