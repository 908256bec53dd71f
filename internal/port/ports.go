// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
)

// PipelineStore reads and updates a customer's sales pipeline.
// Implemented by the in-memory store and by the remote CRM API client.
type PipelineStore interface {
	ListProducts(ctx context.Context, customerID string) ([]domain.Product, error)
	ListPhases(ctx context.Context, productID string) ([]domain.Phase, error)
	ListActivities(ctx context.Context, phaseID string) ([]domain.Activity, error)
	GetActivity(ctx context.Context, activityID string) (*domain.Activity, error)
	// GetCustomerIDForActivity resolves the pipeline owner, used to
	// invalidate cached views after a write.
	GetCustomerIDForActivity(ctx context.Context, activityID string) (string, error)
	SaveActivity(ctx context.Context, activity *domain.Activity) error
}

// PaymentStore keeps simulated payments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, p *domain.Payment) error
}

// KeymanStore keeps referral contacts per customer.
type KeymanStore interface {
	CreateKeyman(ctx context.Context, k *domain.Keyman) error
	ListKeymen(ctx context.Context, customerID string) ([]domain.Keyman, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
