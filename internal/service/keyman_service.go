package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sales-flow-bfa-go/internal/cardcheck"
	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
	"github.com/boddenberg/sales-flow-bfa-go/internal/port"
)

var keymanTracer = otel.Tracer("service/keymen")

// defaultPhoneRegion is assumed for numbers typed without a country code.
const defaultPhoneRegion = "BR"

// KeymanService registers the referral contacts of a customer.
type KeymanService struct {
	store   port.KeymanStore
	metrics *observability.Metrics
	logger  *zap.Logger
	clock   Clock
}

// NewKeymanService creates a keyman service.
func NewKeymanService(store port.KeymanStore, metrics *observability.Metrics, logger *zap.Logger, clock Clock) *KeymanService {
	return &KeymanService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		clock:   clock.orDefault(),
	}
}

// Register validates and stores a keyman. Every invalid field is reported at
// once.
func (s *KeymanService) Register(ctx context.Context, customerID string, req *domain.KeymanRequest) (*domain.Keyman, error) {
	ctx, span := keymanTracer.Start(ctx, "KeymanService.Register")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var fields []domain.FieldError

	// Same full-name rule as the card holder.
	if fe := cardcheck.ValidateHolderName(req.Name); fe != nil {
		fields = append(fields, domain.FieldError{Field: "name", Kind: string(fe.Kind), Message: fe.Message})
	}

	var e164, national string
	if strings.TrimSpace(req.Phone) == "" {
		fields = append(fields, domain.FieldError{Field: "phone", Kind: string(cardcheck.KindMissing), Message: "Informe o telefone"})
	} else {
		num, err := phonenumbers.Parse(req.Phone, defaultPhoneRegion)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			fields = append(fields, domain.FieldError{Field: "phone", Kind: string(cardcheck.KindInvalidFormat), Message: "Telefone inválido"})
		} else {
			e164 = phonenumbers.Format(num, phonenumbers.E164)
			national = phonenumbers.Format(num, phonenumbers.NATIONAL)
		}
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			fields = append(fields, domain.FieldError{Field: "email", Kind: string(cardcheck.KindInvalidFormat), Message: "E-mail inválido"})
		}
	}

	if len(fields) > 0 {
		return nil, &domain.ErrValidation{Field: fields[0].Field, Message: fields[0].Message, Fields: fields}
	}

	k := &domain.Keyman{
		ID:           uuid.New().String(),
		CustomerID:   customerID,
		Name:         strings.Join(strings.Fields(req.Name), " "),
		Phone:        e164,
		PhoneDisplay: national,
		Email:        email,
		CreatedAt:    s.clock(),
	}
	if err := s.store.CreateKeyman(ctx, k); err != nil {
		return nil, fmt.Errorf("create keyman: %w", err)
	}
	s.metrics.IncrKeyman()

	s.logger.Info("keyman registered",
		zap.String("customer_id", customerID),
		zap.String("keyman_id", k.ID),
	)
	return k, nil
}

// List returns the keymen of a customer, oldest first.
func (s *KeymanService) List(ctx context.Context, customerID string) ([]domain.Keyman, error) {
	ctx, span := keymanTracer.Start(ctx, "KeymanService.List")
	defer span.End()

	list, err := s.store.ListKeymen(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list keymen: %w", err)
	}
	return list, nil
}
