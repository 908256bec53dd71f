package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sales-flow-bfa-go/internal/cardcheck"
	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
)

var cardTracer = otel.Tracer("service/cards")

// CardService runs the card form validators and counts the outcomes.
type CardService struct {
	metrics *observability.Metrics
	logger  *zap.Logger
	clock   Clock
}

// NewCardService creates a card service. A nil clock means time.Now.
func NewCardService(metrics *observability.Metrics, logger *zap.Logger, clock Clock) *CardService {
	return &CardService{
		metrics: metrics,
		logger:  logger,
		clock:   clock.orDefault(),
	}
}

// Validate checks every field of the form against the current month.
func (s *CardService) Validate(ctx context.Context, form cardcheck.Form, requireInstallments bool) cardcheck.Result {
	_, span := cardTracer.Start(ctx, "CardService.Validate")
	defer span.End()

	res := cardcheck.ValidateForm(form, s.clock(), requireInstallments)

	fields := []string{cardcheck.FieldNumber, cardcheck.FieldExpiry, cardcheck.FieldCVV, cardcheck.FieldHolderName}
	if requireInstallments {
		fields = append(fields, cardcheck.FieldInstallments)
	}
	for _, f := range fields {
		outcome := "ok"
		if fe, ok := res.Errors[f]; ok {
			outcome = string(fe.Kind)
		}
		s.metrics.IncrCardValidation(f, outcome)
	}

	span.SetAttributes(
		attribute.String("card.brand", string(res.Brand)),
		attribute.Bool("card.valid", res.Valid()),
		attribute.Int("card.errors", len(res.Errors)),
	)
	// Never log the card number itself.
	s.logger.Debug("card form validated",
		zap.String("brand", string(res.Brand)),
		zap.Bool("valid", res.Valid()),
		zap.Int("errors", len(res.Errors)),
	)
	return res
}

// ValidateRequest is Validate shaped for the HTTP response.
func (s *CardService) ValidateRequest(ctx context.Context, req *domain.CardValidationRequest) *domain.CardValidationResponse {
	res := s.Validate(ctx, req.Form, req.RequireInstallments)
	return &domain.CardValidationResponse{
		Valid:     res.Valid(),
		Brand:     res.Brand,
		Errors:    sortedFieldErrors(res.Errors),
		Formatted: res.Formatted,
	}
}

// DetectBrand infers the network from a partial or complete number.
func (s *CardService) DetectBrand(ctx context.Context, raw string) *domain.CardBrandResponse {
	_, span := cardTracer.Start(ctx, "CardService.DetectBrand")
	defer span.End()

	brand, ok := cardcheck.DetectBrand(raw)
	span.SetAttributes(attribute.String("card.brand", string(brand)))
	return &domain.CardBrandResponse{
		Brand:     brand,
		Detected:  ok,
		Formatted: cardcheck.FormatNumber(raw),
	}
}
