package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sales-flow-bfa-go/internal/cardcheck"
	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
	"github.com/boddenberg/sales-flow-bfa-go/internal/pipeline"
	"github.com/boddenberg/sales-flow-bfa-go/internal/port"
)

var paymentTracer = otel.Tracer("service/payments")

// bankSlipDueDays is how far ahead a boleto falls due.
const bankSlipDueDays = 3

// PaymentConfig drives the simulated settlement.
type PaymentConfig struct {
	SettleDelay time.Duration
	MaxAmount   float64
}

// PaymentService creates simulated payments and settles them on read.
type PaymentService struct {
	store   port.PaymentStore
	cards   *CardService
	cfg     PaymentConfig
	metrics *observability.Metrics
	logger  *zap.Logger
	clock   Clock
}

// NewPaymentService creates a payment service.
func NewPaymentService(store port.PaymentStore, cards *CardService, cfg PaymentConfig, metrics *observability.Metrics, logger *zap.Logger, clock Clock) *PaymentService {
	return &PaymentService{
		store:   store,
		cards:   cards,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		clock:   clock.orDefault(),
	}
}

// ============================================================
// Create: POST /v1/payments
// ============================================================

func (s *PaymentService) Create(ctx context.Context, req *domain.PaymentRequest) (*domain.Payment, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("payment.method", string(req.Method)))

	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, &domain.ErrValidation{Field: "customerId", Message: "Informe o cliente"}
	}
	if !req.Method.Valid() {
		return nil, &domain.ErrValidation{Field: "method", Message: "Forma de pagamento inválida"}
	}
	// Amounts are kept in cents; anything that rounds to zero is rejected.
	amount := math.Round(req.Amount*100) / 100
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "Valor deve ser maior que zero"}
	}

	now := s.clock()
	p := &domain.Payment{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		ContractID: req.ContractID,
		Method:     req.Method,
		Amount:     amount,
		Status:     domain.PaymentAwaiting,
		CreatedAt:  now,
	}

	switch req.Method {
	case domain.PaymentCreditCard:
		if req.Card == nil {
			return nil, &domain.ErrValidation{Field: "card", Message: "Informe os dados do cartão"}
		}
		res := s.cards.Validate(ctx, *req.Card, true)
		if !res.Valid() {
			return nil, &domain.ErrValidation{Field: "card", Message: "Cartão inválido", Fields: cardFieldErrors(res.Errors)}
		}
		p.CardBrand = res.Brand
		p.CardLast4 = cardcheck.Last4(req.Card.Number)
		p.Installments = strings.TrimSpace(req.Card.Installments)
	case domain.PaymentBankSlip:
		p.DueDate = pipeline.FormatDate(pipeline.Midnight(now).AddDate(0, 0, bankSlipDueDays))
	}

	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	s.metrics.IncrPayment(string(p.Method), string(p.Status))

	s.logger.Info("payment created",
		zap.String("payment_id", p.ID),
		zap.String("customer_id", p.CustomerID),
		zap.String("method", string(p.Method)),
		zap.Float64("amount", p.Amount),
	)
	return p, nil
}

// ============================================================
// Get: GET /v1/payments/{paymentId}
// ============================================================

// Get returns a payment, settling it first when its delay has elapsed.
func (s *PaymentService) Get(ctx context.Context, paymentID string) (*domain.Payment, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", paymentID))

	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	settled := Settle(*p, s.clock(), s.cfg)
	if settled.Status == p.Status {
		return p, nil
	}

	if err := s.store.UpdatePayment(ctx, &settled); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	s.metrics.IncrPayment(string(settled.Method), string(settled.Status))
	s.logger.Info("payment settled",
		zap.String("payment_id", settled.ID),
		zap.String("status", string(settled.Status)),
	)
	return &settled, nil
}

// Settle is the settlement rule: an awaiting payment older than the delay is
// approved, or rejected when it exceeds the maximum amount. Anything else is
// returned unchanged.
func Settle(p domain.Payment, now time.Time, cfg PaymentConfig) domain.Payment {
	if p.Status != domain.PaymentAwaiting || now.Sub(p.CreatedAt) < cfg.SettleDelay {
		return p
	}
	settledAt := now
	p.SettledAt = &settledAt
	if p.Amount > cfg.MaxAmount {
		p.Status = domain.PaymentError
		p.FailureReason = "Valor acima do limite permitido"
		return p
	}
	p.Status = domain.PaymentApproved
	return p
}
