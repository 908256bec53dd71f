package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/sales-flow-bfa-go/internal/cardcheck"
	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
	"github.com/boddenberg/sales-flow-bfa-go/internal/service"
)

var paymentCfg = service.PaymentConfig{SettleDelay: 5 * time.Second, MaxAmount: 10000}

func validCard() *cardcheck.Form {
	return &cardcheck.Form{
		Number:       "4111 1111 1111 1111",
		Expiry:       "12/27",
		CVV:          "123",
		HolderName:   "Maria Silva",
		Installments: "3x de R$ 100,00",
	}
}

func newPaymentService(clock *fixedClock) (*service.PaymentService, *observability.Metrics) {
	metrics := observability.NewMetrics()
	cards := service.NewCardService(metrics, zap.NewNop(), clock.Now)
	return service.NewPaymentService(memstore.New(), cards, paymentCfg, metrics, zap.NewNop(), clock.Now), metrics
}

func TestPaymentCreate_CreditCard(t *testing.T) {
	clock := newClock(2025, time.April, 10, 9, 0)
	svc, metrics := newPaymentService(clock)

	p, err := svc.Create(context.Background(), &domain.PaymentRequest{
		CustomerID: "cust-001",
		Method:     domain.PaymentCreditCard,
		Amount:     300,
		Card:       validCard(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != domain.PaymentAwaiting {
		t.Errorf("expected awaiting, got %s", p.Status)
	}
	if p.CardBrand != cardcheck.BrandVisa || p.CardLast4 != "1111" {
		t.Errorf("unexpected card summary %s/%s", p.CardBrand, p.CardLast4)
	}
	if p.Installments != "3x de R$ 100,00" {
		t.Errorf("unexpected installments %q", p.Installments)
	}
	if metrics.PaymentCount("credit_card", "awaiting") != 1 {
		t.Error("expected payment counter to increment")
	}
}

func TestPaymentCreate_InvalidCardReportsFields(t *testing.T) {
	svc, _ := newPaymentService(newClock(2025, time.April, 10, 9, 0))

	card := validCard()
	card.Number = "4111 1111 1111 1112"
	card.Expiry = "01/25"
	card.Installments = ""

	_, err := svc.Create(context.Background(), &domain.PaymentRequest{
		CustomerID: "cust-001",
		Method:     domain.PaymentCreditCard,
		Amount:     300,
		Card:       card,
	})

	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	got := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		got[i] = f.Field
	}
	want := []string{cardcheck.FieldNumber, cardcheck.FieldExpiry, cardcheck.FieldInstallments}
	if len(got) != len(want) {
		t.Fatalf("expected fields %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestPaymentCreate_Validation(t *testing.T) {
	svc, _ := newPaymentService(newClock(2025, time.April, 10, 9, 0))

	tests := []struct {
		name  string
		req   domain.PaymentRequest
		field string
	}{
		{"no customer", domain.PaymentRequest{Method: domain.PaymentPix, Amount: 10}, "customerId"},
		{"bad method", domain.PaymentRequest{CustomerID: "c", Method: "cash", Amount: 10}, "method"},
		{"zero amount", domain.PaymentRequest{CustomerID: "c", Method: domain.PaymentPix}, "amount"},
		{"negative amount", domain.PaymentRequest{CustomerID: "c", Method: domain.PaymentPix, Amount: -1}, "amount"},
		{"amount below one cent", domain.PaymentRequest{CustomerID: "c", Method: domain.PaymentPix, Amount: 0.004}, "amount"},
		{"card missing", domain.PaymentRequest{CustomerID: "c", Method: domain.PaymentCreditCard, Amount: 10}, "card"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.Create(context.Background(), &req)
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestPaymentCreate_BankSlipDueDate(t *testing.T) {
	svc, _ := newPaymentService(newClock(2025, time.April, 29, 23, 0))

	p, err := svc.Create(context.Background(), &domain.PaymentRequest{
		CustomerID: "cust-001",
		Method:     domain.PaymentBankSlip,
		Amount:     99.999,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DueDate != "02/05/2025" {
		t.Errorf("expected due 02/05/2025, got %s", p.DueDate)
	}
	if p.Amount != 100 {
		t.Errorf("expected amount rounded to cents, got %v", p.Amount)
	}
}

func TestPaymentGet_SettlesAfterDelay(t *testing.T) {
	clock := newClock(2025, time.April, 10, 9, 0)
	svc, metrics := newPaymentService(clock)
	ctx := context.Background()

	p, err := svc.Create(ctx, &domain.PaymentRequest{CustomerID: "c", Method: domain.PaymentPix, Amount: 50})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.PaymentAwaiting {
		t.Errorf("expected awaiting before delay, got %s", got.Status)
	}

	clock.set(clock.Now().Add(5 * time.Second))
	got, err = svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.PaymentApproved || got.SettledAt == nil {
		t.Errorf("expected approved with settle time, got %+v", got)
	}
	if metrics.PaymentCount("pix", "approved") != 1 {
		t.Error("expected approved counter to increment")
	}

	// Settled payments stay settled.
	clock.set(clock.Now().Add(time.Hour))
	again, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !again.SettledAt.Equal(*got.SettledAt) {
		t.Error("settle time changed on a later read")
	}
}

func TestPaymentGet_NotFound(t *testing.T) {
	svc, _ := newPaymentService(newClock(2025, time.April, 10, 9, 0))

	_, err := svc.Get(context.Background(), "nope")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettle(t *testing.T) {
	created := time.Date(2025, time.April, 10, 9, 0, 0, 0, time.UTC)
	base := domain.Payment{ID: "p", Amount: 500, Status: domain.PaymentAwaiting, CreatedAt: created}

	early := service.Settle(base, created.Add(4*time.Second), paymentCfg)
	if early.Status != domain.PaymentAwaiting || early.SettledAt != nil {
		t.Errorf("expected awaiting, got %+v", early)
	}

	ok := service.Settle(base, created.Add(5*time.Second), paymentCfg)
	if ok.Status != domain.PaymentApproved {
		t.Errorf("expected approved, got %s", ok.Status)
	}

	big := base
	big.Amount = 10000.01
	failed := service.Settle(big, created.Add(time.Minute), paymentCfg)
	if failed.Status != domain.PaymentError || failed.FailureReason == "" {
		t.Errorf("expected error with reason, got %+v", failed)
	}

	edge := base
	edge.Amount = 10000
	if got := service.Settle(edge, created.Add(time.Minute), paymentCfg); got.Status != domain.PaymentApproved {
		t.Errorf("expected the maximum itself to be approved, got %s", got.Status)
	}

	if base.Status != domain.PaymentAwaiting {
		t.Error("Settle mutated its input")
	}
}
