package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/service"
)

// ============================================================
// Pagamentos: PIX, cartão, boleto, transferência
// ============================================================

func createPaymentHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments")
		defer span.End()

		var req domain.PaymentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		span.SetAttributes(
			attribute.String("customer.id", req.CustomerID),
			attribute.String("payment.method", string(req.Method)),
		)

		p, err := svc.Create(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func getPaymentHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payments/{paymentId}")
		defer span.End()

		p, err := svc.Get(ctx, chi.URLParam(r, "paymentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
