package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/service"
)

// ============================================================
// Keymen: contatos de indicação
// ============================================================

func registerKeymanHandler(svc *service.KeymanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/customers/{customerId}/keymen")
		defer span.End()

		var req domain.KeymanRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		k, err := svc.Register(ctx, chi.URLParam(r, "customerId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, k)
	}
}

func listKeymenHandler(svc *service.KeymanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/{customerId}/keymen")
		defer span.End()

		list, err := svc.List(ctx, chi.URLParam(r, "customerId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
