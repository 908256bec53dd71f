package handler

import (
	"net/http"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/service"
)

// ============================================================
// Cartão: validação do formulário
// ============================================================

// cardValidateHandler always answers 200: an invalid form is a normal result
// the app renders field by field.
func cardValidateHandler(svc *service.CardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cards/validate")
		defer span.End()

		var req domain.CardValidationRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		writeJSON(w, http.StatusOK, svc.ValidateRequest(ctx, &req))
	}
}

func cardBrandHandler(svc *service.CardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cards/brand")
		defer span.End()

		number := r.URL.Query().Get("number")
		if number == "" {
			writeError(w, http.StatusBadRequest, "number is required")
			return
		}

		writeJSON(w, http.StatusOK, svc.DetectBrand(ctx, number))
	}
}
