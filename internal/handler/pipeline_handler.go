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
// Esteira de vendas: produtos, fases e atividades
// ============================================================

func getPipelineHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/{customerId}/pipeline")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		span.SetAttributes(attribute.String("customer.id", customerID))

		view, err := svc.GetPipeline(ctx, customerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func getActivityHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/activities/{activityId}")
		defer span.End()

		view, err := svc.GetActivity(ctx, chi.URLParam(r, "activityId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func updateActivityStatusHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/activities/{activityId}/status")
		defer span.End()

		var req domain.UpdateStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		activityID := chi.URLParam(r, "activityId")
		span.SetAttributes(
			attribute.String("activity.id", activityID),
			attribute.String("activity.status", req.Status),
		)

		view, err := svc.UpdateActivityStatus(ctx, activityID, OperatorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func addActivityEventHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/activities/{activityId}/events")
		defer span.End()

		var req domain.NewEventRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		ev, err := svc.AddEvent(ctx, chi.URLParam(r, "activityId"), OperatorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, ev)
	}
}

func receiveDocumentHandler(svc *service.PipelineService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/activities/{activityId}/events/{eventId}/documents/{documentId}/receive")
		defer span.End()

		doc, err := svc.MarkDocumentReceived(ctx,
			chi.URLParam(r, "activityId"),
			chi.URLParam(r, "eventId"),
			chi.URLParam(r, "documentId"),
		)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}
