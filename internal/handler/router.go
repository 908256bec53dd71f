package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
	"github.com/boddenberg/sales-flow-bfa-go/internal/service"
)

var tracer = otel.Tracer("handler")

// healthCheckTimeout bounds each dependency probe of /healthz.
const healthCheckTimeout = 2 * time.Second

// Services bundles the use cases exposed over HTTP. A nil Auth leaves the
// write routes unavailable.
type Services struct {
	Cards    *service.CardService
	Pipeline *service.PipelineService
	Payments *service.PaymentService
	Keymen   *service.KeymanService
	Auth     *service.AuthService
}

// Pinger is a dependency reported by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthProbe names a dependency for /healthz.
type HealthProbe struct {
	Name   string
	Pinger Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, probes []HealthProbe, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(probes, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Autenticação do operador
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			if svcs.Auth == nil {
				r.Handle("/*", unavailable("auth service unavailable"))
				return
			}
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
		})

		// =============================================
		// 2. Cartão (validação em tempo real)
		// =============================================
		r.Post("/cards/validate", cardValidateHandler(svcs.Cards))
		r.Get("/cards/brand", cardBrandHandler(svcs.Cards))

		// =============================================
		// 3. Esteira de vendas (leitura)
		// =============================================
		r.Get("/customers/{customerId}/pipeline", getPipelineHandler(svcs.Pipeline, logger))
		r.Get("/activities/{activityId}", getActivityHandler(svcs.Pipeline, logger))

		// =============================================
		// 4. Pagamentos e keymen (leitura)
		// =============================================
		r.Get("/payments/{paymentId}", getPaymentHandler(svcs.Payments, logger))
		r.Get("/customers/{customerId}/keymen", listKeymenHandler(svcs.Keymen, logger))

		// =============================================
		// 5. Escrita (protegida)
		// =============================================
		r.Group(func(r chi.Router) {
			if svcs.Auth == nil {
				r.Use(func(http.Handler) http.Handler { return unavailable("auth service unavailable") })
			} else {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
			}
			r.Put("/activities/{activityId}/status", updateActivityStatusHandler(svcs.Pipeline, logger))
			r.Post("/activities/{activityId}/events", addActivityEventHandler(svcs.Pipeline, logger))
			r.Post("/activities/{activityId}/events/{eventId}/documents/{documentId}/receive", receiveDocumentHandler(svcs.Pipeline, logger))
			r.Post("/payments", createPaymentHandler(svcs.Payments, logger))
			r.Post("/customers/{customerId}/keymen", registerKeymanHandler(svcs.Keymen, logger))
		})
	})

	return r
}

func unavailable(msg string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusServiceUnavailable, msg)
	})
}

// ============================================================
// Operational
// ============================================================

// healthzHandler reports the BFA and every probed dependency. A failing
// dependency makes the service degraded, not down: /healthz still answers 200.
func healthzHandler(probes []HealthProbe, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		overallStatus := "healthy"
		for _, p := range probes {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			start := time.Now()
			err := p.Pinger.Ping(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				status = "degraded"
				overallStatus = "degraded"
				logger.Warn("health probe failed", zap.String("dependency", p.Name), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name:        p.Name,
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
