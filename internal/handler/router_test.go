package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/handler"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/cache"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
	"github.com/boddenberg/sales-flow-bfa-go/internal/port"
	"github.com/boddenberg/sales-flow-bfa-go/internal/service"
)

// testNow is "today" for every handler test.
var testNow = time.Date(2025, time.April, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

// newTestRouter wires the real services over a seeded memstore.
func newTestRouter(t *testing.T, probes ...handler.HealthProbe) http.Handler {
	t.Helper()
	store := memstore.New()
	if err := store.LoadSeedYAML(memstore.DefaultSeed); err != nil {
		t.Fatal(err)
	}
	return newRouterWithStore(t, store, store, probes...)
}

func newRouterWithStore(t *testing.T, pipelineStore port.PipelineStore, store *memstore.Store, probes ...handler.HealthProbe) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	views := cache.New[*domain.PipelineView](time.Minute)
	t.Cleanup(views.Close)

	cards := service.NewCardService(metrics, logger, clock)
	svcs := handler.Services{
		Cards:    cards,
		Pipeline: service.NewPipelineService(pipelineStore, views, 4, metrics, logger, clock),
		Payments: service.NewPaymentService(store, cards, service.PaymentConfig{SettleDelay: 0, MaxAmount: 1000}, metrics, logger, clock),
		Keymen:   service.NewKeymanService(store, metrics, logger, clock),
		Auth:     service.NewAuthService("operador", string(hash), "secret", 15*time.Minute, logger, time.Now),
	}
	return handler.NewRouter(svcs, probes, metrics, logger)
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{Username: "operador", Password: "s3nha"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp.AccessToken
}

// --- Operational ---

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, handler.HealthProbe{Name: "store", Pinger: memstore.New()})

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var hs domain.HealthStatus
	json.NewDecoder(rec.Body).Decode(&hs)
	if hs.Status != "healthy" || len(hs.Services) != 2 {
		t.Errorf("unexpected health %+v", hs)
	}
}

func TestHealthz_Degraded(t *testing.T) {
	router := newTestRouter(t, handler.HealthProbe{Name: "crm", Pinger: failingPinger{}})

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)

	var hs domain.HealthStatus
	json.NewDecoder(rec.Body).Decode(&hs)
	if rec.Code != http.StatusOK || hs.Status != "degraded" {
		t.Errorf("expected degraded 200, got %d %+v", rec.Code, hs)
	}
}

func TestReadyz(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/readyz", "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t)
	do(t, router, http.MethodGet, "/v1/cards/brand?number=4111", "", nil)
	do(t, router, http.MethodGet, "/v1/customers/cust-001/pipeline", "", nil)

	rec := do(t, router, http.MethodGet, "/metrics", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `bfa_request_duration_seconds_count{operation="GET /v1/cards/brand"} 1`) {
		t.Errorf("expected request duration under the route pattern, got:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `operation="GET /v1/customers/{customerId}/pipeline"`) {
		t.Error("expected the parameterised route pattern as the operation label")
	}
}

func TestPing(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/ping", "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// --- Cards ---

func TestCardValidate(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/cards/validate", "", map[string]any{
		"number":     "4111 1111 1111 1112",
		"expiry":     "03/25",
		"cvv":        "12",
		"holderName": "Maria",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.CardValidationResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Valid {
		t.Fatal("expected invalid form")
	}
	if len(resp.Errors) != 4 {
		t.Fatalf("expected 4 field errors, got %+v", resp.Errors)
	}
	if resp.Errors[0].Field != "number" || resp.Errors[1].Kind != "expired" {
		t.Errorf("unexpected errors order %+v", resp.Errors)
	}
}

func TestCardBrand(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/cards/brand?number=3782", "", nil)
	var resp domain.CardBrandResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Brand != "amex" || !resp.Detected {
		t.Errorf("expected amex, got %+v", resp)
	}

	rec = do(t, router, http.MethodGet, "/v1/cards/brand", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without number, got %d", rec.Code)
	}
}

// --- Pipeline ---

func TestGetPipeline(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/customers/cust-001/pipeline", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if raw["today"] != "10/04/2025" {
		t.Errorf("unexpected today %v", raw["today"])
	}
	// act-garantia is not applicable: its status travels as null.
	if !strings.Contains(rec.Body.String(), `"id":"act-garantia","name":"Garantia adicional","status":null,"indicator":"ban"`) {
		t.Errorf("expected not-applicable activity with null status, got %s", rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/v1/customers/nobody/pipeline", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetActivity(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/activities/act-contrato-social", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var v domain.ActivityView
	json.NewDecoder(rec.Body).Decode(&v)
	if v.PhaseID != "ph-documentacao" || len(v.Events) != 2 || len(v.Grid) != 3 {
		t.Errorf("unexpected activity %+v", v)
	}
}

func TestWriteRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	routes := []struct{ method, path string }{
		{http.MethodPut, "/v1/activities/act-analise-credito/status"},
		{http.MethodPost, "/v1/activities/act-contrato-social/events"},
		{http.MethodPost, "/v1/activities/act-contrato-social/events/ev-contrato-2/documents/doc-rg/receive"},
		{http.MethodPost, "/v1/payments"},
		{http.MethodPost, "/v1/customers/cust-001/keymen"},
	}
	for _, rt := range routes {
		if rec := do(t, router, rt.method, rt.path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", rt.method, rt.path, rec.Code)
		}
		if rec := do(t, router, rt.method, rt.path, "garbage", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: expected 401, got %d", rt.method, rt.path, rec.Code)
		}
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{Username: "operador", Password: "x"})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestUpdateActivityStatus(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	rec := do(t, router, http.MethodPut, "/v1/activities/act-analise-credito/status", token, domain.UpdateStatusRequest{Status: "started"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var v domain.ActivityView
	json.NewDecoder(rec.Body).Decode(&v)
	if len(v.Events) != 1 || v.Events[0].Collaborator != "operador" {
		t.Errorf("expected started event by the operator, got %+v", v.Events)
	}

	rec = do(t, router, http.MethodPut, "/v1/activities/act-visita/status", token, domain.UpdateStatusRequest{Status: "not_started"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for illegal edge, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPut, "/v1/activities/act-visita/status", token, "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rec.Code)
	}
}

func TestAddEventAndReceiveDocument(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	rec := do(t, router, http.MethodPost, "/v1/activities/act-contrato-social/events", token, domain.NewEventRequest{
		Kind:    domain.EventDelayed,
		Comment: "Cliente viajando",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/activities/act-contrato-social/events/ev-contrato-2/documents/doc-rg/receive", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var doc domain.RequiredDocument
	json.NewDecoder(rec.Body).Decode(&doc)
	if !doc.IsReceived || doc.ReceivedAt != "10/04/2025" || doc.DaysStatus != -6 {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestAddEvent_ConcurrentRequests(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	const requests = 20
	codes := make([]int, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(t, router, http.MethodPost, "/v1/activities/act-contrato-social/events", token, domain.NewEventRequest{
				Kind:    domain.EventDelayed,
				Comment: "Aguardando retorno",
			})
			codes[i] = rec.Code
		}()
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, code)
		}
	}
	rec := do(t, router, http.MethodGet, "/v1/activities/act-contrato-social", "", nil)
	var v domain.ActivityView
	json.NewDecoder(rec.Body).Decode(&v)
	if got := len(v.Events); got != 2+requests {
		t.Errorf("expected every acknowledged event stored, got %d events", got)
	}
}

// --- Payments ---

func TestPaymentFlow(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	rec := do(t, router, http.MethodPost, "/v1/payments", token, domain.PaymentRequest{
		CustomerID: "cust-001",
		Method:     domain.PaymentPix,
		Amount:     250,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var p domain.Payment
	json.NewDecoder(rec.Body).Decode(&p)
	if p.Status != domain.PaymentAwaiting {
		t.Errorf("expected awaiting, got %s", p.Status)
	}

	// Zero settle delay: the first read settles it.
	rec = do(t, router, http.MethodGet, "/v1/payments/"+p.ID, "", nil)
	json.NewDecoder(rec.Body).Decode(&p)
	if p.Status != domain.PaymentApproved {
		t.Errorf("expected approved, got %s", p.Status)
	}
}

func TestPayment_InvalidCardListsFields(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	rec := do(t, router, http.MethodPost, "/v1/payments", token, map[string]any{
		"customerId": "cust-001",
		"method":     "credit_card",
		"amount":     100,
		"card":       map[string]string{"number": "4111111111111111", "expiry": "12/30", "cvv": "123", "holderName": "Maria Silva"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Error  string `json:"error"`
		Fields []struct {
			Field string `json:"field"`
			Kind  string `json:"kind"`
		} `json:"fields"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if len(body.Fields) != 1 || body.Fields[0].Field != "installments" || body.Fields[0].Kind != "missing" {
		t.Errorf("unexpected fields %+v", body.Fields)
	}
}

// --- Keymen ---

func TestKeymen(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	req := domain.KeymanRequest{Name: "Carlos Andrade", Phone: "11 91234-5678"}
	if rec := do(t, router, http.MethodPost, "/v1/customers/cust-001/keymen", token, req); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, router, http.MethodPost, "/v1/customers/cust-001/keymen", token, req); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", rec.Code)
	}

	rec := do(t, router, http.MethodGet, "/v1/customers/cust-001/keymen", "", nil)
	var list []domain.Keyman
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 || list[0].Phone != "+5511912345678" {
		t.Errorf("unexpected keymen %+v", list)
	}
}

func TestAuthUnavailable(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, nil, observability.NewMetrics(), zap.NewNop())

	if rec := do(t, router, http.MethodPost, "/v1/auth/login", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for login, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/v1/payments", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for writes, got %d", rec.Code)
	}
}
