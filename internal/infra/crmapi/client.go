// Package crmapi is a PipelineStore backed by the remote CRM API. Every call
// runs inside a bulkhead slot, a circuit breaker and retry with backoff.
package crmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/resilience"
)

const serviceName = "crm"

var tracer = otel.Tracer("client/crmapi")

// Client talks to the CRM API over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a Client. The breaker reports its transitions to metrics
// and the log.
func NewClient(httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	onChange := func(name string, from, to gobreaker.State) {
		logger.Warn("circuit breaker state change",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		if metrics != nil {
			metrics.IncrCircuitTransition(name, to.String())
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         resilience.NewCircuitBreaker(serviceName, onChange),
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

func (c *Client) ListProducts(ctx context.Context, customerID string) ([]domain.Product, error) {
	var out []domain.Product
	path := fmt.Sprintf("/v1/customers/%s/products", url.PathEscape(customerID))
	if err := c.do(ctx, "ListProducts", http.MethodGet, path, nil, &out, "pipeline", customerID); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &domain.ErrNotFound{Resource: "pipeline", ID: customerID}
	}
	return out, nil
}

func (c *Client) ListPhases(ctx context.Context, productID string) ([]domain.Phase, error) {
	out := []domain.Phase{}
	path := fmt.Sprintf("/v1/products/%s/phases", url.PathEscape(productID))
	if err := c.do(ctx, "ListPhases", http.MethodGet, path, nil, &out, "product", productID); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListActivities(ctx context.Context, phaseID string) ([]domain.Activity, error) {
	out := []domain.Activity{}
	path := fmt.Sprintf("/v1/phases/%s/activities", url.PathEscape(phaseID))
	if err := c.do(ctx, "ListActivities", http.MethodGet, path, nil, &out, "phase", phaseID); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetActivity(ctx context.Context, activityID string) (*domain.Activity, error) {
	var out domain.Activity
	path := "/v1/activities/" + url.PathEscape(activityID)
	if err := c.do(ctx, "GetActivity", http.MethodGet, path, nil, &out, "activity", activityID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCustomerIDForActivity(ctx context.Context, activityID string) (string, error) {
	var out struct {
		CustomerID string `json:"customerId"`
	}
	path := fmt.Sprintf("/v1/activities/%s/customer", url.PathEscape(activityID))
	if err := c.do(ctx, "GetCustomerIDForActivity", http.MethodGet, path, nil, &out, "activity", activityID); err != nil {
		return "", err
	}
	return out.CustomerID, nil
}

func (c *Client) SaveActivity(ctx context.Context, activity *domain.Activity) error {
	path := "/v1/activities/" + url.PathEscape(activity.ID)
	return c.do(ctx, "SaveActivity", http.MethodPut, path, activity, nil, "activity", activity.ID)
}

// do performs one logical call. resource/id name the entity for a 404.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, resource, id string) error {
	ctx, span := tracer.Start(ctx, "CRMClient."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("crm.path", path),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return c.fail(span, op, &domain.ErrTimeout{Operation: "crm " + op})
	}
	defer c.bulkhead.Release()

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s body: %w", op, err)
		}
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return c.attempt(ctx, method, path, payload, out, resource, id)
		})
	})
	if err == nil {
		return nil
	}

	var nf *domain.ErrNotFound
	switch {
	case errors.As(err, &nf):
		return nf
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return c.fail(span, op, &domain.ErrCircuitOpen{Service: serviceName})
	case errors.Is(err, context.DeadlineExceeded):
		return c.fail(span, op, &domain.ErrTimeout{Operation: "crm " + op})
	}
	return c.fail(span, op, &domain.ErrExternalService{Service: serviceName, Err: err})
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any, resource, id string) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: id})
	case resp.StatusCode >= 500:
		return fmt.Errorf("crm API returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return resilience.Permanent(fmt.Errorf("crm API returned status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resilience.Permanent(fmt.Errorf("decode crm response: %w", err))
	}
	return nil
}

func (c *Client) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if c.metrics != nil {
		c.metrics.IncrExternalError(serviceName)
	}
	c.logger.Error("crm call failed", zap.String("op", op), zap.Error(err))
	return err
}

// Ping checks that the CRM API answers its health endpoint. An open breaker
// counts as down without calling upstream.
func (c *Client) Ping(ctx context.Context) error {
	if c.cb.State() == gobreaker.StateOpen {
		return &domain.ErrCircuitOpen{Service: serviceName}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("crm health returned status %d", resp.StatusCode)
	}
	return nil
}
