package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/infra/observability"
	"github.com/boddenberg/sales-flow-bfa-go/internal/pipeline"
	"github.com/boddenberg/sales-flow-bfa-go/internal/port"
)

var pipelineTracer = otel.Tracer("service/pipeline")

const pipelineCacheName = "pipeline"

// PipelineService assembles a customer's product/phase/activity tree with
// every figure derived against today, and applies status changes. Writes to
// one activity are serialized within the process.
type PipelineService struct {
	store          port.PipelineStore
	views          *viewCache
	activityLocks  *keyedMutex
	maxConcurrency int
	metrics        *observability.Metrics
	logger         *zap.Logger
	clock          Clock
}

// NewPipelineService creates the pipeline service. maxConcurrency bounds the
// store calls in flight while loading one pipeline.
func NewPipelineService(
	store port.PipelineStore,
	cache port.Cache[*domain.PipelineView],
	maxConcurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
	clock Clock,
) *PipelineService {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &PipelineService{
		store:          store,
		views:          newViewCache(cache),
		activityLocks:  newKeyedMutex(),
		maxConcurrency: maxConcurrency,
		metrics:        metrics,
		logger:         logger,
		clock:          clock.orDefault(),
	}
}

func pipelineCacheKey(customerID string) string {
	return "pipeline:" + customerID
}

// ============================================================
// Reads
// ============================================================

// GetPipeline returns the full tree of a customer. Cached views are only
// served on the calendar day they were derived for.
func (s *PipelineService) GetPipeline(ctx context.Context, customerID string) (*domain.PipelineView, error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.GetPipeline")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("pipeline", time.Since(start))
	}()

	today := s.clock.today()
	if cached, ok := s.views.get(customerID); ok && cached.Today == pipeline.FormatDate(today) {
		s.metrics.IncrCacheHit(pipelineCacheName)
		return cached, nil
	}
	s.metrics.IncrCacheMiss(pipelineCacheName)
	gen := s.views.generation(customerID)

	products, err := s.store.ListProducts(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	// --- Phases of every product, concurrently ---
	phases := make([][]domain.Phase, len(products))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, pr := range products {
		i, pr := i, pr
		g.Go(func() error {
			ph, err := s.store.ListPhases(gCtx, pr.ID)
			if err != nil {
				return fmt.Errorf("list phases of %s: %w", pr.ID, err)
			}
			phases[i] = ph
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load phases", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}

	// --- Activities of every phase, concurrently ---
	type slot struct{ product, phase int }
	var slots []slot
	for i := range phases {
		for j := range phases[i] {
			slots = append(slots, slot{i, j})
		}
	}
	activities := make([][]domain.Activity, len(slots))
	g, gCtx = errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for k, sl := range slots {
		k := k
		phaseID := phases[sl.product][sl.phase].ID
		g.Go(func() error {
			acts, err := s.store.ListActivities(gCtx, phaseID)
			if err != nil {
				return fmt.Errorf("list activities of %s: %w", phaseID, err)
			}
			activities[k] = acts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load activities", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}

	// --- Derive ---
	view := &domain.PipelineView{
		CustomerID: customerID,
		Today:      pipeline.FormatDate(today),
		Products:   make([]domain.ProductView, len(products)),
	}
	k := 0
	for i, pr := range products {
		pv := domain.ProductView{
			NodeView: nodeView(pr.ID, pr.Name, pr.Status, pr.Schedule, today),
			Phases:   make([]domain.PhaseView, len(phases[i])),
		}
		for j, ph := range phases[i] {
			phv := domain.PhaseView{
				NodeView:   nodeView(ph.ID, ph.Title, ph.Status, ph.Schedule, today),
				ProductID:  pr.ID,
				Activities: make([]domain.ActivityView, len(activities[k])),
			}
			for a := range activities[k] {
				phv.Activities[a] = activityView(&activities[k][a], today)
			}
			pv.Phases[j] = phv
			k++
		}
		view.Products[i] = pv
	}

	if !s.views.setIfCurrent(customerID, gen, view) {
		s.logger.Debug("pipeline changed while loading, view not cached", zap.String("customer_id", customerID))
	}
	span.SetAttributes(attribute.Int("pipeline.products", len(products)), attribute.Int("pipeline.phases", len(slots)))
	return view, nil
}

// GetActivity returns one activity with its grid and document figures.
func (s *PipelineService) GetActivity(ctx context.Context, activityID string) (*domain.ActivityView, error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.GetActivity")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", activityID))

	a, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	v := activityView(a, s.clock.today())
	return &v, nil
}

// ============================================================
// Writes
// ============================================================

// UpdateActivityStatus moves an activity along a legal edge. Entering started
// stamps the actual start with today and opens the history with a started
// event; entering completed stamps the actual completion. Asking for the
// current status is a no-op.
func (s *PipelineService) UpdateActivityStatus(ctx context.Context, activityID, actor string, req *domain.UpdateStatusRequest) (*domain.ActivityView, error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.UpdateActivityStatus")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", activityID))

	if strings.TrimSpace(req.Status) == "" {
		return nil, &domain.ErrValidation{Field: "status", Message: "Informe o status"}
	}
	to, err := pipeline.ParseStatus(req.Status)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "status", Message: "Status desconhecido"}
	}

	unlock := s.activityLocks.Lock(activityID)
	defer unlock()

	a, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}

	now := s.clock()
	today := pipeline.Midnight(now)

	if a.Status == to {
		v := activityView(a, today)
		return &v, nil
	}
	if !pipeline.CanTransition(a.Status, to) {
		s.metrics.IncrStatusTransition(to.String(), "rejected")
		return nil, &domain.ErrInvalidTransition{Resource: "activity", From: a.Status.String(), To: to.String()}
	}

	from := a.Status
	a.Status = to
	switch to {
	case pipeline.StatusStarted:
		if a.Schedule.StartActual == "" {
			a.Schedule.StartActual = pipeline.FormatDate(today)
		}
		a.Events = append(a.Events, domain.InternalEvent{
			ID:           uuid.New().String(),
			Kind:         domain.EventStarted,
			Date:         pipeline.FormatDate(today),
			Time:         now.Format("15:04"),
			Collaborator: actor,
		})
	case pipeline.StatusCompleted:
		a.Schedule.CompletionActual = pipeline.FormatDate(today)
	}

	if err := s.store.SaveActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("save activity: %w", err)
	}
	s.invalidate(ctx, activityID)
	s.metrics.IncrStatusTransition(to.String(), "applied")

	s.logger.Info("activity status changed",
		zap.String("activity_id", activityID),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("actor", actor),
	)

	v := activityView(a, today)
	return &v, nil
}

// AddEvent appends an internal event to a started activity. Started events
// are only created by the status transition.
func (s *PipelineService) AddEvent(ctx context.Context, activityID, actor string, req *domain.NewEventRequest) (*domain.InternalEvent, error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.AddEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("activity.id", activityID),
		attribute.String("event.kind", string(req.Kind)),
	)

	if err := validateNewEvent(req); err != nil {
		return nil, err
	}

	unlock := s.activityLocks.Lock(activityID)
	defer unlock()

	a, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	if a.Status != pipeline.StatusStarted {
		return nil, &domain.ErrConflict{Message: "Eventos só podem ser registrados em atividades iniciadas"}
	}

	now := s.clock()
	today := pipeline.Midnight(now)

	collaborator := strings.TrimSpace(req.Collaborator)
	if collaborator == "" {
		collaborator = actor
	}
	ev := domain.InternalEvent{
		ID:           uuid.New().String(),
		Kind:         req.Kind,
		Date:         pipeline.FormatDate(today),
		Time:         now.Format("15:04"),
		Collaborator: collaborator,
		Comment:      strings.TrimSpace(req.Comment),
	}
	for _, d := range req.Documents {
		ev.Documents = append(ev.Documents, domain.RequiredDocument{
			ID:      uuid.New().String(),
			Name:    strings.TrimSpace(d.Name),
			DueDate: d.DueDate,
		})
	}

	a.Events = append(a.Events, ev)
	if err := s.store.SaveActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("save activity: %w", err)
	}
	s.invalidate(ctx, activityID)

	deriveDocuments(ev.Documents, today)
	return &ev, nil
}

func validateNewEvent(req *domain.NewEventRequest) error {
	if !req.Kind.Valid() {
		return &domain.ErrValidation{Field: "kind", Message: "Tipo de evento desconhecido"}
	}
	switch req.Kind {
	case domain.EventStarted:
		return &domain.ErrValidation{Field: "kind", Message: "O evento de início é criado ao iniciar a atividade"}
	case domain.EventWaitingDocuments:
		if len(req.Documents) == 0 {
			return &domain.ErrValidation{Field: "documents", Message: "Informe ao menos um documento"}
		}
		for _, d := range req.Documents {
			if strings.TrimSpace(d.Name) == "" {
				return &domain.ErrValidation{Field: "documents", Message: "Documento sem nome"}
			}
			if d.DueDate != "" {
				if _, ok := pipeline.ParseDate(d.DueDate); !ok {
					return &domain.ErrValidation{Field: "documents", Message: "Data de entrega inválida"}
				}
			}
		}
	case domain.EventCustom:
		if strings.TrimSpace(req.Comment) == "" {
			return &domain.ErrValidation{Field: "comment", Message: "Informe o comentário"}
		}
	}
	return nil
}

// MarkDocumentReceived fixes a required document's figure at today. Marking
// an already received document keeps its original date.
func (s *PipelineService) MarkDocumentReceived(ctx context.Context, activityID, eventID, documentID string) (*domain.RequiredDocument, error) {
	ctx, span := pipelineTracer.Start(ctx, "PipelineService.MarkDocumentReceived")
	defer span.End()
	span.SetAttributes(
		attribute.String("activity.id", activityID),
		attribute.String("document.id", documentID),
	)

	unlock := s.activityLocks.Lock(activityID)
	defer unlock()

	a, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}

	doc, err := findDocument(a, eventID, documentID)
	if err != nil {
		return nil, err
	}

	today := s.clock.today()
	if !doc.IsReceived {
		doc.IsReceived = true
		doc.ReceivedAt = pipeline.FormatDate(today)
		if err := s.store.SaveActivity(ctx, a); err != nil {
			return nil, fmt.Errorf("save activity: %w", err)
		}
		s.invalidate(ctx, activityID)
	}

	out := *doc
	deriveDocument(&out, today)
	return &out, nil
}

func findDocument(a *domain.Activity, eventID, documentID string) (*domain.RequiredDocument, error) {
	for i := range a.Events {
		if a.Events[i].ID != eventID {
			continue
		}
		for j := range a.Events[i].Documents {
			if a.Events[i].Documents[j].ID == documentID {
				return &a.Events[i].Documents[j], nil
			}
		}
		return nil, &domain.ErrNotFound{Resource: "document", ID: documentID}
	}
	return nil, &domain.ErrNotFound{Resource: "event", ID: eventID}
}

// invalidate drops the cached pipeline of the activity's owner. A lookup
// failure only delays freshness until the TTL, so it is logged, not returned.
func (s *PipelineService) invalidate(ctx context.Context, activityID string) {
	customerID, err := s.store.GetCustomerIDForActivity(ctx, activityID)
	if err != nil {
		s.logger.Warn("pipeline cache invalidation skipped",
			zap.String("activity_id", activityID),
			zap.Error(err),
		)
		return
	}
	s.views.invalidate(customerID)
}

// ============================================================
// Derivation helpers
// ============================================================

func nodeView(id, name string, status pipeline.ActivityStatus, sch pipeline.Schedule, today time.Time) domain.NodeView {
	cols := pipeline.DeriveColumns(sch, today)
	return domain.NodeView{
		ID:        id,
		Name:      name,
		Status:    status,
		Indicator: pipeline.Classify(status, cols),
		Columns:   cols,
		Grid:      pipeline.BuildGrid(sch, today),
	}
}

func activityView(a *domain.Activity, today time.Time) domain.ActivityView {
	events := a.Events
	if events == nil {
		events = []domain.InternalEvent{}
	}
	for i := range events {
		deriveDocuments(events[i].Documents, today)
	}
	return domain.ActivityView{
		NodeView: nodeView(a.ID, a.Title, a.Status, a.Schedule, today),
		PhaseID:  a.PhaseID,
		Events:   events,
	}
}

func deriveDocuments(docs []domain.RequiredDocument, today time.Time) {
	for i := range docs {
		deriveDocument(&docs[i], today)
	}
}

// deriveDocument counts days like a milestone: against today until received,
// fixed at the receipt date afterwards. No due date means no deadline.
func deriveDocument(d *domain.RequiredDocument, today time.Time) {
	actual := ""
	if d.IsReceived {
		actual = d.ReceivedAt
	}
	fig := pipeline.DeriveMilestone(d.DueDate, actual, today)
	if !fig.Known {
		d.DaysStatus, d.IsOnTime = 0, true
		return
	}
	d.DaysStatus, d.IsOnTime = fig.Days, fig.OnTime
}
