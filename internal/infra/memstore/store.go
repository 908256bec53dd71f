// Package memstore is a thread-safe in-memory implementation of the pipeline,
// payment and keyman stores. It backs local runs and tests; a YAML fixture can
// seed the pipeline.
package memstore

import (
	"context"
	"sync"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
)

// Store keeps every entity in maps guarded by one RWMutex. Lists preserve
// insertion order.
type Store struct {
	mu sync.RWMutex

	products     map[string]domain.Product
	productOrder []string
	phases       map[string]domain.Phase
	phaseOrder   []string
	activities   map[string]domain.Activity
	activityOrd  []string

	payments map[string]domain.Payment
	keymen   map[string][]domain.Keyman
}

// New creates an empty store.
func New() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		phases:     make(map[string]domain.Phase),
		activities: make(map[string]domain.Activity),
		payments:   make(map[string]domain.Payment),
		keymen:     make(map[string][]domain.Keyman),
	}
}

// ============================================================
// Pipeline
// ============================================================

// AddProduct inserts or replaces a product.
func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		s.productOrder = append(s.productOrder, p.ID)
	}
	s.products[p.ID] = p
}

// AddPhase inserts or replaces a phase.
func (s *Store) AddPhase(p domain.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.phases[p.ID]; !ok {
		s.phaseOrder = append(s.phaseOrder, p.ID)
	}
	s.phases[p.ID] = p
}

// AddActivity inserts or replaces an activity.
func (s *Store) AddActivity(a domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[a.ID]; !ok {
		s.activityOrd = append(s.activityOrd, a.ID)
	}
	s.activities[a.ID] = cloneActivity(a)
}

func (s *Store) ListProducts(_ context.Context, customerID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Product{}
	for _, id := range s.productOrder {
		if p := s.products[id]; p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, &domain.ErrNotFound{Resource: "pipeline", ID: customerID}
	}
	return out, nil
}

func (s *Store) ListPhases(_ context.Context, productID string) ([]domain.Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Phase{}
	for _, id := range s.phaseOrder {
		if p := s.phases[id]; p.ProductID == productID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListActivities(_ context.Context, phaseID string) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Activity{}
	for _, id := range s.activityOrd {
		if a := s.activities[id]; a.PhaseID == phaseID {
			out = append(out, cloneActivity(a))
		}
	}
	return out, nil
}

func (s *Store) GetActivity(_ context.Context, activityID string) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[activityID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "activity", ID: activityID}
	}
	c := cloneActivity(a)
	return &c, nil
}

func (s *Store) GetCustomerIDForActivity(_ context.Context, activityID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[activityID]
	if !ok {
		return "", &domain.ErrNotFound{Resource: "activity", ID: activityID}
	}
	ph, ok := s.phases[a.PhaseID]
	if !ok {
		return "", &domain.ErrNotFound{Resource: "phase", ID: a.PhaseID}
	}
	pr, ok := s.products[ph.ProductID]
	if !ok {
		return "", &domain.ErrNotFound{Resource: "product", ID: ph.ProductID}
	}
	return pr.CustomerID, nil
}

// SaveActivity replaces an existing activity.
func (s *Store) SaveActivity(_ context.Context, a *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activities[a.ID]; !ok {
		return &domain.ErrNotFound{Resource: "activity", ID: a.ID}
	}
	s.activities[a.ID] = cloneActivity(*a)
	return nil
}

// ============================================================
// Payments
// ============================================================

func (s *Store) CreatePayment(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[p.ID]; ok {
		return &domain.ErrConflict{Message: "payment already exists: " + p.ID}
	}
	s.payments[p.ID] = *p
	return nil
}

func (s *Store) GetPayment(_ context.Context, paymentID string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	return &p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[p.ID]; !ok {
		return &domain.ErrNotFound{Resource: "payment", ID: p.ID}
	}
	s.payments[p.ID] = *p
	return nil
}

// ============================================================
// Keymen
// ============================================================

// CreateKeyman rejects a second keyman with the same phone for a customer.
func (s *Store) CreateKeyman(_ context.Context, k *domain.Keyman) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.keymen[k.CustomerID] {
		if existing.Phone == k.Phone {
			return &domain.ErrConflict{Message: "keyman phone already registered"}
		}
	}
	s.keymen[k.CustomerID] = append(s.keymen[k.CustomerID], *k)
	return nil
}

func (s *Store) ListKeymen(_ context.Context, customerID string) ([]domain.Keyman, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Keyman, len(s.keymen[customerID]))
	copy(out, s.keymen[customerID])
	return out, nil
}

// cloneActivity copies the event and document slices so callers never share
// backing arrays with the store.
func cloneActivity(a domain.Activity) domain.Activity {
	if a.Events == nil {
		return a
	}
	events := make([]domain.InternalEvent, len(a.Events))
	for i, ev := range a.Events {
		if ev.Documents != nil {
			docs := make([]domain.RequiredDocument, len(ev.Documents))
			copy(docs, ev.Documents)
			ev.Documents = docs
		}
		events[i] = ev
	}
	a.Events = events
	return a
}

// Ping always succeeds; the store lives in process.
func (s *Store) Ping(context.Context) error { return nil }
