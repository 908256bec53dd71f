package domain

import "github.com/boddenberg/sales-flow-bfa-go/internal/pipeline"

// ============================================================
// Sales pipeline: Product -> Phase -> Activity
// ============================================================

// Product is the top node of a customer's sales pipeline.
type Product struct {
	ID         string                  `json:"id" yaml:"id"`
	CustomerID string                  `json:"customerId" yaml:"customer_id"`
	Name       string                  `json:"name" yaml:"name"`
	Status     pipeline.ActivityStatus `json:"status" yaml:"status"`
	Schedule   pipeline.Schedule       `json:"schedule" yaml:"schedule"`
}

// Phase belongs to exactly one product.
type Phase struct {
	ID        string                  `json:"id" yaml:"id"`
	ProductID string                  `json:"productId" yaml:"product_id"`
	Title     string                  `json:"title" yaml:"title"`
	Status    pipeline.ActivityStatus `json:"status" yaml:"status"`
	Schedule  pipeline.Schedule       `json:"schedule" yaml:"schedule"`
}

// Activity belongs to exactly one phase and carries its internal events.
type Activity struct {
	ID       string                  `json:"id" yaml:"id"`
	PhaseID  string                  `json:"phaseId" yaml:"phase_id"`
	Title    string                  `json:"title" yaml:"title"`
	Status   pipeline.ActivityStatus `json:"status" yaml:"status"`
	Schedule pipeline.Schedule       `json:"schedule" yaml:"schedule"`
	Events   []InternalEvent         `json:"events,omitempty" yaml:"events"`
}

// InternalEventKind is the type of a sub-event of a started activity.
type InternalEventKind string

const (
	EventStarted          InternalEventKind = "started"
	EventWaitingDocuments InternalEventKind = "waiting_documents"
	EventDelayed          InternalEventKind = "delayed"
	EventCustom           InternalEventKind = "custom"
)

// Valid reports whether k is one of the known kinds.
func (k InternalEventKind) Valid() bool {
	switch k {
	case EventStarted, EventWaitingDocuments, EventDelayed, EventCustom:
		return true
	}
	return false
}

// InternalEvent is one bubble of the activity's chat-like history.
type InternalEvent struct {
	ID           string             `json:"id" yaml:"id"`
	Kind         InternalEventKind  `json:"kind" yaml:"kind"`
	Date         string             `json:"date" yaml:"date"` // DD/MM/YYYY
	Time         string             `json:"time" yaml:"time"` // HH:MM
	Collaborator string             `json:"collaborator,omitempty" yaml:"collaborator"`
	Comment      string             `json:"comment,omitempty" yaml:"comment"`
	Documents    []RequiredDocument `json:"documents,omitempty" yaml:"documents"`
}

// RequiredDocument is a checklist item of a waiting_documents event.
// DaysStatus and IsOnTime are derived on read.
type RequiredDocument struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	DueDate    string `json:"dueDate,omitempty" yaml:"due_date"`
	IsReceived bool   `json:"isReceived" yaml:"is_received"`
	ReceivedAt string `json:"receivedAt,omitempty" yaml:"received_at"`
	DaysStatus int    `json:"daysStatus" yaml:"-"`
	IsOnTime   bool   `json:"isOnTime" yaml:"-"`
}

// ============================================================
// API views
// ============================================================

// NodeView is the derived, render-ready form of any pipeline node.
type NodeView struct {
	ID        string                      `json:"id"`
	Name      string                      `json:"name"`
	Status    pipeline.ActivityStatus     `json:"status"`
	Indicator pipeline.Indicator          `json:"indicator"`
	Columns   *pipeline.StatusColumnsInfo `json:"columns,omitempty"`
	Grid      []pipeline.GridRow          `json:"grid"`
}

// ActivityView is returned by GET /v1/activities/{activityId}.
type ActivityView struct {
	NodeView
	PhaseID string          `json:"phaseId"`
	Events  []InternalEvent `json:"events"`
}

// PhaseView groups a phase with its activities.
type PhaseView struct {
	NodeView
	ProductID  string         `json:"productId"`
	Activities []ActivityView `json:"activities"`
}

// ProductView groups a product with its phases.
type ProductView struct {
	NodeView
	Phases []PhaseView `json:"phases"`
}

// PipelineView is returned by GET /v1/customers/{customerId}/pipeline.
type PipelineView struct {
	CustomerID string        `json:"customerId"`
	Today      string        `json:"today"`
	Products   []ProductView `json:"products"`
}

// UpdateStatusRequest is the body of PUT /v1/activities/{activityId}/status.
// Status takes the wire names; "not_applicable" marks the sidestep state.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// NewEventRequest is the body of POST /v1/activities/{activityId}/events.
type NewEventRequest struct {
	Kind         InternalEventKind `json:"kind"`
	Collaborator string            `json:"collaborator,omitempty"`
	Comment      string            `json:"comment,omitempty"`
	Documents    []NewDocument     `json:"documents,omitempty"`
}

// NewDocument is a checklist entry of a new waiting_documents event.
type NewDocument struct {
	Name    string `json:"name"`
	DueDate string `json:"dueDate,omitempty"`
}
