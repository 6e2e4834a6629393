// Package audit records certificate issuance events.
//
// Events go to PostgreSQL when a database is configured and to a bounded
// in-memory log otherwise. Recording never blocks a lookup or export: callers
// log a failed Record and carry on.
package audit

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of event being recorded.
type Action string

const (
	ActionLookup       Action = "lookup"
	ActionNotFound     Action = "not_found"
	ActionLookupFailed Action = "lookup_failed"
	ActionExportImage  Action = "export_image"
	ActionExportPrint  Action = "export_print"
	ActionExportFailed Action = "export_failed"
)

// Severity of an event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event is one recorded action.
type Event struct {
	ID            string    `json:"id"`
	Action        Action    `json:"action"`
	Severity      Severity  `json:"severity"`
	CertificateID string    `json:"certificateId,omitempty"`
	Query         string    `json:"query,omitempty"`
	Name          string    `json:"name,omitempty"`
	SessionID     string    `json:"sessionId,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Params describes an event to record. Session, IP address, and User-Agent
// come from the context.
type Params struct {
	Action        Action
	CertificateID string
	Query         string
	Name          string
	Detail        string
}

// Recorder stores and lists events.
type Recorder interface {
	Record(ctx context.Context, params Params) (*Event, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 50

func determineSeverity(action Action) Severity {
	switch action {
	case ActionLookupFailed, ActionExportFailed:
		return SeverityHigh
	case ActionNotFound:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// newEvent builds an Event from params and the request context.
func newEvent(ctx context.Context, params Params) Event {
	return Event{
		ID:            uuid.NewString(),
		Action:        params.Action,
		Severity:      determineSeverity(params.Action),
		CertificateID: params.CertificateID,
		Query:         params.Query,
		Name:          params.Name,
		SessionID:     SessionFromContext(ctx),
		IPAddress:     normalizeIP(IPAddressFromContext(ctx)),
		UserAgent:     UserAgentFromContext(ctx),
		Detail:        params.Detail,
		CreatedAt:     time.Now().UTC(),
	}
}

// normalizeIP strips a port and returns "" for anything that is not an address.
func normalizeIP(s string) string {
	if s == "" {
		return ""
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return ""
	}
	return addr.String()
}

// MemoryRecorder keeps the most recent events in memory.
type MemoryRecorder struct {
	mu       sync.Mutex
	events   []Event
	capacity int
}

// NewMemoryRecorder creates a MemoryRecorder holding up to capacity events.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = DefaultRecentLimit
	}
	return &MemoryRecorder{capacity: capacity}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(ctx context.Context, params Params) (*Event, error) {
	ev := newEvent(ctx, params)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	if len(m.events) > m.capacity {
		m.events = m.events[len(m.events)-m.capacity:]
	}
	return &ev, nil
}

// Recent implements Recorder. Newest first.
func (m *MemoryRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := min(limit, len(m.events))
	out := make([]Event, 0, n)
	for i := len(m.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func uuidString(b [16]byte) string {
	return uuid.UUID(b).String()
}
