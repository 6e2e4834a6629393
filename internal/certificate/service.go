package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/certgen/internal/logging"
	"github.com/JonMunkholm/certgen/internal/sheet"
	"github.com/google/uuid"
)

// Certificate is the result of a successful lookup.
type Certificate struct {
	ID       string        `json:"id"`
	Query    string        `json:"query"`
	View     View          `json:"view"`
	Roles    ColumnRoleMap `json:"roles"`
	IssuedAt time.Time     `json:"issuedAt"`
}

// Service runs lookups against a sheet source.
type Service struct {
	source sheet.Source
	parser sheet.Parser
	binder *Binder

	// observe receives every finished flow; used by tests.
	observe func(*Flow)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBinder replaces the default binder.
func WithBinder(b *Binder) ServiceOption {
	return func(s *Service) {
		if b != nil {
			s.binder = b
		}
	}
}

// WithFlowObserver registers fn to receive each lookup's Flow once it ends.
func WithFlowObserver(fn func(*Flow)) ServiceOption {
	return func(s *Service) {
		s.observe = fn
	}
}

// NewService creates a Service. source and parser are required.
func NewService(source sheet.Source, parser sheet.Parser, opts ...ServiceOption) *Service {
	s := &Service{
		source: source,
		parser: parser,
		binder: NewBinder(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup fetches the sheet and binds the record whose identifier equals the
// trimmed query. Errors:
//   - ErrEmptyQuery when the trimmed query is empty (nothing is fetched)
//   - *sheet.TransportError when the fetch fails
//   - ErrMalformedTable when the payload cannot be parsed
//   - ErrEmptyTable when no record is usable
//   - *NotFoundError when no record matches
func (s *Service) Lookup(ctx context.Context, query string) (*Certificate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	logger := logging.WithFields(ctx, "certificate_query", query)
	flow := NewFlow(logger)
	if s.observe != nil {
		defer s.observe(flow)
	}

	cert, err := s.run(ctx, flow, logger, query)
	if err != nil {
		if flow.Current() != StateIdle {
			if resetErr := flow.Fire(ctx, EventReset); resetErr != nil {
				logger.Warn("lookup flow reset failed", "error", resetErr)
			}
		}
		return nil, err
	}
	return cert, nil
}

func (s *Service) run(ctx context.Context, flow *Flow, logger *slog.Logger, query string) (*Certificate, error) {
	if err := flow.Fire(ctx, EventFetch); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := s.source.Fetch(ctx)
	if err != nil {
		logger.Warn("sheet fetch failed", "error", err)
		if ferr := flow.Fire(ctx, EventFail); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	table, err := s.parser.Parse(data)
	if err != nil {
		logger.Warn("sheet parse failed", "error", err, "bytes", len(data))
		if ferr := flow.Fire(ctx, EventFail); ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	if err := flow.Fire(ctx, EventParse); err != nil {
		return nil, err
	}

	roles := ResolveColumns(table.Headers)
	if err := flow.Fire(ctx, EventResolve); err != nil {
		return nil, err
	}

	records := table.Records()
	usable := UsableRecords(records)
	logger.Debug("sheet loaded",
		"bytes", len(data),
		"headers", table.Headers,
		"records", len(records),
		"usable", len(usable),
		"roles", roles,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(usable) == 0 {
		if err := flow.Fire(ctx, EventEmpty); err != nil {
			return nil, err
		}
		return nil, ErrEmptyTable
	}

	record, ok := FindRecord(usable, roles, query)
	if !ok {
		if err := flow.Fire(ctx, EventMiss); err != nil {
			return nil, err
		}
		return nil, &NotFoundError{Query: query}
	}
	if err := flow.Fire(ctx, EventMatch); err != nil {
		return nil, err
	}

	view := s.binder.Bind(record, roles)
	if err := flow.Fire(ctx, EventRender); err != nil {
		return nil, err
	}

	cert := &Certificate{
		ID:       uuid.NewString(),
		Query:    query,
		View:     view,
		Roles:    roles,
		IssuedAt: s.binder.Now(),
	}
	logger.Info("certificate rendered", "certificate_id", cert.ID)
	return cert, nil
}
