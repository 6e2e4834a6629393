package audit

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens and pings a pool.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS certificate_events (
	id             UUID PRIMARY KEY,
	action         TEXT NOT NULL,
	severity       TEXT NOT NULL,
	certificate_id TEXT,
	query          TEXT,
	name           TEXT,
	session_id     TEXT,
	ip_address     INET,
	user_agent     TEXT,
	detail         TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS certificate_events_created_at_idx ON certificate_events (created_at DESC);`

// PgRecorder stores events in PostgreSQL.
type PgRecorder struct {
	pool *pgxpool.Pool
}

// NewPgRecorder creates a PgRecorder. Call EnsureSchema before first use.
func NewPgRecorder(pool *pgxpool.Pool) *PgRecorder {
	return &PgRecorder{pool: pool}
}

// EnsureSchema creates the events table if it does not exist.
func (r *PgRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Record implements Recorder.
func (r *PgRecorder) Record(ctx context.Context, params Params) (*Event, error) {
	ev := newEvent(ctx, params)

	var ip *netip.Addr
	if ev.IPAddress != "" {
		if addr, err := netip.ParseAddr(ev.IPAddress); err == nil {
			ip = &addr
		}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO certificate_events
			(id, action, severity, certificate_id, query, name, session_id, ip_address, user_agent, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ev.ID, string(ev.Action), string(ev.Severity),
		toPgText(ev.CertificateID), toPgText(ev.Query), toPgText(ev.Name),
		toPgText(ev.SessionID), ip, toPgText(ev.UserAgent), toPgText(ev.Detail),
		ev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit event: %w", err)
	}
	return &ev, nil
}

// Recent implements Recorder. Newest first.
func (r *PgRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, action, severity, certificate_id, query, name, session_id,
			ip_address, user_agent, detail, created_at
		FROM certificate_events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// scanEvent scans a single row from certificate_events.
func scanEvent(rows pgx.Rows) (*Event, error) {
	var (
		id            pgtype.UUID
		action        string
		severity      string
		certificateID pgtype.Text
		query         pgtype.Text
		name          pgtype.Text
		sessionID     pgtype.Text
		ipAddress     *netip.Addr
		userAgent     pgtype.Text
		detail        pgtype.Text
		createdAt     pgtype.Timestamptz
	)

	err := rows.Scan(
		&id, &action, &severity, &certificateID, &query, &name, &sessionID,
		&ipAddress, &userAgent, &detail, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit event: %w", err)
	}

	ev := &Event{
		Action:        Action(action),
		Severity:      Severity(severity),
		CertificateID: certificateID.String,
		Query:         query.String,
		Name:          name.String,
		SessionID:     sessionID.String,
		UserAgent:     userAgent.String,
		Detail:        detail.String,
		CreatedAt:     createdAt.Time,
	}
	if id.Valid {
		ev.ID = uuidString(id.Bytes)
	}
	if ipAddress != nil {
		ev.IPAddress = ipAddress.String()
	}
	return ev, nil
}

// toPgText converts a string to pgtype.Text, NULL when blank.
func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
