package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tableName = "dashboard_audit_log"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		id          uuid PRIMARY KEY,
		action      text NOT NULL,
		severity    text NOT NULL,
		entity      text NOT NULL,
		entity_id   text,
		actor_id    text,
		actor_role  text,
		ip_address  text,
		user_agent  text,
		request_id  text,
		changes     jsonb,
		reason      text,
		created_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ` + tableName + `_created_at_idx ON ` + tableName + ` (created_at)`,
	`CREATE INDEX IF NOT EXISTS ` + tableName + `_entity_idx ON ` + tableName + ` (entity, created_at DESC)`,
}

var columns = []string{
	"id", "action", "severity", "entity", "entity_id", "actor_id", "actor_role",
	"ip_address", "user_agent", "request_id", "changes", "reason", "created_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGStore keeps entries in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore. Call Migrate before first use.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Migrate creates the audit table and its indexes if missing.
func (s *PGStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate audit log: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Insert(ctx context.Context, e Entry) error {
	query, args, err := insertQuery(e)
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	query, args, err := listQuery(f)
	if err != nil {
		return nil, fmt.Errorf("build audit list: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("scan audit entries: %w", err)
	}
	return entries, nil
}

func (s *PGStore) Count(ctx context.Context, f Filter) (int64, error) {
	query, args, err := countQuery(f)
	if err != nil {
		return 0, fmt.Errorf("build audit count: %w", err)
	}
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

func (s *PGStore) Purge(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	query, args, err := purgeQuery(cutoff, batch)
	if err != nil {
		return 0, fmt.Errorf("build audit purge: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func insertQuery(e Entry) (string, []any, error) {
	return psql.Insert(tableName).
		Columns(columns...).
		Values(
			e.ID, string(e.Action), string(e.Severity), e.Entity,
			toPgText(e.EntityID), toPgText(e.ActorID), toPgText(e.ActorRole),
			toPgText(e.IPAddress), toPgText(e.UserAgent), toPgText(e.RequestID),
			marshalChanges(e.Changes), toPgText(e.Reason), e.CreatedAt,
		).
		ToSql()
}

func applyFilter(b sq.SelectBuilder, f Filter) sq.SelectBuilder {
	if f.Entity != "" {
		b = b.Where(sq.Eq{"entity": f.Entity})
	}
	if f.Action != "" {
		b = b.Where(sq.Eq{"action": string(f.Action)})
	}
	if f.ActorID != "" {
		b = b.Where(sq.Eq{"actor_id": f.ActorID})
	}
	if !f.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": f.Since})
	}
	if !f.Until.IsZero() {
		b = b.Where(sq.Lt{"created_at": f.Until})
	}
	return b
}

func listQuery(f Filter) (string, []any, error) {
	b := applyFilter(psql.Select(columns...).From(tableName), f).
		OrderBy("created_at DESC", "id")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}
	return b.ToSql()
}

func countQuery(f Filter) (string, []any, error) {
	return applyFilter(psql.Select("count(*)").From(tableName), f).ToSql()
}

func purgeQuery(cutoff time.Time, batch int) (string, []any, error) {
	return psql.Delete(tableName).
		Where(sq.Expr(
			"id IN (SELECT id FROM "+tableName+" WHERE created_at < ? ORDER BY created_at LIMIT ?)",
			cutoff, batch,
		)).
		ToSql()
}

func scanEntry(row pgx.CollectableRow) (Entry, error) {
	var (
		e                                              Entry
		id                                             pgtype.UUID
		action, severity                               string
		entityID, actorID, actorRole, ip, ua, reqID, r pgtype.Text
		changes                                        []byte
	)
	err := row.Scan(&id, &action, &severity, &e.Entity, &entityID, &actorID, &actorRole,
		&ip, &ua, &reqID, &changes, &r, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}

	if id.Valid {
		e.ID = uuid.UUID(id.Bytes).String()
	}
	e.Action = Action(action)
	e.Severity = Severity(severity)
	e.EntityID = entityID.String
	e.ActorID = actorID.String
	e.ActorRole = actorRole.String
	e.IPAddress = ip.String
	e.UserAgent = ua.String
	e.RequestID = reqID.String
	e.Reason = r.String
	if len(changes) > 0 {
		_ = json.Unmarshal(changes, &e.Changes)
	}
	return e, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
