package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartmaint/maintenance-service/internal/domain"
)

// AuditRepository stores the append-only audit trail. Entries are never
// updated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	// LatestDelete returns the most recent delete-type entry for the entity,
	// or pgx.ErrNoRows when none exists.
	LatestDelete(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.AuditEntry, error)
	ListByEntityType(ctx context.Context, entityType domain.EntityType, limit, offset int) ([]domain.AuditEntry, error)
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO audit_log (id, action_type, entity_type, entity_id, actor_id, changes, reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.ActionType,
		entry.EntityType,
		entry.EntityID,
		entry.ActorID,
		changes,
		entry.Reason,
	).Scan(&entry.CreatedAt)
}

const auditColumns = `id, action_type, entity_type, entity_id, actor_id, changes, reason, created_at`

func (r *auditRepository) LatestDelete(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.AuditEntry, error) {
	query := `SELECT ` + auditColumns + `
        FROM audit_log
        WHERE entity_type=$1 AND entity_id=$2 AND action_type=$3
        ORDER BY created_at DESC LIMIT 1`
	row := r.pool.QueryRow(ctx, query, entityType, entityID, domain.ActionDelete)
	return scanAuditEntry(row)
}

func (r *auditRepository) ListByEntityType(ctx context.Context, entityType domain.EntityType, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + auditColumns + `
        FROM audit_log WHERE entity_type=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, entityType, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.AuditEntry, error) {
	query := `SELECT ` + auditColumns + `
        FROM audit_log WHERE entity_type=$1 AND entity_id=$2
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func scanAuditEntry(row pgx.Row) (*domain.AuditEntry, error) {
	var entry domain.AuditEntry
	var changes []byte
	if err := row.Scan(
		&entry.ID,
		&entry.ActionType,
		&entry.EntityType,
		&entry.EntityID,
		&entry.ActorID,
		&changes,
		&entry.Reason,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(changes, &entry.Changes); err != nil {
		return nil, err
	}
	return &entry, nil
}

func scanAuditEntries(rows pgx.Rows) ([]domain.AuditEntry, error) {
	var result []domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}
