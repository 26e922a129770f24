package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartmaint/maintenance-service/internal/domain"
)

// ConversationRepository persists ticket thread entries.
type ConversationRepository interface {
	Create(ctx context.Context, entry *domain.ConversationEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ConversationEntry, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository constructs repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

func (r *conversationRepository) Create(ctx context.Context, entry *domain.ConversationEntry) error {
	const query = `
        INSERT INTO ticket_conversations (id, ticket_id, author_id, body, internal)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.AuthorID,
		entry.Body,
		entry.Internal,
	).Scan(&entry.CreatedAt)
}

func (r *conversationRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ConversationEntry, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, internal, created_at
        FROM ticket_conversations WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ConversationEntry
	for rows.Next() {
		var entry domain.ConversationEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.AuthorID,
			&entry.Body,
			&entry.Internal,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
