package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
)

// PostgresMessageRepo is the PostgreSQL-backed message repository.
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo creates a PostgresMessageRepo.
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Append inserts a message, assigning the canonical ID here and letting the
// database assign the creation timestamp. The seq column breaks ties between
// rows written within the same clock tick so feed order stays stable.
func (r *PostgresMessageRepo) Append(ctx context.Context, msg *chat.Message) error {
	msg.ID = uuid.NewString()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (id, owner_id, sender, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		msg.ID, msg.OwnerID, msg.Sender, msg.Content,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's messages ordered by creation time ascending.
func (r *PostgresMessageRepo) ListByOwner(ctx context.Context, ownerID string) ([]chat.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, sender, content, created_at
		 FROM messages
		 WHERE owner_id = $1
		 ORDER BY created_at ASC, seq ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.OwnerID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
