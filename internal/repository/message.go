package repository

import (
	"context"
	"fmt"

	"dario/internal/model"
)

const insertMessage = `
	INSERT INTO messages (id, sender_id, receiver_id, text, type, listings, intent, parameters, created_at)
	VALUES (:id, :sender_id, :receiver_id, :text, :type, :listings, :intent, :parameters, :created_at)
`

// InsertChatTurn appends the user message and the reply atomically
func (r *PostgresRepository) InsertChatTurn(ctx context.Context, userMsg, reply *model.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range []*model.Message{userMsg, reply} {
		if _, err := tx.NamedExecContext(ctx, insertMessage, msg); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}
	return nil
}

// ListConversation returns the latest messages exchanged between two
// participants, oldest first
func (r *PostgresRepository) ListConversation(ctx context.Context, userID, peerID string, limit int) ([]model.Message, error) {
	const query = `
		SELECT id, sender_id, receiver_id, text, type, listings, intent, parameters, created_at
		FROM (
			SELECT id, sender_id, receiver_id, text, type, listings, intent, parameters, created_at
			FROM messages
			WHERE (sender_id = $1 AND receiver_id = $2)
			   OR (sender_id = $2 AND receiver_id = $1)
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC
	`
	messages := []model.Message{}
	if err := r.db.SelectContext(ctx, &messages, query, userID, peerID, limit); err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	return messages, nil
}
