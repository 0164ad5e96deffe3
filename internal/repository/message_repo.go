package repository

import (
	"context"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/google/uuid"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID string,
	senderID string,
	content string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, conversation_id, sender_id, content, is_read, created_at
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, uuid.NewString(), conversationID, senderID, content).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation returns the full message log ascending by creation
// time, a one-shot snapshot of the conversation history.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID string,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, is_read, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Content,
			&message.IsRead,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkMessagesRead flips is_read on messages addressed to readerID and
// returns the rows it changed so callers can publish the updates.
func (r *MessageRepository) MarkMessagesRead(
	ctx context.Context,
	messageIDs []string,
	readerID string,
) ([]models.ChatMessage, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	query := `
		UPDATE messages
		SET is_read = TRUE
		WHERE id = ANY($1)
		  AND sender_id <> $2
		  AND is_read = FALSE
		RETURNING id, conversation_id, sender_id, content, is_read, created_at
	`

	rows, err := r.db.Query(ctx, query, messageIDs, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updated := make([]models.ChatMessage, 0, len(messageIDs))
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Content,
			&message.IsRead,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}

		updated = append(updated, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return updated, nil
}

// CountUnreadForUser counts messages addressed to the user that are still
// unread across every conversation the user participates in.
func (r *MessageRepository) CountUnreadForUser(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.renter_id = $1 OR c.owner_id = $1)
		  AND m.sender_id <> $1
		  AND m.is_read = FALSE
	`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
