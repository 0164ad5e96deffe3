package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/google/uuid"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindByParticipants looks up the conversation for a (renter, owner, car)
// triple. Returns pgx.ErrNoRows when none exists; callers pair this with
// Create for find-or-create semantics.
func (r *ConversationRepository) FindByParticipants(
	ctx context.Context,
	renterID string,
	ownerID string,
	carID int64,
) (*models.Conversation, error) {
	query := `
		SELECT id, renter_id, owner_id, car_id, created_at, updated_at
		FROM conversations
		WHERE renter_id = $1 AND owner_id = $2 AND car_id = $3
		ORDER BY created_at ASC
		LIMIT 1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, renterID, ownerID, carID).Scan(
		&conversation.ID,
		&conversation.RenterID,
		&conversation.OwnerID,
		&conversation.CarID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) Create(
	ctx context.Context,
	renterID string,
	ownerID string,
	carID int64,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (id, renter_id, owner_id, car_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, renter_id, owner_id, car_id, created_at, updated_at
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, uuid.NewString(), renterID, ownerID, carID).Scan(
		&conversation.ID,
		&conversation.RenterID,
		&conversation.OwnerID,
		&conversation.CarID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	query := `
		SELECT id, renter_id, owner_id, car_id, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.RenterID,
		&conversation.OwnerID,
		&conversation.CarID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByIDForParticipant(
	ctx context.Context,
	conversationID string,
	participantID string,
) (*models.Conversation, error) {
	query := `
		SELECT id, renter_id, owner_id, car_id, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND (renter_id = $2 OR owner_id = $2)
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID, participantID).Scan(
		&conversation.ID,
		&conversation.RenterID,
		&conversation.OwnerID,
		&conversation.CarID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID string,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			c.renter_id,
			c.owner_id,
			c.car_id,
			c.created_at,
			c.updated_at,
			lm.id,
			lm.conversation_id,
			lm.sender_id,
			lm.content,
			lm.is_read,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, sender_id, content, is_read, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE conversation_id = c.id
			  AND sender_id <> $1
			  AND is_read = FALSE
		) uc ON TRUE
		WHERE c.renter_id = $1 OR c.owner_id = $1
		ORDER BY c.updated_at DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullString
		var messageConversationID sql.NullString
		var messageSenderID sql.NullString
		var messageContent sql.NullString
		var messageIsRead sql.NullBool
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.RenterID,
			&summary.OwnerID,
			&summary.CarID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&messageID,
			&messageConversationID,
			&messageSenderID,
			&messageContent,
			&messageIsRead,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.ChatMessage{
				ID:             messageID.String,
				ConversationID: messageConversationID.String,
				SenderID:       messageSenderID.String,
				Content:        messageContent.String,
				IsRead:         messageIsRead.Bool,
				CreatedAt:      messageCreatedAt.Time,
			}
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// Touch bumps updated_at so conversation lists re-sort by recency.
func (r *ConversationRepository) Touch(ctx context.Context, conversationID string) (time.Time, error) {
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, `
		UPDATE conversations
		SET updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, conversationID).Scan(&updatedAt)
	return updatedAt, err
}
