package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"relaychat/internal/domain"
	relay_errors "relaychat/pkg/errors"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Append(ctx context.Context, conversationID, senderID int64, content, mediaRef string) (domain.Message, error) {
	m := domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Status:         domain.StatusSent,
	}
	if mediaRef != "" {
		m.MediaRef.String = mediaRef
		m.MediaRef.Valid = true
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Participant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, senderID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return relay_errors.ErrNotAMember
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.Message{}, storeErr(err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) Page(ctx context.Context, conversationID, beforeID int64, limit int) ([]domain.Message, bool, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	// Fetch one extra row to learn whether an older page exists.
	var messages []domain.Message
	if err := q.Order("id DESC").Limit(limit + 1).Find(&messages).Error; err != nil {
		return nil, false, storeErr(err)
	}
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	return messages, hasMore, nil
}

func (r *PostgresMessageRepository) After(ctx context.Context, conversationID, afterID int64) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id > ?", conversationID, afterID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return messages, nil
}

func (r *PostgresMessageRepository) Get(ctx context.Context, messageID int64) (domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).Where("id = ?", messageID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Message{}, relay_errors.ErrNotFound
		}
		return domain.Message{}, storeErr(err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) AdvanceStatus(ctx context.Context, messageID int64, status domain.MessageStatus) error {
	var prior []domain.MessageStatus
	for _, s := range []domain.MessageStatus{domain.StatusSent, domain.StatusDelivered, domain.StatusSeen} {
		if s.Rank() < status.Rank() {
			prior = append(prior, s)
		}
	}
	if len(prior) == 0 {
		return nil
	}
	return storeErr(r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status IN ?", messageID, prior).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error)
}

func (r *PostgresMessageRepository) InsertSeen(ctx context.Context, messageID, userID int64) (domain.SeenRecord, bool, error) {
	rec := domain.SeenRecord{
		MessageID: messageID,
		UserID:    userID,
		SeenAt:    time.Now(),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return domain.SeenRecord{}, false, storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race or already seen: return the existing record.
		var existing domain.SeenRecord
		err := r.db.WithContext(ctx).
			Where("message_id = ? AND user_id = ?", messageID, userID).
			First(&existing).Error
		if err != nil {
			return domain.SeenRecord{}, false, storeErr(err)
		}
		return existing, false, nil
	}
	return rec, true, nil
}
