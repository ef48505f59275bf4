package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"relaychat/internal/domain"
	relay_errors "relaychat/pkg/errors"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, name string, participantIDs []int64) (domain.Conversation, error) {
	if len(participantIDs) == 0 {
		return domain.Conversation{}, relay_errors.ErrInvalidInput
	}

	c := domain.Conversation{}
	if name != "" {
		c.Name = sql.NullString{String: name, Valid: true}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		for _, userID := range participantIDs {
			p := domain.Participant{
				ConversationID: c.ID,
				UserID:         userID,
				JoinedAt:       time.Now(),
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Conversation{}, storeErr(err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id int64) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, relay_errors.ErrNotFound
		}
		return domain.Conversation{}, storeErr(err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) Delete(ctx context.Context, id int64) error {
	return storeErr(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Conversation{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return relay_errors.ErrNotFound
		}
		msgIDs := tx.Model(&domain.Message{}).Select("id").Where("conversation_id = ?", id)
		if err := tx.Delete(&domain.SeenRecord{}, "message_id IN (?)", msgIDs).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Message{}, "conversation_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Participant{}, "conversation_id = ?", id).Error
	}))
}

func (r *PostgresConversationRepository) AddParticipant(ctx context.Context, conversationID, userID int64) error {
	p := domain.Participant{
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       time.Now(),
	}
	return storeErr(r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error)
}

func (r *PostgresConversationRepository) Participants(ctx context.Context, conversationID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}

func (r *PostgresConversationRepository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, storeErr(err)
	}
	return count > 0, nil
}
