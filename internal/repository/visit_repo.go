package repository

import (
	"time"

	"cafelog/internal/model"
	"cafelog/internal/util"

	"gorm.io/gorm"
)

type VisitRepository interface {
	// CreateShared persists the visit, the creator's accepted participation,
	// the creator's optional review and one pending participation per invited
	// friend, all in a single transaction. A reader never observes a visit
	// without its creator's participation row.
	CreateShared(visit *model.Visit, creatorReview *model.Review, participantIDs []string) error
	FindByID(id string) (*model.Visit, error)
	FindByCreatorID(creatorID string, limit, offset int) ([]*model.Visit, error)
	Update(visit *model.Visit) error
	// DeleteCascade removes the visit and all of its participations and
	// reviews as explicit deletes in one transaction.
	DeleteCascade(visitID string) error
}

type visitRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

func NewVisitRepository(db *gorm.DB, redis *util.RedisClient) VisitRepository {
	return &visitRepository{
		db:    db,
		redis: redis,
	}
}

// CreateShared creates the full visit aggregate atomically
func (r *visitRepository) CreateShared(visit *model.Visit, creatorReview *model.Review, participantIDs []string) error {
	now := time.Now()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(visit).Error; err != nil {
			return err
		}

		creator := &model.Participation{
			VisitID:     visit.ID,
			UserID:      visit.CreatorID,
			Role:        model.ParticipationRoleCreator,
			Status:      model.ParticipationStatusAccepted,
			RespondedAt: &now,
		}
		if err := tx.Create(creator).Error; err != nil {
			return err
		}

		if creatorReview != nil {
			creatorReview.VisitID = visit.ID
			creatorReview.UserID = visit.CreatorID
			if err := tx.Create(creatorReview).Error; err != nil {
				return err
			}
		}

		for _, participantID := range participantIDs {
			participation := &model.Participation{
				VisitID: visit.ID,
				UserID:  participantID,
				Role:    model.ParticipationRoleParticipant,
				Status:  model.ParticipationStatusPending,
			}
			if err := tx.Create(participation).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if r.redis != nil {
		for _, participantID := range participantIDs {
			r.redis.Delete(pendingInvitationsCachePrefix + participantID)
		}
	}

	return nil
}

// FindByID finds a visit by ID
func (r *visitRepository) FindByID(id string) (*model.Visit, error) {
	var visit model.Visit
	err := r.db.Preload("Creator").
		Where("id = ?", id).First(&visit).Error
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

// FindByCreatorID finds visits created by a user, newest first
func (r *visitRepository) FindByCreatorID(creatorID string, limit, offset int) ([]*model.Visit, error) {
	var visits []*model.Visit
	err := r.db.Preload("Creator").
		Where("creator_id = ?", creatorID).
		Order("visit_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&visits).Error
	if err != nil {
		return nil, err
	}
	return visits, nil
}

// Update updates a visit
func (r *visitRepository) Update(visit *model.Visit) error {
	return r.db.Save(visit).Error
}

// DeleteCascade deletes the visit with its participations and reviews
func (r *visitRepository) DeleteCascade(visitID string) error {
	var participantIDs []string
	r.db.Model(&model.Participation{}).
		Where("visit_id = ?", visitID).
		Pluck("user_id", &participantIDs)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("visit_id = ?", visitID).Delete(&model.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("visit_id = ?", visitID).Delete(&model.Participation{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", visitID).Delete(&model.Visit{}).Error
	})
	if err != nil {
		return err
	}

	if r.redis != nil {
		for _, participantID := range participantIDs {
			r.redis.Delete(pendingInvitationsCachePrefix + participantID)
		}
	}

	return nil
}
