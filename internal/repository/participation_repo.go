package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cafelog/internal/apperr"
	"cafelog/internal/model"
	"cafelog/internal/util"

	"gorm.io/gorm"
)

type ParticipationRepository interface {
	FindByVisitAndUser(visitID, userID string) (*model.Participation, error)
	// FindPendingByUserID returns a user's pending invitations with the parent
	// visit and its creator, newest invitation first.
	FindPendingByUserID(userID string) ([]*model.Participation, error)
	// FindByVisitID returns all participations of a visit with their reviews
	// attached, creator first, then participants in invitation order.
	FindByVisitID(visitID string) ([]*model.Participation, error)
	// Respond transitions a pending participation to accepted/rejected and, on
	// accept, creates the review in the same transaction. The transition is a
	// conditional update on status=pendiente so two concurrent responders
	// cannot both win. Returns apperr.ErrNotInvited, apperr.ErrAlreadyResponded
	// or apperr.ErrDuplicateReview on the corresponding failures.
	Respond(visitID, userID, status string, review *model.Review) (*model.Participation, error)
	// DeleteByVisitAndUser removes the participation and any review of the
	// user on the visit in one transaction.
	DeleteByVisitAndUser(visitID, userID string) error
}

type participationRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	pendingInvitationsCachePrefix = "invitations:pending:"
	participationCacheExpiration  = 15 * time.Minute
)

func NewParticipationRepository(db *gorm.DB, redis *util.RedisClient) ParticipationRepository {
	return &participationRepository{
		db:    db,
		redis: redis,
	}
}

// FindByVisitAndUser finds the participation for a (visit, user) pair
func (r *participationRepository) FindByVisitAndUser(visitID, userID string) (*model.Participation, error) {
	var participation model.Participation
	err := r.db.Preload("User").
		Where("visit_id = ? AND user_id = ?", visitID, userID).
		First(&participation).Error
	if err != nil {
		return nil, err
	}
	return &participation, nil
}

// FindPendingByUserID finds pending invitations for a user
func (r *participationRepository) FindPendingByUserID(userID string) ([]*model.Participation, error) {
	// Try cache first
	if r.redis != nil {
		cached, err := r.getListFromCache(pendingInvitationsCachePrefix + userID)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var participations []*model.Participation
	err := r.db.Preload("Visit").Preload("Visit.Creator").
		Where("user_id = ? AND status = ?", userID, model.ParticipationStatusPending).
		Order("invited_at DESC").
		Find(&participations).Error
	if err != nil {
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		r.cacheList(pendingInvitationsCachePrefix+userID, participations)
	}

	return participations, nil
}

// FindByVisitID finds all participations for a visit with reviews attached
func (r *participationRepository) FindByVisitID(visitID string) ([]*model.Participation, error) {
	var participations []*model.Participation
	err := r.db.Preload("User").
		Where("visit_id = ?", visitID).
		Order("role = 'creador' DESC, invited_at ASC").
		Find(&participations).Error
	if err != nil {
		return nil, err
	}

	var reviews []*model.Review
	if err := r.db.Where("visit_id = ?", visitID).Find(&reviews).Error; err != nil {
		return nil, err
	}

	reviewsByUser := make(map[string]*model.Review, len(reviews))
	for _, review := range reviews {
		reviewsByUser[review.UserID] = review
	}
	for _, participation := range participations {
		participation.Review = reviewsByUser[participation.UserID]
	}

	return participations, nil
}

// Respond performs the invitation state transition
func (r *participationRepository) Respond(visitID, userID, status string, review *model.Review) (*model.Participation, error) {
	now := time.Now()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Participation{}).
			Where("visit_id = ? AND user_id = ? AND status = ?",
				visitID, userID, model.ParticipationStatusPending).
			Updates(map[string]interface{}{
				"status":       status,
				"responded_at": now,
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// Distinguish "never invited" from "lost the race / already done"
			var existing model.Participation
			err := tx.Where("visit_id = ? AND user_id = ?", visitID, userID).
				First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotInvited
			}
			if err != nil {
				return err
			}
			return apperr.ErrAlreadyResponded
		}

		if review != nil {
			review.VisitID = visitID
			review.UserID = userID
			if err := tx.Create(review).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperr.ErrDuplicateReview
				}
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		r.redis.Delete(pendingInvitationsCachePrefix + userID)
	}

	return r.FindByVisitAndUser(visitID, userID)
}

// DeleteByVisitAndUser removes a participant and their review from a visit
func (r *participationRepository) DeleteByVisitAndUser(visitID, userID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("visit_id = ? AND user_id = ?", visitID, userID).
			Delete(&model.Review{}).Error; err != nil {
			return err
		}
		return tx.Where("visit_id = ? AND user_id = ?", visitID, userID).
			Delete(&model.Participation{}).Error
	})
	if err != nil {
		return err
	}

	if r.redis != nil {
		r.redis.Delete(pendingInvitationsCachePrefix + userID)
	}

	return nil
}

// Cache helpers
func (r *participationRepository) cacheList(key string, participations []*model.Participation) {
	if r.redis == nil {
		return
	}

	participationsJSON, err := json.Marshal(participations)
	if err != nil {
		return
	}

	r.redis.Set(key, string(participationsJSON), participationCacheExpiration)
}

func (r *participationRepository) getListFromCache(key string) ([]*model.Participation, error) {
	if r.redis == nil {
		return nil, fmt.Errorf("redis not available")
	}

	cached, err := r.redis.Get(key)
	if err != nil {
		return nil, err
	}

	var participations []*model.Participation
	if err := json.Unmarshal([]byte(cached), &participations); err != nil {
		return nil, err
	}

	return participations, nil
}
