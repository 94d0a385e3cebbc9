package repository

import (
	"cafelog/internal/model"

	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(review *model.Review) error
	FindByID(id string) (*model.Review, error)
	FindByVisitAndUser(visitID, userID string) (*model.Review, error)
	FindByVisitID(visitID string) ([]*model.Review, error)
	Update(review *model.Review) error
	Delete(id string) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(review *model.Review) error {
	return r.db.Create(review).Error
}

func (r *reviewRepository) FindByID(id string) (*model.Review, error) {
	var review model.Review
	err := r.db.Preload("User").
		Where("id = ?", id).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) FindByVisitAndUser(visitID, userID string) (*model.Review, error) {
	var review model.Review
	err := r.db.
		Where("visit_id = ? AND user_id = ?", visitID, userID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) FindByVisitID(visitID string) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.Preload("User").
		Where("visit_id = ?", visitID).
		Order("created_at ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) Update(review *model.Review) error {
	return r.db.Save(review).Error
}

func (r *reviewRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.Review{}).Error
}
