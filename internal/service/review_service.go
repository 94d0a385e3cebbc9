package service

import (
	"errors"
	"fmt"

	"cafelog/internal/apperr"
	"cafelog/internal/model"
	"cafelog/internal/repository"

	"gorm.io/gorm"
)

type ReviewService interface {
	// CreateReview creates the caller's review on a visit they are an
	// accepted participant of. Reviews created at visit creation or on
	// invitation accept do not go through here.
	CreateReview(visitID, userID string, req ReviewRequest) (*model.Review, error)
	GetReviewsByVisit(visitID string) ([]*model.Review, error)
	UpdateReview(reviewID, callerID string, req ReviewRequest) (*model.Review, error)
	DeleteReview(reviewID, callerID string) error
}

type ReviewRequest struct {
	Rating  int     `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty"`
}

type reviewService struct {
	reviewRepo        repository.ReviewRepository
	participationRepo repository.ParticipationRepository
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	participationRepo repository.ParticipationRepository,
) ReviewService {
	return &reviewService{
		reviewRepo:        reviewRepo,
		participationRepo: participationRepo,
	}
}

// CreateReview creates a standalone review for an accepted participant
func (s *reviewService) CreateReview(visitID, userID string, req ReviewRequest) (*model.Review, error) {
	// A review may exist only behind an accepted participation
	participation, err := s.participationRepo.FindByVisitAndUser(visitID, userID)
	if err != nil {
		return nil, apperr.ErrNotParticipant
	}
	if participation.Status != model.ParticipationStatusAccepted {
		return nil, apperr.ErrNotParticipant
	}

	review := &model.Review{
		VisitID: visitID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	if err := s.reviewRepo.Create(review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrDuplicateReview
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return s.reviewRepo.FindByID(review.ID)
}

// GetReviewsByVisit lists all reviews of a visit
func (s *reviewService) GetReviewsByVisit(visitID string) ([]*model.Review, error) {
	return s.reviewRepo.FindByVisitID(visitID)
}

// UpdateReview updates the caller's own review
func (s *reviewService) UpdateReview(reviewID, callerID string, req ReviewRequest) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(reviewID)
	if err != nil {
		return nil, apperr.ErrNotFound
	}

	if review.UserID != callerID {
		return nil, apperr.ErrNotOwner
	}

	review.Rating = req.Rating
	review.Comment = req.Comment

	if err := s.reviewRepo.Update(review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	return s.reviewRepo.FindByID(reviewID)
}

// DeleteReview deletes the caller's own review
func (s *reviewService) DeleteReview(reviewID, callerID string) error {
	review, err := s.reviewRepo.FindByID(reviewID)
	if err != nil {
		return apperr.ErrNotFound
	}

	if review.UserID != callerID {
		return apperr.ErrNotOwner
	}

	if err := s.reviewRepo.Delete(reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}
