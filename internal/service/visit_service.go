package service

import (
	"errors"
	"fmt"
	"time"

	"cafelog/internal/apperr"
	"cafelog/internal/model"
	"cafelog/internal/repository"

	"gorm.io/gorm"
)

type VisitService interface {
	CreateSharedVisit(creatorID string, req CreateVisitRequest) (*model.Visit, error)
	GetVisitByID(visitID string) (*model.Visit, error)
	GetVisitsByCreator(creatorID string, limit, offset int) ([]*model.Visit, error)
	UpdateVisit(visitID, callerID string, req UpdateVisitRequest) (*model.Visit, error)
	DeleteVisit(visitID, callerID string) error
}

type visitService struct {
	visitRepo         repository.VisitRepository
	userRepo          repository.UserRepository
	friendshipService FriendshipService
	notifService      NotificationService
}

type CreateVisitRequest struct {
	CafeID         string     `json:"cafe_id" binding:"required"`
	ImageURLs      []string   `json:"image_urls,omitempty"`
	Rating         int        `json:"rating" binding:"required,min=1,max=5"`
	Comment        *string    `json:"comment,omitempty"`
	VisitDate      *time.Time `json:"visit_date,omitempty"`
	ParticipantIDs []string   `json:"participant_ids,omitempty"`
	// Creator's review, stored with the visit when present
	ReviewRating  *int    `json:"review_rating,omitempty" binding:"omitempty,min=1,max=5"`
	ReviewComment *string `json:"review_comment,omitempty"`
}

type UpdateVisitRequest struct {
	CafeID    *string    `json:"cafe_id,omitempty"`
	ImageURLs []string   `json:"image_urls,omitempty"`
	Rating    *int       `json:"rating,omitempty" binding:"omitempty,min=1,max=5"`
	Comment   *string    `json:"comment,omitempty"`
	VisitDate *time.Time `json:"visit_date,omitempty"`
}

func NewVisitService(
	visitRepo repository.VisitRepository,
	userRepo repository.UserRepository,
	friendshipService FriendshipService,
	notifService NotificationService,
) VisitService {
	return &visitService{
		visitRepo:         visitRepo,
		userRepo:          userRepo,
		friendshipService: friendshipService,
		notifService:      notifService,
	}
}

// CreateSharedVisit creates a visit together with the creator's accepted
// participation, the creator's optional review and one pending invitation per
// participant. Every invited participant must be a confirmed friend of the
// creator; otherwise nothing is persisted.
func (s *visitService) CreateSharedVisit(creatorID string, req CreateVisitRequest) (*model.Visit, error) {
	creator, err := s.userRepo.FindByID(creatorID)
	if err != nil {
		return nil, apperr.ErrNotFound
	}

	if len(req.ImageURLs) < model.VisitMinImages || len(req.ImageURLs) > model.VisitMaxImages {
		return nil, fmt.Errorf("a visit must have between %d and %d images",
			model.VisitMinImages, model.VisitMaxImages)
	}

	// Drop the creator from the candidate list; their participation row is
	// created eagerly with role creador.
	candidates := make([]string, 0, len(req.ParticipantIDs))
	for _, id := range req.ParticipantIDs {
		if id != creatorID {
			candidates = append(candidates, id)
		}
	}

	// The friendship gate is all-or-nothing: a single unconfirmed candidate
	// fails the whole creation with zero side effects.
	confirmed, missing, err := s.friendshipService.ConfirmFriends(creatorID, candidates)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &apperr.UnconfirmedFriendsError{Missing: missing}
	}

	visitDate := time.Now()
	if req.VisitDate != nil {
		visitDate = *req.VisitDate
	}

	visit := &model.Visit{
		CreatorID: creatorID,
		CafeID:    req.CafeID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		VisitDate: visitDate,
	}
	if err := visit.SetImageURLs(req.ImageURLs); err != nil {
		return nil, fmt.Errorf("failed to serialize image URLs: %w", err)
	}

	var creatorReview *model.Review
	if req.ReviewRating != nil {
		creatorReview = &model.Review{
			Rating:  *req.ReviewRating,
			Comment: req.ReviewComment,
		}
	}

	if err := s.visitRepo.CreateShared(visit, creatorReview, confirmed); err != nil {
		return nil, fmt.Errorf("failed to create shared visit: %w", err)
	}

	go func() {
		for _, inviteeID := range confirmed {
			s.notifService.SendVisitInvitationNotification(
				inviteeID, creatorID, creator.FullName, visit.ID, visit.CafeID)
		}
	}()

	return s.visitRepo.FindByID(visit.ID)
}

// GetVisitByID retrieves a visit
func (s *visitService) GetVisitByID(visitID string) (*model.Visit, error) {
	visit, err := s.visitRepo.FindByID(visitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return visit, nil
}

// GetVisitsByCreator retrieves a user's own visits
func (s *visitService) GetVisitsByCreator(creatorID string, limit, offset int) ([]*model.Visit, error) {
	return s.visitRepo.FindByCreatorID(creatorID, limit, offset)
}

// UpdateVisit updates a visit's own facts; only the creator may do so
func (s *visitService) UpdateVisit(visitID, callerID string, req UpdateVisitRequest) (*model.Visit, error) {
	visit, err := s.visitRepo.FindByID(visitID)
	if err != nil {
		return nil, apperr.ErrNotFound
	}

	if visit.CreatorID != callerID {
		return nil, apperr.ErrNotOwner
	}

	if req.CafeID != nil {
		visit.CafeID = *req.CafeID
	}
	if req.Rating != nil {
		visit.Rating = *req.Rating
	}
	if req.Comment != nil {
		visit.Comment = req.Comment
	}
	if req.VisitDate != nil {
		visit.VisitDate = *req.VisitDate
	}
	if req.ImageURLs != nil {
		if len(req.ImageURLs) < model.VisitMinImages || len(req.ImageURLs) > model.VisitMaxImages {
			return nil, fmt.Errorf("a visit must have between %d and %d images",
				model.VisitMinImages, model.VisitMaxImages)
		}
		if err := visit.SetImageURLs(req.ImageURLs); err != nil {
			return nil, fmt.Errorf("failed to serialize image URLs: %w", err)
		}
	}

	if err := s.visitRepo.Update(visit); err != nil {
		return nil, fmt.Errorf("failed to update visit: %w", err)
	}

	return s.visitRepo.FindByID(visitID)
}

// DeleteVisit deletes a visit with all its participations and reviews
func (s *visitService) DeleteVisit(visitID, callerID string) error {
	visit, err := s.visitRepo.FindByID(visitID)
	if err != nil {
		return apperr.ErrNotFound
	}

	if visit.CreatorID != callerID {
		return apperr.ErrNotOwner
	}

	if err := s.visitRepo.DeleteCascade(visitID); err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	return nil
}
