package service

import (
	"context"
	"fmt"
	"log"

	"cafelog/internal/apperr"
	"cafelog/internal/model"
	"cafelog/internal/repository"
)

type ParticipationService interface {
	// RespondToInvitation moves a pending invitation to accepted/rejected.
	// An accept may carry a review payload, persisted atomically with the
	// transition; a reject never produces a review.
	RespondToInvitation(visitID, userID string, req RespondInvitationRequest) (*model.Participation, error)
	ListPendingInvitations(ctx context.Context, userID string) ([]*PendingInvitation, error)
	ListParticipants(visitID string) ([]*model.Participation, error)
	RemoveParticipant(visitID, removerID, targetUserID string) error
}

type RespondInvitationRequest struct {
	Decision string  `json:"decision" binding:"required,oneof=accept reject"`
	Rating   *int    `json:"rating,omitempty" binding:"omitempty,min=1,max=5"`
	Comment  *string `json:"comment,omitempty"`
}

// PendingInvitation is a pending participation joined with the visit's cafe
// summary for the invitations inbox.
type PendingInvitation struct {
	Participation *model.Participation `json:"participation"`
	Cafe          *CafeSummary         `json:"cafe,omitempty"`
}

type participationService struct {
	participationRepo repository.ParticipationRepository
	visitRepo         repository.VisitRepository
	userRepo          repository.UserRepository
	cafeDirectory     CafeDirectory
	notifService      NotificationService
}

func NewParticipationService(
	participationRepo repository.ParticipationRepository,
	visitRepo repository.VisitRepository,
	userRepo repository.UserRepository,
	cafeDirectory CafeDirectory,
	notifService NotificationService,
) ParticipationService {
	return &participationService{
		participationRepo: participationRepo,
		visitRepo:         visitRepo,
		userRepo:          userRepo,
		cafeDirectory:     cafeDirectory,
		notifService:      notifService,
	}
}

// RespondToInvitation handles the accept/reject transition for the caller's
// own invitation on a visit.
func (s *participationService) RespondToInvitation(visitID, userID string, req RespondInvitationRequest) (*model.Participation, error) {
	accepted := req.Decision == "accept"

	status := model.ParticipationStatusRejected
	var review *model.Review
	if accepted {
		status = model.ParticipationStatusAccepted
		if req.Rating != nil {
			review = &model.Review{
				Rating:  *req.Rating,
				Comment: req.Comment,
			}
		}
	}
	// A review payload on a rejection is ignored: a rejection never produces
	// a review.

	participation, err := s.participationRepo.Respond(visitID, userID, status, review)
	if err != nil {
		return nil, err
	}

	go func() {
		visit, err := s.visitRepo.FindByID(visitID)
		if err != nil {
			log.Printf("Failed to load visit %s for response notification: %v", visitID, err)
			return
		}
		responder, err := s.userRepo.FindByID(userID)
		if err != nil {
			return
		}
		s.notifService.SendInvitationResponseNotification(
			visit.CreatorID, userID, responder.FullName, visitID, accepted)
	}()

	return participation, nil
}

// ListPendingInvitations returns the caller's invitation inbox, newest first,
// with each visit's cafe summary resolved through the directory.
func (s *participationService) ListPendingInvitations(ctx context.Context, userID string) ([]*PendingInvitation, error) {
	participations, err := s.participationRepo.FindPendingByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}

	invitations := make([]*PendingInvitation, 0, len(participations))
	for _, participation := range participations {
		invitation := &PendingInvitation{Participation: participation}

		cafe, err := s.cafeDirectory.Lookup(ctx, participation.Visit.CafeID)
		if err != nil {
			// Directory downtime degrades the listing, it does not fail it
			log.Printf("Cafe directory lookup failed for %s: %v", participation.Visit.CafeID, err)
			cafe = &CafeSummary{ID: participation.Visit.CafeID}
		}
		invitation.Cafe = cafe

		invitations = append(invitations, invitation)
	}

	return invitations, nil
}

// ListParticipants returns every participation of a visit with reviews,
// creator first, then participants in invitation order.
func (s *participationService) ListParticipants(visitID string) ([]*model.Participation, error) {
	if _, err := s.visitRepo.FindByID(visitID); err != nil {
		return nil, apperr.ErrNotFound
	}
	return s.participationRepo.FindByVisitID(visitID)
}

// RemoveParticipant removes an invited participant from a visit. Only the
// visit creator may remove, and never themselves.
func (s *participationService) RemoveParticipant(visitID, removerID, targetUserID string) error {
	visit, err := s.visitRepo.FindByID(visitID)
	if err != nil {
		return apperr.ErrNotFound
	}

	if visit.CreatorID != removerID {
		return apperr.ErrNotOwner
	}
	if targetUserID == visit.CreatorID {
		return apperr.ErrCannotRemoveCreator
	}

	if _, err := s.participationRepo.FindByVisitAndUser(visitID, targetUserID); err != nil {
		return apperr.ErrNotInvited
	}

	if err := s.participationRepo.DeleteByVisitAndUser(visitID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}
