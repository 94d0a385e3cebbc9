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

type FriendshipService interface {
	SendFriendRequest(requesterID, addresseeID string) (*model.Friendship, error)
	RespondFriendRequest(friendshipID, userID string, accept bool) (*model.Friendship, error)
	// RemoveFriend deletes any relation between the two users regardless of
	// status. Removing a relation that does not exist is a no-op.
	RemoveFriend(userID, otherUserID string) error
	ListConfirmedFriends(userID string) ([]*model.User, error)
	ListPendingRequests(userID string) ([]*model.Friendship, error)
	GetFriendshipStatus(userID1, userID2 string) (string, error)
	// ConfirmFriends splits candidateIDs into confirmed friends of userID and
	// the rest. Callers gating on it must fail the whole operation when
	// missing is non-empty.
	ConfirmFriends(userID string, candidateIDs []string) (confirmed, missing []string, err error)
}

type friendshipService struct {
	friendshipRepo repository.FriendshipRepository
	userRepo       repository.UserRepository
	notifService   NotificationService
}

func NewFriendshipService(
	friendshipRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	notifService NotificationService,
) FriendshipService {
	return &friendshipService{
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		notifService:   notifService,
	}
}

// SendFriendRequest sends a friend request
func (s *friendshipService) SendFriendRequest(requesterID, addresseeID string) (*model.Friendship, error) {
	if requesterID == addresseeID {
		return nil, apperr.ErrSelfRelation
	}

	requester, err := s.userRepo.FindByID(requesterID)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	if _, err := s.userRepo.FindByID(addresseeID); err != nil {
		return nil, apperr.ErrNotFound
	}

	// Any existing record for the unordered pair blocks a new request,
	// including rejected ones; a rejected relation must be removed before the
	// pair can try again.
	if _, err := s.friendshipRepo.FindByPair(requesterID, addresseeID); err == nil {
		return nil, apperr.ErrDuplicateRelation
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing friendship: %w", err)
	}

	friendship := &model.Friendship{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      model.FriendshipStatusPending,
	}

	if err := s.friendshipRepo.Create(friendship); err != nil {
		// The canonical pair key backstops a race between the check and the
		// insert; translate it instead of leaking the constraint error.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrDuplicateRelation
		}
		return nil, fmt.Errorf("failed to create friendship request: %w", err)
	}

	go func() {
		s.notifService.SendFriendRequestNotification(
			addresseeID,
			requesterID,
			requester.FullName,
			friendship.ID,
		)
	}()

	return s.friendshipRepo.FindByID(friendship.ID)
}

// RespondFriendRequest accepts or rejects a pending friend request
func (s *friendshipService) RespondFriendRequest(friendshipID, userID string, accept bool) (*model.Friendship, error) {
	friendship, err := s.friendshipRepo.FindByID(friendshipID)
	if err != nil {
		return nil, apperr.ErrNotFound
	}

	// Only the addressee may resolve the request
	if friendship.AddresseeID != userID {
		return nil, apperr.ErrNotAuthorized
	}

	status := model.FriendshipStatusRejected
	if accept {
		status = model.FriendshipStatusAccepted
	}

	resolved, err := s.friendshipRepo.ResolvePending(friendshipID, status, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve friendship request: %w", err)
	}
	if !resolved {
		return nil, apperr.ErrAlreadyResolved
	}

	go func() {
		addressee, err := s.userRepo.FindByID(friendship.AddresseeID)
		if err != nil {
			return
		}
		if accept {
			s.notifService.SendFriendAcceptedNotification(
				friendship.RequesterID, friendship.AddresseeID, addressee.FullName, friendship.ID)
		} else {
			s.notifService.SendFriendRejectedNotification(
				friendship.RequesterID, friendship.AddresseeID, addressee.FullName, friendship.ID)
		}
	}()

	return s.friendshipRepo.FindByID(friendshipID)
}

// RemoveFriend removes any relation between the two users (idempotent)
func (s *friendshipService) RemoveFriend(userID, otherUserID string) error {
	if userID == otherUserID {
		return apperr.ErrSelfRelation
	}

	if _, err := s.friendshipRepo.DeleteByPair(userID, otherUserID); err != nil {
		return fmt.Errorf("failed to remove friendship: %w", err)
	}
	return nil
}

// ListConfirmedFriends returns the users with an accepted friendship with
// userID, regardless of who sent the request.
func (s *friendshipService) ListConfirmedFriends(userID string) ([]*model.User, error) {
	friendships, err := s.friendshipRepo.FindAcceptedByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}

	friends := make([]*model.User, 0, len(friendships))
	for _, f := range friendships {
		if f.RequesterID == userID {
			addressee := f.Addressee
			friends = append(friends, &addressee)
		} else {
			requester := f.Requester
			friends = append(friends, &requester)
		}
	}
	return friends, nil
}

// ListPendingRequests returns pending requests addressed to the user
func (s *friendshipService) ListPendingRequests(userID string) ([]*model.Friendship, error) {
	return s.friendshipRepo.FindPendingByAddresseeID(userID)
}

// GetFriendshipStatus returns the relation status between two users
func (s *friendshipService) GetFriendshipStatus(userID1, userID2 string) (string, error) {
	friendship, err := s.friendshipRepo.FindByPair(userID1, userID2)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "none", nil
		}
		return "", err
	}
	return friendship.Status, nil
}

// ConfirmFriends validates a candidate set against the confirmed friends of
// userID. Duplicates are collapsed; the caller's own id is never confirmed.
func (s *friendshipService) ConfirmFriends(userID string, candidateIDs []string) ([]string, []string, error) {
	unique := make([]string, 0, len(candidateIDs))
	seen := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	accepted, err := s.friendshipRepo.FilterAcceptedFriends(userID, unique)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check friendships: %w", err)
	}

	confirmedSet := make(map[string]bool, len(accepted))
	for _, id := range accepted {
		confirmedSet[id] = true
	}

	confirmed := make([]string, 0, len(unique))
	missing := make([]string, 0)
	for _, id := range unique {
		if confirmedSet[id] && id != userID {
			confirmed = append(confirmed, id)
		} else {
			missing = append(missing, id)
		}
	}

	return confirmed, missing, nil
}
