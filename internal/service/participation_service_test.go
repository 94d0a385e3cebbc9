package service

import (
	"context"
	"sync"
	"testing"

	"cafelog/internal/apperr"
	"cafelog/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondToInvitationAcceptWithReview(t *testing.T) {
	f := newFixture()
	creator := f.store.addUser("Alice Alvarez")
	friend := f.store.addUser("Bob Benitez")
	f.store.addAcceptedFriendship(creator.ID, friend.ID)

	visit, err := f.createVisit(creator.ID, friend.ID)
	require.NoError(t, err)

	rating := 4
	comment := "great cortado"
	participation, err := f.participationService.RespondToInvitation(visit.ID, friend.ID, RespondInvitationRequest{
		Decision: "accept",
		Rating:   &rating,
		Comment:  &comment,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ParticipationStatusAccepted, participation.Status)
	assert.NotNil(t, participation.RespondedAt)

	reviews, err := f.reviewService.GetReviewsByVisit(visit.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, friend.ID, reviews[0].UserID)
	assert.Equal(t, 4, reviews[0].Rating)
}

func TestRespondToInvitationRejectIgnoresReviewPayload(t *testing.T) {
	f := newFixture()
	creator := f.store.addUser("Alice Alvarez")
	friend := f.store.addUser("Bob Benitez")
	f.store.addAcceptedFriendship(creator.ID, friend.ID)

	visit, err := f.createVisit(creator.ID, friend.ID)
	require.NoError(t, err)

	rating := 5
	participation, err := f.participationService.RespondToInvitation(visit.ID, friend.ID, RespondInvitationRequest{
		Decision: "reject",
		Rating:   &rating,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ParticipationStatusRejected, participation.Status)

	// A rejection never produces a review
	reviews, err := f.reviewService.GetReviewsByVisit(visit.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestRespondToInvitationAlreadyResponded(t *testing.T) {
	f := newFixture()
	creator := f.store.addUser("Alice Alvarez")
	friend := f.store.addUser("Bob Benitez")
	f.store.addAcceptedFriendship(creator.ID, friend.ID)

	visit, err := f.createVisit(creator.ID, friend.ID)
	require.NoError(t, err)

	_, err = f.participationService.RespondToInvitation(visit.ID, friend.ID, RespondInvitationRequest{
		Decision: "accept",
	})
	require.NoError(t, err)

	// The rejection is terminal the same way; no flip-flopping
	rating := 3
	_, err = f.participationService.RespondToInvitation(visit.ID, friend.ID, RespondInvitationRequest{
		Decision: "reject",
		Rating:   &rating,
	})
	assert.ErrorIs(t, err, apperr.ErrAlreadyResponded)

	reviews, err := f.reviewService.GetReviewsByVisit(visit.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestRespondToInvitationNotInvited(t *testing.T) {
	f := newFixture()
	creator := f.store.addUser("Alice Alvarez")
	stranger := f.store.addUser("Carol Castillo")

	visit, err := f.createVisit(creator.ID)
	require.NoError(t, err)

	_, err = f.participationService.RespondToInvitation(visit.ID, stranger.ID, RespondInvitationRequest{
		Decision: "accept",
	})
	assert.ErrorIs(t, err, apperr.ErrNotInvited)
}

func TestRespondToInvitationConcurrentSingleWinner(t *testing.T) {
	f := newFixture()
	creator := f.store.addUser("Alice Alvarez")
	friend := f.store.addUser("Bob Benitez")
	f.store.addAcceptedFriendship(creator.ID, friend.ID)

	visit, err := f.createVisit(creator.ID, friend.ID)
	require.NoError(t, err)

	decisions := []string{"accept", "reject"}
	errs := make([]error, len(decisions))

	var wg sync.WaitGroup
	for i, decision := range decisions {
		wg.Add(1)
		go func(i int, decision string) {
			defer wg.Done()
			_, errs[i] = f.participationService.RespondToInvitation(visit.ID, friend.ID, RespondInvitationRequest{
				Decision: decision,
			})
		}(i, decision)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, apperr.ErrAlreadyResponded)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	participation, err := f.participationRepo.FindByVisitAndUser(visit.ID, friend.ID)
	require.NoError(t, err)
	assert.NotEqual(t, model.ParticipationStatusPending, participation.Status)
}

func TestListPendingInvitations(t *testing.T) {
	f := newFixture()
	creator := f.store.addUser("Alice Alvarez")
	friend := f.store.addUser("Bob Benitez")
	f.store.addAcceptedFriendship(creator.ID, friend.ID)

	first, err := f.createVisit(creator.ID, friend.ID)
	require.NoError(t, err)
	second, err := f.visitService.CreateSharedVisit(creator.ID, CreateVisitRequest{
		CafeID:         "cafe-norte",
		ImageURLs:      []string{"https://img.example.com/2.jpg"},
		Rating:         5,
		ParticipantIDs: []string{friend.ID},
	})
	require.NoError(t, err)

	invitations, err := f.participationService.ListPendingInvitations(context.Background(), friend.ID)
	require.NoError(t, err)
	require.Len(t, invitations, 2)

	// Each entry carries the cafe summary resolved through the directory
	for _, invitation := range invitations {
		require.NotNil(t, invitation.Cafe)
		assert.Equal(t, invitation.Participation.Visit.CafeID, invitation.Cafe.ID)
		assert.NotEmpty(t, invitation.Cafe.Name)
	}

	// Responding removes the invitation from the inbox
	_, err = f.participationService.RespondToInvitation(first.ID, friend.ID, RespondInvitationRequest{
		Decision: "accept",
	})
	require.NoError(t, err)

	invitations, err = f.participationService.ListPendingInvitations(context.Background(), friend.ID)
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	assert.Equal(t, second.ID, invitations[0].Participation.VisitID)
}

func TestRemoveParticipant(t *testing.T) {
	f := newFixture()
	creator := f.store.addUser("Alice Alvarez")
	friend := f.store.addUser("Bob Benitez")
	other := f.store.addUser("Carol Castillo")
	f.store.addAcceptedFriendship(creator.ID, friend.ID)

	visit, err := f.createVisit(creator.ID, friend.ID)
	require.NoError(t, err)

	// Only the creator may remove participants
	err = f.participationService.RemoveParticipant(visit.ID, friend.ID, friend.ID)
	assert.ErrorIs(t, err, apperr.ErrNotOwner)

	// The creator's own row is structural
	err = f.participationService.RemoveParticipant(visit.ID, creator.ID, creator.ID)
	assert.ErrorIs(t, err, apperr.ErrCannotRemoveCreator)

	// Removing someone who was never invited
	err = f.participationService.RemoveParticipant(visit.ID, creator.ID, other.ID)
	assert.ErrorIs(t, err, apperr.ErrNotInvited)

	rating := 4
	_, err = f.participationService.RespondToInvitation(visit.ID, friend.ID, RespondInvitationRequest{
		Decision: "accept",
		Rating:   &rating,
	})
	require.NoError(t, err)

	require.NoError(t, f.participationService.RemoveParticipant(visit.ID, creator.ID, friend.ID))

	// The participation and the participant's review are both gone
	participants, err := f.participationService.ListParticipants(visit.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, creator.ID, participants[0].UserID)

	reviews, err := f.reviewService.GetReviewsByVisit(visit.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestSharedVisitReviewLifecycle(t *testing.T) {
	f := newFixture()
	creator := f.store.addUser("Alice Alvarez")
	accepter := f.store.addUser("Bob Benitez")
	decliner := f.store.addUser("Carol Castillo")
	f.store.addAcceptedFriendship(creator.ID, accepter.ID)
	f.store.addAcceptedFriendship(creator.ID, decliner.ID)

	creatorRating := 5
	visit, err := f.visitService.CreateSharedVisit(creator.ID, CreateVisitRequest{
		CafeID:         "cafe-centro",
		ImageURLs:      []string{"https://img.example.com/1.jpg"},
		Rating:         4,
		ParticipantIDs: []string{accepter.ID, decliner.ID},
		ReviewRating:   &creatorRating,
	})
	require.NoError(t, err)

	rating := 3
	_, err = f.participationService.RespondToInvitation(visit.ID, accepter.ID, RespondInvitationRequest{
		Decision: "accept",
		Rating:   &rating,
	})
	require.NoError(t, err)

	_, err = f.participationService.RespondToInvitation(visit.ID, decliner.ID, RespondInvitationRequest{
		Decision: "reject",
	})
	require.NoError(t, err)

	// Creator's review plus the accepter's; the decliner never produced one
	reviews, err := f.reviewService.GetReviewsByVisit(visit.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	participants, err := f.participationService.ListParticipants(visit.ID)
	require.NoError(t, err)
	require.Len(t, participants, 3)
	assert.Equal(t, model.ParticipationRoleCreator, participants[0].Role)

	statusByUser := make(map[string]string)
	for _, p := range participants {
		statusByUser[p.UserID] = p.Status
	}
	assert.Equal(t, model.ParticipationStatusAccepted, statusByUser[creator.ID])
	assert.Equal(t, model.ParticipationStatusAccepted, statusByUser[accepter.ID])
	assert.Equal(t, model.ParticipationStatusRejected, statusByUser[decliner.ID])
}
