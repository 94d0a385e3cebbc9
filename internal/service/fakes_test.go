package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cafelog/internal/apperr"
	"cafelog/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is a shared in-memory backing store for the fake repositories, so
// cross-repository effects (a shared visit creating participation rows, a
// cascade delete removing reviews) behave like they do against the database.
type memStore struct {
	mu             sync.Mutex
	users          map[string]*model.User
	friendships    map[string]*model.Friendship
	visits         map[string]*model.Visit
	participations map[string]*model.Participation // keyed visitID|userID
	reviews        map[string]*model.Review        // keyed visitID|userID
}

func newMemStore() *memStore {
	return &memStore{
		users:          make(map[string]*model.User),
		friendships:    make(map[string]*model.Friendship),
		visits:         make(map[string]*model.Visit),
		participations: make(map[string]*model.Participation),
		reviews:        make(map[string]*model.Review),
	}
}

func visitUserKey(visitID, userID string) string {
	return visitID + "|" + userID
}

func (s *memStore) addUser(fullName string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &model.User{
		ID:       uuid.New().String(),
		Username: strings.ToLower(strings.ReplaceAll(fullName, " ", "")),
		Email:    strings.ToLower(strings.ReplaceAll(fullName, " ", "")) + "@example.com",
		FullName: fullName,
	}
	s.users[user.ID] = user
	return user
}

// addAcceptedFriendship seeds a confirmed friendship without going through the
// request/accept flow.
func (s *memStore) addAcceptedFriendship(requesterID, addresseeID string) *model.Friendship {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	friendship := &model.Friendship{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		PairKey:     model.FriendshipPairKey(requesterID, addresseeID),
		Status:      model.FriendshipStatusAccepted,
		RespondedAt: &now,
	}
	s.attachFriendshipUsers(friendship)
	s.friendships[friendship.ID] = friendship
	return friendship
}

func (s *memStore) attachFriendshipUsers(f *model.Friendship) {
	if u, ok := s.users[f.RequesterID]; ok {
		f.Requester = *u
	}
	if u, ok := s.users[f.AddresseeID]; ok {
		f.Addressee = *u
	}
}

// --- user repository fake ---

type fakeUserRepo struct {
	store *memStore
}

func (r *fakeUserRepo) Create(user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, existing := range r.store.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	r.store.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(id string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByIDs(ids []string) ([]*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []*model.User
	for _, id := range ids {
		if user, ok := r.store.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, user := range r.store.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByUsername(username string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, user := range r.store.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) SearchUsers(keyword string, limit, offset int) ([]model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	needle := strings.ToLower(keyword)
	var users []model.User
	for _, user := range r.store.users {
		if strings.Contains(strings.ToLower(user.Username), needle) ||
			strings.Contains(strings.ToLower(user.FullName), needle) {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) Update(user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.users[user.ID] = user
	return nil
}

// --- friendship repository fake ---

type fakeFriendshipRepo struct {
	store *memStore
}

func (r *fakeFriendshipRepo) Create(friendship *model.Friendship) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if friendship.ID == "" {
		friendship.ID = uuid.New().String()
	}
	if friendship.PairKey == "" {
		friendship.PairKey = model.FriendshipPairKey(friendship.RequesterID, friendship.AddresseeID)
	}
	for _, existing := range r.store.friendships {
		if existing.PairKey == friendship.PairKey {
			return gorm.ErrDuplicatedKey
		}
	}
	r.store.attachFriendshipUsers(friendship)
	r.store.friendships[friendship.ID] = friendship
	return nil
}

func (r *fakeFriendshipRepo) FindByID(id string) (*model.Friendship, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	friendship, ok := r.store.friendships[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return friendship, nil
}

func (r *fakeFriendshipRepo) FindByPair(userA, userB string) (*model.Friendship, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	pairKey := model.FriendshipPairKey(userA, userB)
	for _, friendship := range r.store.friendships {
		if friendship.PairKey == pairKey {
			return friendship, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeFriendshipRepo) FindAcceptedByUserID(userID string) ([]*model.Friendship, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var friendships []*model.Friendship
	for _, friendship := range r.store.friendships {
		if friendship.Status != model.FriendshipStatusAccepted {
			continue
		}
		if friendship.RequesterID == userID || friendship.AddresseeID == userID {
			friendships = append(friendships, friendship)
		}
	}
	return friendships, nil
}

func (r *fakeFriendshipRepo) FindPendingByAddresseeID(addresseeID string) ([]*model.Friendship, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var friendships []*model.Friendship
	for _, friendship := range r.store.friendships {
		if friendship.Status == model.FriendshipStatusPending && friendship.AddresseeID == addresseeID {
			friendships = append(friendships, friendship)
		}
	}
	return friendships, nil
}

func (r *fakeFriendshipRepo) FilterAcceptedFriends(userID string, otherIDs []string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	wanted := make(map[string]bool, len(otherIDs))
	for _, id := range otherIDs {
		wanted[id] = true
	}

	var confirmed []string
	for _, friendship := range r.store.friendships {
		if friendship.Status != model.FriendshipStatusAccepted {
			continue
		}
		if friendship.RequesterID == userID && wanted[friendship.AddresseeID] {
			confirmed = append(confirmed, friendship.AddresseeID)
		}
		if friendship.AddresseeID == userID && wanted[friendship.RequesterID] {
			confirmed = append(confirmed, friendship.RequesterID)
		}
	}
	return confirmed, nil
}

func (r *fakeFriendshipRepo) ResolvePending(id, status string, respondedAt time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	friendship, ok := r.store.friendships[id]
	if !ok || friendship.Status != model.FriendshipStatusPending {
		return false, nil
	}
	friendship.Status = status
	friendship.RespondedAt = &respondedAt
	return true, nil
}

func (r *fakeFriendshipRepo) DeleteByPair(userA, userB string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	pairKey := model.FriendshipPairKey(userA, userB)
	var removed int64
	for id, friendship := range r.store.friendships {
		if friendship.PairKey == pairKey {
			delete(r.store.friendships, id)
			removed++
		}
	}
	return removed, nil
}

// --- visit repository fake ---

type fakeVisitRepo struct {
	store *memStore
}

func (r *fakeVisitRepo) CreateShared(visit *model.Visit, creatorReview *model.Review, participantIDs []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	if visit.ID == "" {
		visit.ID = uuid.New().String()
	}
	if creator, ok := r.store.users[visit.CreatorID]; ok {
		visit.Creator = *creator
	}
	r.store.visits[visit.ID] = visit

	creator := &model.Participation{
		ID:          uuid.New().String(),
		VisitID:     visit.ID,
		UserID:      visit.CreatorID,
		Role:        model.ParticipationRoleCreator,
		Status:      model.ParticipationStatusAccepted,
		InvitedAt:   now,
		RespondedAt: &now,
	}
	r.store.participations[visitUserKey(visit.ID, visit.CreatorID)] = creator

	if creatorReview != nil {
		creatorReview.ID = uuid.New().String()
		creatorReview.VisitID = visit.ID
		creatorReview.UserID = visit.CreatorID
		r.store.reviews[visitUserKey(visit.ID, visit.CreatorID)] = creatorReview
	}

	for i, participantID := range participantIDs {
		participation := &model.Participation{
			ID:        uuid.New().String(),
			VisitID:   visit.ID,
			UserID:    participantID,
			Role:      model.ParticipationRoleParticipant,
			Status:    model.ParticipationStatusPending,
			InvitedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		r.store.participations[visitUserKey(visit.ID, participantID)] = participation
	}

	return nil
}

func (r *fakeVisitRepo) FindByID(id string) (*model.Visit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	visit, ok := r.store.visits[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return visit, nil
}

func (r *fakeVisitRepo) FindByCreatorID(creatorID string, limit, offset int) ([]*model.Visit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var visits []*model.Visit
	for _, visit := range r.store.visits {
		if visit.CreatorID == creatorID {
			visits = append(visits, visit)
		}
	}
	sort.Slice(visits, func(i, j int) bool {
		return visits[i].VisitDate.After(visits[j].VisitDate)
	})
	if offset >= len(visits) {
		return nil, nil
	}
	visits = visits[offset:]
	if limit > 0 && limit < len(visits) {
		visits = visits[:limit]
	}
	return visits, nil
}

func (r *fakeVisitRepo) Update(visit *model.Visit) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.visits[visit.ID] = visit
	return nil
}

func (r *fakeVisitRepo) DeleteCascade(visitID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for key, participation := range r.store.participations {
		if participation.VisitID == visitID {
			delete(r.store.participations, key)
		}
	}
	for key, review := range r.store.reviews {
		if review.VisitID == visitID {
			delete(r.store.reviews, key)
		}
	}
	delete(r.store.visits, visitID)
	return nil
}

// --- participation repository fake ---

type fakeParticipationRepo struct {
	store *memStore
}

func (r *fakeParticipationRepo) FindByVisitAndUser(visitID, userID string) (*model.Participation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	participation, ok := r.store.participations[visitUserKey(visitID, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return participation, nil
}

func (r *fakeParticipationRepo) FindPendingByUserID(userID string) ([]*model.Participation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var participations []*model.Participation
	for _, participation := range r.store.participations {
		if participation.UserID != userID || participation.Status != model.ParticipationStatusPending {
			continue
		}
		if visit, ok := r.store.visits[participation.VisitID]; ok {
			participation.Visit = *visit
		}
		participations = append(participations, participation)
	}
	sort.Slice(participations, func(i, j int) bool {
		return participations[i].InvitedAt.After(participations[j].InvitedAt)
	})
	return participations, nil
}

func (r *fakeParticipationRepo) FindByVisitID(visitID string) ([]*model.Participation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var participations []*model.Participation
	for _, participation := range r.store.participations {
		if participation.VisitID != visitID {
			continue
		}
		participation.Review = r.store.reviews[visitUserKey(visitID, participation.UserID)]
		participations = append(participations, participation)
	}
	sort.Slice(participations, func(i, j int) bool {
		if participations[i].Role != participations[j].Role {
			return participations[i].Role == model.ParticipationRoleCreator
		}
		return participations[i].InvitedAt.Before(participations[j].InvitedAt)
	})
	return participations, nil
}

// Respond mirrors the conditional-update contract of the real repository: the
// transition only happens while the row is still pending, under the lock, so
// concurrent responders cannot both win.
func (r *fakeParticipationRepo) Respond(visitID, userID, status string, review *model.Review) (*model.Participation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	participation, ok := r.store.participations[visitUserKey(visitID, userID)]
	if !ok {
		return nil, apperr.ErrNotInvited
	}
	if participation.Status != model.ParticipationStatusPending {
		return nil, apperr.ErrAlreadyResponded
	}

	if review != nil {
		if _, exists := r.store.reviews[visitUserKey(visitID, userID)]; exists {
			return nil, apperr.ErrDuplicateReview
		}
	}

	now := time.Now()
	participation.Status = status
	participation.RespondedAt = &now

	if review != nil {
		review.ID = uuid.New().String()
		review.VisitID = visitID
		review.UserID = userID
		r.store.reviews[visitUserKey(visitID, userID)] = review
	}

	return participation, nil
}

func (r *fakeParticipationRepo) DeleteByVisitAndUser(visitID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.reviews, visitUserKey(visitID, userID))
	delete(r.store.participations, visitUserKey(visitID, userID))
	return nil
}

// --- review repository fake ---

type fakeReviewRepo struct {
	store *memStore
}

func (r *fakeReviewRepo) Create(review *model.Review) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := visitUserKey(review.VisitID, review.UserID)
	if _, exists := r.store.reviews[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	r.store.reviews[key] = review
	return nil
}

func (r *fakeReviewRepo) FindByID(id string) (*model.Review, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, review := range r.store.reviews {
		if review.ID == id {
			return review, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeReviewRepo) FindByVisitAndUser(visitID, userID string) (*model.Review, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	review, ok := r.store.reviews[visitUserKey(visitID, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return review, nil
}

func (r *fakeReviewRepo) FindByVisitID(visitID string) ([]*model.Review, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var reviews []*model.Review
	for _, review := range r.store.reviews {
		if review.VisitID == visitID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
	})
	return reviews, nil
}

func (r *fakeReviewRepo) Update(review *model.Review) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.reviews[visitUserKey(review.VisitID, review.UserID)] = review
	return nil
}

func (r *fakeReviewRepo) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for key, review := range r.store.reviews {
		if review.ID == id {
			delete(r.store.reviews, key)
		}
	}
	return nil
}

// --- notification service fake ---

// fakeNotificationService records sends instead of persisting and publishing.
// Services fire notifications from goroutines, so the counter is locked.
type fakeNotificationService struct {
	mu    sync.Mutex
	sends []string
}

func (s *fakeNotificationService) record(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, kind)
	return nil
}

func (s *fakeNotificationService) SendFriendRequestNotification(addresseeID, requesterID, requesterName, friendshipID string) error {
	return s.record(model.NotificationTypeFriendRequest)
}

func (s *fakeNotificationService) SendFriendAcceptedNotification(requesterID, addresseeID, addresseeName, friendshipID string) error {
	return s.record(model.NotificationTypeFriendAccepted)
}

func (s *fakeNotificationService) SendFriendRejectedNotification(requesterID, addresseeID, addresseeName, friendshipID string) error {
	return s.record(model.NotificationTypeFriendRejected)
}

func (s *fakeNotificationService) SendVisitInvitationNotification(inviteeID, creatorID, creatorName, visitID, cafeID string) error {
	return s.record(model.NotificationTypeVisitInvitation)
}

func (s *fakeNotificationService) SendInvitationResponseNotification(creatorID, responderID, responderName, visitID string, accepted bool) error {
	if accepted {
		return s.record(model.NotificationTypeInvitationAccepted)
	}
	return s.record(model.NotificationTypeInvitationRejected)
}

func (s *fakeNotificationService) GetNotificationsByUserID(userID string, limit, offset int) ([]*model.Notification, error) {
	return nil, nil
}

func (s *fakeNotificationService) GetUnreadCount(userID string) (int64, error) { return 0, nil }
func (s *fakeNotificationService) MarkAsRead(notificationID, userID string) error {
	return nil
}
func (s *fakeNotificationService) MarkAllAsRead(userID string) error { return nil }

// --- cafe directory fake ---

type fakeCafeDirectory struct{}

func (d *fakeCafeDirectory) Lookup(ctx context.Context, cafeID string) (*CafeSummary, error) {
	return &CafeSummary{ID: cafeID, Name: "Cafe " + cafeID}, nil
}

// --- wiring ---

// fixture wires the services over a single shared store.
type fixture struct {
	store *memStore

	friendshipService    FriendshipService
	visitService         VisitService
	participationService ParticipationService
	reviewService        ReviewService

	participationRepo *fakeParticipationRepo
}

func newFixture() *fixture {
	store := newMemStore()

	userRepo := &fakeUserRepo{store: store}
	friendshipRepo := &fakeFriendshipRepo{store: store}
	visitRepo := &fakeVisitRepo{store: store}
	participationRepo := &fakeParticipationRepo{store: store}
	reviewRepo := &fakeReviewRepo{store: store}
	notifService := &fakeNotificationService{}

	friendshipService := NewFriendshipService(friendshipRepo, userRepo, notifService)

	return &fixture{
		store:                store,
		friendshipService:    friendshipService,
		visitService:         NewVisitService(visitRepo, userRepo, friendshipService, notifService),
		participationService: NewParticipationService(participationRepo, visitRepo, userRepo, &fakeCafeDirectory{}, notifService),
		reviewService:        NewReviewService(reviewRepo, participationRepo),
		participationRepo:    participationRepo,
	}
}

// createVisit is a shortcut for a valid shared visit with the given invitees.
func (f *fixture) createVisit(creatorID string, participantIDs ...string) (*model.Visit, error) {
	return f.visitService.CreateSharedVisit(creatorID, CreateVisitRequest{
		CafeID:         "cafe-centro",
		ImageURLs:      []string{"https://img.example.com/1.jpg"},
		Rating:         4,
		ParticipantIDs: participantIDs,
	})
}
