package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"cafelog/internal/model"
	"cafelog/internal/util"

	"gorm.io/gorm"
)

type FriendshipRepository interface {
	Create(friendship *model.Friendship) error
	FindByID(id string) (*model.Friendship, error)
	// FindByPair looks up the record for the unordered pair, whichever
	// direction the request was sent in.
	FindByPair(userA, userB string) (*model.Friendship, error)
	FindAcceptedByUserID(userID string) ([]*model.Friendship, error)
	FindPendingByAddresseeID(addresseeID string) ([]*model.Friendship, error)
	// FilterAcceptedFriends returns the subset of otherIDs that have an
	// accepted friendship with userID, in either direction.
	FilterAcceptedFriends(userID string, otherIDs []string) ([]string, error)
	// ResolvePending flips a pending record to accepted/rejected. Returns
	// false when the record was not pending anymore (or vanished), so the
	// state transition is linearized on the row instead of a read-then-write.
	ResolvePending(id, status string, respondedAt time.Time) (bool, error)
	// DeleteByPair removes any record for the unordered pair, returning the
	// number of rows removed. Zero rows is not an error.
	DeleteByPair(userA, userB string) (int64, error)
}

type friendshipRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	friendshipAcceptedCachePrefix = "friendship:accepted:"
	friendshipCacheExpiration     = 15 * time.Minute
)

func NewFriendshipRepository(db *gorm.DB, redis *util.RedisClient) FriendshipRepository {
	return &friendshipRepository{
		db:    db,
		redis: redis,
	}
}

// Create creates a new friendship request
func (r *friendshipRepository) Create(friendship *model.Friendship) error {
	if err := r.db.Create(friendship).Error; err != nil {
		return err
	}

	r.invalidatePairCache(friendship.RequesterID, friendship.AddresseeID)
	return nil
}

// FindByID finds a friendship by ID
func (r *friendshipRepository) FindByID(id string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.Preload("Requester").Preload("Addressee").
		Where("id = ?", id).First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// FindByPair finds the friendship between two users regardless of direction.
// The canonical pair key covers both orderings in one indexed lookup.
func (r *friendshipRepository) FindByPair(userA, userB string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.Preload("Requester").Preload("Addressee").
		Where("pair_key = ?", model.FriendshipPairKey(userA, userB)).
		First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// FindAcceptedByUserID finds accepted friendships for a user
func (r *friendshipRepository) FindAcceptedByUserID(userID string) ([]*model.Friendship, error) {
	// Try cache first
	if r.redis != nil {
		cached, err := r.getListFromCache(friendshipAcceptedCachePrefix + userID)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var friendships []*model.Friendship
	err := r.db.Preload("Requester").Preload("Addressee").
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?",
			userID, userID, model.FriendshipStatusAccepted).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		r.cacheFriendshipList(friendshipAcceptedCachePrefix+userID, friendships)
	}

	return friendships, nil
}

// FindPendingByAddresseeID finds pending friendship requests sent to a user
func (r *friendshipRepository) FindPendingByAddresseeID(addresseeID string) ([]*model.Friendship, error) {
	var friendships []*model.Friendship
	err := r.db.Preload("Requester").Preload("Addressee").
		Where("addressee_id = ? AND status = ?", addresseeID, model.FriendshipStatusPending).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// FilterAcceptedFriends returns the ids in otherIDs that are confirmed friends
// of userID, checking both directions of the relation.
func (r *friendshipRepository) FilterAcceptedFriends(userID string, otherIDs []string) ([]string, error) {
	if len(otherIDs) == 0 {
		return nil, nil
	}

	var friendships []*model.Friendship
	err := r.db.
		Where("status = ?", model.FriendshipStatusAccepted).
		Where("(requester_id = ? AND addressee_id IN ?) OR (addressee_id = ? AND requester_id IN ?)",
			userID, otherIDs, userID, otherIDs).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	confirmed := make([]string, 0, len(friendships))
	for _, f := range friendships {
		confirmed = append(confirmed, f.OtherUserID(userID))
	}
	return confirmed, nil
}

// ResolvePending resolves a pending request via a conditional update
func (r *friendshipRepository) ResolvePending(id, status string, respondedAt time.Time) (bool, error) {
	result := r.db.Model(&model.Friendship{}).
		Where("id = ? AND status = ?", id, model.FriendshipStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": respondedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}

	if result.RowsAffected > 0 {
		if friendship, err := r.FindByID(id); err == nil {
			r.invalidatePairCache(friendship.RequesterID, friendship.AddresseeID)
		}
	}

	return result.RowsAffected > 0, nil
}

// DeleteByPair deletes any friendship record for the unordered pair
func (r *friendshipRepository) DeleteByPair(userA, userB string) (int64, error) {
	result := r.db.
		Where("pair_key = ?", model.FriendshipPairKey(userA, userB)).
		Delete(&model.Friendship{})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		r.invalidatePairCache(userA, userB)
	}

	return result.RowsAffected, nil
}

// Cache helpers
func (r *friendshipRepository) cacheFriendshipList(key string, friendships []*model.Friendship) {
	if r.redis == nil {
		return
	}

	friendshipsJSON, err := json.Marshal(friendships)
	if err != nil {
		return
	}

	r.redis.Set(key, string(friendshipsJSON), friendshipCacheExpiration)
}

func (r *friendshipRepository) getListFromCache(key string) ([]*model.Friendship, error) {
	if r.redis == nil {
		return nil, fmt.Errorf("redis not available")
	}

	cached, err := r.redis.Get(key)
	if err != nil {
		return nil, err
	}

	var friendships []*model.Friendship
	if err := json.Unmarshal([]byte(cached), &friendships); err != nil {
		return nil, err
	}

	return friendships, nil
}

func (r *friendshipRepository) invalidatePairCache(userA, userB string) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(friendshipAcceptedCachePrefix + userA)
	r.redis.Delete(friendshipAcceptedCachePrefix + userB)
}
