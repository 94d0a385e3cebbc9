package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Friendship struct {
	ID          string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RequesterID string    `gorm:"type:uuid;not null;index" json:"requester_id"`
	AddresseeID string    `gorm:"type:uuid;not null;index" json:"addressee_id"`
	// Canonical min:max of the two user ids. The unique index makes the
	// unordered pair unique at the database level, whichever direction the
	// request was sent in.
	PairKey     string     `gorm:"type:varchar(80);uniqueIndex;not null" json:"-"`
	Status      string     `gorm:"type:varchar(20);default:'pending';not null" json:"status"` // pending, accepted, rejected
	RespondedAt *time.Time `gorm:"type:timestamp" json:"responded_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Requester User `gorm:"foreignKey:RequesterID;references:ID" json:"requester,omitempty"`
	Addressee User `gorm:"foreignKey:AddresseeID;references:ID" json:"addressee,omitempty"`
}

// BeforeCreate hook to generate UUID and the canonical pair key
func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.PairKey == "" {
		f.PairKey = FriendshipPairKey(f.RequesterID, f.AddresseeID)
	}
	return nil
}

// TableName specifies the table name
func (Friendship) TableName() string {
	return "friendships"
}

// FriendshipPairKey returns the canonical key for an unordered user pair.
func FriendshipPairKey(userA, userB string) string {
	if userA < userB {
		return userA + ":" + userB
	}
	return userB + ":" + userA
}

// OtherUserID returns the id on the far side of the friendship from userID.
func (f *Friendship) OtherUserID(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// Friendship status constants
const (
	FriendshipStatusPending  = "pending"
	FriendshipStatusAccepted = "accepted"
	FriendshipStatusRejected = "rejected"
)
