package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID        string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	VisitID   string    `gorm:"type:uuid;not null;index:idx_review_visit_user,unique" json:"visit_id"`
	UserID    string    `gorm:"type:uuid;not null;index:idx_review_visit_user,unique" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"` // 1-5
	Comment   *string   `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Visit Visit `gorm:"foreignKey:VisitID;references:ID" json:"visit,omitempty"`
	User  User  `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// BeforeCreate hook to generate UUID
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
