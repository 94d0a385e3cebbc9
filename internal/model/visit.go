package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Visit struct {
	ID        string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CreatorID string    `gorm:"type:uuid;not null;index" json:"creator_id"`
	CafeID    string    `gorm:"type:varchar(100);not null;index" json:"cafe_id"`
	ImageURLs string    `gorm:"type:jsonb" json:"image_urls,omitempty"` // Array of image URLs stored as JSON
	Rating    int       `gorm:"not null" json:"rating"`                 // 1-5
	Comment   *string   `gorm:"type:text" json:"comment,omitempty"`
	VisitDate time.Time `gorm:"type:timestamp;not null" json:"visit_date"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Creator        User            `gorm:"foreignKey:CreatorID;references:ID" json:"creator,omitempty"`
	Participations []Participation `gorm:"foreignKey:VisitID;references:ID" json:"participations,omitempty"`
}

// BeforeCreate hook to generate UUID
func (v *Visit) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Visit) TableName() string {
	return "visits"
}

// GetImageURLs returns ImageURLs as a slice of strings
func (v *Visit) GetImageURLs() []string {
	if v.ImageURLs == "" || v.ImageURLs == "[]" {
		return []string{}
	}
	var urls []string
	if err := json.Unmarshal([]byte(v.ImageURLs), &urls); err != nil {
		return []string{}
	}
	return urls
}

// SetImageURLs sets ImageURLs from a slice of strings
func (v *Visit) SetImageURLs(urls []string) error {
	if len(urls) == 0 {
		// PostgreSQL JSONB requires valid JSON, so use an empty array
		v.ImageURLs = "[]"
		return nil
	}
	bytes, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	v.ImageURLs = string(bytes)
	return nil
}

// MarshalJSON custom JSON marshaling to convert ImageURLs string to array
func (v *Visit) MarshalJSON() ([]byte, error) {
	type Alias Visit
	aux := &struct {
		ImageURLs []string `json:"image_urls,omitempty"`
		*Alias
	}{
		ImageURLs: v.GetImageURLs(),
		Alias:     (*Alias)(v),
	}
	return json.Marshal(aux)
}

// Visit image limits
const (
	VisitMinImages = 1
	VisitMaxImages = 5
)
