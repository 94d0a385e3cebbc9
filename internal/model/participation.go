package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Participation struct {
	ID          string     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	VisitID     string     `gorm:"type:uuid;not null;index:idx_visit_user,unique" json:"visit_id"`
	UserID      string     `gorm:"type:uuid;not null;index:idx_visit_user,unique" json:"user_id"`
	Role        string     `gorm:"type:varchar(20);not null" json:"role"`                       // creador, participante
	Status      string     `gorm:"type:varchar(20);default:'pendiente';not null" json:"status"` // pendiente, aceptada, rechazada
	InvitedAt   time.Time  `gorm:"autoCreateTime" json:"invited_at"`
	RespondedAt *time.Time `gorm:"type:timestamp" json:"responded_at,omitempty"`

	// Relationships
	Visit Visit `gorm:"foreignKey:VisitID;references:ID" json:"visit,omitempty"`
	User  User  `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	// The review is keyed on the (visit_id, user_id) pair rather than on this
	// row, so it is attached by the repository instead of a gorm association.
	Review *Review `gorm:"-" json:"review,omitempty"`
}

// BeforeCreate hook to generate UUID
func (p *Participation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Participation) TableName() string {
	return "participations"
}

// Participation role constants
const (
	ParticipationRoleCreator     = "creador"
	ParticipationRoleParticipant = "participante"
)

// Participation status constants
const (
	ParticipationStatusPending  = "pendiente"
	ParticipationStatusAccepted = "aceptada"
	ParticipationStatusRejected = "rechazada"
)
