package models

import (
	"pitchconnect/src/types"
	"time"
)

// JoinRequest carries its owning club id so the authorization gate never has
// to walk team->club to find the scope.
type JoinRequest struct {
	ID          uint                    `gorm:"primarykey" json:"id"`
	ClubID      uint                    `gorm:"index" json:"club_id,omitempty"`
	TeamID      uint                    `gorm:"index" json:"team_id,omitempty"`
	PlayerID    uint                    `gorm:"index" json:"player_id,omitempty"`
	Message     *string                 `json:"message,omitempty"`
	Position    *string                 `json:"position,omitempty"`
	Status      types.JoinRequestStatus `gorm:"default:'PENDING'" json:"status,omitempty"`
	ReviewedBy  *uint                   `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time              `json:"reviewed_at,omitempty"`
	ReviewNotes *string                 `json:"review_notes,omitempty"`
	ExpiresAt   time.Time               `json:"expires_at,omitempty"`

	Team     *Team `gorm:"foreignKey:team_id" json:"team,omitempty"`
	Player   *User `gorm:"foreignKey:player_id" json:"player,omitempty"`
	Reviewer *User `gorm:"foreignKey:reviewed_by" json:"-"`

	types.Timestamps
}
