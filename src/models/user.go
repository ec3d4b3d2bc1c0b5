package models

import (
	"pitchconnect/src/types"
	"time"
)

type User struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `json:"name,omitempty"`
	Email         string          `json:"email,omitempty"`
	Role          string          `json:"role,omitempty"`
	UID           string          `json:"uid,omitempty"`
	ActiveClub    uint            `json:"active_club,omitempty"`
	Position      string          `json:"position,omitempty"`
	DateOfBirth   *time.Time      `json:"date_of_birth,omitempty"`
	EmailVerified bool            `json:"email_verified,omitempty"`
	VerifiedAt    time.Time       `json:"verified_at,omitempty"`
	Metadata      *types.Metadata `gorm:"type:jsonb" json:"-"`

	Memberships  []Membership  `gorm:"foreignKey:user_id" json:"memberships,omitempty"`
	JoinRequests []JoinRequest `gorm:"foreignKey:player_id" json:"join_requests,omitempty"`
	Clubs        []Club        `gorm:"foreignKey:owner_id" json:"clubs,omitempty"`

	types.Timestamps
}
