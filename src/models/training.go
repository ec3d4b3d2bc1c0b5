package models

import (
	"pitchconnect/src/types"
	"time"
)

type TrainingSession struct {
	ID              uint                `gorm:"primarykey" json:"id"`
	ClubID          uint                `gorm:"index" json:"club_id,omitempty"`
	TeamID          uint                `gorm:"index" json:"team_id,omitempty"`
	Title           string              `json:"title,omitempty"`
	Location        string              `json:"location,omitempty"`
	StartsAt        time.Time           `json:"starts_at,omitempty"`
	EndsAt          time.Time           `json:"ends_at,omitempty"`
	Focus           string              `json:"focus,omitempty"`
	Status          types.SessionStatus `gorm:"default:'SCHEDULED'" json:"status,omitempty"`
	CreatedBy       uint                `json:"created_by,omitempty"`
	CalendarEventID *string             `json:"-"`

	Club *Club `gorm:"foreignKey:club_id" json:"-"`
	Team *Team `gorm:"foreignKey:team_id" json:"team,omitempty"`

	types.Timestamps
}

type Match struct {
	ID              uint              `gorm:"primarykey" json:"id"`
	ClubID          uint              `gorm:"index" json:"club_id,omitempty"`
	TeamID          uint              `gorm:"index" json:"team_id,omitempty"`
	Opponent        string            `json:"opponent,omitempty"`
	Venue           string            `json:"venue,omitempty"`
	KickoffAt       time.Time         `json:"kickoff_at,omitempty"`
	Competition     string            `json:"competition,omitempty"`
	Status          types.MatchStatus `gorm:"default:'SCHEDULED'" json:"status,omitempty"`
	HomeScore       *uint             `json:"home_score,omitempty"`
	AwayScore       *uint             `json:"away_score,omitempty"`
	CalendarEventID *string           `json:"-"`

	Club *Club `gorm:"foreignKey:club_id" json:"-"`
	Team *Team `gorm:"foreignKey:team_id" json:"team,omitempty"`

	types.Timestamps
}
