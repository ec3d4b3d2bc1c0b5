package models

import (
	"pitchconnect/src/types"
	"time"
)

type Announcement struct {
	ID          uint                     `gorm:"primarykey" json:"id"`
	ClubID      uint                     `gorm:"index" json:"club_id,omitempty"`
	TeamID      *uint                    `json:"team_id,omitempty"`
	AuthorID    uint                     `json:"author_id,omitempty"`
	Title       string                   `json:"title,omitempty"`
	Body        string                   `json:"body,omitempty"`
	Audience    string                   `gorm:"default:'club'" json:"audience,omitempty"`
	Status      types.AnnouncementStatus `gorm:"default:'DRAFT'" json:"status,omitempty"`
	PublishedAt *time.Time               `json:"published_at,omitempty"`

	Club   *Club `gorm:"foreignKey:club_id" json:"-"`
	Author *User `gorm:"foreignKey:author_id" json:"-"`

	types.Timestamps
}
