package models

import (
	"pitchconnect/src/types"
	"time"
)

type Club struct {
	ID           uint             `gorm:"primarykey;uniqueIndex:slugid" json:"id"`
	Name         string           `json:"name,omitempty"`
	Sport        string           `json:"sport,omitempty"`
	About        string           `json:"about,omitempty"`
	Country      string           `json:"country,omitempty"`
	OwnerID      uint             `json:"owner_id,omitempty"`
	ContactEmail string           `json:"email,omitempty"`
	Status       types.ClubStatus `gorm:"default:'active'" json:"status,omitempty"`
	Verified     bool             `gorm:"default:false" json:"verified,omitempty"`
	CalendarID   *string          `json:"-"`
	Metadata     *types.Metadata  `gorm:"type:jsonb" json:"metadata,omitempty"`
	Slug         string           `gorm:"uniqueIndex:slugid" json:"slug"`

	Teams []Team `gorm:"foreignKey:club_id" json:"-"`
	Owner User   `gorm:"foreignKey:owner_id" json:"-"`

	types.Timestamps
}

// Membership binds a user to a club with a role. Authorization is always
// evaluated against the club owning the target resource.
type Membership struct {
	ID       uint           `gorm:"primarykey" json:"id"`
	ClubID   uint           `gorm:"uniqueIndex:club_member" json:"club_id,omitempty"`
	UserID   uint           `gorm:"uniqueIndex:club_member" json:"user_id,omitempty"`
	Role     types.ClubRole `json:"role,omitempty"`
	IsActive bool           `gorm:"default:true" json:"is_active"`
	JoinedAt *time.Time     `json:"joined_at,omitempty"`

	Club Club `gorm:"foreignKey:club_id" json:"-"`
	User User `gorm:"foreignKey:user_id" json:"-"`

	types.Timestamps
}
