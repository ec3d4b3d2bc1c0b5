package models

import (
	"pitchconnect/src/types"
	"time"
)

type Contract struct {
	ID       uint                 `gorm:"primarykey" json:"id"`
	ClubID   uint                 `gorm:"index" json:"club_id,omitempty"`
	PlayerID uint                 `gorm:"index" json:"player_id,omitempty"`
	Role     string               `gorm:"default:'player'" json:"role,omitempty"`
	StartsAt time.Time            `json:"starts_at,omitempty"`
	EndsAt   time.Time            `json:"ends_at,omitempty"`
	Terms    *types.JSONB         `gorm:"type:jsonb" json:"terms,omitempty"`
	Status   types.ContractStatus `gorm:"default:'ACTIVE'" json:"status,omitempty"`
	SignedAt *time.Time           `json:"signed_at,omitempty"`

	Club   *Club `gorm:"foreignKey:club_id" json:"-"`
	Player *User `gorm:"foreignKey:player_id" json:"player,omitempty"`

	types.Timestamps
}
