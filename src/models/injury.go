package models

import (
	"pitchconnect/src/types"
	"time"
)

type Injury struct {
	ID             uint                 `gorm:"primarykey" json:"id"`
	ClubID         uint                 `gorm:"index" json:"club_id,omitempty"`
	PlayerID       uint                 `gorm:"index" json:"player_id,omitempty"`
	ReportedBy     uint                 `json:"reported_by,omitempty"`
	BodyPart       string               `json:"body_part,omitempty"`
	Severity       types.InjurySeverity `json:"severity,omitempty"`
	Description    string               `json:"description,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at,omitempty"`
	ExpectedReturn *time.Time           `json:"expected_return,omitempty"`
	Status         types.InjuryStatus   `gorm:"default:'ACTIVE'" json:"status,omitempty"`
	RecoveredAt    *time.Time           `json:"recovered_at,omitempty"`
	Notes          *string              `json:"notes,omitempty"`

	Club     *Club `gorm:"foreignKey:club_id" json:"-"`
	Player   *User `gorm:"foreignKey:player_id" json:"player,omitempty"`
	Reporter *User `gorm:"foreignKey:reported_by" json:"-"`

	types.Timestamps
}
