package models

import "pitchconnect/src/types"

type Team struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `json:"name,omitempty"`
	Sport    string `json:"sport,omitempty"`
	AgeGroup string `json:"age_group,omitempty"`
	ClubID   uint   `json:"club_id,omitempty"`
	Status   string `gorm:"default:'active'" json:"status,omitempty"`

	Club    *Club   `gorm:"foreignKey:club_id" json:"-"`
	Players []*User `gorm:"many2many:team_players;References:ID;joinReferences:UserID" json:"players,omitempty"`

	types.Timestamps
}

type TeamPlayer struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	TeamID      uint   `gorm:"uniqueIndex:team_player" json:"team_id,omitempty"`
	UserID      uint   `gorm:"uniqueIndex:team_player" json:"player_id,omitempty"`
	Position    string `json:"position,omitempty"`
	SquadNumber *uint  `json:"squad_number,omitempty"`
	Status      string `gorm:"default:'active'" json:"status,omitempty"`

	types.Timestamps
}
