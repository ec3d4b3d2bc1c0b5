package models

import "pitchconnect/src/types"

type MediaAsset struct {
	ID               uint                   `gorm:"primarykey" json:"id"`
	ClubID           uint                   `gorm:"index" json:"club_id,omitempty"`
	TeamID           *uint                  `json:"team_id,omitempty"`
	UploadedBy       uint                   `json:"uploaded_by,omitempty"`
	Title            string                 `json:"title,omitempty"`
	Kind             types.MediaKind        `json:"kind,omitempty"`
	ObjectKey        string                 `gorm:"uniqueIndex" json:"object_key,omitempty"`
	SizeBytes        int64                  `json:"size_bytes,omitempty"`
	ContentType      string                 `json:"content_type,omitempty"`
	Visibility       types.MediaVisibility  `gorm:"default:'club'" json:"visibility,omitempty"`
	ProcessingStatus types.ProcessingStatus `gorm:"default:'PENDING'" json:"processing_status,omitempty"`
	Output           *types.JSONB           `gorm:"type:jsonb" json:"output,omitempty"`

	Club     *Club `gorm:"foreignKey:club_id" json:"-"`
	Uploader *User `gorm:"foreignKey:uploaded_by" json:"-"`

	types.Timestamps
}
