package models

import (
	"pitchconnect/src/types"
	"time"
)

type JobPosting struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	ClubID         uint            `gorm:"index" json:"club_id,omitempty"`
	Title          string          `json:"title,omitempty"`
	Description    string          `json:"description,omitempty"`
	Position       string          `json:"position,omitempty"`
	EmploymentType string          `json:"employment_type,omitempty"`
	Status         types.JobStatus `gorm:"default:'DRAFT'" json:"status,omitempty"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
	CreatedBy      uint            `json:"created_by,omitempty"`

	Club         *Club            `gorm:"foreignKey:club_id" json:"-"`
	Creator      *User            `gorm:"foreignKey:created_by" json:"-"`
	Applications []JobApplication `gorm:"foreignKey:job_id" json:"applications,omitempty"`

	types.Timestamps
}

type JobApplication struct {
	ID          uint                    `gorm:"primarykey" json:"id"`
	JobID       uint                    `gorm:"uniqueIndex:job_applicant" json:"job_id,omitempty"`
	ApplicantID uint                    `gorm:"uniqueIndex:job_applicant" json:"applicant_id,omitempty"`
	CoverLetter string                  `json:"cover_letter,omitempty"`
	ResumeURL   *string                 `json:"resume_url,omitempty"`
	Status      types.ApplicationStatus `gorm:"default:'SUBMITTED'" json:"status,omitempty"`
	ReviewedBy  *uint                   `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time              `json:"reviewed_at,omitempty"`
	ReviewNotes *string                 `json:"review_notes,omitempty"`

	Job       *JobPosting `gorm:"foreignKey:job_id" json:"job,omitempty"`
	Applicant *User       `gorm:"foreignKey:applicant_id" json:"applicant,omitempty"`

	types.Timestamps
}
