package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("unsupported source type for JSONB")
	}
}

type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	valueString, err := json.Marshal(m)
	return string(valueString), err
}
func (m *Metadata) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported source type for Metadata")
	}
}

type Environment string

const (
	Production Environment = "production"
	Staging    Environment = "staging"
	Test       Environment = "test"
	Local      Environment = "local"
)

type Handler func(payload string)

// ErrorCode is the closed vocabulary every operation answers with.
type ErrorCode string

const (
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeForbidden     ErrorCode = "FORBIDDEN"
	CodeBadRequest    ErrorCode = "BAD_REQUEST"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeConflict      ErrorCode = "CONFLICT"
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)

func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// APIResponse is the uniform envelope returned by every operation.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Meta    any       `json:"meta,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type PageQuery struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// Capability names a permission evaluated against the club owning a resource.
type Capability string

const (
	CapManageClub          Capability = "manage-club"
	CapManageRequests      Capability = "manage-requests"
	CapManageJobs          Capability = "manage-jobs"
	CapManageMedia         Capability = "manage-media"
	CapViewMedia           Capability = "view-media"
	CapManageContracts     Capability = "manage-contracts"
	CapManageInjuries      Capability = "manage-injuries"
	CapManageAnnouncements Capability = "manage-announcements"
	CapManageTraining      Capability = "manage-training"
	CapViewStats           Capability = "view-stats"
)

type ClubRole string

const (
	ROLE_OWNER           ClubRole = "owner"
	ROLE_MANAGER         ClubRole = "manager"
	ROLE_HEAD_COACH      ClubRole = "head_coach"
	ROLE_ASSISTANT_COACH ClubRole = "assistant_coach"
	ROLE_COACH           ClubRole = "coach"
	ROLE_MEDICAL         ClubRole = "medical"
	ROLE_SCOUT           ClubRole = "scout"
	ROLE_MEDIA_OFFICER   ClubRole = "media_officer"
	ROLE_ANALYST         ClubRole = "analyst"
	ROLE_PLAYER          ClubRole = "player"
	ROLE_STAFF           ClubRole = "staff"
)

const ROLE_ADMIN = "admin"

type ClubStatus string

const (
	CLUB_PENDING  ClubStatus = "pending"
	CLUB_ACTIVE   ClubStatus = "active"
	CLUB_ARCHIVED ClubStatus = "archived"
)

type JoinRequestStatus string

const (
	REQUEST_PENDING   JoinRequestStatus = "PENDING"
	REQUEST_APPROVED  JoinRequestStatus = "APPROVED"
	REQUEST_REJECTED  JoinRequestStatus = "REJECTED"
	REQUEST_WITHDRAWN JoinRequestStatus = "WITHDRAWN"
	REQUEST_EXPIRED   JoinRequestStatus = "EXPIRED"
)

type JobStatus string

const (
	JOB_DRAFT     JobStatus = "DRAFT"
	JOB_PUBLISHED JobStatus = "PUBLISHED"
	JOB_CLOSED    JobStatus = "CLOSED"
	JOB_ARCHIVED  JobStatus = "ARCHIVED"
)

type ApplicationStatus string

const (
	APPLICATION_SUBMITTED   ApplicationStatus = "SUBMITTED"
	APPLICATION_SHORTLISTED ApplicationStatus = "SHORTLISTED"
	APPLICATION_ACCEPTED    ApplicationStatus = "ACCEPTED"
	APPLICATION_REJECTED    ApplicationStatus = "REJECTED"
	APPLICATION_WITHDRAWN   ApplicationStatus = "WITHDRAWN"
)

type MediaKind string

const (
	MEDIA_IMAGE    MediaKind = "image"
	MEDIA_VIDEO    MediaKind = "video"
	MEDIA_DOCUMENT MediaKind = "document"
)

type MediaVisibility string

const (
	VISIBILITY_PUBLIC  MediaVisibility = "public"
	VISIBILITY_CLUB    MediaVisibility = "club"
	VISIBILITY_TEAM    MediaVisibility = "team"
	VISIBILITY_PRIVATE MediaVisibility = "private"
)

type ProcessingStatus string

const (
	PROCESSING_PENDING    ProcessingStatus = "PENDING"
	PROCESSING_PROCESSING ProcessingStatus = "PROCESSING"
	PROCESSING_READY      ProcessingStatus = "READY"
	PROCESSING_FAILED     ProcessingStatus = "FAILED"
)

type AnnouncementStatus string

const (
	ANNOUNCEMENT_DRAFT     AnnouncementStatus = "DRAFT"
	ANNOUNCEMENT_PUBLISHED AnnouncementStatus = "PUBLISHED"
	ANNOUNCEMENT_ARCHIVED  AnnouncementStatus = "ARCHIVED"
)

type ContractStatus string

const (
	CONTRACT_DRAFT      ContractStatus = "DRAFT"
	CONTRACT_ACTIVE     ContractStatus = "ACTIVE"
	CONTRACT_TERMINATED ContractStatus = "TERMINATED"
	CONTRACT_EXPIRED    ContractStatus = "EXPIRED"
)

type InjurySeverity string

const (
	INJURY_MINOR    InjurySeverity = "minor"
	INJURY_MODERATE InjurySeverity = "moderate"
	INJURY_SEVERE   InjurySeverity = "severe"
)

type InjuryStatus string

const (
	INJURY_ACTIVE     InjuryStatus = "ACTIVE"
	INJURY_RECOVERING InjuryStatus = "RECOVERING"
	INJURY_RECOVERED  InjuryStatus = "RECOVERED"
)

type SessionStatus string

const (
	SESSION_SCHEDULED SessionStatus = "SCHEDULED"
	SESSION_COMPLETED SessionStatus = "COMPLETED"
	SESSION_CANCELED  SessionStatus = "CANCELED"
)

type MatchStatus string

const (
	MATCH_SCHEDULED MatchStatus = "SCHEDULED"
	MATCH_PLAYED    MatchStatus = "PLAYED"
	MATCH_POSTPONED MatchStatus = "POSTPONED"
	MATCH_CANCELED  MatchStatus = "CANCELED"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type RegisterUserRequestBody struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name,omitempty"`
}

type CreateClubRequestBody struct {
	Name         string `json:"name" binding:"required"`
	Sport        string `json:"sport" binding:"required"`
	About        string `json:"about,omitempty"`
	Country      string `json:"country,omitempty"`
	OwnerID      uint   `json:"owner,omitempty"`
	ContactEmail string `json:"email" binding:"required"`
}

type CreateTeamRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Sport    string `json:"sport,omitempty"`
	AgeGroup string `json:"age_group,omitempty"`
	ClubID   uint   `json:"club,omitempty"`
}

type AddMemberRequestBody struct {
	UserID uint     `json:"user" binding:"required"`
	Role   ClubRole `json:"role" binding:"required"`
}

type CreateJoinRequestBody struct {
	TeamID   uint    `json:"team" binding:"required"`
	Message  *string `json:"message,omitempty"`
	Position *string `json:"position,omitempty"`
}

type ReviewJoinRequestBody struct {
	Status      JoinRequestStatus `json:"status" binding:"required,oneof=APPROVED REJECTED"`
	ReviewNotes *string           `json:"review_notes,omitempty"`
}

type WithdrawJoinRequestBody struct {
	Reason *string `json:"reason,omitempty"`
}

type JoinRequestQueryFilters struct {
	Status string `form:"status,omitempty"`
	TeamID uint   `form:"team,omitempty"`
	From   string `form:"from,omitempty"`
	To     string `form:"to,omitempty"`
	Search string `form:"q,omitempty"`
}

type CreateJobRequestBody struct {
	Title          string  `json:"title" binding:"required"`
	Description    string  `json:"description" binding:"required"`
	Position       string  `json:"position" binding:"required"`
	EmploymentType string  `json:"employment_type,omitempty"`
	Deadline       *string `json:"deadline,omitempty" binding:"omitempty,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
	Publish        bool    `json:"publish,omitempty"`
}

type UpdateJobRequestBody struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	Position       *string `json:"position,omitempty"`
	EmploymentType *string `json:"employment_type,omitempty"`
	Deadline       *string `json:"deadline,omitempty" binding:"omitempty,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type JobQueryFilters struct {
	Status string `form:"status,omitempty"`
	Search string `form:"q,omitempty"`
}

type CreateApplicationRequestBody struct {
	CoverLetter string  `json:"cover_letter,omitempty"`
	ResumeURL   *string `json:"resume_url,omitempty"`
}

type ReviewApplicationRequestBody struct {
	Status      ApplicationStatus `json:"status" binding:"required,oneof=SHORTLISTED ACCEPTED REJECTED"`
	ReviewNotes *string           `json:"review_notes,omitempty"`
}

type CreateMediaRequestBody struct {
	Title       string          `json:"title" binding:"required"`
	Kind        MediaKind       `json:"kind" binding:"required,oneof=image video document"`
	ContentType string          `json:"content_type" binding:"required"`
	SizeBytes   int64           `json:"size_bytes,omitempty"`
	TeamID      *uint           `json:"team,omitempty"`
	Visibility  MediaVisibility `json:"visibility,omitempty"`
}

type UpdateMediaRequestBody struct {
	Title      *string          `json:"title,omitempty"`
	Visibility *MediaVisibility `json:"visibility,omitempty"`
	TeamID     *uint            `json:"team,omitempty"`
}

type BatchMediaRequestBody struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

type BatchVisibilityRequestBody struct {
	IDs        []uint          `json:"ids" binding:"required,min=1"`
	Visibility MediaVisibility `json:"visibility" binding:"required,oneof=public club team private"`
}

type MediaQueryFilters struct {
	Kind       string `form:"kind,omitempty"`
	Visibility string `form:"visibility,omitempty"`
	TeamID     uint   `form:"team,omitempty"`
	Search     string `form:"q,omitempty"`
}

type ProcessingWebhookBody struct {
	MediaID uint             `json:"media_id" binding:"required"`
	Status  ProcessingStatus `json:"status" binding:"required,oneof=PROCESSING READY FAILED"`
	Output  *JSONB           `json:"output,omitempty"`
}

type CreateAnnouncementRequestBody struct {
	Title    string `json:"title" binding:"required"`
	Body     string `json:"body" binding:"required"`
	TeamID   *uint  `json:"team,omitempty"`
	Audience string `json:"audience,omitempty"`
	Publish  bool   `json:"publish,omitempty"`
}

type UpdateAnnouncementRequestBody struct {
	Title    *string `json:"title,omitempty"`
	Body     *string `json:"body,omitempty"`
	Audience *string `json:"audience,omitempty"`
}

type CreateContractRequestBody struct {
	PlayerID uint   `json:"player" binding:"required"`
	Role     string `json:"role,omitempty"`
	StartsAt string `json:"starts_at" binding:"required" time_format:"2006-01-02 15:04:05 -07:00"`
	EndsAt   string `json:"ends_at" binding:"required,gtdate=StartsAt" time_format:"2006-01-02 15:04:05 -07:00"`
	Terms    *JSONB `json:"terms,omitempty"`
}

type UpdateContractRequestBody struct {
	EndsAt *string `json:"ends_at,omitempty" binding:"omitempty,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
	Terms  *JSONB  `json:"terms,omitempty"`
}

type ReportInjuryRequestBody struct {
	PlayerID       uint           `json:"player" binding:"required"`
	BodyPart       string         `json:"body_part" binding:"required"`
	Severity       InjurySeverity `json:"severity" binding:"required,oneof=minor moderate severe"`
	Description    string         `json:"description,omitempty"`
	OccurredAt     string         `json:"occurred_at" binding:"required" time_format:"2006-01-02 15:04:05 -07:00"`
	ExpectedReturn *string        `json:"expected_return,omitempty" binding:"omitempty,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type UpdateInjuryRequestBody struct {
	Status         InjuryStatus `json:"status" binding:"required,oneof=RECOVERING RECOVERED"`
	ExpectedReturn *string      `json:"expected_return,omitempty" binding:"omitempty,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
	Notes          *string      `json:"notes,omitempty"`
}

type CreateSessionRequestBody struct {
	TeamID   uint   `json:"team" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Location string `json:"location,omitempty"`
	StartsAt string `json:"starts_at" binding:"required,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndsAt   string `json:"ends_at" binding:"required,gtdate=StartsAt" time_format:"2006-01-02 15:04:05 -07:00"`
	Focus    string `json:"focus,omitempty"`
}

type CreateMatchRequestBody struct {
	TeamID      uint   `json:"team" binding:"required"`
	Opponent    string `json:"opponent" binding:"required"`
	Venue       string `json:"venue,omitempty"`
	KickoffAt   string `json:"kickoff_at" binding:"required,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
	Competition string `json:"competition,omitempty"`
}

type RecordResultRequestBody struct {
	HomeScore uint `json:"home_score"`
	AwayScore uint `json:"away_score"`
}

// JoinRequestStats is the aggregate payload for the requests dashboard.
type JoinRequestStats struct {
	Total            int64                       `json:"total"`
	ByStatus         map[JoinRequestStatus]int64 `json:"by_status"`
	ApprovalRate     float64                     `json:"approval_rate"`
	AvgResponseHours float64                     `json:"avg_response_hours"`
}

type MediaStats struct {
	Total        int64               `json:"total"`
	StorageBytes int64               `json:"storage_bytes"`
	ByKind       map[MediaKind]int64 `json:"by_kind"`
}

type InjuryRiskSummary struct {
	PlayerID        uint     `json:"player_id"`
	RiskScore       float64  `json:"risk_score"`
	RiskCategory    string   `json:"risk_category"`
	Recommendations []string `json:"recommendations"`
}
