package utils

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"pitchconnect/src/config"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var (
	// ErrForbidden means the caller holds no role granting the capability
	// in the club owning the resource.
	ErrForbidden = errors.New("insufficient role for this action")
	// ErrNotMember means the caller has no active membership in the club.
	ErrNotMember = errors.New("not an active member of this club")
	// ErrPrecondition means the resource was not in the status the
	// transition requires.
	ErrPrecondition = errors.New("resource is not in a valid status for this action")
)

// WithSuffix appends the environment name to a queue or topic so staging
// and production never share one.
func WithSuffix(name string) string {
	env := os.Getenv("API_ENV")
	if env == "" || env == string(types.Production) {
		return name
	}
	return fmt.Sprintf("%s-%s", name, env)
}

func RespondData(ctx *gin.Context, status int, data any) {
	ctx.JSON(status, types.APIResponse{Success: true, Data: data})
}

func RespondPage(ctx *gin.Context, data any, meta types.PageMeta) {
	ctx.JSON(200, types.APIResponse{Success: true, Data: data, Meta: meta})
}

func RespondError(ctx *gin.Context, code types.ErrorCode, message string) {
	ctx.JSON(code.HTTPStatus(), types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: code, Message: message},
	})
}

// RespondAuthzError maps a capability check failure onto the envelope.
func RespondAuthzError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotMember), errors.Is(err, ErrForbidden):
		RespondError(ctx, types.CodeForbidden, err.Error())
	case errors.Is(err, ErrPrecondition):
		RespondError(ctx, types.CodeBadRequest, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		RespondError(ctx, types.CodeNotFound, "resource not found")
	default:
		log.Printf("internal error: %s\n", err.Error())
		RespondError(ctx, types.CodeInternalError, "something went wrong")
	}
}

// capabilityRoles is the authorization table. A capability is granted when
// the caller's membership role in the owning club appears in the row.
var capabilityRoles = map[types.Capability][]types.ClubRole{
	types.CapManageClub:          {types.ROLE_OWNER, types.ROLE_MANAGER},
	types.CapManageRequests:      {types.ROLE_OWNER, types.ROLE_MANAGER, types.ROLE_HEAD_COACH},
	types.CapManageJobs:          {types.ROLE_OWNER, types.ROLE_MANAGER},
	types.CapManageMedia:         {types.ROLE_OWNER, types.ROLE_MANAGER, types.ROLE_MEDIA_OFFICER},
	types.CapViewMedia:           {types.ROLE_OWNER, types.ROLE_MANAGER, types.ROLE_HEAD_COACH, types.ROLE_ASSISTANT_COACH, types.ROLE_COACH, types.ROLE_MEDICAL, types.ROLE_SCOUT, types.ROLE_MEDIA_OFFICER, types.ROLE_ANALYST, types.ROLE_PLAYER, types.ROLE_STAFF},
	types.CapManageContracts:     {types.ROLE_OWNER, types.ROLE_MANAGER},
	types.CapManageInjuries:      {types.ROLE_OWNER, types.ROLE_MANAGER, types.ROLE_MEDICAL},
	types.CapManageAnnouncements: {types.ROLE_OWNER, types.ROLE_MANAGER, types.ROLE_HEAD_COACH, types.ROLE_MEDIA_OFFICER},
	types.CapManageTraining:      {types.ROLE_OWNER, types.ROLE_MANAGER, types.ROLE_HEAD_COACH, types.ROLE_ASSISTANT_COACH, types.ROLE_COACH},
	types.CapViewStats:           {types.ROLE_OWNER, types.ROLE_MANAGER, types.ROLE_HEAD_COACH, types.ROLE_ANALYST},
}

func RoleHasCapability(role types.ClubRole, cap types.Capability) bool {
	for _, r := range capabilityRoles[cap] {
		if r == role {
			return true
		}
	}
	return false
}

// RequireCapability authorizes userID for cap inside the club owning the
// resource. Platform admins bypass the membership check.
func RequireCapability(tx *gorm.DB, userID uint, clubID uint, cap types.Capability) (types.ClubRole, error) {
	var user models.User
	if err := tx.Model(&models.User{}).Where(&models.User{ID: userID}).First(&user).Error; err == nil {
		if user.Role == types.ROLE_ADMIN {
			return types.ClubRole(types.ROLE_ADMIN), nil
		}
	}
	var membership models.Membership
	err := tx.
		Model(&models.Membership{}).
		Where("club_id = ? AND user_id = ? AND is_active = ?", clubID, userID, true).
		First(&membership).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotMember
		}
		return "", err
	}
	if !RoleHasCapability(membership.Role, cap) {
		return membership.Role, ErrForbidden
	}
	return membership.Role, nil
}

// RequireMember passes for any active membership, regardless of role.
// Member-visible reads gate on this instead of a capability.
func RequireMember(tx *gorm.DB, userID uint, clubID uint) (types.ClubRole, error) {
	var user models.User
	if err := tx.Model(&models.User{}).Where(&models.User{ID: userID}).First(&user).Error; err == nil {
		if user.Role == types.ROLE_ADMIN {
			return types.ClubRole(types.ROLE_ADMIN), nil
		}
	}
	var membership models.Membership
	err := tx.
		Model(&models.Membership{}).
		Where("club_id = ? AND user_id = ? AND is_active = ?", clubID, userID, true).
		First(&membership).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotMember
		}
		return "", err
	}
	return membership.Role, nil
}

// GuardedTransition flips a row's status only when it still holds the
// expected one. The WHERE clause carries the precondition so two
// concurrent reviews cannot both pass it.
func GuardedTransition(tx *gorm.DB, model any, id uint, from []string, updates map[string]any) error {
	res := tx.Model(model).Where("id = ? AND status IN (?)", id, from).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		tx.Model(model).Where("id = ?", id).Count(&count)
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrPrecondition
	}
	return nil
}

func ParsePageQuery(ctx *gin.Context) types.PageQuery {
	var q types.PageQuery
	ctx.ShouldBindQuery(&q)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		q.SortOrder = "desc"
	}
	return q
}

// Paginate applies offset pagination with a whitelisted sort column.
func Paginate(q types.PageQuery, sortable ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		sortBy := "created_at"
		for _, col := range sortable {
			if q.SortBy == col {
				sortBy = col
				break
			}
		}
		return db.
			Order(fmt.Sprintf("%s %s", sortBy, q.SortOrder)).
			Offset((q.Page - 1) * q.Limit).
			Limit(q.Limit)
	}
}

// NewPageMeta derives hasMore from the rows actually returned, so a short
// final page and an out-of-range page both report false.
func NewPageMeta(q types.PageQuery, total int64, returned int) types.PageMeta {
	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(q.Limit)))
	}
	hasMore := int64((q.Page-1)*q.Limit+returned) < total
	return types.PageMeta{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    hasMore,
	}
}

// InvalidateClubCache drops the cached list/detail entries for a club
// resource after a successful mutation.
func InvalidateClubCache(clubID uint, resource string, ids ...uint) {
	keys := []string{
		fmt.Sprintf("club:%d:%s", clubID, resource),
		fmt.Sprintf("club:%d:%s:stats", clubID, resource),
	}
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf("club:%d:%s:%d", clubID, resource, id))
	}
	lib.RedisDrop(keys...)
}

// CreateNewClub provisions a club with its slug and the owner's
// membership in one transaction.
func CreateNewClub(body *types.CreateClubRequestBody) (*models.Club, error) {
	club := models.Club{
		Name:         body.Name,
		Sport:        body.Sport,
		About:        body.About,
		Country:      body.Country,
		OwnerID:      body.OwnerID,
		ContactEmail: body.ContactEmail,
		Slug:         slug.Make(body.Name),
	}
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&club).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		membership := models.Membership{
			ClubID:   club.ID,
			UserID:   body.OwnerID,
			Role:     types.ROLE_OWNER,
			IsActive: true,
			JoinedAt: &now,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", body.OwnerID).Update("active_club", club.ID).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &club, nil
}

func ParseTimeInput(value string) (time.Time, error) {
	t, err := time.Parse(config.TIME_PARSE_FORMAT, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ComputeJoinRequestStats aggregates the requests dashboard numbers.
// ApprovalRate is the percentage of reviewed rows that were approved;
// averages run over reviewed rows only.
func ComputeJoinRequestStats(rows []models.JoinRequest) types.JoinRequestStats {
	stats := types.JoinRequestStats{
		Total:    int64(len(rows)),
		ByStatus: map[types.JoinRequestStatus]int64{},
	}
	var reviewed, approved int64
	var responseHours float64
	for _, r := range rows {
		stats.ByStatus[r.Status]++
		switch r.Status {
		case types.REQUEST_APPROVED:
			approved++
			reviewed++
		case types.REQUEST_REJECTED:
			reviewed++
		}
		if r.ReviewedAt != nil {
			responseHours += r.ReviewedAt.Sub(r.CreatedAt).Hours()
		}
	}
	if reviewed > 0 {
		stats.ApprovalRate = float64(approved) / float64(reviewed) * 100
		stats.AvgResponseHours = responseHours / float64(reviewed)
	}
	return stats
}

func ComputeMediaStats(rows []models.MediaAsset) types.MediaStats {
	stats := types.MediaStats{
		Total:  int64(len(rows)),
		ByKind: map[types.MediaKind]int64{},
	}
	for _, m := range rows {
		stats.ByKind[m.Kind]++
		stats.StorageBytes += m.SizeBytes
	}
	return stats
}

var severityWeights = map[types.InjurySeverity]float64{
	types.INJURY_MINOR:    0.1,
	types.INJURY_MODERATE: 0.25,
	types.INJURY_SEVERE:   0.5,
}

// ComputeInjuryRisk scores a player from their injury history. Recent and
// still-active injuries weigh more than recovered ones.
func ComputeInjuryRisk(playerID uint, injuries []models.Injury, now time.Time) types.InjuryRiskSummary {
	var score float64
	var active int
	for _, inj := range injuries {
		w := severityWeights[inj.Severity]
		ageDays := now.Sub(inj.OccurredAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		recency := 1.0 / (1.0 + ageDays/90)
		if inj.Status != types.INJURY_RECOVERED {
			active++
			recency = 1.0
		}
		score += w * recency
	}
	if score > 1 {
		score = 1
	}
	summary := types.InjuryRiskSummary{
		PlayerID:  playerID,
		RiskScore: score,
	}
	switch {
	case score >= 0.75:
		summary.RiskCategory = "CRITICAL"
		summary.Recommendations = []string{
			"Suspend match participation pending medical clearance",
			"Schedule a full medical assessment",
		}
	case score >= 0.5:
		summary.RiskCategory = "HIGH"
		summary.Recommendations = []string{
			"Reduce training load",
			"Increase recovery monitoring frequency",
		}
	case score >= 0.25:
		summary.RiskCategory = "MEDIUM"
		summary.Recommendations = []string{
			"Monitor load during high-intensity sessions",
		}
	default:
		summary.RiskCategory = "LOW"
		summary.Recommendations = []string{}
	}
	if active > 0 && summary.RiskCategory == "LOW" {
		summary.RiskCategory = "MEDIUM"
		summary.Recommendations = append(summary.Recommendations, "Player has an open injury record")
	}
	return summary
}
