package utils

import (
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"pitchconnect/src/models"
	"pitchconnect/src/types"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestRoleHasCapability(t *testing.T) {
	cases := []struct {
		role    types.ClubRole
		cap     types.Capability
		granted bool
	}{
		{types.ROLE_OWNER, types.CapManageClub, true},
		{types.ROLE_OWNER, types.CapManageRequests, true},
		{types.ROLE_MANAGER, types.CapManageJobs, true},
		{types.ROLE_HEAD_COACH, types.CapManageRequests, true},
		{types.ROLE_HEAD_COACH, types.CapManageJobs, false},
		{types.ROLE_MEDICAL, types.CapManageInjuries, true},
		{types.ROLE_MEDICAL, types.CapManageContracts, false},
		{types.ROLE_MEDIA_OFFICER, types.CapManageMedia, true},
		{types.ROLE_PLAYER, types.CapViewMedia, true},
		{types.ROLE_PLAYER, types.CapManageRequests, false},
		{types.ROLE_PLAYER, types.CapViewStats, false},
		{types.ROLE_ANALYST, types.CapViewStats, true},
		{types.ROLE_STAFF, types.CapManageClub, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.granted, RoleHasCapability(c.role, c.cap), "role %s cap %s", c.role, c.cap)
	}
}

func TestNewPageMeta(t *testing.T) {
	q := types.PageQuery{Page: 1, Limit: 20}

	meta := NewPageMeta(q, 0, 0)
	assert.Equal(t, 0, meta.TotalPages)
	assert.False(t, meta.HasMore)

	meta = NewPageMeta(q, 45, 20)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasMore)

	// exact last page
	meta = NewPageMeta(types.PageQuery{Page: 3, Limit: 20}, 45, 5)
	assert.False(t, meta.HasMore)

	// out-of-range page returns no rows and no more pages
	meta = NewPageMeta(types.PageQuery{Page: 9, Limit: 20}, 45, 0)
	assert.False(t, meta.HasMore)
}

func TestParsePageQueryDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest("GET", "/?page=0&limit=500&sortOrder=sideways", nil)

	q := ParsePageQuery(ctx)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 100, q.Limit)
	assert.Equal(t, "desc", q.SortOrder)

	ctx.Request = httptest.NewRequest("GET", "/", nil)
	q = ParsePageQuery(ctx)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
}

func TestWithSuffix(t *testing.T) {
	prev := os.Getenv("API_ENV")
	defer os.Setenv("API_ENV", prev)

	os.Unsetenv("API_ENV")
	assert.Equal(t, "club-events", WithSuffix("club-events"))

	os.Setenv("API_ENV", "production")
	assert.Equal(t, "club-events", WithSuffix("club-events"))

	os.Setenv("API_ENV", "staging")
	assert.Equal(t, "club-events-staging", WithSuffix("club-events"))
}

func TestComputeJoinRequestStats(t *testing.T) {
	stats := ComputeJoinRequestStats(nil)
	assert.Equal(t, int64(0), stats.Total)
	assert.Equal(t, float64(0), stats.ApprovalRate)
	assert.Equal(t, float64(0), stats.AvgResponseHours)

	created := time.Now().UTC().Add(-48 * time.Hour)
	reviewed := created.Add(12 * time.Hour)
	rows := []models.JoinRequest{
		{Status: types.REQUEST_PENDING, Timestamps: types.Timestamps{CreatedAt: created}},
		{Status: types.REQUEST_APPROVED, ReviewedAt: &reviewed, Timestamps: types.Timestamps{CreatedAt: created}},
		{Status: types.REQUEST_REJECTED, ReviewedAt: &reviewed, Timestamps: types.Timestamps{CreatedAt: created}},
		{Status: types.REQUEST_WITHDRAWN, Timestamps: types.Timestamps{CreatedAt: created}},
	}
	stats = ComputeJoinRequestStats(rows)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[types.REQUEST_APPROVED])
	assert.InDelta(t, 50.0, stats.ApprovalRate, 0.001)
	assert.InDelta(t, 12.0, stats.AvgResponseHours, 0.001)

	// one approved, nothing rejected
	rows = []models.JoinRequest{
		{Status: types.REQUEST_APPROVED, ReviewedAt: &reviewed, Timestamps: types.Timestamps{CreatedAt: created}},
	}
	stats = ComputeJoinRequestStats(rows)
	assert.InDelta(t, 100.0, stats.ApprovalRate, 0.001)
}

func TestComputeMediaStats(t *testing.T) {
	rows := []models.MediaAsset{
		{Kind: types.MEDIA_VIDEO, SizeBytes: 1000},
		{Kind: types.MEDIA_VIDEO, SizeBytes: 2000},
		{Kind: types.MEDIA_IMAGE, SizeBytes: 10},
	}
	stats := ComputeMediaStats(rows)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(3010), stats.StorageBytes)
	assert.Equal(t, int64(2), stats.ByKind[types.MEDIA_VIDEO])
}

func TestComputeInjuryRisk(t *testing.T) {
	now := time.Now().UTC()

	summary := ComputeInjuryRisk(1, nil, now)
	assert.Equal(t, "LOW", summary.RiskCategory)
	assert.Equal(t, float64(0), summary.RiskScore)

	// one fresh severe injury sits right on the HIGH threshold
	summary = ComputeInjuryRisk(1, []models.Injury{
		{Severity: types.INJURY_SEVERE, Status: types.INJURY_ACTIVE, OccurredAt: now},
	}, now)
	assert.Equal(t, "HIGH", summary.RiskCategory)
	assert.InDelta(t, 0.5, summary.RiskScore, 0.001)

	// stacked active severe injuries cap at 1
	summary = ComputeInjuryRisk(1, []models.Injury{
		{Severity: types.INJURY_SEVERE, Status: types.INJURY_ACTIVE, OccurredAt: now},
		{Severity: types.INJURY_SEVERE, Status: types.INJURY_ACTIVE, OccurredAt: now},
		{Severity: types.INJURY_SEVERE, Status: types.INJURY_RECOVERING, OccurredAt: now},
	}, now)
	assert.Equal(t, "CRITICAL", summary.RiskCategory)
	assert.Equal(t, float64(1), summary.RiskScore)
	assert.NotEmpty(t, summary.Recommendations)

	// an old recovered injury decays with age
	summary = ComputeInjuryRisk(1, []models.Injury{
		{Severity: types.INJURY_SEVERE, Status: types.INJURY_RECOVERED, OccurredAt: now.Add(-45 * 24 * time.Hour)},
	}, now)
	assert.Equal(t, "MEDIUM", summary.RiskCategory)

	// a lingering minor injury keeps the player off LOW
	summary = ComputeInjuryRisk(1, []models.Injury{
		{Severity: types.INJURY_MINOR, Status: types.INJURY_ACTIVE, OccurredAt: now.Add(-300 * 24 * time.Hour)},
	}, now)
	assert.Equal(t, "MEDIUM", summary.RiskCategory)
	assert.Less(t, summary.RiskScore, 0.25)
}

func TestGuardedTransition(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file:guarded?mode=memory&cache=shared"))
	assert.Nil(t, err)
	assert.Nil(t, d.AutoMigrate(&models.JoinRequest{}))

	request := models.JoinRequest{
		ClubID:    1,
		TeamID:    1,
		PlayerID:  1,
		Status:    types.REQUEST_PENDING,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	assert.Nil(t, d.Create(&request).Error)

	from := []string{string(types.REQUEST_PENDING)}
	err = GuardedTransition(d, &models.JoinRequest{}, request.ID, from, map[string]any{"status": types.REQUEST_APPROVED})
	assert.Nil(t, err)

	var fresh models.JoinRequest
	d.First(&fresh, request.ID)
	assert.Equal(t, types.REQUEST_APPROVED, fresh.Status)

	err = GuardedTransition(d, &models.JoinRequest{}, request.ID, from, map[string]any{"status": types.REQUEST_REJECTED})
	assert.ErrorIs(t, err, ErrPrecondition)

	err = GuardedTransition(d, &models.JoinRequest{}, 999999, from, map[string]any{"status": types.REQUEST_APPROVED})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
