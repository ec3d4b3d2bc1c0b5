package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"pitchconnect/src/db"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB *gorm.DB

	Owner    models.User
	Manager  models.User
	Player   models.User
	Outsider models.User
	Club     models.Club
	Team     models.Team

	OwnerToken    string
	ManagerToken  string
	PlayerToken   string
	OutsiderToken string
}

var dbi *gorm.DB

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	registerValidators()

	os.Setenv("API_ENV", "local")
	os.Setenv("WEBHOOK_SECRET", "test-webhook-secret")
	os.Setenv("S3_MEDIA_BUCKET", "test-media")
	os.Setenv("AWS_REGION", "us-east-1")
	os.Setenv("AWS_ACCESS_KEY_ID", "test")
	os.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	d, err := gorm.Open(sqlite.Open("file:pitchconnect?mode=memory&cache=shared"))
	if err != nil {
		log.Fatalf("error opening test database: %s", err.Error())
	}
	db.NewDB(d)
	s.DB = d
	dbi = d

	err = dbi.AutoMigrate(
		&models.User{},
		&models.Club{},
		&models.Membership{},
		&models.Team{},
		&models.TeamPlayer{},
		&models.JoinRequest{},
		&models.JobPosting{},
		&models.JobApplication{},
		&models.MediaAsset{},
		&models.Announcement{},
		&models.Contract{},
		&models.Injury{},
		&models.TrainingSession{},
		&models.Match{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	s.Owner = models.User{Name: "Olivia Owner", Email: "owner@example.com", UID: "uid-owner"}
	s.Manager = models.User{Name: "Mara Manager", Email: "manager@example.com", UID: "uid-manager"}
	s.Player = models.User{Name: "Pat Player", Email: "player@example.com", UID: "uid-player"}
	s.Outsider = models.User{Name: "Oscar Outsider", Email: "outsider@example.com", UID: "uid-outsider"}
	for _, u := range []*models.User{&s.Owner, &s.Manager, &s.Player, &s.Outsider} {
		if err := dbi.Create(u).Error; err != nil {
			log.Fatalf("Could not create user: %s\n", err.Error())
		}
	}

	s.Club = models.Club{
		Name:    "Riverside FC",
		Sport:   "football",
		OwnerID: s.Owner.ID,
		Slug:    "riverside-fc",
	}
	if err := dbi.Create(&s.Club).Error; err != nil {
		log.Fatalf("Could not create club: %s\n", err.Error())
	}
	now := time.Now().UTC()
	memberships := []models.Membership{
		{ClubID: s.Club.ID, UserID: s.Owner.ID, Role: types.ROLE_OWNER, IsActive: true, JoinedAt: &now},
		{ClubID: s.Club.ID, UserID: s.Manager.ID, Role: types.ROLE_MANAGER, IsActive: true, JoinedAt: &now},
		{ClubID: s.Club.ID, UserID: s.Player.ID, Role: types.ROLE_PLAYER, IsActive: true, JoinedAt: &now},
	}
	for _, m := range memberships {
		if err := dbi.Create(&m).Error; err != nil {
			log.Fatalf("Could not create membership: %s\n", err.Error())
		}
	}
	s.Team = models.Team{Name: "First Team", Sport: "football", ClubID: s.Club.ID}
	if err := dbi.Create(&s.Team).Error; err != nil {
		log.Fatalf("Could not create team: %s\n", err.Error())
	}

	s.OwnerToken = s.tokenFor(s.Owner)
	s.ManagerToken = s.tokenFor(s.Manager)
	s.PlayerToken = s.tokenFor(s.Player)
	s.OutsiderToken = s.tokenFor(s.Outsider)
}

func (s *TestSuite) tokenFor(user models.User) string {
	token, err := utils.GenerateJWT(user.Email, user.ID, user.ActiveClub)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	return token
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) newRouter() *gin.Engine {
	router := setupRouter()
	publicRoutes(router)
	authorizedRoutes(router)
	return router
}

func (s *TestSuite) request(router *gin.Engine, method, target, token string, body any) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.Nil(s.T(), err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, target, reader)
	assert.Nil(s.T(), err)
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
	sjson := w.Body.String()
	assert.False(s.T(), gjson.Get(sjson, "success").Bool())
	assert.Equal(s.T(), "INTERNAL_ERROR", gjson.Get(sjson, "error.code").String())
}

func (s *TestSuite) TestAuthRequired() {
	router := s.newRouter()

	s.Run("Should reject a request without a token", func() {
		w := s.request(router, "GET", "/api/v1/me", "", nil)
		assert.Equal(s.T(), 401, w.Code)
		sjson := w.Body.String()
		assert.False(s.T(), gjson.Get(sjson, "success").Bool())
		assert.Equal(s.T(), "UNAUTHORIZED", gjson.Get(sjson, "error.code").String())
	})

	s.Run("Should reject a bare bearer scheme", func() {
		req, err := http.NewRequest("GET", "/api/v1/me", nil)
		assert.Nil(s.T(), err)
		req.Header.Set("Authorization", "Bearer")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 401, w.Code)
		assert.Equal(s.T(), "UNAUTHORIZED", gjson.Get(w.Body.String(), "error.code").String())
	})

	s.Run("Should reject a garbage token", func() {
		w := s.request(router, "GET", "/api/v1/me", "not-a-real-token", nil)
		assert.Equal(s.T(), 401, w.Code)
		assert.Equal(s.T(), "UNAUTHORIZED", gjson.Get(w.Body.String(), "error.code").String())
	})

	s.Run("Should resolve the session for a valid token", func() {
		w := s.request(router, "GET", "/api/v1/me", s.OwnerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		sjson := w.Body.String()
		assert.True(s.T(), gjson.Get(sjson, "success").Bool())
		assert.Equal(s.T(), s.Owner.Email, gjson.Get(sjson, "data.email").String())
	})
}

func (s *TestSuite) TestForbiddenMutationLeavesNoTrace() {
	router := s.newRouter()

	var before int64
	dbi.Model(&models.JobPosting{}).Count(&before)

	body := types.CreateJobRequestBody{
		Title:       "Goalkeeper coach",
		Description: "Part time",
		Position:    "coach",
	}
	w := s.request(router, "POST", fmt.Sprintf("/api/v1/clubs/%d/jobs", s.Club.ID), s.PlayerToken, body)
	assert.Equal(s.T(), 403, w.Code)
	assert.Equal(s.T(), "FORBIDDEN", gjson.Get(w.Body.String(), "error.code").String())

	var after int64
	dbi.Model(&models.JobPosting{}).Count(&after)
	assert.Equal(s.T(), before, after)

	w = s.request(router, "POST", fmt.Sprintf("/api/v1/clubs/%d/jobs", s.Club.ID), s.OutsiderToken, body)
	assert.Equal(s.T(), 403, w.Code)
}

func (s *TestSuite) TestJoinRequestFlow() {
	router := s.newRouter()
	var requestId uint

	s.Run("Outsider can open a request against a team", func() {
		w := s.request(router, "POST", "/api/v1/requests", s.OutsiderToken, types.CreateJoinRequestBody{TeamID: s.Team.ID})
		assert.Equal(s.T(), 201, w.Code)
		sjson := w.Body.String()
		assert.Equal(s.T(), "PENDING", gjson.Get(sjson, "data.status").String())
		assert.Equal(s.T(), int64(s.Club.ID), gjson.Get(sjson, "data.club_id").Int())
		requestId = uint(gjson.Get(sjson, "data.id").Uint())
		assert.Greater(s.T(), requestId, uint(0))
	})

	s.Run("A second open request conflicts", func() {
		w := s.request(router, "POST", "/api/v1/requests", s.OutsiderToken, types.CreateJoinRequestBody{TeamID: s.Team.ID})
		assert.Equal(s.T(), 409, w.Code)
		assert.Equal(s.T(), "CONFLICT", gjson.Get(w.Body.String(), "error.code").String())
	})

	s.Run("A player role cannot list club requests", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/clubs/%d/requests", s.Club.ID), s.PlayerToken, nil)
		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("A manager can list club requests with paging meta", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/clubs/%d/requests", s.Club.ID), s.ManagerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		sjson := w.Body.String()
		assert.True(s.T(), gjson.Get(sjson, "success").Bool())
		assert.GreaterOrEqual(s.T(), gjson.Get(sjson, "meta.total").Int(), int64(1))
	})

	s.Run("Approving creates the roster spot in the same transaction", func() {
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/requests/%d/review", requestId), s.ManagerToken, types.ReviewJoinRequestBody{Status: types.REQUEST_APPROVED})
		assert.Equal(s.T(), 200, w.Code)
		sjson := w.Body.String()
		assert.Equal(s.T(), "APPROVED", gjson.Get(sjson, "data.status").String())
		assert.True(s.T(), gjson.Get(sjson, "data.team_player_created").Bool())

		var roster int64
		dbi.Model(&models.TeamPlayer{}).
			Where("team_id = ? AND user_id = ?", s.Team.ID, s.Outsider.ID).
			Count(&roster)
		assert.Equal(s.T(), int64(1), roster)
	})

	s.Run("Reviewing twice trips the status precondition", func() {
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/requests/%d/review", requestId), s.ManagerToken, types.ReviewJoinRequestBody{Status: types.REQUEST_REJECTED})
		assert.Equal(s.T(), 400, w.Code)
		assert.Equal(s.T(), "BAD_REQUEST", gjson.Get(w.Body.String(), "error.code").String())

		var request models.JoinRequest
		dbi.First(&request, requestId)
		assert.Equal(s.T(), types.REQUEST_APPROVED, request.Status)
	})

	s.Run("A rostered player cannot open another request", func() {
		w := s.request(router, "POST", "/api/v1/requests", s.OutsiderToken, types.CreateJoinRequestBody{TeamID: s.Team.ID})
		assert.Equal(s.T(), 409, w.Code)
	})

	s.Run("Only the requester may withdraw", func() {
		w := s.request(router, "POST", "/api/v1/requests", s.PlayerToken, types.CreateJoinRequestBody{TeamID: s.Team.ID})
		assert.Equal(s.T(), 201, w.Code)
		playerRequestId := gjson.Get(w.Body.String(), "data.id").Uint()

		w = s.request(router, "PUT", fmt.Sprintf("/api/v1/requests/%d/withdraw", playerRequestId), s.OutsiderToken, nil)
		assert.Equal(s.T(), 403, w.Code)

		w = s.request(router, "PUT", fmt.Sprintf("/api/v1/requests/%d/withdraw", playerRequestId), s.PlayerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.True(s.T(), gjson.Get(w.Body.String(), "data.withdrawn").Bool())

		var withdrawn models.JoinRequest
		dbi.First(&withdrawn, playerRequestId)
		assert.Equal(s.T(), types.REQUEST_WITHDRAWN, withdrawn.Status)

		w = s.request(router, "PUT", fmt.Sprintf("/api/v1/requests/%d/withdraw", playerRequestId), s.PlayerToken, nil)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Reviewing a missing request returns NOT_FOUND", func() {
		w := s.request(router, "PUT", "/api/v1/requests/999999/review", s.ManagerToken, types.ReviewJoinRequestBody{Status: types.REQUEST_APPROVED})
		assert.Equal(s.T(), 404, w.Code)
		assert.Equal(s.T(), "NOT_FOUND", gjson.Get(w.Body.String(), "error.code").String())
	})
}

func (s *TestSuite) TestExpireEndpointIsIdempotent() {
	router := s.newRouter()

	stale := models.JoinRequest{
		ClubID:    s.Club.ID,
		TeamID:    s.Team.ID,
		PlayerID:  s.Player.ID,
		Status:    types.REQUEST_PENDING,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	assert.Nil(s.T(), dbi.Create(&stale).Error)

	w := s.request(router, "POST", fmt.Sprintf("/api/v1/clubs/%d/requests/expire", s.Club.ID), s.ManagerToken, nil)
	assert.Equal(s.T(), 200, w.Code)
	assert.GreaterOrEqual(s.T(), gjson.Get(w.Body.String(), "data.expired").Int(), int64(1))

	var request models.JoinRequest
	dbi.First(&request, stale.ID)
	assert.Equal(s.T(), types.REQUEST_EXPIRED, request.Status)

	w = s.request(router, "POST", fmt.Sprintf("/api/v1/clubs/%d/requests/expire", s.Club.ID), s.ManagerToken, nil)
	assert.Equal(s.T(), 200, w.Code)
	assert.Equal(s.T(), int64(0), gjson.Get(w.Body.String(), "data.expired").Int())
}

func (s *TestSuite) TestRequestStats() {
	router := s.newRouter()

	s.Run("A player role cannot read the stats dashboard", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/clubs/%d/requests/stats", s.Club.ID), s.PlayerToken, nil)
		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("A manager gets the aggregate payload", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/clubs/%d/requests/stats", s.Club.ID), s.ManagerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		sjson := w.Body.String()
		assert.True(s.T(), gjson.Get(sjson, "success").Bool())
		assert.True(s.T(), gjson.Get(sjson, "data.by_status").Exists())
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
