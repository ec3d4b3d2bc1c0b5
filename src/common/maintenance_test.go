package common

import (
	"fmt"
	"log"
	"testing"
	"time"

	"pitchconnect/src/db"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	d, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:common_%s?mode=memory&cache=shared", t.Name())))
	if err != nil {
		log.Fatalf("error opening test database: %s", err.Error())
	}
	if err := d.AutoMigrate(
		&models.User{},
		&models.Club{},
		&models.Team{},
		&models.JoinRequest{},
		&models.JobPosting{},
		&models.MediaAsset{},
		&models.Contract{},
	); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	db.NewDB(d)
	return d
}

func TestExpireOldJoinRequests(t *testing.T) {
	d := newTestDB(t)
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	rows := []models.JoinRequest{
		{ClubID: 1, TeamID: 1, PlayerID: 1, Status: types.REQUEST_PENDING, ExpiresAt: past},
		{ClubID: 1, TeamID: 1, PlayerID: 2, Status: types.REQUEST_PENDING, ExpiresAt: past},
		{ClubID: 1, TeamID: 1, PlayerID: 3, Status: types.REQUEST_PENDING, ExpiresAt: future},
		{ClubID: 2, TeamID: 2, PlayerID: 1, Status: types.REQUEST_APPROVED, ExpiresAt: past},
	}
	for i := range rows {
		assert.Nil(t, d.Create(&rows[i]).Error)
	}

	expired, err := ExpireOldJoinRequests()
	assert.Nil(t, err)
	assert.Equal(t, int64(2), expired)

	var pending int64
	d.Model(&models.JoinRequest{}).Where("status = ?", types.REQUEST_PENDING).Count(&pending)
	assert.Equal(t, int64(1), pending)

	var approved models.JoinRequest
	d.First(&approved, rows[3].ID)
	assert.Equal(t, types.REQUEST_APPROVED, approved.Status)

	// second sweep finds nothing left
	expired, err = ExpireOldJoinRequests()
	assert.Nil(t, err)
	assert.Equal(t, int64(0), expired)
}

func TestExpireClubJoinRequestsScopesToClub(t *testing.T) {
	d := newTestDB(t)
	past := time.Now().UTC().Add(-time.Hour)
	rows := []models.JoinRequest{
		{ClubID: 1, TeamID: 1, PlayerID: 1, Status: types.REQUEST_PENDING, ExpiresAt: past},
		{ClubID: 2, TeamID: 2, PlayerID: 1, Status: types.REQUEST_PENDING, ExpiresAt: past},
	}
	for i := range rows {
		assert.Nil(t, d.Create(&rows[i]).Error)
	}

	expired, err := ExpireClubJoinRequests(1)
	assert.Nil(t, err)
	assert.Equal(t, int64(1), expired)

	var other models.JoinRequest
	d.First(&other, rows[1].ID)
	assert.Equal(t, types.REQUEST_PENDING, other.Status)
}

func TestCloseExpiredJobPostings(t *testing.T) {
	d := newTestDB(t)
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	rows := []models.JobPosting{
		{ClubID: 1, Title: "Lapsed", Status: types.JOB_PUBLISHED, Deadline: &past},
		{ClubID: 1, Title: "Open", Status: types.JOB_PUBLISHED, Deadline: &future},
		{ClubID: 1, Title: "Rolling", Status: types.JOB_PUBLISHED},
		{ClubID: 1, Title: "Draft", Status: types.JOB_DRAFT, Deadline: &past},
	}
	for i := range rows {
		assert.Nil(t, d.Create(&rows[i]).Error)
	}

	closed, err := CloseExpiredJobPostings()
	assert.Nil(t, err)
	assert.Equal(t, int64(1), closed)

	var lapsed models.JobPosting
	d.First(&lapsed, rows[0].ID)
	assert.Equal(t, types.JOB_CLOSED, lapsed.Status)

	var draft models.JobPosting
	d.First(&draft, rows[3].ID)
	assert.Equal(t, types.JOB_DRAFT, draft.Status)
}

func TestExpireContracts(t *testing.T) {
	d := newTestDB(t)
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	rows := []models.Contract{
		{ClubID: 1, PlayerID: 1, Status: types.CONTRACT_ACTIVE, StartsAt: past.Add(-time.Hour), EndsAt: past},
		{ClubID: 1, PlayerID: 2, Status: types.CONTRACT_ACTIVE, StartsAt: past, EndsAt: future},
		{ClubID: 1, PlayerID: 3, Status: types.CONTRACT_TERMINATED, StartsAt: past.Add(-time.Hour), EndsAt: past},
	}
	for i := range rows {
		assert.Nil(t, d.Create(&rows[i]).Error)
	}

	expired, err := ExpireContracts()
	assert.Nil(t, err)
	assert.Equal(t, int64(1), expired)

	var lapsed models.Contract
	d.First(&lapsed, rows[0].ID)
	assert.Equal(t, types.CONTRACT_EXPIRED, lapsed.Status)
}

func TestApplyProcessingResult(t *testing.T) {
	d := newTestDB(t)
	asset := models.MediaAsset{
		ClubID:    1,
		Title:     "Clip",
		Kind:      types.MEDIA_VIDEO,
		ObjectKey: "clubs/1/media/clip",
	}
	assert.Nil(t, d.Create(&asset).Error)

	err := ApplyProcessingResult(&types.ProcessingWebhookBody{MediaID: asset.ID, Status: types.PROCESSING_PROCESSING})
	assert.Nil(t, err)

	output := types.JSONB{"duration": 90}
	err = ApplyProcessingResult(&types.ProcessingWebhookBody{MediaID: asset.ID, Status: types.PROCESSING_READY, Output: &output})
	assert.Nil(t, err)

	var fresh models.MediaAsset
	d.First(&fresh, asset.ID)
	assert.Equal(t, types.PROCESSING_READY, fresh.ProcessingStatus)
	assert.NotNil(t, fresh.Output)

	// a stale PROCESSING delivery after the terminal state is rejected
	err = ApplyProcessingResult(&types.ProcessingWebhookBody{MediaID: asset.ID, Status: types.PROCESSING_PROCESSING})
	assert.ErrorIs(t, err, utils.ErrPrecondition)

	// so is a replayed READY
	err = ApplyProcessingResult(&types.ProcessingWebhookBody{MediaID: asset.ID, Status: types.PROCESSING_READY})
	assert.ErrorIs(t, err, utils.ErrPrecondition)

	err = ApplyProcessingResult(&types.ProcessingWebhookBody{MediaID: 999999, Status: types.PROCESSING_READY})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMediaResultsHandler(t *testing.T) {
	d := newTestDB(t)
	asset := models.MediaAsset{
		ClubID:    1,
		Title:     "Queue clip",
		Kind:      types.MEDIA_VIDEO,
		ObjectKey: "clubs/1/media/queue-clip",
	}
	assert.Nil(t, d.Create(&asset).Error)

	// malformed and incomplete payloads are discarded without touching rows
	MediaResultsHandler("not json at all")
	MediaResultsHandler(`{"status":"READY"}`)

	var fresh models.MediaAsset
	d.First(&fresh, asset.ID)
	assert.Equal(t, types.PROCESSING_PENDING, fresh.ProcessingStatus)

	MediaResultsHandler(fmt.Sprintf(`{"media_id":%d,"status":"FAILED","output":{"error":"codec"}}`, asset.ID))
	d.First(&fresh, asset.ID)
	assert.Equal(t, types.PROCESSING_FAILED, fresh.ProcessingStatus)

	// a stale replay is skipped quietly
	MediaResultsHandler(fmt.Sprintf(`{"media_id":%d,"status":"READY"}`, asset.ID))
	d.First(&fresh, asset.ID)
	assert.Equal(t, types.PROCESSING_FAILED, fresh.ProcessingStatus)
}
