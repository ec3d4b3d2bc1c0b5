package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"pitchconnect/src/models"
	"pitchconnect/src/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func (s *TestSuite) signedWebhookRequest(router *gin.Engine, payload string, secret string) *httptest.ResponseRecorder {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	req, _ := http.NewRequest("POST", "/api/v1/webhooks/media-processing", strings.NewReader(payload))
	req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) TestMediaRegistrationAndAccess() {
	router := s.newRouter()

	s.Run("A player role cannot register media", func() {
		body := types.CreateMediaRequestBody{Title: "Match highlights", Kind: types.MEDIA_VIDEO, ContentType: "video/mp4"}
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/clubs/%d/media", s.Club.ID), s.PlayerToken, body)
		assert.Equal(s.T(), 403, w.Code)
	})

	var assetId uint
	s.Run("Manager registers an asset and gets an upload URL", func() {
		body := types.CreateMediaRequestBody{Title: "Match highlights", Kind: types.MEDIA_VIDEO, ContentType: "video/mp4", SizeBytes: 1024}
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/clubs/%d/media", s.Club.ID), s.ManagerToken, body)
		assert.Equal(s.T(), 201, w.Code)
		sjson := w.Body.String()
		assert.Equal(s.T(), "PENDING", gjson.Get(sjson, "data.asset.processing_status").String())
		assert.Contains(s.T(), gjson.Get(sjson, "data.asset.object_key").String(), fmt.Sprintf("clubs/%d/media/", s.Club.ID))
		assetId = uint(gjson.Get(sjson, "data.asset.id").Uint())
	})

	s.Run("Any member can browse club media", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/clubs/%d/media", s.Club.ID), s.PlayerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.GreaterOrEqual(s.T(), gjson.Get(w.Body.String(), "meta.total").Int(), int64(1))
	})

	s.Run("Non-members cannot browse club media", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/clubs/%d/media", s.Club.ID), s.OutsiderToken, nil)
		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("Batch visibility reports rows touched", func() {
		body := types.BatchVisibilityRequestBody{IDs: []uint{assetId}, Visibility: types.VISIBILITY_TEAM}
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/clubs/%d/media/batch-visibility", s.Club.ID), s.ManagerToken, body)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), int64(1), gjson.Get(w.Body.String(), "data.updated").Int())

		var asset models.MediaAsset
		dbi.First(&asset, assetId)
		assert.Equal(s.T(), types.VISIBILITY_TEAM, asset.Visibility)
	})
}

func (s *TestSuite) TestMediaProcessingWebhook() {
	router := s.newRouter()

	asset := models.MediaAsset{
		ClubID:      s.Club.ID,
		UploadedBy:  s.Manager.ID,
		Title:       "Training drills",
		Kind:        types.MEDIA_VIDEO,
		ObjectKey:   fmt.Sprintf("clubs/%d/media/webhook-test", s.Club.ID),
		ContentType: "video/mp4",
	}
	assert.Nil(s.T(), dbi.Create(&asset).Error)

	s.Run("A bad signature is rejected before parsing", func() {
		payload := fmt.Sprintf(`{"media_id":%d,"status":"READY"}`, asset.ID)
		w := s.signedWebhookRequest(router, payload, "wrong-secret")
		assert.Equal(s.T(), 401, w.Code)
		assert.Equal(s.T(), "UNAUTHORIZED", gjson.Get(w.Body.String(), "error.code").String())

		var fresh models.MediaAsset
		dbi.First(&fresh, asset.ID)
		assert.Equal(s.T(), types.PROCESSING_PENDING, fresh.ProcessingStatus)
	})

	s.Run("A missing signature is rejected", func() {
		req, _ := http.NewRequest("POST", "/api/v1/webhooks/media-processing", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("An unknown status is a bad request", func() {
		payload := fmt.Sprintf(`{"media_id":%d,"status":"EXPLODED"}`, asset.ID)
		w := s.signedWebhookRequest(router, payload, "test-webhook-secret")
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("A valid delivery advances PENDING to PROCESSING", func() {
		payload := fmt.Sprintf(`{"media_id":%d,"status":"PROCESSING"}`, asset.ID)
		w := s.signedWebhookRequest(router, payload, "test-webhook-secret")
		assert.Equal(s.T(), 200, w.Code)

		var fresh models.MediaAsset
		dbi.First(&fresh, asset.ID)
		assert.Equal(s.T(), types.PROCESSING_PROCESSING, fresh.ProcessingStatus)
	})

	s.Run("A READY result lands with its output", func() {
		payload := fmt.Sprintf(`{"media_id":%d,"status":"READY","output":{"duration":90}}`, asset.ID)
		w := s.signedWebhookRequest(router, payload, "test-webhook-secret")
		assert.Equal(s.T(), 200, w.Code)

		var fresh models.MediaAsset
		dbi.First(&fresh, asset.ID)
		assert.Equal(s.T(), types.PROCESSING_READY, fresh.ProcessingStatus)
		assert.NotNil(s.T(), fresh.Output)
	})

	s.Run("A replayed delivery cannot double-apply", func() {
		payload := fmt.Sprintf(`{"media_id":%d,"status":"READY","output":{"duration":90}}`, asset.ID)
		w := s.signedWebhookRequest(router, payload, "test-webhook-secret")
		assert.Equal(s.T(), 400, w.Code)
		assert.Equal(s.T(), "BAD_REQUEST", gjson.Get(w.Body.String(), "error.code").String())
	})

	s.Run("An unknown asset returns NOT_FOUND", func() {
		payload := `{"media_id":999999,"status":"READY"}`
		w := s.signedWebhookRequest(router, payload, "test-webhook-secret")
		assert.Equal(s.T(), 404, w.Code)
	})
}
