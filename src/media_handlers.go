package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"pitchconnect/src/common"
	"pitchconnect/src/config"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	awslib "pitchconnect/src/lib/aws"
	"pitchconnect/src/models"
	"pitchconnect/src/models/scopes"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func mediaHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/clubs/:id/media", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.CreateMediaRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			visibility := body.Visibility
			if visibility == "" {
				visibility = types.VISIBILITY_CLUB
			}
			asset := models.MediaAsset{
				ClubID:      params.ID,
				TeamID:      body.TeamID,
				UploadedBy:  userId,
				Title:       body.Title,
				Kind:        body.Kind,
				ObjectKey:   fmt.Sprintf("clubs/%d/media/%s", params.ID, uuid.New().String()),
				SizeBytes:   body.SizeBytes,
				ContentType: body.ContentType,
				Visibility:  visibility,
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageMedia); err != nil {
					return err
				}
				return tx.Create(&asset).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "media")
			uploadUrl, err := awslib.S3PresignUpload(asset.ObjectKey, asset.ContentType)
			if err != nil {
				log.Printf("Could not presign upload for asset %d: %s\n", asset.ID, err.Error())
			}
			go func() {
				payload := &types.JSONB{
					"media_id":   asset.ID,
					"object_key": asset.ObjectKey,
					"kind":       asset.Kind,
				}
				if err := lib.SNSPublishMessage(utils.WithSuffix("MediaToProcess"), payload); err != nil {
					log.Printf("Could not announce upload for asset %d: %s\n", asset.ID, err.Error())
				}
			}()
			utils.RespondData(ctx, http.StatusCreated, gin.H{"asset": asset, "upload_url": uploadUrl})
		}).
		GET("/clubs/:id/media", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var filters types.MediaQueryFilters
			ctx.ShouldBindQuery(&filters)
			page := utils.ParsePageQuery(ctx)
			var assets []models.MediaAsset
			var total int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireMember(tx, userId, params.ID); err != nil {
					return err
				}
				q := tx.Model(&models.MediaAsset{}).Where("club_id = ?", params.ID)
				if filters.Kind != "" {
					q = q.Where("kind = ?", filters.Kind)
				}
				if filters.Visibility != "" {
					q = q.Where("visibility = ?", filters.Visibility)
				}
				if filters.TeamID > 0 {
					q = q.Where("team_id = ?", filters.TeamID)
				}
				if filters.Search != "" {
					q = q.Where("title LIKE ?", "%"+filters.Search+"%")
				}
				if err := q.Count(&total).Error; err != nil {
					return err
				}
				return q.
					Scopes(utils.Paginate(page, "created_at", "title", "size_bytes")).
					Find(&assets).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, assets, utils.NewPageMeta(page, total, len(assets)))
		}).
		GET("/media/:id/download", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var asset models.MediaAsset
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.MediaAsset{}).
					Scopes(scopes.WithID(params.ID)).
					First(&asset).
					Error; err != nil {
					return err
				}
				if asset.Visibility == types.VISIBILITY_PUBLIC {
					return nil
				}
				if asset.Visibility == types.VISIBILITY_PRIVATE && asset.UploadedBy != userId {
					_, err := utils.RequireCapability(tx, userId, asset.ClubID, types.CapManageMedia)
					return err
				}
				_, err := utils.RequireMember(tx, userId, asset.ClubID)
				return err
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			url, err := awslib.S3PresignDownload(asset.ObjectKey)
			if err != nil {
				utils.RespondError(ctx, types.CodeInternalError, "could not generate download URL")
				return
			}
			utils.RespondData(ctx, http.StatusOK, gin.H{"url": url})
		}).
		PUT("/media/:id", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.UpdateMediaRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var asset models.MediaAsset
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.MediaAsset{}).
					Where("id = ?", params.ID).
					First(&asset).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, asset.ClubID, types.CapManageMedia); err != nil {
					return err
				}
				updates := map[string]any{}
				if body.Title != nil {
					updates["title"] = *body.Title
				}
				if body.Visibility != nil {
					updates["visibility"] = *body.Visibility
				}
				if body.TeamID != nil {
					updates["team_id"] = *body.TeamID
				}
				if len(updates) == 0 {
					return nil
				}
				return tx.Model(&models.MediaAsset{}).Where("id = ?", params.ID).Updates(updates).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(asset.ClubID, "media", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID})
		}).
		DELETE("/media/:id", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var asset models.MediaAsset
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.MediaAsset{}).
					Where("id = ?", params.ID).
					First(&asset).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, asset.ClubID, types.CapManageMedia); err != nil {
					return err
				}
				return tx.Delete(&models.MediaAsset{}, params.ID).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(asset.ClubID, "media", params.ID)
			go func() {
				if err := awslib.S3DeleteObject(asset.ObjectKey); err != nil {
					log.Printf("Could not delete object for asset %d: %s\n", params.ID, err.Error())
				}
			}()
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "deleted": true})
		}).
		POST("/clubs/:id/media/batch-delete", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.BatchMediaRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var keys []string
			var deleted int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageMedia); err != nil {
					return err
				}
				var assets []models.MediaAsset
				if err := tx.
					Model(&models.MediaAsset{}).
					Scopes(scopes.WithClub(params.ID), scopes.WithIDs(body.IDs...)).
					Find(&assets).
					Error; err != nil {
					return err
				}
				for _, a := range assets {
					keys = append(keys, a.ObjectKey)
				}
				res := tx.Scopes(scopes.WithClub(params.ID), scopes.WithIDs(body.IDs...)).Delete(&models.MediaAsset{})
				deleted = res.RowsAffected
				return res.Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "media", body.IDs...)
			go func() {
				for _, key := range keys {
					if err := awslib.S3DeleteObject(key); err != nil {
						log.Printf("Could not delete object %s: %s\n", key, err.Error())
					}
				}
			}()
			utils.RespondData(ctx, http.StatusOK, gin.H{"deleted": deleted})
		}).
		PUT("/clubs/:id/media/batch-visibility", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.BatchVisibilityRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var updated int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageMedia); err != nil {
					return err
				}
				res := tx.
					Model(&models.MediaAsset{}).
					Scopes(scopes.WithClub(params.ID), scopes.WithIDs(body.IDs...)).
					Update("visibility", body.Visibility)
				updated = res.RowsAffected
				return res.Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "media", body.IDs...)
			utils.RespondData(ctx, http.StatusOK, gin.H{"updated": updated})
		}).
		GET("/clubs/:id/media/stats", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var assets []models.MediaAsset
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapViewStats); err != nil {
					return err
				}
				return tx.
					Model(&models.MediaAsset{}).
					Where("club_id = ?", params.ID).
					Find(&assets).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondData(ctx, http.StatusOK, utils.ComputeMediaStats(assets))
		})
	return g
}

// mediaProcessingWebhook receives transcoder callbacks on a public route.
// The caller proves itself with an HMAC-SHA256 signature over the raw
// body; anything else is UNAUTHORIZED before the payload is even parsed.
func mediaProcessingWebhook(ctx *gin.Context) {
	raw, err := ctx.GetRawData()
	if err != nil {
		utils.RespondError(ctx, types.CodeBadRequest, "unreadable body")
		return
	}
	secret := config.WebhookSecret()
	signature := ctx.GetHeader("X-Webhook-Signature")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))
	provided, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(provided, mac.Sum(nil)) {
		log.Printf("Rejected webhook delivery with bad signature (expected %s...)\n", expected[:8])
		utils.RespondError(ctx, types.CodeUnauthorized, "invalid signature")
		return
	}
	var body types.ProcessingWebhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		utils.RespondError(ctx, types.CodeBadRequest, err.Error())
		return
	}
	if body.MediaID == 0 {
		utils.RespondError(ctx, types.CodeBadRequest, "media_id is required")
		return
	}
	switch body.Status {
	case types.PROCESSING_PROCESSING, types.PROCESSING_READY, types.PROCESSING_FAILED:
	default:
		utils.RespondError(ctx, types.CodeBadRequest, "unknown processing status")
		return
	}
	if err := common.ApplyProcessingResult(&body); err != nil {
		utils.RespondAuthzError(ctx, err)
		return
	}
	if body.Status == types.PROCESSING_READY {
		go reconcileAssetSize(body.MediaID)
	}
	utils.RespondData(ctx, http.StatusOK, gin.H{"updated": true})
}

// reconcileAssetSize replaces the client-reported size with what the
// bucket actually stored, once the transcoder confirms the object exists.
func reconcileAssetSize(mediaId uint) {
	var asset models.MediaAsset
	if err := db.GetDb().First(&asset, mediaId).Error; err != nil {
		return
	}
	size, err := awslib.S3ObjectSize(asset.ObjectKey)
	if err != nil {
		log.Printf("Could not read stored size for asset %d: %s\n", mediaId, err.Error())
		return
	}
	if size == nil || *size == asset.SizeBytes {
		return
	}
	if err := db.GetDb().
		Model(&models.MediaAsset{}).
		Scopes(scopes.WithID(mediaId)).
		Update("size_bytes", *size).
		Error; err != nil {
		log.Printf("Could not reconcile size for asset %d: %s\n", mediaId, err.Error())
	}
}
