package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func announcementHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/clubs/:id/announcements", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.CreateAnnouncementRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			audience := body.Audience
			if audience == "" {
				audience = "club"
			}
			announcement := models.Announcement{
				ClubID:   params.ID,
				TeamID:   body.TeamID,
				AuthorID: userId,
				Title:    body.Title,
				Body:     body.Body,
				Audience: audience,
				Status:   types.ANNOUNCEMENT_DRAFT,
			}
			if body.Publish {
				now := time.Now().UTC()
				announcement.Status = types.ANNOUNCEMENT_PUBLISHED
				announcement.PublishedAt = &now
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageAnnouncements); err != nil {
					return err
				}
				return tx.Create(&announcement).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "announcements")
			if announcement.Status == types.ANNOUNCEMENT_PUBLISHED {
				go pushAnnouncement(&announcement)
			}
			utils.RespondData(ctx, http.StatusCreated, announcement)
		}).
		GET("/clubs/:id/announcements", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			page := utils.ParsePageQuery(ctx)
			var announcements []models.Announcement
			var total int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				role, err := utils.RequireMember(tx, userId, params.ID)
				if err != nil {
					return err
				}
				q := tx.Model(&models.Announcement{}).Where("club_id = ?", params.ID)
				if !utils.RoleHasCapability(role, types.CapManageAnnouncements) {
					q = q.Where("status = ?", types.ANNOUNCEMENT_PUBLISHED)
				}
				if err := q.Count(&total).Error; err != nil {
					return err
				}
				return q.
					Scopes(utils.Paginate(page, "created_at", "published_at", "title")).
					Find(&announcements).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, announcements, utils.NewPageMeta(page, total, len(announcements)))
		}).
		PUT("/announcements/:id", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.UpdateAnnouncementRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var announcement models.Announcement
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Announcement{}).
					Where("id = ?", params.ID).
					First(&announcement).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, announcement.ClubID, types.CapManageAnnouncements); err != nil {
					return err
				}
				if announcement.Status == types.ANNOUNCEMENT_ARCHIVED {
					return utils.ErrPrecondition
				}
				updates := map[string]any{}
				if body.Title != nil {
					updates["title"] = *body.Title
				}
				if body.Body != nil {
					updates["body"] = *body.Body
				}
				if body.Audience != nil {
					updates["audience"] = *body.Audience
				}
				if len(updates) == 0 {
					return nil
				}
				return tx.Model(&models.Announcement{}).Where("id = ?", params.ID).Updates(updates).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(announcement.ClubID, "announcements", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID})
		}).
		PUT("/announcements/:id/publish", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var announcement models.Announcement
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Announcement{}).
					Where("id = ?", params.ID).
					First(&announcement).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, announcement.ClubID, types.CapManageAnnouncements); err != nil {
					return err
				}
				now := time.Now().UTC()
				return utils.GuardedTransition(
					tx,
					&models.Announcement{},
					params.ID,
					[]string{string(types.ANNOUNCEMENT_DRAFT)},
					map[string]any{"status": types.ANNOUNCEMENT_PUBLISHED, "published_at": now},
				)
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(announcement.ClubID, "announcements", params.ID)
			go pushAnnouncement(&announcement)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": types.ANNOUNCEMENT_PUBLISHED})
		}).
		PUT("/announcements/:id/archive", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var announcement models.Announcement
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Announcement{}).
					Where("id = ?", params.ID).
					First(&announcement).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, announcement.ClubID, types.CapManageAnnouncements); err != nil {
					return err
				}
				return utils.GuardedTransition(
					tx,
					&models.Announcement{},
					params.ID,
					[]string{string(types.ANNOUNCEMENT_PUBLISHED)},
					map[string]any{"status": types.ANNOUNCEMENT_ARCHIVED},
				)
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(announcement.ClubID, "announcements", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": types.ANNOUNCEMENT_ARCHIVED})
		}).
		DELETE("/announcements/:id", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var announcement models.Announcement
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Announcement{}).
					Where("id = ?", params.ID).
					First(&announcement).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, announcement.ClubID, types.CapManageAnnouncements); err != nil {
					return err
				}
				return tx.Delete(&models.Announcement{}, params.ID).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(announcement.ClubID, "announcements", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "deleted": true})
		})
	return g
}

// pushAnnouncement fans a published announcement out to the club topic via
// FCM. Devices subscribe to the topic when the user switches clubs.
func pushAnnouncement(a *models.Announcement) {
	client, err := lib.GetFirebaseMessaging()
	if err != nil {
		log.Printf("Could not get FCM client: %s\n", err.Error())
		return
	}
	msg := &messaging.Message{
		Topic: fmt.Sprintf("club-%d", a.ClubID),
		Notification: &messaging.Notification{
			Title: a.Title,
			Body:  a.Body,
		},
	}
	if _, err := client.Send(context.Background(), msg); err != nil {
		log.Printf("Could not push announcement %d: %s\n", a.ID, err.Error())
	}
}
