package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"pitchconnect/src/common"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	"pitchconnect/src/lib/mailer"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const joinRequestTTL = 30 * 24 * time.Hour

func joinRequestHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/requests", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var body types.CreateJoinRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var request models.JoinRequest
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var team models.Team
				if err := tx.
					Model(&models.Team{}).
					Where("id = ?", body.TeamID).
					First(&team).
					Error; err != nil {
					return err
				}
				var onRoster int64
				tx.Model(&models.TeamPlayer{}).
					Where("team_id = ? AND user_id = ? AND status = ?", team.ID, userId, "active").
					Count(&onRoster)
				if onRoster > 0 {
					return gorm.ErrDuplicatedKey
				}
				var pending int64
				tx.Model(&models.JoinRequest{}).
					Where("team_id = ? AND player_id = ? AND status = ?", team.ID, userId, types.REQUEST_PENDING).
					Count(&pending)
				if pending > 0 {
					return gorm.ErrDuplicatedKey
				}
				request = models.JoinRequest{
					ClubID:    team.ClubID,
					TeamID:    team.ID,
					PlayerID:  userId,
					Message:   body.Message,
					Position:  body.Position,
					Status:    types.REQUEST_PENDING,
					ExpiresAt: time.Now().UTC().Add(joinRequestTTL),
				}
				return tx.Create(&request).Error
			})
			if err != nil {
				if err == gorm.ErrDuplicatedKey {
					utils.RespondError(ctx, types.CodeConflict, "an open request or roster spot already exists for this team")
					return
				}
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(request.ClubID, "requests")
			utils.RespondData(ctx, http.StatusCreated, request)
		}).
		GET("/clubs/:id/requests", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var filters types.JoinRequestQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			page := utils.ParsePageQuery(ctx)
			var requests []models.JoinRequest
			var total int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageRequests); err != nil {
					return err
				}
				q := tx.Model(&models.JoinRequest{}).Where("club_id = ?", params.ID)
				if filters.Status != "" {
					q = q.Where("status = ?", filters.Status)
				}
				if filters.TeamID > 0 {
					q = q.Where("team_id = ?", filters.TeamID)
				}
				if filters.From != "" {
					if from, err := utils.ParseTimeInput(filters.From); err == nil {
						q = q.Where("created_at >= ?", from)
					}
				}
				if filters.To != "" {
					if to, err := utils.ParseTimeInput(filters.To); err == nil {
						q = q.Where("created_at <= ?", to)
					}
				}
				if err := q.Count(&total).Error; err != nil {
					return err
				}
				return q.
					Scopes(utils.Paginate(page, "created_at", "status", "reviewed_at")).
					Preload("Player").
					Preload("Team").
					Find(&requests).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, requests, utils.NewPageMeta(page, total, len(requests)))
		}).
		GET("/requests/:id", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var request models.JoinRequest
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.JoinRequest{}).
					Where("id = ?", params.ID).
					Preload("Team").
					Preload("Player").
					First(&request).
					Error; err != nil {
					return err
				}
				if request.PlayerID == userId {
					return nil
				}
				_, err := utils.RequireCapability(tx, userId, request.ClubID, types.CapManageRequests)
				return err
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondData(ctx, http.StatusOK, request)
		}).
		PUT("/requests/:id/review", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.ReviewJoinRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var request models.JoinRequest
			teamPlayerCreated := false
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.JoinRequest{}).
					Where("id = ?", params.ID).
					Preload("Player").
					Preload("Team").
					First(&request).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, request.ClubID, types.CapManageRequests); err != nil {
					return err
				}
				now := time.Now().UTC()
				updates := map[string]any{
					"status":      body.Status,
					"reviewed_by": userId,
					"reviewed_at": now,
				}
				if body.ReviewNotes != nil {
					updates["review_notes"] = *body.ReviewNotes
				}
				if err := utils.GuardedTransition(
					tx,
					&models.JoinRequest{},
					params.ID,
					[]string{string(types.REQUEST_PENDING)},
					updates,
				); err != nil {
					return err
				}
				if body.Status == types.REQUEST_APPROVED {
					position := ""
					if request.Position != nil {
						position = *request.Position
					}
					player := models.TeamPlayer{
						TeamID:   request.TeamID,
						UserID:   request.PlayerID,
						Position: position,
					}
					if err := tx.Create(&player).Error; err != nil {
						return err
					}
					teamPlayerCreated = true
				}
				return nil
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(request.ClubID, "requests", params.ID)
			go notifyJoinRequestReviewed(&request, body.Status)
			utils.RespondData(ctx, http.StatusOK, gin.H{
				"id":                  params.ID,
				"status":              body.Status,
				"team_player_created": teamPlayerCreated,
			})
		}).
		PUT("/requests/:id/withdraw", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var request models.JoinRequest
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.JoinRequest{}).
					Where("id = ?", params.ID).
					First(&request).
					Error; err != nil {
					return err
				}
				if request.PlayerID != userId {
					return utils.ErrForbidden
				}
				return utils.GuardedTransition(
					tx,
					&models.JoinRequest{},
					params.ID,
					[]string{string(types.REQUEST_PENDING)},
					map[string]any{"status": types.REQUEST_WITHDRAWN},
				)
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(request.ClubID, "requests", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"withdrawn": true})
		}).
		POST("/clubs/:id/requests/expire", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			if _, err := utils.RequireCapability(db.GetDb(), userId, params.ID, types.CapManageRequests); err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			expired, err := common.ExpireClubJoinRequests(params.ID)
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			if expired > 0 {
				utils.InvalidateClubCache(params.ID, "requests")
			}
			utils.RespondData(ctx, http.StatusOK, gin.H{"expired": expired})
		}).
		GET("/clubs/:id/requests/stats", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			if _, err := utils.RequireCapability(db.GetDb(), userId, params.ID, types.CapViewStats); err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			cacheKey := fmt.Sprintf("club:%d:requests:stats", params.ID)
			if rdb := lib.GetRedisClient(); rdb != nil {
				if cached, err := rdb.Get(context.Background(), cacheKey).Result(); err == nil {
					var stats types.JoinRequestStats
					if err := json.Unmarshal([]byte(cached), &stats); err == nil {
						utils.RespondData(ctx, http.StatusOK, stats)
						return
					}
				}
			}
			var requests []models.JoinRequest
			if err := db.GetDb().
				Model(&models.JoinRequest{}).
				Where("club_id = ?", params.ID).
				Find(&requests).
				Error; err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			stats := utils.ComputeJoinRequestStats(requests)
			if rdb := lib.GetRedisClient(); rdb != nil {
				if raw, err := json.Marshal(&stats); err == nil {
					rdb.Set(context.Background(), cacheKey, raw, 5*time.Minute)
				}
			}
			utils.RespondData(ctx, http.StatusOK, stats)
		})
	return g
}

func notifyJoinRequestReviewed(request *models.JoinRequest, status types.JoinRequestStatus) {
	payload := &types.JSONB{
		"event":      "join-request.reviewed",
		"request_id": request.ID,
		"club_id":    request.ClubID,
		"status":     status,
	}
	if err := lib.KafkaProduceMessage("requests", utils.WithSuffix("club-events"), payload); err != nil {
		log.Printf("Error producing review event: %s\n", err.Error())
	}
	if request.Player == nil || request.Player.Email == "" {
		return
	}
	teamName := ""
	if request.Team != nil {
		teamName = request.Team.Name
	}
	verdict := "approved"
	if status == types.REQUEST_REJECTED {
		verdict = "rejected"
	}
	input := &lib.SendMailInput{
		From:     "noreply@pitchconnect.app",
		FromName: "PitchConnect",
		To:       []string{request.Player.Email},
		Subject:  fmt.Sprintf("Your request to join %s was %s", teamName, verdict),
		Body:     fmt.Sprintf("Hi %s,\n\nYour request to join %s has been %s.\n", request.Player.Name, teamName, verdict),
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("Error queueing review notification: %s\n", err.Error())
	}
}
