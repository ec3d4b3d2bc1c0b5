package main

import (
	"net/http"
	"pitchconnect/src/db"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func injuryHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/clubs/:id/injuries", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.ReportInjuryRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			occurredAt, err := utils.ParseTimeInput(body.OccurredAt)
			if err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			injury := models.Injury{
				ClubID:      params.ID,
				PlayerID:    body.PlayerID,
				ReportedBy:  userId,
				BodyPart:    body.BodyPart,
				Severity:    body.Severity,
				Description: body.Description,
				OccurredAt:  occurredAt,
				Status:      types.INJURY_ACTIVE,
			}
			if body.ExpectedReturn != nil {
				expected, err := utils.ParseTimeInput(*body.ExpectedReturn)
				if err != nil {
					utils.RespondError(ctx, types.CodeBadRequest, err.Error())
					return
				}
				injury.ExpectedReturn = &expected
			}
			db := db.GetDb()
			err = db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageInjuries); err != nil {
					return err
				}
				return tx.Create(&injury).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "injuries")
			utils.RespondData(ctx, http.StatusCreated, injury)
		}).
		GET("/clubs/:id/injuries", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			page := utils.ParsePageQuery(ctx)
			status := ctx.Query("status")
			playerId := ctx.Query("player")
			var injuries []models.Injury
			var total int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageInjuries); err != nil {
					return err
				}
				q := tx.Model(&models.Injury{}).Where("club_id = ?", params.ID)
				if status != "" {
					q = q.Where("status = ?", status)
				}
				if playerId != "" {
					q = q.Where("player_id = ?", playerId)
				}
				if err := q.Count(&total).Error; err != nil {
					return err
				}
				return q.
					Scopes(utils.Paginate(page, "created_at", "occurred_at", "severity")).
					Preload("Player").
					Find(&injuries).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, injuries, utils.NewPageMeta(page, total, len(injuries)))
		}).
		PUT("/injuries/:id/status", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.UpdateInjuryRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var injury models.Injury
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Injury{}).
					Where("id = ?", params.ID).
					First(&injury).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, injury.ClubID, types.CapManageInjuries); err != nil {
					return err
				}
				from := []string{string(types.INJURY_ACTIVE), string(types.INJURY_RECOVERING)}
				updates := map[string]any{"status": body.Status}
				if body.Status == types.INJURY_RECOVERED {
					updates["recovered_at"] = time.Now().UTC()
				}
				if body.ExpectedReturn != nil {
					expected, err := utils.ParseTimeInput(*body.ExpectedReturn)
					if err != nil {
						return err
					}
					updates["expected_return"] = expected
				}
				if body.Notes != nil {
					updates["notes"] = *body.Notes
				}
				return utils.GuardedTransition(tx, &models.Injury{}, params.ID, from, updates)
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(injury.ClubID, "injuries", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": body.Status})
		}).
		GET("/clubs/:id/players/:playerId/risk", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params struct {
				ID       uint `uri:"id" binding:"required"`
				PlayerID uint `uri:"playerId" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var injuries []models.Injury
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageInjuries); err != nil {
					return err
				}
				return tx.
					Model(&models.Injury{}).
					Where("club_id = ? AND player_id = ?", params.ID, params.PlayerID).
					Find(&injuries).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			summary := utils.ComputeInjuryRisk(params.PlayerID, injuries, time.Now().UTC())
			utils.RespondData(ctx, http.StatusOK, summary)
		})
	return g
}
