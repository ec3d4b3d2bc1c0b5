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

func contractHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/clubs/:id/contracts", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.CreateContractRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			startsAt, err := utils.ParseTimeInput(body.StartsAt)
			if err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			endsAt, err := utils.ParseTimeInput(body.EndsAt)
			if err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			role := body.Role
			if role == "" {
				role = "player"
			}
			now := time.Now().UTC()
			contract := models.Contract{
				ClubID:   params.ID,
				PlayerID: body.PlayerID,
				Role:     role,
				StartsAt: startsAt,
				EndsAt:   endsAt,
				Terms:    body.Terms,
				Status:   types.CONTRACT_ACTIVE,
				SignedAt: &now,
			}
			db := db.GetDb()
			err = db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageContracts); err != nil {
					return err
				}
				var overlapping int64
				tx.Model(&models.Contract{}).
					Where("club_id = ? AND player_id = ? AND status = ?", params.ID, body.PlayerID, types.CONTRACT_ACTIVE).
					Count(&overlapping)
				if overlapping > 0 {
					return gorm.ErrDuplicatedKey
				}
				return tx.Create(&contract).Error
			})
			if err != nil {
				if err == gorm.ErrDuplicatedKey {
					utils.RespondError(ctx, types.CodeConflict, "player already has an active contract with this club")
					return
				}
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "contracts")
			utils.RespondData(ctx, http.StatusCreated, contract)
		}).
		GET("/clubs/:id/contracts", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			page := utils.ParsePageQuery(ctx)
			status := ctx.Query("status")
			var contracts []models.Contract
			var total int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageContracts); err != nil {
					return err
				}
				q := tx.Model(&models.Contract{}).Where("club_id = ?", params.ID)
				if status != "" {
					q = q.Where("status = ?", status)
				}
				if err := q.Count(&total).Error; err != nil {
					return err
				}
				return q.
					Scopes(utils.Paginate(page, "created_at", "starts_at", "ends_at")).
					Preload("Player").
					Find(&contracts).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, contracts, utils.NewPageMeta(page, total, len(contracts)))
		}).
		GET("/contracts/:id", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var contract models.Contract
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Contract{}).
					Where("id = ?", params.ID).
					Preload("Player").
					First(&contract).
					Error; err != nil {
					return err
				}
				if contract.PlayerID == userId {
					return nil
				}
				_, err := utils.RequireCapability(tx, userId, contract.ClubID, types.CapManageContracts)
				return err
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondData(ctx, http.StatusOK, contract)
		}).
		PUT("/contracts/:id", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.UpdateContractRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var contract models.Contract
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Contract{}).
					Where("id = ?", params.ID).
					First(&contract).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, contract.ClubID, types.CapManageContracts); err != nil {
					return err
				}
				if contract.Status != types.CONTRACT_ACTIVE {
					return utils.ErrPrecondition
				}
				updates := map[string]any{}
				if body.EndsAt != nil {
					endsAt, err := utils.ParseTimeInput(*body.EndsAt)
					if err != nil {
						return err
					}
					updates["ends_at"] = endsAt
				}
				if body.Terms != nil {
					updates["terms"] = body.Terms
				}
				if len(updates) == 0 {
					return nil
				}
				return tx.Model(&models.Contract{}).Where("id = ?", params.ID).Updates(updates).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(contract.ClubID, "contracts", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID})
		}).
		PUT("/contracts/:id/terminate", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var contract models.Contract
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Contract{}).
					Where("id = ?", params.ID).
					First(&contract).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, contract.ClubID, types.CapManageContracts); err != nil {
					return err
				}
				return utils.GuardedTransition(
					tx,
					&models.Contract{},
					params.ID,
					[]string{string(types.CONTRACT_ACTIVE)},
					map[string]any{"status": types.CONTRACT_TERMINATED},
				)
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(contract.ClubID, "contracts", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": types.CONTRACT_TERMINATED})
		})
	return g
}
