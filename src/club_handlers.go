package main

import (
	"log"
	"net/http"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func clubHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/clubs", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var body types.CreateClubRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			body.OwnerID = userId
			club, err := utils.CreateNewClub(&body)
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			go func() {
				name := club.Name
				cal, err := lib.GAPIAddCalendar(name, nil)
				if err != nil {
					log.Printf("Could not create calendar for club [%d]: %s\n", club.ID, err.Error())
					return
				}
				db.GetDb().Model(&models.Club{}).Where("id = ?", club.ID).Update("calendar_id", cal.Id)
			}()
			utils.RespondData(ctx, http.StatusCreated, club)
		}).
		GET("/clubs", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var memberships []models.Membership
			if err := db.
				Model(&models.Membership{}).
				Where("user_id = ? AND is_active = ?", userId, true).
				Preload("Club").
				Find(&memberships).
				Error; err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			clubs := make([]models.Club, 0, len(memberships))
			for _, m := range memberships {
				clubs = append(clubs, m.Club)
			}
			utils.RespondData(ctx, http.StatusOK, clubs)
		}).
		GET("/clubs/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			db := db.GetDb()
			var club models.Club
			if err := db.
				Model(&models.Club{}).
				Where("id = ?", params.ID).
				Preload("Teams").
				First(&club).
				Error; err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondData(ctx, http.StatusOK, club)
		}).
		PUT("/clubs/:id/switch", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var membership models.Membership
				if err := tx.
					Model(&models.Membership{}).
					Where("club_id = ? AND user_id = ? AND is_active = ?", params.ID, userId, true).
					First(&membership).
					Error; err != nil {
					if err == gorm.ErrRecordNotFound {
						return utils.ErrNotMember
					}
					return err
				}
				return tx.Model(&models.User{}).Where("id = ?", userId).Update("active_club", params.ID).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondData(ctx, http.StatusOK, gin.H{"active_club": params.ID})
		}).
		POST("/clubs/:id/teams", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.CreateTeamRequestBody
			body.ClubID = params.ID
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			team := models.Team{
				Name:     body.Name,
				Sport:    body.Sport,
				AgeGroup: body.AgeGroup,
				ClubID:   params.ID,
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageClub); err != nil {
					return err
				}
				return tx.Create(&team).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "teams")
			utils.RespondData(ctx, http.StatusCreated, team)
		}).
		GET("/clubs/:id/teams", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			db := db.GetDb()
			var teams []models.Team
			if err := db.
				Model(&models.Team{}).
				Where("club_id = ?", params.ID).
				Find(&teams).
				Error; err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondData(ctx, http.StatusOK, teams)
		}).
		POST("/clubs/:id/members", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.AddMemberRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			now := time.Now().UTC()
			membership := models.Membership{
				ClubID:   params.ID,
				UserID:   body.UserID,
				Role:     body.Role,
				IsActive: true,
				JoinedAt: &now,
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageClub); err != nil {
					return err
				}
				var count int64
				tx.Model(&models.Membership{}).
					Where("club_id = ? AND user_id = ?", params.ID, body.UserID).
					Count(&count)
				if count > 0 {
					return gorm.ErrDuplicatedKey
				}
				return tx.Create(&membership).Error
			})
			if err != nil {
				if err == gorm.ErrDuplicatedKey {
					utils.RespondError(ctx, types.CodeConflict, "user is already a member of this club")
					return
				}
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "members")
			utils.RespondData(ctx, http.StatusCreated, membership)
		}).
		GET("/clubs/:id/members", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			db := db.GetDb()
			var members []models.Membership
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireMember(tx, userId, params.ID); err != nil {
					return err
				}
				return tx.
					Model(&models.Membership{}).
					Where("club_id = ? AND is_active = ?", params.ID, true).
					Preload("User").
					Find(&members).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondData(ctx, http.StatusOK, members)
		})
	return g
}
