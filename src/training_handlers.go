package main

import (
	"fmt"
	"log"
	"net/http"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/calendar/v3"
	"gorm.io/gorm"
)

func trainingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/clubs/:id/training", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.CreateSessionRequestBody
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
			session := models.TrainingSession{
				ClubID:    params.ID,
				TeamID:    body.TeamID,
				Title:     body.Title,
				Location:  body.Location,
				StartsAt:  startsAt,
				EndsAt:    endsAt,
				Focus:     body.Focus,
				Status:    types.SESSION_SCHEDULED,
				CreatedBy: userId,
			}
			db := db.GetDb()
			err = db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageTraining); err != nil {
					return err
				}
				return tx.Create(&session).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "training")
			go syncSessionToCalendar(&session)
			utils.RespondData(ctx, http.StatusCreated, session)
		}).
		GET("/clubs/:id/training", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			page := utils.ParsePageQuery(ctx)
			var sessions []models.TrainingSession
			var total int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireMember(tx, userId, params.ID); err != nil {
					return err
				}
				q := tx.Model(&models.TrainingSession{}).Where("club_id = ?", params.ID)
				if status := ctx.Query("status"); status != "" {
					q = q.Where("status = ?", status)
				}
				if err := q.Count(&total).Error; err != nil {
					return err
				}
				return q.
					Scopes(utils.Paginate(page, "created_at", "starts_at")).
					Find(&sessions).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, sessions, utils.NewPageMeta(page, total, len(sessions)))
		}).
		PUT("/training/:id/complete", func(ctx *gin.Context) {
			sessionTransition(ctx, []string{string(types.SESSION_SCHEDULED)}, types.SESSION_COMPLETED)
		}).
		PUT("/training/:id/cancel", func(ctx *gin.Context) {
			sessionTransition(ctx, []string{string(types.SESSION_SCHEDULED)}, types.SESSION_CANCELED)
		}).
		POST("/clubs/:id/matches", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.CreateMatchRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			kickoffAt, err := utils.ParseTimeInput(body.KickoffAt)
			if err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			match := models.Match{
				ClubID:      params.ID,
				TeamID:      body.TeamID,
				Opponent:    body.Opponent,
				Venue:       body.Venue,
				KickoffAt:   kickoffAt,
				Competition: body.Competition,
				Status:      types.MATCH_SCHEDULED,
			}
			db := db.GetDb()
			err = db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageTraining); err != nil {
					return err
				}
				return tx.Create(&match).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "matches")
			go syncMatchToCalendar(&match)
			utils.RespondData(ctx, http.StatusCreated, match)
		}).
		GET("/clubs/:id/matches", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			page := utils.ParsePageQuery(ctx)
			var matches []models.Match
			var total int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireMember(tx, userId, params.ID); err != nil {
					return err
				}
				q := tx.Model(&models.Match{}).Where("club_id = ?", params.ID)
				if status := ctx.Query("status"); status != "" {
					q = q.Where("status = ?", status)
				}
				if err := q.Count(&total).Error; err != nil {
					return err
				}
				return q.
					Scopes(utils.Paginate(page, "created_at", "kickoff_at")).
					Find(&matches).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, matches, utils.NewPageMeta(page, total, len(matches)))
		}).
		PUT("/matches/:id/result", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.RecordResultRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var match models.Match
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Match{}).
					Where("id = ?", params.ID).
					First(&match).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, match.ClubID, types.CapManageTraining); err != nil {
					return err
				}
				return utils.GuardedTransition(
					tx,
					&models.Match{},
					params.ID,
					[]string{string(types.MATCH_SCHEDULED), string(types.MATCH_POSTPONED)},
					map[string]any{
						"status":     types.MATCH_PLAYED,
						"home_score": body.HomeScore,
						"away_score": body.AwayScore,
					},
				)
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(match.ClubID, "matches", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": types.MATCH_PLAYED})
		}).
		PUT("/matches/:id/postpone", func(ctx *gin.Context) {
			matchTransition(ctx, []string{string(types.MATCH_SCHEDULED)}, types.MATCH_POSTPONED)
		}).
		PUT("/matches/:id/cancel", func(ctx *gin.Context) {
			matchTransition(ctx, []string{string(types.MATCH_SCHEDULED), string(types.MATCH_POSTPONED)}, types.MATCH_CANCELED)
		})
	return g
}

func sessionTransition(ctx *gin.Context, from []string, to types.SessionStatus) {
	userId := ctx.GetUint("id")
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		utils.RespondError(ctx, types.CodeBadRequest, err.Error())
		return
	}
	var session models.TrainingSession
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.TrainingSession{}).
			Where("id = ?", params.ID).
			First(&session).
			Error; err != nil {
			return err
		}
		if _, err := utils.RequireCapability(tx, userId, session.ClubID, types.CapManageTraining); err != nil {
			return err
		}
		return utils.GuardedTransition(tx, &models.TrainingSession{}, params.ID, from, map[string]any{"status": to})
	})
	if err != nil {
		utils.RespondAuthzError(ctx, err)
		return
	}
	utils.InvalidateClubCache(session.ClubID, "training", params.ID)
	utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": to})
}

func matchTransition(ctx *gin.Context, from []string, to types.MatchStatus) {
	userId := ctx.GetUint("id")
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		utils.RespondError(ctx, types.CodeBadRequest, err.Error())
		return
	}
	var match models.Match
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Match{}).
			Where("id = ?", params.ID).
			First(&match).
			Error; err != nil {
			return err
		}
		if _, err := utils.RequireCapability(tx, userId, match.ClubID, types.CapManageTraining); err != nil {
			return err
		}
		return utils.GuardedTransition(tx, &models.Match{}, params.ID, from, map[string]any{"status": to})
	})
	if err != nil {
		utils.RespondAuthzError(ctx, err)
		return
	}
	utils.InvalidateClubCache(match.ClubID, "matches", params.ID)
	utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": to})
}

// syncSessionToCalendar mirrors a scheduled session onto the club's shared
// calendar when one has been provisioned.
func syncSessionToCalendar(session *models.TrainingSession) {
	var club models.Club
	if err := db.GetDb().Model(&models.Club{}).Where("id = ?", session.ClubID).First(&club).Error; err != nil {
		return
	}
	if club.CalendarID == nil {
		return
	}
	event := &calendar.Event{
		Summary:  session.Title,
		Location: session.Location,
		Start:    &calendar.EventDateTime{DateTime: session.StartsAt.Format(time.RFC3339)},
		End:      &calendar.EventDateTime{DateTime: session.EndsAt.Format(time.RFC3339)},
	}
	created, err := lib.GAPIAddEvent(*club.CalendarID, event, nil)
	if err != nil {
		log.Printf("Could not sync session %d to calendar: %s\n", session.ID, err.Error())
		return
	}
	db.GetDb().Model(&models.TrainingSession{}).Where("id = ?", session.ID).Update("calendar_event_id", created.Id)
}

func syncMatchToCalendar(match *models.Match) {
	var club models.Club
	if err := db.GetDb().Model(&models.Club{}).Where("id = ?", match.ClubID).First(&club).Error; err != nil {
		return
	}
	if club.CalendarID == nil {
		return
	}
	end := match.KickoffAt.Add(2 * time.Hour)
	event := &calendar.Event{
		Summary:  fmt.Sprintf("vs %s", match.Opponent),
		Location: match.Venue,
		Start:    &calendar.EventDateTime{DateTime: match.KickoffAt.Format(time.RFC3339)},
		End:      &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	created, err := lib.GAPIAddEvent(*club.CalendarID, event, nil)
	if err != nil {
		log.Printf("Could not sync match %d to calendar: %s\n", match.ID, err.Error())
		return
	}
	db.GetDb().Model(&models.Match{}).Where("id = ?", match.ID).Update("calendar_event_id", created.Id)
}
