package main

import (
	"log"
	"net/http"
	"pitchconnect/src/common"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func jobHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/clubs/:id/jobs", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.CreateJobRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			job := models.JobPosting{
				ClubID:         params.ID,
				Title:          body.Title,
				Description:    body.Description,
				Position:       body.Position,
				EmploymentType: body.EmploymentType,
				CreatedBy:      userId,
				Status:         types.JOB_DRAFT,
			}
			if body.Deadline != nil {
				deadline, err := utils.ParseTimeInput(*body.Deadline)
				if err != nil {
					utils.RespondError(ctx, types.CodeBadRequest, err.Error())
					return
				}
				job.Deadline = &deadline
			}
			if body.Publish {
				job.Status = types.JOB_PUBLISHED
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := utils.RequireCapability(tx, userId, params.ID, types.CapManageJobs); err != nil {
					return err
				}
				return tx.Create(&job).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(params.ID, "jobs")
			if job.Status == types.JOB_PUBLISHED && job.Deadline != nil {
				scheduleDeadlineClose(*job.Deadline)
			}
			utils.RespondData(ctx, http.StatusCreated, job)
		}).
		GET("/clubs/:id/jobs", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var filters types.JobQueryFilters
			ctx.ShouldBindQuery(&filters)
			page := utils.ParsePageQuery(ctx)
			db := db.GetDb()
			q := db.Model(&models.JobPosting{}).Where("club_id = ?", params.ID)
			if filters.Status != "" {
				q = q.Where("status = ?", filters.Status)
			} else {
				q = q.Where("status = ?", types.JOB_PUBLISHED)
			}
			if filters.Search != "" {
				q = q.Where("title LIKE ?", "%"+filters.Search+"%")
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			var jobs []models.JobPosting
			if err := q.
				Scopes(utils.Paginate(page, "created_at", "deadline", "title")).
				Find(&jobs).
				Error; err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, jobs, utils.NewPageMeta(page, total, len(jobs)))
		}).
		PUT("/jobs/:id", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.UpdateJobRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var job models.JobPosting
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.JobPosting{}).
					Where("id = ?", params.ID).
					First(&job).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, job.ClubID, types.CapManageJobs); err != nil {
					return err
				}
				if job.Status == types.JOB_ARCHIVED {
					return utils.ErrPrecondition
				}
				updates := map[string]any{}
				if body.Title != nil {
					updates["title"] = *body.Title
				}
				if body.Description != nil {
					updates["description"] = *body.Description
				}
				if body.Position != nil {
					updates["position"] = *body.Position
				}
				if body.EmploymentType != nil {
					updates["employment_type"] = *body.EmploymentType
				}
				if body.Deadline != nil {
					deadline, err := utils.ParseTimeInput(*body.Deadline)
					if err != nil {
						return err
					}
					updates["deadline"] = deadline
				}
				if len(updates) == 0 {
					return nil
				}
				return tx.Model(&models.JobPosting{}).Where("id = ?", params.ID).Updates(updates).Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(job.ClubID, "jobs", params.ID)
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID})
		}).
		PUT("/jobs/:id/publish", func(ctx *gin.Context) {
			job := jobTransition(ctx, []string{string(types.JOB_DRAFT)}, types.JOB_PUBLISHED)
			if job == nil {
				return
			}
			if job.Deadline != nil {
				scheduleDeadlineClose(*job.Deadline)
			}
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": job.ID, "status": types.JOB_PUBLISHED})
		}).
		PUT("/jobs/:id/close", func(ctx *gin.Context) {
			if job := jobTransition(ctx, []string{string(types.JOB_PUBLISHED)}, types.JOB_CLOSED); job != nil {
				utils.RespondData(ctx, http.StatusOK, gin.H{"id": job.ID, "status": types.JOB_CLOSED})
			}
		}).
		DELETE("/jobs/:id", func(ctx *gin.Context) {
			if jobTransition(ctx, []string{string(types.JOB_DRAFT), string(types.JOB_CLOSED)}, types.JOB_ARCHIVED) != nil {
				utils.RespondData(ctx, http.StatusOK, gin.H{"deleted": true})
			}
		}).
		POST("/jobs/:id/apply", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.CreateApplicationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var application models.JobApplication
			var clubId uint
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var job models.JobPosting
				if err := tx.
					Model(&models.JobPosting{}).
					Where("id = ?", params.ID).
					First(&job).
					Error; err != nil {
					return err
				}
				clubId = job.ClubID
				if job.Status != types.JOB_PUBLISHED {
					return utils.ErrPrecondition
				}
				if job.Deadline != nil && job.Deadline.Before(time.Now().UTC()) {
					return utils.ErrPrecondition
				}
				var existing int64
				tx.Model(&models.JobApplication{}).
					Where("job_id = ? AND applicant_id = ? AND status <> ?", job.ID, userId, types.APPLICATION_WITHDRAWN).
					Count(&existing)
				if existing > 0 {
					return gorm.ErrDuplicatedKey
				}
				application = models.JobApplication{
					JobID:       job.ID,
					ApplicantID: userId,
					CoverLetter: body.CoverLetter,
					ResumeURL:   body.ResumeURL,
					Status:      types.APPLICATION_SUBMITTED,
				}
				return tx.Create(&application).Error
			})
			if err != nil {
				if err == gorm.ErrDuplicatedKey {
					utils.RespondError(ctx, types.CodeConflict, "an application for this posting already exists")
					return
				}
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(clubId, "jobs", params.ID)
			utils.RespondData(ctx, http.StatusCreated, application)
		}).
		GET("/jobs/:id/applications", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			page := utils.ParsePageQuery(ctx)
			var applications []models.JobApplication
			var total int64
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var job models.JobPosting
				if err := tx.
					Model(&models.JobPosting{}).
					Where("id = ?", params.ID).
					First(&job).
					Error; err != nil {
					return err
				}
				if _, err := utils.RequireCapability(tx, userId, job.ClubID, types.CapManageJobs); err != nil {
					return err
				}
				q := tx.Model(&models.JobApplication{}).Where("job_id = ?", params.ID)
				if err := q.Count(&total).Error; err != nil {
					return err
				}
				return q.
					Scopes(utils.Paginate(page, "created_at", "status")).
					Preload("Applicant").
					Find(&applications).
					Error
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondPage(ctx, applications, utils.NewPageMeta(page, total, len(applications)))
		}).
		PUT("/applications/:id/review", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var body types.ReviewApplicationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			var clubId uint
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var application models.JobApplication
				if err := tx.
					Model(&models.JobApplication{}).
					Where("id = ?", params.ID).
					Preload("Job").
					First(&application).
					Error; err != nil {
					return err
				}
				if application.Job == nil {
					return gorm.ErrRecordNotFound
				}
				clubId = application.Job.ClubID
				if _, err := utils.RequireCapability(tx, userId, clubId, types.CapManageJobs); err != nil {
					return err
				}
				from := []string{string(types.APPLICATION_SUBMITTED), string(types.APPLICATION_SHORTLISTED)}
				now := time.Now().UTC()
				updates := map[string]any{
					"status":      body.Status,
					"reviewed_by": userId,
					"reviewed_at": now,
				}
				if body.ReviewNotes != nil {
					updates["review_notes"] = *body.ReviewNotes
				}
				return utils.GuardedTransition(tx, &models.JobApplication{}, params.ID, from, updates)
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.InvalidateClubCache(clubId, "jobs")
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": body.Status})
		}).
		PUT("/applications/:id/withdraw", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				utils.RespondError(ctx, types.CodeBadRequest, err.Error())
				return
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var application models.JobApplication
				if err := tx.
					Model(&models.JobApplication{}).
					Where("id = ?", params.ID).
					First(&application).
					Error; err != nil {
					return err
				}
				if application.ApplicantID != userId {
					return utils.ErrForbidden
				}
				from := []string{string(types.APPLICATION_SUBMITTED), string(types.APPLICATION_SHORTLISTED)}
				return utils.GuardedTransition(tx, &models.JobApplication{}, params.ID, from, map[string]any{
					"status": types.APPLICATION_WITHDRAWN,
				})
			})
			if err != nil {
				utils.RespondAuthzError(ctx, err)
				return
			}
			utils.RespondData(ctx, http.StatusOK, gin.H{"id": params.ID, "status": types.APPLICATION_WITHDRAWN})
		})
	return g
}

// jobTransition wraps the shared load+authorize+guarded-update sequence
// for the posting lifecycle endpoints. It responds itself on failure and
// returns nil; on success the caller shapes the payload.
func jobTransition(ctx *gin.Context, from []string, to types.JobStatus) *models.JobPosting {
	userId := ctx.GetUint("id")
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		utils.RespondError(ctx, types.CodeBadRequest, err.Error())
		return nil
	}
	var job models.JobPosting
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.JobPosting{}).
			Where("id = ?", params.ID).
			First(&job).
			Error; err != nil {
			return err
		}
		if _, err := utils.RequireCapability(tx, userId, job.ClubID, types.CapManageJobs); err != nil {
			return err
		}
		return utils.GuardedTransition(tx, &models.JobPosting{}, params.ID, from, map[string]any{"status": to})
	})
	if err != nil {
		utils.RespondAuthzError(ctx, err)
		return nil
	}
	utils.InvalidateClubCache(job.ClubID, "jobs", params.ID)
	job.Status = to
	return &job
}

// scheduleDeadlineClose runs the posting sweep once the deadline passes,
// so a published posting closes without waiting on the hourly cron.
func scheduleDeadlineClose(deadline time.Time) {
	if _, err := lib.CreateOneTimeCronJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(deadline.Add(time.Minute))),
		gocron.NewTask(func() { common.CloseExpiredJobPostings() }),
	); err != nil {
		log.Printf("Error scheduling close for posting deadline: %s\n", err.Error())
	}
}
