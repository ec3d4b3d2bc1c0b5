package main

import (
	"fmt"
	"time"

	"pitchconnect/src/models"
	"pitchconnect/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func (s *TestSuite) TestJobPostingLifecycle() {
	router := s.newRouter()
	var jobId uint

	s.Run("Manager creates a draft posting", func() {
		body := types.CreateJobRequestBody{
			Title:       "Head physio",
			Description: "Full time role with the first team",
			Position:    "physio",
		}
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/clubs/%d/jobs", s.Club.ID), s.ManagerToken, body)
		assert.Equal(s.T(), 201, w.Code)
		sjson := w.Body.String()
		assert.Equal(s.T(), "DRAFT", gjson.Get(sjson, "data.status").String())
		jobId = uint(gjson.Get(sjson, "data.id").Uint())
	})

	s.Run("Applying to a draft trips the precondition", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/jobs/%d/apply", jobId), s.OutsiderToken, types.CreateApplicationRequestBody{})
		assert.Equal(s.T(), 400, w.Code)
		assert.Equal(s.T(), "BAD_REQUEST", gjson.Get(w.Body.String(), "error.code").String())
	})

	s.Run("Publish moves DRAFT to PUBLISHED", func() {
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/jobs/%d/publish", jobId), s.ManagerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "PUBLISHED", gjson.Get(w.Body.String(), "data.status").String())
	})

	s.Run("Publishing twice trips the precondition", func() {
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/jobs/%d/publish", jobId), s.ManagerToken, nil)
		assert.Equal(s.T(), 400, w.Code)
	})

	var applicationId uint
	s.Run("Outsider applies to the published posting", func() {
		cover := "I have ten years of experience."
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/jobs/%d/apply", jobId), s.OutsiderToken, types.CreateApplicationRequestBody{CoverLetter: cover})
		assert.Equal(s.T(), 201, w.Code)
		sjson := w.Body.String()
		assert.Equal(s.T(), "SUBMITTED", gjson.Get(sjson, "data.status").String())
		applicationId = uint(gjson.Get(sjson, "data.id").Uint())
	})

	s.Run("A second application conflicts", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/jobs/%d/apply", jobId), s.OutsiderToken, types.CreateApplicationRequestBody{})
		assert.Equal(s.T(), 409, w.Code)
		assert.Equal(s.T(), "CONFLICT", gjson.Get(w.Body.String(), "error.code").String())
	})

	s.Run("Applicants cannot list applications", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/jobs/%d/applications", jobId), s.OutsiderToken, nil)
		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("Manager lists applications", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/jobs/%d/applications", jobId), s.ManagerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.GreaterOrEqual(s.T(), gjson.Get(w.Body.String(), "meta.total").Int(), int64(1))
	})

	s.Run("Manager accepts the application", func() {
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/applications/%d/review", applicationId), s.ManagerToken, types.ReviewApplicationRequestBody{Status: types.APPLICATION_ACCEPTED})
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "ACCEPTED", gjson.Get(w.Body.String(), "data.status").String())
	})

	s.Run("A settled application cannot be reviewed again", func() {
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/applications/%d/review", applicationId), s.ManagerToken, types.ReviewApplicationRequestBody{Status: types.APPLICATION_REJECTED})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("A settled application cannot be withdrawn", func() {
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/applications/%d/withdraw", applicationId), s.OutsiderToken, nil)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Close and archive finish the lifecycle", func() {
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/jobs/%d/close", jobId), s.ManagerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "CLOSED", gjson.Get(w.Body.String(), "data.status").String())

		w = s.request(router, "DELETE", fmt.Sprintf("/api/v1/jobs/%d", jobId), s.ManagerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.True(s.T(), gjson.Get(w.Body.String(), "data.deleted").Bool())

		var archived models.JobPosting
		dbi.First(&archived, jobId)
		assert.Equal(s.T(), types.JOB_ARCHIVED, archived.Status)
	})

	s.Run("An archived posting rejects edits", func() {
		title := "Renamed role"
		w := s.request(router, "PUT", fmt.Sprintf("/api/v1/jobs/%d", jobId), s.ManagerToken, types.UpdateJobRequestBody{Title: &title})
		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestJobDeadlineEnforcement() {
	router := s.newRouter()

	deadline := time.Now().UTC().Add(-time.Hour)
	job := models.JobPosting{
		ClubID:      s.Club.ID,
		Title:       "Kit manager",
		Description: "Match days only",
		Position:    "staff",
		Status:      types.JOB_PUBLISHED,
		Deadline:    &deadline,
		CreatedBy:   s.Owner.ID,
	}
	assert.Nil(s.T(), dbi.Create(&job).Error)

	w := s.request(router, "POST", fmt.Sprintf("/api/v1/jobs/%d/apply", job.ID), s.PlayerToken, types.CreateApplicationRequestBody{})
	assert.Equal(s.T(), 400, w.Code)
	assert.Equal(s.T(), "BAD_REQUEST", gjson.Get(w.Body.String(), "error.code").String())
}

func (s *TestSuite) TestJobListingDefaultsToPublished() {
	router := s.newRouter()

	draft := models.JobPosting{
		ClubID:      s.Club.ID,
		Title:       "Unlisted draft",
		Description: "Not visible yet",
		Position:    "analyst",
		Status:      types.JOB_DRAFT,
		CreatedBy:   s.Owner.ID,
	}
	assert.Nil(s.T(), dbi.Create(&draft).Error)

	w := s.request(router, "GET", fmt.Sprintf("/api/v1/clubs/%d/jobs", s.Club.ID), s.OutsiderToken, nil)
	assert.Equal(s.T(), 200, w.Code)
	for _, row := range gjson.Get(w.Body.String(), "data").Array() {
		assert.Equal(s.T(), "PUBLISHED", row.Get("status").String())
	}

	w = s.request(router, "GET", fmt.Sprintf("/api/v1/clubs/%d/jobs?status=DRAFT", s.Club.ID), s.OutsiderToken, nil)
	assert.Equal(s.T(), 200, w.Code)
	assert.GreaterOrEqual(s.T(), gjson.Get(w.Body.String(), "meta.total").Int(), int64(1))
}
