package common

import (
	"log"
	"pitchconnect/src/db"
	"pitchconnect/src/models"
	"pitchconnect/src/models/scopes"
	"pitchconnect/src/types"
	"time"
)

// ExpireOldJoinRequests sweeps PENDING requests past their expiry into
// EXPIRED. Runs from the hourly cron and the admin endpoint; a second run
// finds nothing left to touch.
func ExpireOldJoinRequests() (int64, error) {
	db := db.GetDb()
	res := db.
		Model(&models.JoinRequest{}).
		Scopes(scopes.WithPendingStatus).
		Where("expires_at < ?", time.Now().UTC()).
		Update("status", types.REQUEST_EXPIRED)
	if res.Error != nil {
		log.Printf("Failed to expire join requests: %s\n", res.Error.Error())
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("Expired %d join requests\n", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// ExpireClubJoinRequests is the club-scoped sweep behind the admin
// endpoint.
func ExpireClubJoinRequests(clubId uint) (int64, error) {
	db := db.GetDb()
	res := db.
		Model(&models.JoinRequest{}).
		Scopes(scopes.WithClub(clubId), scopes.WithPendingStatus).
		Where("expires_at < ?", time.Now().UTC()).
		Update("status", types.REQUEST_EXPIRED)
	if res.Error != nil {
		log.Printf("Failed to expire join requests for club %d: %s\n", clubId, res.Error.Error())
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func CloseExpiredJobPostings() (int64, error) {
	db := db.GetDb()
	res := db.
		Model(&models.JobPosting{}).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", types.JOB_PUBLISHED, time.Now().UTC()).
		Update("status", types.JOB_CLOSED)
	if res.Error != nil {
		log.Printf("Failed to close job postings: %s\n", res.Error.Error())
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func ExpireContracts() (int64, error) {
	db := db.GetDb()
	res := db.
		Model(&models.Contract{}).
		Where("status = ? AND ends_at < ?", types.CONTRACT_ACTIVE, time.Now().UTC()).
		Update("status", types.CONTRACT_EXPIRED)
	if res.Error != nil {
		log.Printf("Failed to expire contracts: %s\n", res.Error.Error())
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
