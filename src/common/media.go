package common

import (
	"encoding/json"
	"errors"
	"log"
	"pitchconnect/src/db"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// ApplyProcessingResult advances a media asset through the processing
// lifecycle. PROCESSING only follows PENDING; terminal states follow
// either. The precondition rides in the UPDATE itself so replayed
// webhook deliveries and the SQS consumer cannot double-apply.
func ApplyProcessingResult(body *types.ProcessingWebhookBody) error {
	var clubId uint
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		var asset models.MediaAsset
		if err := tx.
			Model(&models.MediaAsset{}).
			Where("id = ?", body.MediaID).
			First(&asset).
			Error; err != nil {
			return err
		}
		clubId = asset.ClubID
		from := []string{string(types.PROCESSING_PENDING), string(types.PROCESSING_PROCESSING)}
		if body.Status == types.PROCESSING_PROCESSING {
			from = []string{string(types.PROCESSING_PENDING)}
		}
		updates := map[string]any{"processing_status": body.Status}
		if body.Output != nil {
			updates["output"] = body.Output
		}
		return utils.GuardedTransition(tx, &models.MediaAsset{}, body.MediaID, from, updates)
	})
	if err != nil {
		return err
	}
	utils.InvalidateClubCache(clubId, "media", body.MediaID)
	return nil
}

// MediaResultsHandler feeds transcoder results from the SQS queue through
// the same transition the webhook uses.
func MediaResultsHandler(payload string) {
	if !gjson.Valid(payload) {
		log.Printf("[media] Discarding malformed result payload\n")
		return
	}
	mediaId := gjson.Get(payload, "media_id")
	status := gjson.Get(payload, "status")
	if !mediaId.Exists() || !status.Exists() {
		log.Printf("[media] Result payload missing media_id or status\n")
		return
	}
	var body types.ProcessingWebhookBody
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		log.Printf("[media] Error parsing result payload: %s\n", err.Error())
		return
	}
	if err := ApplyProcessingResult(&body); err != nil {
		if errors.Is(err, utils.ErrPrecondition) {
			log.Printf("[media] Skipping stale result for asset %d\n", body.MediaID)
			return
		}
		log.Printf("[media] Error applying result for asset %d: %s\n", body.MediaID, err.Error())
	}
}
