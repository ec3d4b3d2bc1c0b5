package main

import (
	"log"
	"net/http"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"pitchconnect/src/utils"

	"github.com/gin-gonic/gin"
)

func meHandler(ctx *gin.Context) {
	userId := ctx.GetUint("id")
	db := db.GetDb()
	var user models.User
	if err := db.
		Model(&models.User{}).
		Where("id = ?", userId).
		Preload("Memberships").
		First(&user).
		Error; err != nil {
		utils.RespondAuthzError(ctx, err)
		return
	}
	utils.RespondData(ctx, http.StatusOK, user)
}

// fcmSubscribeHandler registers a device token on the caller's club topics
// so published announcements reach it.
func fcmSubscribeHandler(ctx *gin.Context) {
	var body struct {
		Token  string   `json:"token" binding:"required"`
		Topics []string `json:"topics" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		utils.RespondError(ctx, types.CodeBadRequest, err.Error())
		return
	}
	fcm, err := lib.GetFirebaseMessaging()
	if err != nil {
		log.Printf("Could not retrieve FCM instance: %v\n", err)
		utils.RespondError(ctx, types.CodeInternalError, "messaging unavailable")
		return
	}
	for _, topic := range body.Topics {
		if _, err := fcm.SubscribeToTopic(ctx, []string{body.Token}, topic); err != nil {
			log.Printf("[FCM] error subscribing to topic [%s]: %v\n", topic, err)
			utils.RespondError(ctx, types.CodeBadRequest, "could not subscribe to topic")
			return
		}
	}
	utils.RespondData(ctx, http.StatusOK, gin.H{"subscribed": len(body.Topics)})
}
