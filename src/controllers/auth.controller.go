package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	"pitchconnect/src/models"
	"pitchconnect/src/utils"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type registerBody struct {
	Email string `json:"email" binding:"required"`
}

// AuthLogin exchanges a verified Firebase identity for an API token. The
// VerifyIdToken middleware has already proven the caller owns the email.
func AuthLogin(ctx *gin.Context) (token *string, status int, err error) {
	var body registerBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	auth, err := lib.GetFirebaseAuth()
	if err != nil {
		log.Printf("Error initializing FirebaseAuth client: %s\n", err.Error())
		return nil, http.StatusBadRequest, err
	}
	user, err := auth.GetUserByEmail(context.Background(), body.Email)
	if err != nil {
		log.Printf("error from Firebase: %s\n", err.Error())
		return nil, http.StatusNotFound, err
	}

	db := db.GetDb()
	var muser models.User
	if err = db.
		Model(&models.User{}).
		Select("id", "name", "email", "active_club").
		Where(&models.User{Email: user.Email}).
		First(&muser).
		Error; err != nil {
		log.Printf("error: %s\n", err.Error())
		return nil, http.StatusNotFound, err
	}

	jwt, err := utils.GenerateJWT(user.Email, muser.ID, muser.ActiveClub)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	if rd := lib.GetRedisClient(); rd != nil {
		rd.Set(ctx, fmt.Sprintf("%d:last_login", muser.ID), time.Now().UTC().Format(time.RFC3339), 0)
	}
	return &jwt, http.StatusOK, nil
}

// AuthRegister creates the local user record for a Firebase identity.
func AuthRegister(ctx *gin.Context) (uid *string, status int, err error) {
	var body registerBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	auth, err := lib.GetFirebaseAuth()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	user, err := auth.GetUserByEmail(context.Background(), body.Email)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.User{}).
			Where("email = ?", body.Email).
			Count(&count).
			Error; err != nil {
			return errors.New("could not complete transaction")
		}
		if count > 0 {
			err := errors.New("user is already registered in the system. Please proceed to Log In")
			log.Printf("error: %s\n", err.Error())
			return err
		}

		newUser := models.User{
			Email: user.Email,
			UID:   user.UID,
			Name:  user.DisplayName,
		}
		if err := tx.Create(&newUser).Error; err != nil {
			log.Printf("Error creating user: %s\n", err.Error())
			return fmt.Errorf("error creating user: %s", user.Email)
		}
		return nil
	})
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return &user.UID, http.StatusOK, nil
}
