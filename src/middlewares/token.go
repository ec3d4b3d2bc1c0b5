package middlewares

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"pitchconnect/src/lib"
	"time"

	"github.com/gin-gonic/gin"
)

// VerifyIdToken guards the guest auth routes. The mobile app signs in
// against Firebase first and exchanges its ID token for an API token here.
func VerifyIdToken(ctx *gin.Context) {
	idToken := ctx.GetHeader("Authorization")
	if idToken == "" {
		abortUnauthorized(ctx, "missing authorization header")
		return
	}
	fauth, err := lib.GetFirebaseAuth()
	if err != nil {
		log.Printf("Error retrieving Firebase Auth instance: %s\n", err.Error())
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	token, err := fauth.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.Printf("Failed to verify ID token: %s\n", err.Error())
		abortUnauthorized(ctx, "failed to verify ID token")
		return
	}
	if rd := lib.GetRedisClient(); rd != nil {
		rd.Set(context.Background(), fmt.Sprintf("%s:token", token.UID), idToken, 24*time.Hour)
	}
	ctx.Set("uid", token.UID)
}
