package middlewares

import (
	"log"
	"os"
	"pitchconnect/src/db"
	"pitchconnect/src/models"
	"pitchconnect/src/types"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

func abortUnauthorized(ctx *gin.Context, message string) {
	code := types.CodeUnauthorized
	ctx.AbortWithStatusJSON(code.HTTPStatus(), types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: code, Message: message},
	})
}

// AuthMiddleware resolves the session from the Bearer token and stashes
// the caller's identity and active club on the request context. Every
// request past this point has a known user.
func AuthMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer") {
		abortUnauthorized(ctx, "missing bearer token")
		return
	}
	parts := strings.Split(bearerToken, " ")
	if len(parts) < 2 || parts[1] == "" {
		abortUnauthorized(ctx, "missing bearer token")
		return
	}
	reqToken := parts[1]
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return jwtKey, nil
	})
	if err != nil {
		log.Printf("token error: %s\n", err.Error())
		abortUnauthorized(ctx, "invalid token")
		return
	}
	if !tkn.Valid {
		abortUnauthorized(ctx, "invalid token")
		return
	}

	db := db.GetDb()
	var user models.User
	uid, err := strconv.Atoi(claims.Subject)
	if err != nil {
		log.Println("error parsing claims:", err.Error())
		abortUnauthorized(ctx, "invalid token")
		return
	}
	db.Model(&models.User{}).Where(&models.User{ID: uint(uid)}).Find(&user)

	if uint(uid) != user.ID || user.ID < 1 {
		abortUnauthorized(ctx, "unknown user")
		return
	}
	ctx.Set("email", user.Email)
	ctx.Set("id", user.ID)
	ctx.Set("uid", user.UID)
	ctx.Set("club", user.ActiveClub)
	ctx.Set("role", user.Role)
}

func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	ctx.Next()
}
