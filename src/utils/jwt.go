package utils

import (
	"fmt"
	"os"
	"pitchconnect/src/types"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func GenerateJWT(email string, id uint, club uint) (string, error) {
	claims := types.Claims{
		Username: email,
		Club:     club,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", id),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
