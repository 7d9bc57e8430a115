package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// LearnifyClaims represents custom JWT claims carried in the auth cookie
type LearnifyClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
