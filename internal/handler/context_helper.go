package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-cms-api/internal/middleware"
	"github.com/noah-isme/site-cms-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}
