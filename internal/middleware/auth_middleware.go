package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/annel0/pilotsim/internal/auth"
)

// Ключи gin.Context, заполняемые JWT
const (
	OperatorKey = "operator"
	AdminKey    = "is_admin"
)

// JWT проверяет токен в заголовке Authorization: Bearer <token>
func JWT(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "отсутствует токен авторизации"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "неверный формат токена"})
			return
		}

		claims, err := issuer.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "недействительный токен"})
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Set(AdminKey, claims.Admin)
		c.Next()
	}
}

// Admin пропускает только токены с правами администратора. Ставится после JWT.
func Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(AdminKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "недостаточно прав доступа"})
			return
		}
		c.Next()
	}
}
