package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware validates the bearer token and stores the numeric user id in
// the gin context under "user_id".
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"type":    "error",
				"error":   "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"type":    "error",
				"error":   "Invalid or expired token",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"type":    "error",
				"error":   "Invalid token claims",
			})
			c.Abort()
			return
		}

		// Numeric JSON claims decode as float64.
		sub, ok := claims["sub"].(float64)
		if !ok || sub <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"type":    "error",
				"error":   "Invalid token claims",
			})
			c.Abort()
			return
		}

		c.Set("user_id", uint(sub))
		c.Next()
	}
}
