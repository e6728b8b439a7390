package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medscribe/dto"
	"medscribe/repository"
)

const userIdKey = "userId"

// GenerateToken issues a signed session token for the user.
func GenerateToken(secret string, userId uuid.UUID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userId.String(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}

// Auth rejects requests without a valid bearer token and stores the
// authenticated user id on the request context.
func Auth(secret string, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c)
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c)
			return
		}
		rawId, _ := claims["id"].(string)
		userId, err := uuid.Parse(rawId)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		if _, err := users.FindUserById(c.Request.Context(), userId); err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(userIdKey, userId)
		c.Next()
	}
}

// CurrentUserId returns the authenticated user id set by Auth.
func CurrentUserId(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIdKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Success: false,
		Message: "Not authorized to access this route",
	})
}
