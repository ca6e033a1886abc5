package middleware

import (
	"net/http"
	"strings"

	"tradecore/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ClaimsKey = "claims"

// Claims are the custom claims the identity service embeds in access tokens.
// This backend only verifies tokens; issuance and refresh live elsewhere.
type Claims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route and requires a
// parseable company_id claim, since every deal operation is gated on the
// calling company.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Forbidden("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Forbidden("invalid or expired token"))
			return
		}
		if _, err := uuid.Parse(claims.CompanyID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Forbidden("token carries no company identity"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims retrieves typed claims from the Gin context.
func GetClaims(c *gin.Context) *Claims {
	claims, _ := c.MustGet(ClaimsKey).(*Claims)
	return claims
}

// CallerCompanyID returns the authenticated company id. Safe after JWTAuth.
func CallerCompanyID(c *gin.Context) uuid.UUID {
	id, _ := uuid.Parse(GetClaims(c).CompanyID)
	return id
}
