package middleware

import (
	"net/http"
	"strings"

	"bancas/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
)

// Roles carried in the "rol" claim.
const (
	RolAdmin    = "admin"
	RolBanca    = "banca"
	RolVentana  = "ventana"
	RolVendedor = "vendedor"
)

// JWTClaims are the custom claims embedded in every access token. Tokens are
// issued by the identity service; this backend only verifies them.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Rol       string `json:"rol"`
	VentanaID string `json:"ventana_id,omitempty"`
	BancaID   string `json:"banca_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}
		if _, err := uuid.Parse(claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token sin usuario valido"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// IDs parses the scope identifiers; missing or malformed ones are uuid.Nil,
// which never matches a restriction scope.
func (c *JWTClaims) IDs() (userID, ventanaID, bancaID uuid.UUID) {
	userID, _ = uuid.Parse(c.UserID)
	ventanaID, _ = uuid.Parse(c.VentanaID)
	bancaID, _ = uuid.Parse(c.BancaID)
	return
}
