package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/3bube/Dormhub-sub000/models"
	"github.com/3bube/Dormhub-sub000/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID uint
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdministrator }

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IssueToken signs an HS256 token for subject with the given role.
func IssueToken(secret string, userID uint, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, errors.New("token subject is not a user id")
	}
	if c.Role != models.RoleStudent && c.Role != models.RoleAdministrator {
		return Identity{}, errors.New("token carries an unknown role")
	}
	return Identity{UserID: uint(id), Role: c.Role}, nil
}

// Authenticate resolves the bearer token when one is sent. Requests without a
// token pass through anonymously; malformed or expired tokens are rejected.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "Authorization header must be a bearer token")
			return
		}
		ident, err := parseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "invalid token: "+err.Error())
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// CurrentIdentity returns the caller set by Authenticate.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	ident, ok := v.(Identity)
	return ident, ok
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := CurrentIdentity(c)
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if ident.Role != role {
			utils.JSONError(c, http.StatusForbidden, "forbidden", "requires role "+role)
			return
		}
		c.Next()
	}
}
