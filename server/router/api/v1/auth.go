package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/store"
)

const (
	// userIDContextKey is the echo context key holding the authenticated user id.
	userIDContextKey = "voxlog-user-id"

	issuer              = "voxlog"
	accessTokenDuration = 7 * 24 * time.Hour
)

// ClaimsMessage is the JWT payload carried by access tokens.
type ClaimsMessage struct {
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token for the given user id.
func GenerateAccessToken(userID int32, secret string, now time.Time) (string, error) {
	claims := &ClaimsMessage{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(int64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

func parseAccessToken(tokenString, secret string) (int32, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return 0, errors.Wrap(err, "invalid access token")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "malformed token subject")
	}
	return int32(userID), nil
}

// authMiddleware authenticates every request with a bearer access token.
// The user identity always comes from the token, never from the request body.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "authentication required"})
		}
		userID, err := parseAccessToken(token, s.Secret)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid access token"})
		}
		user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{ID: &userID})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "failed to load user"})
		}
		if user == nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "user not found"})
		}
		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

func userIDFromContext(c echo.Context) int32 {
	if v, ok := c.Get(userIDContextKey).(int32); ok {
		return v
	}
	return 0
}
